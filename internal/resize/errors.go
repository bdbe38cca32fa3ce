package resize

import (
	"errors"
	"fmt"
)

// LoadError reports that the source could not be parsed into an object graph.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load PDF file %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// OversizeError reports a policy whose destination is larger than its
// source on at least one axis. Documents are never scaled up.
type OversizeError struct {
	Scale       float64
	Source      Rect
	Destination Rect
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("scaling up is not handled: factor %.4f from %s to %s", e.Scale, e.Source, e.Destination)
}

// StructuralError reports a page, content reference or stream that could
// not be resolved, decoded or encoded.
type StructuralError struct {
	Page  int // 1-based, 0 if not page specific
	ObjNr int // 0 if not object specific
	Op    string
	Err   error
}

func (e *StructuralError) Error() string {
	msg := e.Op
	if e.Page > 0 {
		msg += fmt.Sprintf(" (page %d", e.Page)
		if e.ObjNr > 0 {
			msg += fmt.Sprintf(", object %d", e.ObjNr)
		}
		msg += ")"
	} else if e.ObjNr > 0 {
		msg += fmt.Sprintf(" (object %d)", e.ObjNr)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// SaveError reports that the finished graph could not be serialised or
// written.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("failed to save new PDF file %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Error kinds as recorded on print jobs.
const (
	KindLoad       = "LOAD"
	KindOversize   = "OVERSIZE"
	KindStructural = "STRUCTURAL"
	KindSave       = "SAVE"
	KindUnknown    = "UNKNOWN"
)

// Kind classifies err by the failure stage it came from.
func Kind(err error) string {
	var (
		loadErr       *LoadError
		oversizeErr   *OversizeError
		structuralErr *StructuralError
		saveErr       *SaveError
	)
	switch {
	case errors.As(err, &loadErr):
		return KindLoad
	case errors.As(err, &oversizeErr):
		return KindOversize
	case errors.As(err, &structuralErr):
		return KindStructural
	case errors.As(err, &saveErr):
		return KindSave
	}
	return KindUnknown
}
