package resize

import (
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Paper sizes in PostScript points (1/72 inch). pdfcpu's paper table rounds
// these to whole points; the exact values keep the A4 to A6 ratio intact.
const (
	A4WidthPts  = 595.28
	A4HeightPts = 841.89
	A6WidthPts  = 297.64
	A6HeightPts = 419.53
)

// Rect is a rectangle in default user space, in points.
type Rect struct {
	LLX, LLY, URX, URY float64
}

// RectForSize returns the rectangle [0 0 w h].
func RectForSize(w, h float64) Rect {
	return Rect{URX: w, URY: h}
}

func (r Rect) Width() float64  { return r.URX - r.LLX }
func (r Rect) Height() float64 { return r.URY - r.LLY }

// Valid reports whether r has a positive width and height.
func (r Rect) Valid() bool {
	return r.URX > r.LLX && r.URY > r.LLY
}

// Array returns r as a PDF rectangle array.
func (r Rect) Array() types.Array {
	return types.NewRectangle(r.LLX, r.LLY, r.URX, r.URY).Array()
}

func (r Rect) String() string {
	return fmt.Sprintf("[%.2f %.2f %.2f %.2f]", r.LLX, r.LLY, r.URX, r.URY)
}

// Policy fixes the page size documents are assumed to have and the size
// they are rewritten to.
type Policy struct {
	Source      Rect
	Destination Rect

	// Name labels the destination size, e.g. "A6". It determines the suffix
	// of derived output file names.
	Name string
}

// DefaultPolicy shrinks A4 documents to A6.
func DefaultPolicy() Policy {
	return Policy{
		Source:      RectForSize(A4WidthPts, A4HeightPts),
		Destination: RectForSize(A6WidthPts, A6HeightPts),
		Name:        "A6",
	}
}

// PolicyForPapers builds a policy from two paper names such as "A4" and
// "A5". Names are looked up in pdfcpu's paper size table, except for A4 and
// A6 which use the exact sizes above.
func PolicyForPapers(source, destination string) (Policy, error) {
	src, err := paperRect(source)
	if err != nil {
		return Policy{}, err
	}
	dst, err := paperRect(destination)
	if err != nil {
		return Policy{}, err
	}
	return Policy{Source: src, Destination: dst, Name: strings.ToUpper(destination)}, nil
}

func paperRect(name string) (Rect, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	switch key {
	case "A4":
		return RectForSize(A4WidthPts, A4HeightPts), nil
	case "A6":
		return RectForSize(A6WidthPts, A6HeightPts), nil
	}
	dim, ok := types.PaperSize[key]
	if !ok {
		return Rect{}, fmt.Errorf("unknown paper size %q", name)
	}
	return RectForSize(dim.Width, dim.Height), nil
}

// Scale returns the uniform factor that fits the source rectangle into the
// destination rectangle on both axes. A destination larger than the source
// on either axis is refused with an *OversizeError.
func (p Policy) Scale() (float64, error) {
	if !p.Source.Valid() || !p.Destination.Valid() {
		return 0, &StructuralError{
			Op:  "scale policy",
			Err: fmt.Errorf("degenerate rectangle: source %s, destination %s", p.Source, p.Destination),
		}
	}
	sx := p.Destination.Width() / p.Source.Width()
	sy := p.Destination.Height() / p.Source.Height()
	if sx > 1 || sy > 1 {
		return 0, &OversizeError{Scale: max(sx, sy), Source: p.Source, Destination: p.Destination}
	}
	return min(sx, sy), nil
}

// OutputSuffix is the suffix OutputName inserts, "_a6" for the default
// policy.
func (p Policy) OutputSuffix() string {
	if p.Name == "" {
		return defaultSuffix
	}
	return "_" + strings.ToLower(p.Name)
}
