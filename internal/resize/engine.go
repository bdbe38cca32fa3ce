// Package resize rewrites the pages of a PDF to a smaller paper size.
//
// Every page gets the destination MediaBox and its content stream is
// prefixed with a uniform scale transform, so drawing issued in the original
// coordinates lands on the smaller page. Objects orphaned by the rewrite are
// freed before the document is written.
package resize

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Result describes one completed run.
type Result struct {
	Scale         float64
	PageCount     int
	StreamsScaled int
	ObjectsFreed  int
}

// Engine applies a Policy to documents. An Engine holds no per-document
// state and may be used from several goroutines, each run working on its
// own *model.Context.
type Engine struct {
	policy Policy
	logger *slog.Logger
}

// NewEngine returns an engine for policy. A nil logger means slog.Default().
func NewEngine(policy Policy, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{policy: policy, logger: logger}
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy { return e.policy }

// Resize rewrites every page of ctx in document order and frees the objects
// left unreachable. The scale is checked before anything is touched, so an
// *OversizeError leaves ctx unmodified. Any other error leaves ctx partially
// rewritten and it must be discarded.
func (e *Engine) Resize(ctx *model.Context) (*Result, error) {
	scale, err := e.policy.Scale()
	if err != nil {
		return nil, err
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, &StructuralError{Op: "count pages", Err: err}
	}

	t := newContentTransformer(ctx, scale, e.logger)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		page, _, _, err := ctx.PageDict(pageNr, false)
		if err != nil {
			return nil, &StructuralError{Page: pageNr, Op: "resolve page", Err: err}
		}
		if page == nil {
			return nil, &StructuralError{Page: pageNr, Op: "resolve page", Err: fmt.Errorf("page is not a dictionary")}
		}
		if err := rewriteGeometry(ctx, pageNr, page, e.policy.Destination); err != nil {
			return nil, err
		}
		if err := t.transformPage(pageNr, page); err != nil {
			return nil, err
		}
	}

	freed, err := finalize(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Scale:         scale,
		PageCount:     ctx.PageCount,
		StreamsScaled: t.scaled,
		ObjectsFreed:  freed,
	}
	e.logger.Info("Document resized.",
		"scale", scale,
		"pageCount", res.PageCount,
		"streamsScaled", res.StreamsScaled,
		"objectsFreed", res.ObjectsFreed,
	)
	return res, nil
}

// Load parses a PDF into an object graph. path only labels errors.
func Load(rs io.ReadSeeker, path string) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(rs, conf)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return ctx, nil
}

// Save serialises ctx to w. path only labels errors.
func Save(ctx *model.Context, w io.Writer, path string) error {
	if err := api.WriteContext(ctx, w); err != nil {
		return &SaveError{Path: path, Err: err}
	}
	return nil
}

// ResizeBytes runs the whole pipeline on an in-memory document and returns
// the new document. Nothing is returned unless every step succeeded.
func (e *Engine) ResizeBytes(data []byte, name string) ([]byte, *Result, error) {
	ctx, err := Load(bytes.NewReader(data), name)
	if err != nil {
		return nil, nil, err
	}
	res, err := e.Resize(ctx)
	if err != nil {
		return nil, nil, err
	}
	var out bytes.Buffer
	if err := Save(ctx, &out, e.policy.OutputName(name)); err != nil {
		return nil, nil, err
	}
	return out.Bytes(), res, nil
}

// ResizeFile resizes the document at inPath and writes it to outPath. The
// output file is only created once the new document is complete.
func (e *Engine) ResizeFile(inPath, outPath string) (*Result, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return nil, &LoadError{Path: inPath, Err: err}
	}
	ctx, err := Load(bytes.NewReader(data), inPath)
	if err != nil {
		return nil, err
	}
	res, err := e.Resize(ctx)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := Save(ctx, &out, outPath); err != nil {
		return nil, err
	}
	if err := os.WriteFile(outPath, out.Bytes(), 0o644); err != nil {
		return nil, &SaveError{Path: outPath, Err: err}
	}
	return res, nil
}
