package resize

import (
	"bytes"
	"testing"

	"github.com/Lllllllleong/a6printflow/internal/content"
	"github.com/davecgh/go-spew/spew"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// read parses data without validation so malformed documents reach the
// engine.
func read(t *testing.T, data []byte) *model.Context {
	t.Helper()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		t.Fatalf("counting pages: %v", err)
	}
	return ctx
}

func pageDict(t *testing.T, ctx *model.Context, pageNr int) types.Dict {
	t.Helper()
	page, _, _, err := ctx.PageDict(pageNr, false)
	if err != nil || page == nil {
		t.Fatalf("page %d: %v", pageNr, err)
	}
	return page
}

// contentRef returns the object number the page's Contents points to.
func contentRef(t *testing.T, ctx *model.Context, pageNr int) int {
	t.Helper()
	page := pageDict(t, ctx, pageNr)
	r, ok := page["Contents"].(types.IndirectRef)
	if !ok {
		t.Fatalf("page %d: Contents is not a single reference:\n%s", pageNr, spew.Sdump(page))
	}
	return r.ObjectNumber.Value()
}

func streamAt(t *testing.T, ctx *model.Context, objNr int) types.StreamDict {
	t.Helper()
	obj, err := ctx.Dereference(*types.NewIndirectRef(objNr, 0))
	if err != nil {
		t.Fatal(err)
	}
	sd, ok := obj.(types.StreamDict)
	if !ok {
		t.Fatalf("object %d is %T, want stream", objNr, obj)
	}
	return sd
}

// streamOps decodes the operators of the stream with the given number.
func streamOps(t *testing.T, ctx *model.Context, objNr int) []content.Operation {
	t.Helper()
	sd := streamAt(t, ctx, objNr)
	if len(sd.Content) == 0 && len(sd.Raw) > 0 {
		if err := sd.Decode(); err != nil {
			t.Fatal(err)
		}
	}
	ops, err := content.Decode(sd.Content)
	if err != nil {
		t.Fatalf("object %d: %v\n%q", objNr, err, sd.Content)
	}
	return ops
}

func mustOps(t *testing.T, src string) []content.Operation {
	t.Helper()
	ops, err := content.Decode([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	return ops
}

func boxValues(t *testing.T, obj types.Object) []float64 {
	t.Helper()
	arr, ok := obj.(types.Array)
	if !ok || len(arr) != 4 {
		t.Fatalf("not a rectangle: %s", spew.Sdump(obj))
	}
	res := make([]float64, 4)
	for i, o := range arr {
		switch v := o.(type) {
		case types.Float:
			res[i] = v.Value()
		case types.Integer:
			res[i] = float64(v.Value())
		default:
			t.Fatalf("rectangle element %d is %T", i, o)
		}
	}
	return res
}

func countOps(ops []content.Operation, name string) int {
	n := 0
	for _, op := range ops {
		if op.Name == name {
			n++
		}
	}
	return n
}
