package resize

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Lllllllleong/a6printflow/internal/content"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// contentTransformer prepends the scale operator to page content streams.
// It lives for one run. Streams are tracked by object number so a stream
// shared between pages is scaled once, not once per page.
type contentTransformer struct {
	ctx    *model.Context
	scale  float64
	logger *slog.Logger

	done      map[int]bool
	originals map[int][]byte
	merged    map[string]types.IndirectRef
	scaled    int
}

func newContentTransformer(ctx *model.Context, scale float64, logger *slog.Logger) *contentTransformer {
	return &contentTransformer{
		ctx:       ctx,
		scale:     scale,
		logger:    logger,
		done:      map[int]bool{},
		originals: map[int][]byte{},
		merged:    map[string]types.IndirectRef{},
	}
}

func (t *contentTransformer) transformPage(pageNr int, page types.Dict) error {
	obj, found := page.Find("Contents")
	if !found || obj == nil {
		t.logger.Debug("Page has no content.", "page", pageNr)
		return nil
	}

	switch o := obj.(type) {
	case types.IndirectRef:
		target, err := t.ctx.Dereference(o)
		if err != nil {
			return &StructuralError{Page: pageNr, ObjNr: o.ObjectNumber.Value(), Op: "resolve content reference", Err: err}
		}
		switch target := target.(type) {
		case types.StreamDict:
			return t.transformStream(pageNr, o)
		case types.Array:
			return t.transformArray(pageNr, page, target)
		}
		return &StructuralError{
			Page:  pageNr,
			ObjNr: o.ObjectNumber.Value(),
			Op:    "resolve content reference",
			Err:   fmt.Errorf("got %T, want stream or array of streams", target),
		}
	case types.Array:
		return t.transformArray(pageNr, page, o)
	}
	return &StructuralError{Page: pageNr, Op: "resolve content reference", Err: fmt.Errorf("unexpected Contents entry %T", obj)}
}

// transformStream scales a single content stream in place, keeping its
// object number, filters and dictionary entries.
func (t *contentTransformer) transformStream(pageNr int, ref types.IndirectRef) error {
	objNr := ref.ObjectNumber.Value()
	if t.done[objNr] {
		t.logger.Debug("Content stream already scaled.", "page", pageNr, "objNr", objNr)
		return nil
	}

	sd, err := t.streamDict(pageNr, ref)
	if err != nil {
		return err
	}
	data, err := t.original(pageNr, objNr, sd)
	if err != nil {
		return err
	}
	ops, err := content.Decode(data)
	if err != nil {
		return &StructuralError{Page: pageNr, ObjNr: objNr, Op: "decode content stream", Err: err}
	}

	sd.Content = content.Encode(content.Prepend(content.Scale(t.scale), ops))
	if err := sd.Encode(); err != nil {
		return &StructuralError{Page: pageNr, ObjNr: objNr, Op: "encode content stream", Err: err}
	}

	entry, found := t.ctx.Table[objNr]
	if !found || entry == nil {
		return &StructuralError{Page: pageNr, ObjNr: objNr, Op: "write content stream", Err: fmt.Errorf("no xref entry")}
	}
	entry.Object = *sd
	t.done[objNr] = true
	t.scaled++
	t.logger.Debug("Scaled content stream.", "page", pageNr, "objNr", objNr, "operators", len(ops))
	return nil
}

// transformArray handles a Contents array. The member streams are
// concatenated from their original bytes into one new stream that starts
// with the scale operator. Pages naming the same members share the result.
func (t *contentTransformer) transformArray(pageNr int, page types.Dict, arr types.Array) error {
	refs := make([]types.IndirectRef, 0, len(arr))
	for i, o := range arr {
		ref, ok := o.(types.IndirectRef)
		if !ok {
			return &StructuralError{
				Page: pageNr,
				Op:   "resolve content array",
				Err:  fmt.Errorf("element %d is %T, want reference to stream", i, o),
			}
		}
		refs = append(refs, ref)
	}

	switch len(refs) {
	case 0:
		t.logger.Debug("Page has an empty content array.", "page", pageNr)
		return nil
	case 1:
		return t.transformStream(pageNr, refs[0])
	}

	key := sequenceKey(refs)
	if ref, ok := t.merged[key]; ok {
		page["Contents"] = ref
		t.logger.Debug("Reusing merged content stream.", "page", pageNr, "objNr", ref.ObjectNumber.Value())
		return nil
	}

	var buf bytes.Buffer
	for _, ref := range refs {
		sd, err := t.streamDict(pageNr, ref)
		if err != nil {
			return err
		}
		data, err := t.original(pageNr, ref.ObjectNumber.Value(), sd)
		if err != nil {
			return err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	ops, err := content.Decode(buf.Bytes())
	if err != nil {
		return &StructuralError{Page: pageNr, Op: "decode content array", Err: err}
	}

	sd, err := t.ctx.NewStreamDictForBuf(content.Encode(content.Prepend(content.Scale(t.scale), ops)))
	if err != nil {
		return &StructuralError{Page: pageNr, Op: "create merged content stream", Err: err}
	}
	if err := sd.Encode(); err != nil {
		return &StructuralError{Page: pageNr, Op: "encode merged content stream", Err: err}
	}
	ref, err := t.ctx.IndRefForNewObject(*sd)
	if err != nil {
		return &StructuralError{Page: pageNr, Op: "create merged content stream", Err: err}
	}

	page["Contents"] = *ref
	t.merged[key] = *ref
	t.done[ref.ObjectNumber.Value()] = true
	t.scaled++
	t.logger.Debug("Merged content array.", "page", pageNr, "streams", len(refs), "objNr", ref.ObjectNumber.Value())
	return nil
}

func (t *contentTransformer) streamDict(pageNr int, ref types.IndirectRef) (*types.StreamDict, error) {
	objNr := ref.ObjectNumber.Value()
	obj, err := t.ctx.Dereference(ref)
	if err != nil {
		return nil, &StructuralError{Page: pageNr, ObjNr: objNr, Op: "resolve content stream", Err: err}
	}
	sd, ok := obj.(types.StreamDict)
	if !ok {
		return nil, &StructuralError{
			Page:  pageNr,
			ObjNr: objNr,
			Op:    "resolve content stream",
			Err:   fmt.Errorf("got %T, want stream", obj),
		}
	}
	return &sd, nil
}

// original returns the decoded bytes of a stream as they were before this
// run touched it.
func (t *contentTransformer) original(pageNr, objNr int, sd *types.StreamDict) ([]byte, error) {
	if data, ok := t.originals[objNr]; ok {
		return data, nil
	}
	if len(sd.Content) == 0 && len(sd.Raw) > 0 {
		if err := sd.Decode(); err != nil {
			return nil, &StructuralError{Page: pageNr, ObjNr: objNr, Op: "decode stream filters", Err: err}
		}
	}
	data := bytes.Clone(sd.Content)
	t.originals[objNr] = data
	return data, nil
}

func sequenceKey(refs []types.IndirectRef) string {
	parts := make([]string, len(refs))
	for i, ref := range refs {
		parts[i] = strconv.Itoa(ref.ObjectNumber.Value())
	}
	return strings.Join(parts, " ")
}
