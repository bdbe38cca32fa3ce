package resize

import (
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Page boxes other than MediaBox are expressed in the old coordinate space
// and would crop the rescaled page.
var staleBoxes = []string{"CropBox", "BleedBox", "TrimBox", "ArtBox"}

// rewriteGeometry resets the page's MediaBox to the destination rectangle.
// The box is replaced, not shrunk: only drawing content is scaled. A CropBox
// inherited from the page tree is shadowed by one equal to the new MediaBox.
func rewriteGeometry(ctx *model.Context, pageNr int, page types.Dict, dst Rect) error {
	box := RectForSize(dst.Width(), dst.Height())
	page["MediaBox"] = box.Array()
	for _, key := range staleBoxes {
		page.Delete(key)
	}

	inherited, err := inheritsCropBox(ctx, page)
	if err != nil {
		return &StructuralError{Page: pageNr, Op: "resolve page tree node", Err: err}
	}
	if inherited {
		page["CropBox"] = box.Array()
	}
	return nil
}

// inheritsCropBox reports whether an ancestor of page in the page tree
// carries a CropBox.
func inheritsCropBox(ctx *model.Context, page types.Dict) (bool, error) {
	seen := map[int]bool{}
	parent := page["Parent"]
	for parent != nil {
		if ref, ok := parent.(types.IndirectRef); ok {
			if seen[ref.ObjectNumber.Value()] {
				return false, nil
			}
			seen[ref.ObjectNumber.Value()] = true
		}
		obj, err := ctx.Dereference(parent)
		if err != nil {
			return false, err
		}
		node, ok := obj.(types.Dict)
		if !ok {
			return false, nil
		}
		if _, ok := node["CropBox"]; ok {
			return true, nil
		}
		parent = node["Parent"]
	}
	return false, nil
}
