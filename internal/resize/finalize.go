package resize

import (
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// finalize frees every xref entry that can no longer be reached from the
// trailer. It must only run once all pages have been rewritten.
func finalize(ctx *model.Context) (int, error) {
	reachable, err := reachableObjects(ctx)
	if err != nil {
		return 0, err
	}

	var unused []int
	for objNr, entry := range ctx.Table {
		if objNr == 0 || entry == nil || entry.Free || reachable[objNr] {
			continue
		}
		unused = append(unused, objNr)
	}
	sort.Ints(unused)

	for _, objNr := range unused {
		if err := ctx.FreeObject(objNr); err != nil {
			return 0, &StructuralError{ObjNr: objNr, Op: "free unreachable object", Err: err}
		}
	}
	return len(unused), nil
}

// reachableObjects returns the object numbers transitively referenced from
// the trailer's Root, Info and Encrypt entries.
func reachableObjects(ctx *model.Context) (map[int]bool, error) {
	reachable := map[int]bool{}
	var stack []types.Object
	for _, root := range []*types.IndirectRef{ctx.Root, ctx.Info, ctx.Encrypt} {
		if root != nil {
			stack = append(stack, *root)
		}
	}

	for len(stack) > 0 {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch o := obj.(type) {
		case types.IndirectRef:
			objNr := o.ObjectNumber.Value()
			if reachable[objNr] {
				continue
			}
			reachable[objNr] = true
			target, err := ctx.Dereference(o)
			if err != nil {
				return nil, &StructuralError{ObjNr: objNr, Op: "resolve reference", Err: err}
			}
			if target != nil {
				stack = append(stack, target)
			}
		case *types.IndirectRef:
			if o != nil {
				stack = append(stack, *o)
			}
		case types.Dict:
			for _, v := range o {
				stack = append(stack, v)
			}
		case types.Array:
			stack = append(stack, o...)
		case types.StreamDict:
			stack = append(stack, o.Dict)
		case *types.StreamDict:
			if o != nil {
				stack = append(stack, o.Dict)
			}
		}
	}
	return reachable, nil
}
