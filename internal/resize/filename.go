package resize

import (
	"path/filepath"
	"strings"
)

const defaultSuffix = "_a6"

// OutputName derives the name of the resized copy of name:
// "invoice.pdf" becomes "invoice_a6.pdf" and "README" becomes "README_a6".
// Only the last path element is changed, so "docs.v2/README" becomes
// "docs.v2/README_a6".
func OutputName(name string) string {
	return outputName(name, defaultSuffix)
}

// OutputName derives an output name using the policy's suffix.
func (p Policy) OutputName(name string) string {
	return outputName(name, p.OutputSuffix())
}

// HasOutputSuffix reports whether name already looks like the output of
// this policy.
func (p Policy) HasOutputSuffix(name string) bool {
	_, base := splitDir(name)
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[:i]
	}
	return strings.HasSuffix(strings.ToLower(base), p.OutputSuffix())
}

func outputName(name, suffix string) string {
	dir, base := splitDir(name)
	i := strings.LastIndex(base, ".")
	if i < 0 {
		return dir + base + suffix
	}
	return dir + base[:i] + suffix + base[i:]
}

// splitDir splits name after its last slash or OS path separator. Object
// names always use slashes; local paths may use the OS separator.
func splitDir(name string) (dir, base string) {
	i := strings.LastIndexAny(name, "/"+string(filepath.Separator))
	return name[:i+1], name[i+1:]
}
