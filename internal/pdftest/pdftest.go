// Package pdftest writes small PDF documents for tests.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"strings"
)

// Builder writes a PDF with a classic xref table. Object numbers are assigned
// in order of Add/Reserve, starting at 1 with the catalog and the page tree.
type Builder struct {
	// PagesExtra is appended to the page tree root, for attributes pages
	// inherit.
	PagesExtra string

	objects []string
	catalog int
	pages   int
	kids    []int
}

func New() *Builder {
	b := &Builder{}
	b.catalog = b.Reserve()
	b.pages = b.Reserve()
	return b
}

// Add appends an object with the given body and returns its number.
func (b *Builder) Add(body string) int {
	b.objects = append(b.objects, body)
	return len(b.objects)
}

func (b *Builder) Reserve() int { return b.Add("null") }

func (b *Builder) Set(objNr int, body string) { b.objects[objNr-1] = body }

// Stream adds a content stream object holding data.
func (b *Builder) Stream(data string) int {
	return b.Add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(data), data))
}

// FlateStream adds a Flate compressed stream with an extra dictionary entry.
func (b *Builder) FlateStream(data string) int {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write([]byte(data))
	zw.Close()
	return b.Add(fmt.Sprintf("<< /Length %d /Filter /FlateDecode /Foo /Bar >>\nstream\n%s\nendstream", buf.Len(), buf.String()))
}

// Page adds a page with the given Contents value and extra entries. An empty
// contents leaves the entry out.
func (b *Builder) Page(contents, extra string) int {
	body := fmt.Sprintf("<< /Type /Page /Parent %d 0 R /Resources << >>", b.pages)
	if contents != "" {
		body += " /Contents " + contents
	}
	body += " " + extra + " >>"
	nr := b.Add(body)
	b.kids = append(b.kids, nr)
	return nr
}

// Ref formats an indirect reference to objNr.
func Ref(objNr int) string { return fmt.Sprintf("%d 0 R", objNr) }

// Bytes serialises the document. Pages inherit an A4 MediaBox from the page
// tree unless they set their own.
func (b *Builder) Bytes() []byte {
	kids := make([]string, len(b.kids))
	for i, k := range b.kids {
		kids[i] = Ref(k)
	}
	b.Set(b.pages, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 595.28 841.89] %s>>",
		strings.Join(kids, " "), len(b.kids), b.PagesExtra))
	b.Set(b.catalog, fmt.Sprintf("<< /Type /Catalog /Pages %s >>", Ref(b.pages)))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(b.objects))
	for i, body := range b.objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(b.objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %s >>\nstartxref\n%d\n%%%%EOF\n",
		len(b.objects)+1, Ref(b.catalog), xref)
	return buf.Bytes()
}

// A4Document returns a document with one A4 page per content string.
func A4Document(contents ...string) []byte {
	b := New()
	for _, c := range contents {
		b.Page(Ref(b.Stream(c)), "")
	}
	return b.Bytes()
}
