package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Lllllllleong/a6printflow/internal/pdftest"
	"github.com/Lllllllleong/a6printflow/internal/resize"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "label.pdf")
	if err := os.WriteFile(good, pdftest.A4Document("0 0 m 100 100 l S", "1 w"), 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(bad, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")

	var stdout, stderr bytes.Buffer
	status := run([]string{"-out", outDir, "-j", "2", good, bad}, &stdout, &stderr)
	if status != 1 {
		t.Errorf("status = %d, want 1\nstderr:\n%s", status, stderr.String())
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines of output:\n%s", len(lines), stdout.String())
	}
	if !strings.HasPrefix(lines[0], "ok   "+good) || !strings.Contains(lines[0], "2 pages") {
		t.Errorf("unexpected line for good file: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "FAIL "+bad) || !strings.Contains(lines[1], "["+resize.KindLoad+"]") {
		t.Errorf("unexpected line for broken file: %q", lines[1])
	}

	data, err := os.ReadFile(filepath.Join(outDir, "label_a6.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := resize.Load(bytes.NewReader(data), "label_a6.pdf"); err != nil {
		t.Errorf("output does not load: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "broken_a6.pdf")); !os.IsNotExist(err) {
		t.Errorf("failed input left an output file behind: %v", err)
	}
}

func TestRunWritesNextToInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "invoice.pdf")
	if err := os.WriteFile(in, pdftest.A4Document("1 w"), 0o644); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	if status := run([]string{in}, &stdout, &stderr); status != 0 {
		t.Fatalf("status = %d\n%s%s", status, stdout.String(), stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "invoice_a6.pdf")); err != nil {
		t.Error(err)
	}
}

func TestRunUsage(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"-target", "Napkin", "x.pdf"},
		{"-unknown"},
	} {
		var stdout, stderr bytes.Buffer
		if status := run(args, &stdout, &stderr); status != 2 {
			t.Errorf("run(%q) = %d, want 2", args, status)
		}
		if stderr.Len() == 0 {
			t.Errorf("run(%q) printed nothing to stderr", args)
		}
	}
}

func TestRunDottedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "docs.v2")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	in := filepath.Join(dir, "README")
	if err := os.WriteFile(in, pdftest.A4Document("1 w"), 0o644); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	if status := run([]string{in}, &stdout, &stderr); status != 0 {
		t.Fatalf("status = %d\n%s%s", status, stdout.String(), stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "README_a6")); err != nil {
		t.Error(err)
	}
}
