// Command a6resize shrinks PDF files to a smaller paper size on the local
// disk.
//
//	a6resize [-source A4] [-target A6] [-out dir] [-j N] [-v] file...
//
// Each input is written next to itself, or into -out, with the target
// paper's suffix inserted before the extension: invoice.pdf becomes
// invoice_a6.pdf.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Lllllllleong/a6printflow/internal/resize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type outcome struct {
	in, out string
	res     *resize.Result
	err     error
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("a6resize", flag.ContinueOnError)
	flags.SetOutput(stderr)
	source := flags.String("source", "A4", "paper size the documents were laid out for")
	target := flags.String("target", "A6", "paper size to shrink to")
	outDir := flags.String("out", "", "directory for the resized files (default: next to each input)")
	jobs := flags.Int("j", runtime.NumCPU(), "number of files processed concurrently")
	verbose := flags.Bool("v", false, "log every page")
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: a6resize [flags] file...")
		flags.PrintDefaults()
		return 2
	}

	logger := newLogger(stderr, *verbose)
	policy, err := resize.PolicyForPapers(*source, *target)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	engine := resize.NewEngine(policy, logger)

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}

	results := make([]outcome, flags.NArg())
	var eg errgroup.Group
	eg.SetLimit(max(*jobs, 1))
	for i, in := range flags.Args() {
		out := policy.OutputName(in)
		if *outDir != "" {
			out = filepath.Join(*outDir, filepath.Base(out))
		}
		eg.Go(func() error {
			res, err := engine.ResizeFile(in, out)
			results[i] = outcome{in: in, out: out, res: res, err: err}
			return nil
		})
	}
	eg.Wait()

	status := 0
	for _, r := range results {
		if r.err != nil {
			fmt.Fprintf(stdout, "FAIL %s: [%s] %v\n", r.in, resize.Kind(r.err), r.err)
			status = 1
			continue
		}
		fmt.Fprintf(stdout, "ok   %s -> %s (%d pages, scale %.6f)\n", r.in, r.out, r.res.PageCount, r.res.Scale)
	}
	return status
}

// newLogger writes human readable logs to a terminal and JSON otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelWarn}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
