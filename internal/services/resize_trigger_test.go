package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lllllllleong/a6printflow/internal/models"
	"github.com/Lllllllleong/a6printflow/internal/pdftest"
	"github.com/Lllllllleong/a6printflow/internal/resize"
	"github.com/google/go-cmp/cmp"
)

func newTrigger(outputBucket string) (*ResizeTriggerFunction, *fakeObjects, *fakeJobs) {
	objects := newFakeObjects()
	jobs := newFakeJobs()
	f := NewResizeTriggerWith(ResizeTriggerConfig{OutputBucket: outputBucket}, objects, jobs, quietEngine())
	f.now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	return f, objects, jobs
}

func TestResizeOnUpload(t *testing.T) {
	f, objects, jobs := newTrigger("")
	source := pdftest.A4Document("0 0 m 595 842 l S", "1 w", "q Q")
	objects.put("uploads", "printable_files/labels.pdf", source)

	if err := f.Process(context.Background(), models.GCSEvent{Bucket: "uploads", Name: "printable_files/labels.pdf"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := objects.get("uploads", "printable_files/labels_a6.pdf"); !ok {
		t.Fatal("resized object not written next to the source")
	}

	job := jobs.job("job-1")
	want := models.PrintJob{
		FileHash:     calculateHash(source),
		SourceObject: "printable_files/labels.pdf",
		OutputObject: "printable_files/labels_a6.pdf",
		Status:       models.StatusResized,
		Scale:        job.Scale,
		PageCount:    3,
		CreatedAt:    time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	}
	if d := cmp.Diff(want, job); d != "" {
		t.Errorf("job mismatch (-want +got):\n%s", d)
	}
}

func TestResizeOnUploadSeparateOutputBucket(t *testing.T) {
	f, objects, _ := newTrigger("resized")
	objects.put("uploads", "a.pdf", pdftest.A4Document("1 w"))

	if err := f.Process(context.Background(), models.GCSEvent{Bucket: "uploads", Name: "a.pdf"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := objects.get("resized", "a_a6.pdf"); !ok {
		t.Error("resized object not written to the output bucket")
	}
	if _, ok := objects.get("uploads", "a_a6.pdf"); ok {
		t.Error("resized object written to the source bucket")
	}
}

func TestResizeOnUploadSkips(t *testing.T) {
	for _, name := range []string{
		"printable_files/readme.txt",
		"printable_files/labels_a6.pdf",
		"printable_files/LABELS_A6.PDF",
	} {
		f, objects, jobs := newTrigger("")
		// Present so that a missing skip would not fail on the read.
		objects.put("uploads", name, pdftest.A4Document("1 w"))

		if err := f.Process(context.Background(), models.GCSEvent{Bucket: "uploads", Name: name}); err != nil {
			t.Errorf("%s: %v", name, err)
		}
		if len(jobs.jobs) != 0 || objects.writes != 0 {
			t.Errorf("%s: object was processed", name)
		}
	}
}

func TestResizeOnUploadDuplicate(t *testing.T) {
	f, objects, jobs := newTrigger("")
	source := pdftest.A4Document("1 w")
	objects.put("uploads", "a.pdf", source)
	objects.put("uploads", "copy.pdf", source)

	ctx := context.Background()
	if err := f.Process(ctx, models.GCSEvent{Bucket: "uploads", Name: "a.pdf"}); err != nil {
		t.Fatal(err)
	}
	if err := f.Process(ctx, models.GCSEvent{Bucket: "uploads", Name: "copy.pdf"}); err != nil {
		t.Fatal(err)
	}
	if len(jobs.jobs) != 1 {
		t.Errorf("got %d jobs, want 1", len(jobs.jobs))
	}
	if _, ok := objects.get("uploads", "copy_a6.pdf"); ok {
		t.Error("duplicate content resized again")
	}
}

func TestResizeOnUploadRetryAfterFailure(t *testing.T) {
	f, objects, jobs := newTrigger("")
	objects.put("uploads", "a.pdf", pdftest.A4Document("1 w"))
	objects.writeErr = errors.New("backend error")

	ctx := context.Background()
	event := models.GCSEvent{Bucket: "uploads", Name: "a.pdf"}
	if err := f.Process(ctx, event); err == nil {
		t.Fatal("expected an error")
	}
	if job := jobs.job("job-1"); job.Status != models.StatusFailed {
		t.Errorf("job status = %s", job.Status)
	}

	// A failed job does not count as a duplicate.
	objects.writeErr = nil
	if err := f.Process(ctx, event); err != nil {
		t.Fatal(err)
	}
	if job := jobs.job("job-2"); job.Status != models.StatusResized {
		t.Errorf("retry job status = %s", job.Status)
	}
}

func TestResizeOnUploadOutputExists(t *testing.T) {
	f, objects, jobs := newTrigger("")
	objects.put("uploads", "a.pdf", pdftest.A4Document("1 w"))
	objects.put("uploads", "a_a6.pdf", []byte("earlier output"))

	if err := f.Process(context.Background(), models.GCSEvent{Bucket: "uploads", Name: "a.pdf"}); err != nil {
		t.Fatal(err)
	}
	if data, _ := objects.get("uploads", "a_a6.pdf"); string(data) != "earlier output" {
		t.Error("existing output was overwritten")
	}
	if job := jobs.job("job-1"); job.Status != models.StatusResized {
		t.Errorf("job status = %s", job.Status)
	}
}

func TestResizeOnUploadFailureKinds(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		kind string
	}{
		{"not a pdf", []byte("hello"), resize.KindLoad},
		{"bad content", pdftest.A4Document("0 0 m ] S"), resize.KindStructural},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, objects, jobs := newTrigger("")
			objects.put("uploads", "a.pdf", tc.data)

			// Rejected documents are not retried.
			if err := f.Process(context.Background(), models.GCSEvent{Bucket: "uploads", Name: "a.pdf"}); err != nil {
				t.Errorf("Process returned %v", err)
			}
			if job := jobs.job("job-1"); job.Status != models.StatusFailed || job.ErrorKind != tc.kind {
				t.Errorf("job status %s kind %s", job.Status, job.ErrorKind)
			}
			if objects.writes != 0 {
				t.Error("failed resize wrote output")
			}
		})
	}
}

func TestResizeOnUploadMissingObject(t *testing.T) {
	f, _, jobs := newTrigger("")
	if err := f.Process(context.Background(), models.GCSEvent{Bucket: "uploads", Name: "gone.pdf"}); err == nil {
		t.Error("expected an error for a missing object")
	}
	if len(jobs.jobs) != 0 {
		t.Error("job created for a missing object")
	}
}
