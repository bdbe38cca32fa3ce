package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Lllllllleong/a6printflow/internal/gcp"
	"github.com/Lllllllleong/a6printflow/internal/models"
	"github.com/Lllllllleong/a6printflow/internal/resize"
)

type ResizeTriggerConfig struct {
	ProjectID string
	// OutputBucket receives the resized documents. Empty writes them back
	// into the bucket the event came from.
	OutputBucket string
}

// ResizeTriggerFunction resizes every PDF uploaded to the source bucket.
type ResizeTriggerFunction struct {
	objects ObjectStore
	jobs    JobStore
	engine  *resize.Engine
	config  ResizeTriggerConfig
	now     func() time.Time
}

func NewResizeTrigger(ctx context.Context) (*ResizeTriggerFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	config := ResizeTriggerConfig{
		ProjectID:    projectID,
		OutputBucket: gcp.GetEnv("OUTPUT_BUCKET", ""),
	}

	policy, err := policyFromEnv()
	if err != nil {
		return nil, err
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID, gcp.GetEnv("FIRESTORE_DATABASE", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	objects, err := gcp.NewObjectStore(ctx)
	if err != nil {
		return nil, err
	}

	jobs := NewFirestoreJobs(firestoreClient, gcp.GetEnv("FIRESTORE_COLLECTION", "printJobs"))
	f := NewResizeTriggerWith(config, objects, jobs, resize.NewEngine(policy, nil))
	slog.Info("Resize trigger initialized.", "outputBucket", config.OutputBucket, "policy", policy.Name)
	return f, nil
}

// NewResizeTriggerWith builds a ResizeTriggerFunction on the given dependencies.
func NewResizeTriggerWith(config ResizeTriggerConfig, objects ObjectStore, jobs JobStore, engine *resize.Engine) *ResizeTriggerFunction {
	return &ResizeTriggerFunction{
		objects: objects,
		jobs:    jobs,
		engine:  engine,
		config:  config,
		now:     time.Now,
	}
}

// Process resizes the uploaded object. Objects that are not PDFs, that are
// themselves resize output, or whose content was already resized are
// skipped without error. A document the engine rejects is recorded as
// FAILED and not reported back, so the event is not redelivered.
func (f *ResizeTriggerFunction) Process(ctx context.Context, e models.GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)

	policy := f.engine.Policy()
	if !strings.HasSuffix(strings.ToLower(e.Name), ".pdf") {
		logCtx.Info("Not a PDF. Skipping.")
		return nil
	}
	// Output lands next to its source and would otherwise be shrunk again.
	if policy.HasOutputSuffix(e.Name) {
		logCtx.Info("Object is resize output. Skipping.")
		return nil
	}
	logCtx.Info("Processing new GCS object.")

	data, err := f.objects.Read(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	fileHash := calculateHash(data)
	logCtx = logCtx.With("fileHash", fileHash)

	existing, err := f.jobs.FindByHash(ctx, fileHash, models.StatusResized)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if existing != "" {
		logCtx.Info("Duplicate file detected. Skipping.", "existingJobId", existing)
		return nil
	}

	outputBucket := f.config.OutputBucket
	if outputBucket == "" {
		outputBucket = e.Bucket
	}
	outputObject := policy.OutputName(e.Name)

	jobID, err := f.jobs.Create(ctx, &models.PrintJob{
		FileHash:     fileHash,
		SourceObject: e.Name,
		OutputObject: outputObject,
		Status:       models.StatusResizing,
		CreatedAt:    f.now(),
	})
	if err != nil {
		logCtx.Error("Failed to create print job", "error", err)
		return err
	}
	logCtx = logCtx.With("jobId", jobID)

	out, res, err := f.engine.ResizeBytes(data, e.Name)
	if err != nil {
		err = handleError(ctx, logCtx, f.jobs, jobID, "failed to resize PDF", err)
		// The same bytes fail the same way; redelivery cannot help.
		if resize.Kind(err) != resize.KindUnknown {
			return nil
		}
		return err
	}

	created, err := f.objects.Create(ctx, outputBucket, outputObject, out)
	if err != nil {
		return handleError(ctx, logCtx, f.jobs, jobID, "failed to save resized PDF", err)
	}
	if !created {
		logCtx.Info("Resized PDF already present.", "outputObject", outputObject)
	}

	if err := f.jobs.Update(ctx, jobID, resizedUpdates(res)); err != nil {
		return handleError(ctx, logCtx, f.jobs, jobID, "failed to update status to RESIZED", err)
	}
	logCtx.Info("PDF resized.", "outputObject", gcp.GCSUri(outputBucket, outputObject), "scale", res.Scale, "pageCount", res.PageCount)
	return nil
}
