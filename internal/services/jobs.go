package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/a6printflow/internal/models"
	"github.com/Lllllllleong/a6printflow/internal/resize"
	"google.golang.org/api/iterator"
)

// JobStore records print jobs.
type JobStore interface {
	Create(ctx context.Context, job *models.PrintJob) (string, error)
	Update(ctx context.Context, jobID string, updates []firestore.Update) error
	// FindByHash returns the ID of a job for fileHash in the given status,
	// or "" if there is none.
	FindByHash(ctx context.Context, fileHash, status string) (string, error)
}

// FirestoreJobs keeps print jobs in a Firestore collection.
type FirestoreJobs struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreJobs(client *firestore.Client, collection string) *FirestoreJobs {
	return &FirestoreJobs{client: client, collection: collection}
}

func (j *FirestoreJobs) Create(ctx context.Context, job *models.PrintJob) (string, error) {
	docRef, _, err := j.client.Collection(j.collection).Add(ctx, job)
	if err != nil {
		return "", fmt.Errorf("failed to create print job: %w", err)
	}
	return docRef.ID, nil
}

func (j *FirestoreJobs) Update(ctx context.Context, jobID string, updates []firestore.Update) error {
	if _, err := j.client.Collection(j.collection).Doc(jobID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update print job %s: %w", jobID, err)
	}
	return nil
}

func (j *FirestoreJobs) FindByHash(ctx context.Context, fileHash, status string) (string, error) {
	iter := j.client.Collection(j.collection).
		Where("fileHash", "==", fileHash).
		Where("status", "==", status).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	return doc.Ref.ID, nil
}

// handleError logs a processing failure, marks the job FAILED with the
// error's kind and returns the wrapped error.
func handleError(ctx context.Context, logCtx *slog.Logger, jobs JobStore, jobID, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	kind := resize.Kind(originalErr)
	logCtx.Error(message, "error", originalErr, "errorKind", kind)
	if jobID != "" {
		updates := []firestore.Update{
			{Path: "status", Value: models.StatusFailed},
			{Path: "errorKind", Value: kind},
			{Path: "errorDetails", Value: fullError},
		}
		if err := jobs.Update(ctx, jobID, updates); err != nil {
			logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
		}
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

func resizedUpdates(res *resize.Result) []firestore.Update {
	return []firestore.Update{
		{Path: "status", Value: models.StatusResized},
		{Path: "scale", Value: res.Scale},
		{Path: "pageCount", Value: res.PageCount},
	}
}

func calculateHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
