package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvList reads a comma separated environment variable. Blank items are
// dropped; an unset or empty variable yields nil.
func GetEnvList(key string) []string {
	var items []string
	for _, item := range strings.Split(GetEnv(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// ObjectStore reads and writes whole objects in GCS.
type ObjectStore struct {
	client *storage.Client

	// MaxRetries and InitialBackoff control Write. The backoff doubles after
	// every failed attempt.
	MaxRetries     int
	InitialBackoff time.Duration
	WriteTimeout   time.Duration
}

// NewObjectStore creates a storage client with the default upload retry
// settings.
func NewObjectStore(ctx context.Context) (*ObjectStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &ObjectStore{
		client:         client,
		MaxRetries:     4,
		InitialBackoff: 1 * time.Second,
		WriteTimeout:   50 * time.Second,
	}, nil
}

// Read returns the content of gs://bucket/object. A missing object yields an
// error matching storage.ErrObjectNotExist.
func (s *ObjectStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}

// Write uploads data to gs://bucket/object, replacing any existing object.
// Failed attempts are retried with exponential backoff.
func (s *ObjectStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	backoff := s.InitialBackoff
	var lastErr error

	for i := 0; i < s.MaxRetries; i++ {
		err := func() error {
			writeCtx, cancel := context.WithTimeout(ctx, s.WriteTimeout)
			defer cancel()

			w := s.client.Bucket(bucket).Object(object).NewWriter(writeCtx)
			w.ContentType = "application/pdf"
			if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
				_ = w.Close()
				return fmt.Errorf("io.Copy to GCS failed: %w", err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
			}
			return nil
		}()

		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", object,
			"attempt", i+1,
			"maxRetries", s.MaxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", object, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", object, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", object, lastErr)
}

// Create writes gs://bucket/object only if it does not exist yet. It reports
// false, without error, when the object was already there.
func (s *ObjectStore) Create(ctx context.Context, bucket, object string, data []byte) (bool, error) {
	return SaveToGCSAtomically(ctx, s.client.Bucket(bucket), object, data)
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't
// already exist. A failed precondition means another run got there first,
// which is not a failure for an idempotent trigger.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, content []byte) (bool, error) {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = "application/pdf"

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("Object already exists. Skipping.", "gcsObject", objectName)
			return false, nil
		}
		return false, fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists. Skipping.", "gcsObject", objectName)
			return false, nil
		}
		return false, fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return true, nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// GCSUri formats a gs:// URI.
func GCSUri(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}
