package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/a6printflow/internal/models"
	"github.com/Lllllllleong/a6printflow/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	resizeTriggerInstance *services.ResizeTriggerFunction
	once                  sync.Once
	initErr               error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Fired by GCS object finalize events on the source bucket.
	functions.CloudEvent("ResizeOnUpload", resizeOnUpload)
}

// main is required by the Go Functions Framework.
func main() {}

func resizeOnUpload(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		resizeTriggerInstance, initErr = services.NewResizeTrigger(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "eventId", e.ID(), "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Process logs its own failures; returning the error marks the
	// invocation as failed so the event is retried.
	return resizeTriggerInstance.Process(ctx, gcsEvent)
}
