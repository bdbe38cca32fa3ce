package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/a6printflow/internal/services"
)

var (
	printInstance *services.PrintFunction
	once          sync.Once
	initErr       error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandlePrint" is the entry point name we'll see in GCP.
	functions.HTTP("HandlePrint", handlePrint)
}

// main is required by the Go Functions Framework.
func main() {}

func handlePrint(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		printInstance, initErr = services.NewPrintFunction(context.Background())
	})
	if initErr != nil {
		slog.Error("CRITICAL: Print API initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	printInstance.ServeHTTP(w, r)
}
