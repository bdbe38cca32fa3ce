package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/a6printflow/internal/gcp"
	"github.com/Lllllllleong/a6printflow/internal/models"
	"github.com/Lllllllleong/a6printflow/internal/resize"
)

// ObjectStore is the subset of GCS the services need.
type ObjectStore interface {
	// Read fails with an error matching storage.ErrObjectNotExist when the
	// object is missing.
	Read(ctx context.Context, bucket, object string) ([]byte, error)
	Write(ctx context.Context, bucket, object string, data []byte) error
	Create(ctx context.Context, bucket, object string, data []byte) (bool, error)
}

type PrintConfig struct {
	ProjectID    string
	SourceBucket string
	OutputBucket string
	SourcePrefix string
	// Printers lists the accepted printer names. Empty accepts any name and
	// leaves the check to the dispatch workflow.
	Printers []string
}

// PrintFunction serves the print API: it resizes a stored document and
// hands the result to a printer.
type PrintFunction struct {
	objects    ObjectStore
	jobs       JobStore
	dispatcher Dispatcher
	engine     *resize.Engine
	config     PrintConfig
	now        func() time.Time
}

// RequestError is a print API failure with the HTTP status to answer with.
type RequestError struct {
	Code    int
	Message string
	Err     error
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Unwrap() error { return e.Err }

func badRequest(format string, args ...any) *RequestError {
	return &RequestError{Code: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func internalError(err error, format string, args ...any) *RequestError {
	return &RequestError{Code: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...), Err: err}
}

// NewPrintFunction wires the print API to GCS, Firestore and Cloud Workflows
// from the environment.
func NewPrintFunction(ctx context.Context) (*PrintFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	config := PrintConfig{
		ProjectID:    projectID,
		SourceBucket: gcp.GetEnv("SOURCE_BUCKET", ""),
		SourcePrefix: gcp.GetEnv("SOURCE_PREFIX", "printable_files/"),
		Printers:     gcp.GetEnvList("PRINTERS"),
	}
	if config.SourceBucket == "" {
		return nil, fmt.Errorf("SOURCE_BUCKET environment variable must be set")
	}
	config.OutputBucket = gcp.GetEnv("OUTPUT_BUCKET", config.SourceBucket)

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
	dispatcher, err := NewWorkflowDispatcher(ctx, projectID,
		gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		gcp.GetEnv("WORKFLOW_ID", "print-dispatcher"))
	if err != nil {
		return nil, err
	}

	jobs := NewFirestoreJobs(firestoreClient, gcp.GetEnv("FIRESTORE_COLLECTION", "printJobs"))
	f := NewPrintFunctionWith(config, objects, jobs, dispatcher, resize.NewEngine(policy, nil))
	slog.Info("Print API initialized.", "sourceBucket", config.SourceBucket, "printers", config.Printers, "policy", policy.Name)
	return f, nil
}

// NewPrintFunctionWith builds a PrintFunction on the given dependencies.
func NewPrintFunctionWith(config PrintConfig, objects ObjectStore, jobs JobStore, dispatcher Dispatcher, engine *resize.Engine) *PrintFunction {
	return &PrintFunction{
		objects:    objects,
		jobs:       jobs,
		dispatcher: dispatcher,
		engine:     engine,
		config:     config,
		now:        time.Now,
	}
}

func policyFromEnv() (resize.Policy, error) {
	policy, err := resize.PolicyForPapers(gcp.GetEnv("SOURCE_PAPER", "A4"), gcp.GetEnv("TARGET_PAPER", "A6"))
	if err != nil {
		return resize.Policy{}, fmt.Errorf("invalid paper configuration: %w", err)
	}
	return policy, nil
}

// ServeHTTP answers GET with a health message and POST with a print request.
func (f *PrintFunction) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, &models.ResponseMessage{Status: "success", Message: "Service is running!"})
	case http.MethodPost:
		var req models.PrintRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Could not decode request body.", "error", err)
			writeJSON(w, http.StatusBadRequest, &models.ResponseMessage{Status: "error", Message: "Bad Request: could not parse JSON"})
			return
		}
		res, err := f.Process(r.Context(), &req)
		if err != nil {
			code := http.StatusInternalServerError
			var reqErr *RequestError
			if errors.As(err, &reqErr) {
				code = reqErr.Code
			}
			writeJSON(w, code, &models.ResponseMessage{Status: "error", Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, res)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, &models.ResponseMessage{Status: "error", Message: "Method not allowed"})
	}
}

func writeJSON(w http.ResponseWriter, code int, msg *models.ResponseMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		slog.Error("Failed to write response.", "error", err)
	}
}

// Process resizes the requested document, stores the result beside the
// source and dispatches it to the printer. Failures are *RequestError.
func (f *PrintFunction) Process(ctx context.Context, req *models.PrintRequest) (*models.ResponseMessage, error) {
	logCtx := slog.With("filename", req.Filename, "printerName", req.PrinterName)

	if req.Filename == "" || req.PrinterName == "" {
		return nil, badRequest("filename and printer_name are required")
	}
	if !validFilename(req.Filename) {
		return nil, badRequest("Invalid filename: %s", req.Filename)
	}
	if len(f.config.Printers) > 0 && !slices.Contains(f.config.Printers, req.PrinterName) {
		return nil, badRequest("Printer not found: %s", req.PrinterName)
	}

	policy := f.engine.Policy()
	outputName := policy.OutputName(req.Filename)
	sourceObject := f.config.SourcePrefix + req.Filename
	outputObject := f.config.SourcePrefix + outputName
	logCtx = logCtx.With("sourceObject", sourceObject)

	data, err := f.objects.Read(ctx, f.config.SourceBucket, sourceObject)
	if errors.Is(err, storage.ErrObjectNotExist) {
		logCtx.Info("Requested file does not exist.")
		return nil, badRequest("File not found: %s", req.Filename)
	}
	if err != nil {
		logCtx.Error("Failed to read source file.", "error", err)
		return nil, internalError(err, "Failed to read file %s: %v", req.Filename, err)
	}

	jobName := printJobName(policy.Name, req.Filename)
	jobID, err := f.jobs.Create(ctx, &models.PrintJob{
		FileHash:     calculateHash(data),
		SourceObject: sourceObject,
		OutputObject: outputObject,
		PrinterName:  req.PrinterName,
		JobName:      jobName,
		Status:       models.StatusResizing,
		CreatedAt:    f.now(),
	})
	if err != nil {
		logCtx.Error("Failed to create print job.", "error", err)
		return nil, internalError(err, "Failed to record print job: %v", err)
	}
	logCtx = logCtx.With("jobId", jobID)

	out, res, err := f.engine.ResizeBytes(data, req.Filename)
	if err != nil {
		err = handleError(ctx, logCtx, f.jobs, jobID, "failed to resize PDF", err)
		return nil, internalError(err, "Failed to resize PDF to %s: %v", policy.Name, errors.Unwrap(err))
	}

	if err := f.objects.Write(ctx, f.config.OutputBucket, outputObject, out); err != nil {
		err = handleError(ctx, logCtx, f.jobs, jobID, "failed to save resized PDF", err)
		return nil, internalError(err, "Failed to save %s file %s: %v", policy.Name, outputName, errors.Unwrap(err))
	}
	if err := f.jobs.Update(ctx, jobID, resizedUpdates(res)); err != nil {
		logCtx.Warn("Failed to record resize result.", "error", err)
	}
	logCtx.Info("PDF resized and saved.", "outputObject", outputObject, "scale", res.Scale, "pageCount", res.PageCount)

	executionID, err := f.dispatcher.Dispatch(ctx, models.DispatchRequest{
		JobID:       jobID,
		GCSUri:      gcp.GCSUri(f.config.OutputBucket, outputObject),
		PrinterName: req.PrinterName,
		JobName:     jobName,
	})
	if err != nil {
		err = handleError(ctx, logCtx, f.jobs, jobID, "failed to send print job", err)
		return nil, internalError(err, "Failed to send print job: %v", errors.Unwrap(err))
	}
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusDispatched},
		{Path: "workflowExecutionId", Value: executionID},
	}
	if err := f.jobs.Update(ctx, jobID, updates); err != nil {
		logCtx.Warn("Failed to record dispatch.", "error", err)
	}
	logCtx.Info("Print job dispatched.", "workflowExecutionId", executionID)

	return &models.ResponseMessage{
		Status:  "success",
		Message: fmt.Sprintf("Resized to %s, saved as %s, and sent to printer %s", policy.Name, outputName, req.PrinterName),
	}, nil
}

// validFilename accepts relative slash separated names that stay inside the
// source prefix.
func validFilename(name string) bool {
	if path.IsAbs(name) || path.Clean(name) != name {
		return false
	}
	return name != ".." && !strings.HasPrefix(name, "../")
}
