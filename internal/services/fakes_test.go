package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/a6printflow/internal/models"
	"github.com/Lllllllleong/a6printflow/internal/resize"
)

type fakeObjects struct {
	mu       sync.Mutex
	objects  map[string][]byte
	writeErr error
	writes   int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func key(bucket, object string) string { return bucket + "/" + object }

func (f *fakeObjects) put(bucket, object string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key(bucket, object)] = data
}

func (f *fakeObjects) get(bucket, object string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key(bucket, object)]
	return data, ok
}

func (f *fakeObjects) Read(_ context.Context, bucket, object string) ([]byte, error) {
	if data, ok := f.get(bucket, object); ok {
		return data, nil
	}
	return nil, fmt.Errorf("reading gs://%s/%s: %w", bucket, object, storage.ErrObjectNotExist)
}

func (f *fakeObjects) Write(_ context.Context, bucket, object string, data []byte) error {
	f.mu.Lock()
	f.writes++
	err := f.writeErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.put(bucket, object, data)
	return nil
}

func (f *fakeObjects) Create(_ context.Context, bucket, object string, data []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.writeErr != nil {
		return false, f.writeErr
	}
	if _, ok := f.objects[key(bucket, object)]; ok {
		return false, nil
	}
	f.objects[key(bucket, object)] = data
	return true, nil
}

type fakeJobs struct {
	mu        sync.Mutex
	jobs      map[string]*models.PrintJob
	createErr error
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[string]*models.PrintJob{}}
}

func (f *fakeJobs) Create(_ context.Context, job *models.PrintJob) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	id := fmt.Sprintf("job-%d", len(f.jobs)+1)
	stored := *job
	f.jobs[id] = &stored
	return id, nil
}

func (f *fakeJobs) Update(_ context.Context, jobID string, updates []firestore.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return fmt.Errorf("no job %s", jobID)
	}
	for _, u := range updates {
		switch u.Path {
		case "status":
			job.Status = u.Value.(string)
		case "errorKind":
			job.ErrorKind = u.Value.(string)
		case "errorDetails":
			job.ErrorDetails = u.Value.(string)
		case "scale":
			job.Scale = u.Value.(float64)
		case "pageCount":
			job.PageCount = u.Value.(int)
		case "workflowExecutionId":
			job.WorkflowExecutionID = u.Value.(string)
		default:
			return fmt.Errorf("unexpected update path %q", u.Path)
		}
	}
	return nil
}

func (f *fakeJobs) FindByHash(_ context.Context, fileHash, status string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, job := range f.jobs {
		if job.FileHash == fileHash && job.Status == status {
			return id, nil
		}
	}
	return "", nil
}

func (f *fakeJobs) job(id string) models.PrintJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[id]; ok {
		return *job
	}
	return models.PrintJob{}
}

type fakeDispatcher struct {
	requests []models.DispatchRequest
	err      error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req models.DispatchRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.requests = append(f.requests, req)
	return fmt.Sprintf("executions/%d", len(f.requests)), nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quietEngine() *resize.Engine {
	return resize.NewEngine(resize.DefaultPolicy(), quietLogger())
}
