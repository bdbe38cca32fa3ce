package services

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/a6printflow/internal/models"
)

// Dispatcher hands a resized document to the printer side and returns an
// identifier for the hand-off.
type Dispatcher interface {
	Dispatch(ctx context.Context, req models.DispatchRequest) (string, error)
}

// WorkflowDispatcher starts one Cloud Workflows execution per print job. The
// workflow talks to the print spooler.
type WorkflowDispatcher struct {
	client *executions.Client
	parent string
}

func NewWorkflowDispatcher(ctx context.Context, projectID, location, workflowID string) (*WorkflowDispatcher, error) {
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &WorkflowDispatcher{
		client: client,
		parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
	}, nil
}

func (d *WorkflowDispatcher) Dispatch(ctx context.Context, req models.DispatchRequest) (string, error) {
	payloadBytes, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	exec, err := d.client.CreateExecution(ctx, &executionspb.CreateExecutionRequest{
		Parent: d.parent,
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return exec.GetName(), nil
}

// printJobName is the spooler job name for filename.
func printJobName(policyName, filename string) string {
	return fmt.Sprintf("%s Print Job - %s", policyName, filename)
}
