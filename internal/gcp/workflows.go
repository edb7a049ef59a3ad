package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/documentintelligence/internal/models"
)

// WorkflowTrigger starts a Cloud Workflows execution for each new document.
type WorkflowTrigger struct {
	client *executions.Client
	parent string
}

func NewWorkflowTrigger(ctx context.Context, projectID, location, workflowID string) (*WorkflowTrigger, error) {
	if projectID == "" || workflowID == "" {
		return nil, fmt.Errorf("NewWorkflowTrigger: projectID and workflowID cannot be empty")
	}
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &WorkflowTrigger{
		client: client,
		parent: workflowParent(projectID, location, workflowID),
	}, nil
}

func workflowParent(projectID, location, workflowID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID)
}

// DocumentCreated implements ingestion.Notifier.
func (w *WorkflowTrigger) DocumentCreated(ctx context.Context, doc models.Document) error {
	req, err := executionRequest(w.parent, doc)
	if err != nil {
		return err
	}
	if _, err := w.client.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return nil
}

func executionRequest(parent string, doc models.Document) (*executionspb.CreateExecutionRequest, error) {
	payload, err := json.Marshal(map[string]any{
		"documentId":  doc.ID,
		"userId":      doc.UserID,
		"subject":     doc.Subject,
		"storagePath": doc.StoragePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	return &executionspb.CreateExecutionRequest{
		Parent: parent,
		Execution: &executionspb.Execution{
			Argument: string(payload),
		},
	}, nil
}

func (w *WorkflowTrigger) Close() error {
	return w.client.Close()
}
