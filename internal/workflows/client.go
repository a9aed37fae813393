package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"paperforge/internal/activities"
	"paperforge/internal/models"
	"paperforge/internal/pipeline"
	"paperforge/internal/providers"
)

// Processor starts ProcessPaperWorkflow and waits for its result. It is the
// PROCESS_MODE=workflow counterpart of calling the orchestrator inline.
type Processor struct {
	client    client.Client
	taskQueue string
}

func NewProcessor(c client.Client, taskQueue string) *Processor {
	return &Processor{client: c, taskQueue: taskQueue}
}

func (p *Processor) Process(ctx context.Context, job pipeline.Job) (pipeline.Result, error) {
	opts := client.StartWorkflowOptions{
		ID:        "paper-" + job.SessionID + "-" + uuid.NewString()[:8],
		TaskQueue: p.taskQueue,
		// Each run gets a fresh id; a collision means a duplicate submit.
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	run, err := p.client.ExecuteWorkflow(ctx, opts, ProcessPaperWorkflow, ProcessPaperInput{
		RequestID: pipeline.RequestIDFrom(ctx),
		Job:       job,
	})
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("start workflow: %w", err)
	}
	var res pipeline.Result
	if err := run.Get(ctx, &res); err != nil {
		return pipeline.Result{}, FromWorkflowError(err)
	}
	return res, nil
}

// FromWorkflowError restores the pipeline error a workflow failed with, so
// callers can treat both execution modes alike.
func FromWorkflowError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	switch appErr.Type() {
	case activities.ErrTypeInsufficientCredits:
		var d activities.InsufficientCreditsDetails
		if derr := appErr.Details(&d); derr != nil {
			return fmt.Errorf("%s: %w", appErr.Message(), pipeline.ErrInsufficientCredits)
		}
		return &pipeline.InsufficientCreditsError{Required: d.Required, Available: d.Available}
	case activities.ErrTypeInvalidInput:
		return fmt.Errorf("%s: %w", appErr.Message(), pipeline.ErrInvalidInput)
	case activities.ErrTypeStoreUnavailable:
		return fmt.Errorf("%s: %w", appErr.Message(), pipeline.ErrStoreUnavailable)
	case activities.ErrTypeProviderUnavailable, activities.ErrTypeGenerationFailed:
		var d activities.GenerationDetails
		_ = appErr.Details(&d)
		cause := errors.New(appErr.Message())
		if appErr.Type() == activities.ErrTypeProviderUnavailable {
			cause = fmt.Errorf("%s: %w", appErr.Message(), providers.ErrUnavailable)
		}
		kind := models.Kind(d.Kind)
		if !kind.Valid() {
			kind = models.KindSummary
		}
		return &pipeline.GenerationError{Kind: kind, Charged: d.Charged, Err: cause}
	}
	return err
}
