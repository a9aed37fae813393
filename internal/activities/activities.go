package activities

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"paperforge/internal/pipeline"
)

// Stages is the slice of the orchestrator the activities drive.
type Stages interface {
	PreCheck(ctx context.Context, job pipeline.Job) (pipeline.Gate, error)
	Summarize(ctx context.Context, job pipeline.Job) (pipeline.SummaryStage, error)
	GenerateCode(ctx context.Context, job pipeline.Job, summary pipeline.SummaryStage) (pipeline.CodeStage, error)
	Settle(ctx context.Context, job pipeline.Job, gate pipeline.Gate, summary pipeline.SummaryStage, code pipeline.CodeStage) pipeline.Result
	SettlePartial(ctx context.Context, job pipeline.Job, gate pipeline.Gate, summary pipeline.SummaryStage) int64
}

type Activities struct {
	stages Stages
	logger *zap.Logger
}

func New(stages Stages, logger *zap.Logger) *Activities {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Activities{stages: stages, logger: logger.With(zap.String("component", "activities"))}
}

func (a *Activities) PreCheckActivity(ctx context.Context, in PreCheckInput) (pipeline.Gate, error) {
	gate, err := a.stages.PreCheck(a.scope(ctx, in.RequestID), in.Job)
	if err != nil {
		return pipeline.Gate{}, a.toApplicationError(ctx, err)
	}
	return gate, nil
}

func (a *Activities) SummarizeActivity(ctx context.Context, in SummarizeInput) (pipeline.SummaryStage, error) {
	stage, err := a.stages.Summarize(a.scope(ctx, in.RequestID), in.Job)
	if err != nil {
		return pipeline.SummaryStage{}, a.toApplicationError(ctx, err)
	}
	return stage, nil
}

func (a *Activities) GenerateCodeActivity(ctx context.Context, in GenerateCodeInput) (pipeline.CodeStage, error) {
	stage, err := a.stages.GenerateCode(a.scope(ctx, in.RequestID), in.Job, in.Summary)
	if err != nil {
		return pipeline.CodeStage{}, a.toApplicationError(ctx, err)
	}
	return stage, nil
}

// SettleActivity never fails: ledger errors are logged by the orchestrator
// and the response is still produced.
func (a *Activities) SettleActivity(ctx context.Context, in SettleInput) (pipeline.Result, error) {
	return a.stages.Settle(a.scope(ctx, in.RequestID), in.Job, in.Gate, in.Summary, in.Code), nil
}

func (a *Activities) SettlePartialActivity(ctx context.Context, in SettlePartialInput) (SettlePartialOutput, error) {
	charged := a.stages.SettlePartial(a.scope(ctx, in.RequestID), in.Job, in.Gate, in.Summary)
	return SettlePartialOutput{Charged: charged}, nil
}

func (a *Activities) scope(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return pipeline.WithRequestID(ctx, requestID)
}

// toApplicationError converts pipeline errors into non-retryable application
// errors. Anything unrecognised is returned as is and retried by policy.
func (a *Activities) toApplicationError(ctx context.Context, err error) error {
	out := ApplicationError(err)
	if activity.IsActivity(ctx) {
		info := activity.GetInfo(ctx)
		a.logger.Warn("activity failed",
			zap.String("activity", info.ActivityType.Name),
			zap.String("workflow_id", info.WorkflowExecution.ID),
			zap.Int32("attempt", info.Attempt),
			zap.Error(err))
	}
	return out
}

// ApplicationError maps a pipeline error onto its workflow error type.
func ApplicationError(err error) error {
	var ice *pipeline.InsufficientCreditsError
	var gen *pipeline.GenerationError
	switch {
	case errors.As(err, &ice):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInsufficientCredits, nil,
			InsufficientCreditsDetails{Required: ice.Required, Available: ice.Available})
	case errors.As(err, &gen) && errors.Is(err, pipeline.ErrProviderUnavailable):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeProviderUnavailable, nil,
			GenerationDetails{Kind: string(gen.Kind), Charged: gen.Charged})
	case errors.As(err, &gen):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeGenerationFailed, nil,
			GenerationDetails{Kind: string(gen.Kind), Charged: gen.Charged})
	case errors.Is(err, pipeline.ErrInvalidInput):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, nil)
	case errors.Is(err, pipeline.ErrStoreUnavailable):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeStoreUnavailable, nil)
	}
	return err
}
