package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"paperforge/internal/activities"
	"paperforge/internal/pipeline"
)

const QueryGetProcessStatus = "GetProcessStatus"

// Provider calls and ledger writes are not idempotent, so they run once.
// Only the read-only pre-check is retried.
var (
	precheckOptions = workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	}
	generateOptions = workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	settleOptions = workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
)

// ProcessPaperWorkflow runs pre-check, summary, code generation and
// settlement as separate activities. A code failure bills the summary and
// ends the run with a GenerationFailed error carrying the charge.
func ProcessPaperWorkflow(ctx workflow.Context, input ProcessPaperInput) (pipeline.Result, error) {
	status := ProcessStatus{
		SessionID:    input.Job.SessionID,
		CurrentState: pipeline.StateEstimatingCost,
		Steps:        map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetProcessStatus, func() (ProcessStatus, error) {
		return status, nil
	}); err != nil {
		return pipeline.Result{}, err
	}
	step := func(name string, state pipeline.State) {
		status.CurrentState = state
		status.Steps[name] = "processing"
	}
	fail := func(name string, err error) error {
		status.CurrentState = pipeline.StateFailed
		status.Steps[name] = "failed"
		status.FailReason = failReason(err)
		return err
	}

	step("precheck", pipeline.StateCheckingBalance)
	var gate pipeline.Gate
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, precheckOptions), "PreCheckActivity",
		activities.PreCheckInput{RequestID: input.RequestID, Job: input.Job}).Get(ctx, &gate)
	if err != nil {
		return pipeline.Result{}, fail("precheck", err)
	}
	status.Steps["precheck"] = "done"

	genCtx := workflow.WithActivityOptions(ctx, generateOptions)
	step("summary", pipeline.StateGeneratingSummary)
	var summary pipeline.SummaryStage
	err = workflow.ExecuteActivity(genCtx, "SummarizeActivity",
		activities.SummarizeInput{RequestID: input.RequestID, Job: input.Job}).Get(ctx, &summary)
	if err != nil {
		return pipeline.Result{}, fail("summary", err)
	}
	status.Steps["summary"] = "done"

	settleCtx := workflow.WithActivityOptions(ctx, settleOptions)
	step("code", pipeline.StateGeneratingCode)
	var code pipeline.CodeStage
	err = workflow.ExecuteActivity(genCtx, "GenerateCodeActivity",
		activities.GenerateCodeInput{RequestID: input.RequestID, Job: input.Job, Summary: summary}).Get(ctx, &code)
	if err != nil {
		_ = fail("code", err)
		var partial activities.SettlePartialOutput
		if serr := workflow.ExecuteActivity(settleCtx, "SettlePartialActivity", activities.SettlePartialInput{
			RequestID: input.RequestID,
			Job:       input.Job,
			Gate:      gate,
			Summary:   summary,
		}).Get(ctx, &partial); serr != nil {
			workflow.GetLogger(ctx).Error("partial settlement failed", "session_id", input.Job.SessionID, "error", serr)
		}
		status.Charged = partial.Charged
		return pipeline.Result{}, temporal.NewNonRetryableApplicationError(status.FailReason, codeErrorType(err), nil,
			activities.GenerationDetails{Kind: "code", Charged: partial.Charged})
	}
	status.Steps["code"] = "done"

	step("settle", pipeline.StateReconciling)
	var res pipeline.Result
	if err := workflow.ExecuteActivity(settleCtx, "SettleActivity", activities.SettleInput{
		RequestID: input.RequestID,
		Job:       input.Job,
		Gate:      gate,
		Summary:   summary,
		Code:      code,
	}).Get(ctx, &res); err != nil {
		return pipeline.Result{}, fail("settle", err)
	}
	status.Steps["settle"] = "done"
	status.Charged = res.CreditsCharged
	status.CurrentState = pipeline.StateDone
	return res, nil
}

func codeErrorType(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() == activities.ErrTypeProviderUnavailable {
		return activities.ErrTypeProviderUnavailable
	}
	return activities.ErrTypeGenerationFailed
}

func failReason(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return err.Error()
}
