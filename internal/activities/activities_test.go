package activities

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"paperforge/internal/models"
	"paperforge/internal/pipeline"
	"paperforge/internal/pricing"
	"paperforge/internal/providers"
)

type fakeStages struct {
	gateErr    error
	summaryErr error
	codeErr    error
	ledgerDown bool
	requestIDs []string
}

func (f *fakeStages) PreCheck(ctx context.Context, job pipeline.Job) (pipeline.Gate, error) {
	f.requestIDs = append(f.requestIDs, pipeline.RequestIDFrom(ctx))
	return pipeline.Gate{Quote: pipeline.Quote{Total: 6}, Balance: 100}, f.gateErr
}

func (f *fakeStages) Summarize(context.Context, pipeline.Job) (pipeline.SummaryStage, error) {
	return pipeline.SummaryStage{Text: "s", Cost: pricing.CostEstimate{Credits: 2}}, f.summaryErr
}

func (f *fakeStages) GenerateCode(context.Context, pipeline.Job, pipeline.SummaryStage) (pipeline.CodeStage, error) {
	return pipeline.CodeStage{Cost: pricing.CostEstimate{Credits: 4}}, f.codeErr
}

func (f *fakeStages) Settle(_ context.Context, job pipeline.Job, gate pipeline.Gate, s pipeline.SummaryStage, c pipeline.CodeStage) pipeline.Result {
	charged := s.Cost.Credits + c.Cost.Credits
	return pipeline.Result{SessionID: job.SessionID, CreditsCharged: charged, CreditsRemaining: gate.Balance - charged}
}

func (f *fakeStages) SettlePartial(_ context.Context, _ pipeline.Job, _ pipeline.Gate, s pipeline.SummaryStage) int64 {
	if f.ledgerDown {
		return 0
	}
	return s.Cost.Credits
}

var testJob = pipeline.Job{UserID: "u1", SessionID: "s1", Paper: models.PaperContent{Title: "T", Content: "body"}}

func newEnv(stages Stages) *testsuite.TestActivityEnvironment {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	a := New(stages, nil)
	env.RegisterActivity(a.PreCheckActivity)
	env.RegisterActivity(a.SummarizeActivity)
	env.RegisterActivity(a.GenerateCodeActivity)
	env.RegisterActivity(a.SettleActivity)
	env.RegisterActivity(a.SettlePartialActivity)
	return env
}

func TestPreCheckActivityCarriesRequestID(t *testing.T) {
	stages := &fakeStages{}
	env := newEnv(stages)
	a := New(stages, nil)

	val, err := env.ExecuteActivity(a.PreCheckActivity, PreCheckInput{RequestID: "req_abc12345", Job: testJob})
	require.NoError(t, err)
	var gate pipeline.Gate
	require.NoError(t, val.Get(&gate))
	assert.Equal(t, int64(100), gate.Balance)
	assert.Equal(t, []string{"req_abc12345"}, stages.requestIDs)
}

func TestPreCheckActivityInsufficientCredits(t *testing.T) {
	stages := &fakeStages{gateErr: &pipeline.InsufficientCreditsError{Required: 6, Available: 2}}
	env := newEnv(stages)
	a := New(stages, nil)

	_, err := env.ExecuteActivity(a.PreCheckActivity, PreCheckInput{Job: testJob})
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeInsufficientCredits, appErr.Type())
	assert.True(t, appErr.NonRetryable())
	var d InsufficientCreditsDetails
	require.NoError(t, appErr.Details(&d))
	assert.Equal(t, InsufficientCreditsDetails{Required: 6, Available: 2}, d)
}

func TestSettlePartialActivity(t *testing.T) {
	stages := &fakeStages{}
	env := newEnv(stages)
	a := New(stages, nil)

	val, err := env.ExecuteActivity(a.SettlePartialActivity, SettlePartialInput{
		Job:     testJob,
		Gate:    pipeline.Gate{Balance: 10},
		Summary: pipeline.SummaryStage{Cost: pricing.CostEstimate{Credits: 3}},
	})
	require.NoError(t, err)
	var out SettlePartialOutput
	require.NoError(t, val.Get(&out))
	assert.Equal(t, SettlePartialOutput{Charged: 3}, out)
}

func TestSettlePartialActivityReportsZeroWhenNotDebited(t *testing.T) {
	stages := &fakeStages{ledgerDown: true}
	env := newEnv(stages)
	a := New(stages, nil)

	val, err := env.ExecuteActivity(a.SettlePartialActivity, SettlePartialInput{
		Job:     testJob,
		Gate:    pipeline.Gate{Balance: 10},
		Summary: pipeline.SummaryStage{Cost: pricing.CostEstimate{Credits: 3}},
	})
	require.NoError(t, err)
	var out SettlePartialOutput
	require.NoError(t, val.Get(&out))
	assert.Zero(t, out.Charged)
}

func TestApplicationErrorTypes(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("job: %w", pipeline.ErrInvalidInput), ErrTypeInvalidInput},
		{fmt.Errorf("read balance: %w", pipeline.ErrStoreUnavailable), ErrTypeStoreUnavailable},
		{&pipeline.GenerationError{Kind: models.KindSummary, Err: providers.ErrUnavailable}, ErrTypeProviderUnavailable},
		{&pipeline.GenerationError{Kind: models.KindCode, Charged: 2, Err: errors.New("upstream 502")}, ErrTypeGenerationFailed},
	}
	for _, tc := range cases {
		var appErr *temporal.ApplicationError
		require.True(t, errors.As(ApplicationError(tc.err), &appErr), tc.err.Error())
		assert.Equal(t, tc.want, appErr.Type())
		assert.True(t, appErr.NonRetryable())
	}

	plain := errors.New("something else")
	assert.Same(t, plain, ApplicationError(plain))
}
