package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"paperforge/internal/models"
)

func TestActualRoundsUp(t *testing.T) {
	m := NewModel(DefaultConfig())
	require.Equal(t, int64(1), m.Actual(1, 0, models.KindSummary).Credits)
	require.Equal(t, int64(1), m.Actual(1000, 0, models.KindSummary).Credits)
	require.Equal(t, int64(2), m.Actual(1000, 1, models.KindSummary).Credits)
	require.Equal(t, int64(0), m.Actual(0, 0, models.KindSummary).Credits)
}

func TestCodePricedHigherThanSummary(t *testing.T) {
	m := NewModel(DefaultConfig())
	require.Equal(t, int64(2), m.Actual(600, 400, models.KindCode).Credits)
	require.Equal(t, int64(1), m.Actual(600, 400, models.KindSummary).Credits)
}

func TestActualMonotonic(t *testing.T) {
	m := NewModel(DefaultConfig())
	for _, kind := range []models.Kind{models.KindSummary, models.KindCode, models.KindChat} {
		for in := 0; in <= 5000; in += 137 {
			for out := 0; out <= 3000; out += 311 {
				c := m.Actual(in, out, kind).Credits
				require.GreaterOrEqual(t, c, m.Actual(in/2, out/2, kind).Credits)
				require.GreaterOrEqual(t, m.Actual(in+1, out, kind).Credits, c)
				require.GreaterOrEqual(t, m.Actual(in, out+1, kind).Credits, c)
			}
		}
	}
}

func TestEstimateUsesAssumedOutput(t *testing.T) {
	m := NewModel(DefaultConfig())
	e := m.EstimateDefault(100, models.KindCode)
	require.Equal(t, 1500, e.OutputTokens)
	require.Equal(t, int64(4), e.Credits) // (100+1500)*2/1000 = 3.2
	require.Equal(t, m.Estimate(100, 1500, models.KindCode), e)
}

func TestConfigurableRates(t *testing.T) {
	m := NewModel(Config{
		TokensPerCredit: 10,
		Multipliers:     map[models.Kind]float64{models.KindSummary: 3},
	})
	require.Equal(t, int64(3), m.Actual(5, 5, models.KindSummary).Credits)
	require.Equal(t, int64(1), m.Actual(5, 5, models.KindCode).Credits)
	require.Equal(t, 0, m.AssumedOutput(models.KindCode))
}

func TestTotal(t *testing.T) {
	require.Equal(t, int64(7), Total(CostEstimate{Credits: 3}, CostEstimate{Credits: 4}))
	require.Equal(t, int64(0), Total())
}
