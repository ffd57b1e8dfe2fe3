package usecases

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sand/lbc-exchange/backend/pkg/logger"
)

func TestNewRateServiceRejectsInvalidInitialRate(t *testing.T) {
	_, err := NewRateService(logger.Discard(), decimal.Zero, nil)
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewRateService(logger.Discard(), decimal.NewFromInt(-3), nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestSetRate(t *testing.T) {
	var published []decimal.Decimal
	rs, err := NewRateService(logger.Discard(), decimal.RequireFromString("0.0035"), func(rate decimal.Decimal) {
		published = append(published, rate)
	})
	require.NoError(t, err)
	requireDecimal(t, "0.0035", rs.GetRate())

	rate, err := rs.SetRate(decimal.RequireFromString("0.004"))
	require.NoError(t, err)
	requireDecimal(t, "0.004", rate)
	requireDecimal(t, "0.004", rs.GetRate())
	require.Len(t, published, 1)
	requireDecimal(t, "0.004", published[0])

	for _, invalid := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-1)} {
		_, err = rs.SetRate(invalid)
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "rate", validationErr.Field)
	}

	// Rejected updates leave the rate and subscribers alone
	requireDecimal(t, "0.004", rs.GetRate())
	assert.Len(t, published, 1)
}

func TestRateServiceConcurrentAccess(t *testing.T) {
	rs, err := NewRateService(logger.Discard(), decimal.NewFromInt(1), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(n int64) {
			defer wg.Done()
			_, _ = rs.SetRate(decimal.NewFromInt(n))
		}(int64(i))
		go func() {
			defer wg.Done()
			assert.True(t, rs.GetRate().IsPositive())
		}()
	}
	wg.Wait()

	assert.True(t, rs.GetRate().IsPositive())
}
