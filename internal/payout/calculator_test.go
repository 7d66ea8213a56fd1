package payout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	tt := []struct {
		name          string
		initialPayout int64
		minimumPayout int64
		decayRate     float64
		ordinal       int64

		expected int64
	}{
		{
			name:          "default parameters, first request",
			initialPayout: DefaultInitialPayout,
			minimumPayout: DefaultMinimumPayout,
			decayRate:     DefaultDecayRate,
			ordinal:       1,

			expected: 99_900_049,
		},
		{
			name:          "default parameters, request 100",
			initialPayout: DefaultInitialPayout,
			minimumPayout: DefaultMinimumPayout,
			decayRate:     DefaultDecayRate,
			ordinal:       100,

			expected: 90_483_741,
		},
		{
			name:          "default parameters, request 10000 clamps to minimum",
			initialPayout: DefaultInitialPayout,
			minimumPayout: DefaultMinimumPayout,
			decayRate:     DefaultDecayRate,
			ordinal:       10_000,

			expected: 1_000_000,
		},
		{
			name:          "custom decay rate, first request",
			initialPayout: 10_000_000,
			minimumPayout: 1_000_000,
			decayRate:     0.01,
			ordinal:       1,

			expected: 9_900_498,
		},
		{
			name:          "custom decay rate, request 100",
			initialPayout: 10_000_000,
			minimumPayout: 1_000_000,
			decayRate:     0.01,
			ordinal:       100,

			expected: 3_678_794,
		},
		{
			name:          "zero decay rate pays the initial amount",
			initialPayout: 1_000_000,
			minimumPayout: 1_000_000,
			decayRate:     0,
			ordinal:       10_000,

			expected: 1_000_000,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			calculator, err := NewCalculator(tc.initialPayout, tc.minimumPayout, tc.decayRate)
			require.NoError(t, err)

			// when
			amount, err := calculator.Calculate(tc.ordinal)

			// then
			require.NoError(t, err)
			assert.Equal(t, tc.expected, amount)
		})
	}
}

func TestCalculateBounds(t *testing.T) {
	// given
	calculator, err := NewCalculator(DefaultInitialPayout, DefaultMinimumPayout, DefaultDecayRate)
	require.NoError(t, err)

	previous := DefaultInitialPayout
	for _, ordinal := range []int64{1, 50, 100, 500, 1000, 5000, 10_000, 20_000} {
		// when
		amount, err := calculator.Calculate(ordinal)
		require.NoError(t, err)

		// then payouts stay within [minimum, initial] and never increase
		assert.GreaterOrEqual(t, amount, DefaultMinimumPayout)
		assert.LessOrEqual(t, amount, DefaultInitialPayout)
		assert.LessOrEqual(t, amount, previous)

		previous = amount
	}
}

func TestCalculateCumulative(t *testing.T) {
	tt := []struct {
		name          string
		initialPayout int64
		minimumPayout int64
		decayRate     float64
		n             int64

		expected int64
	}{
		{
			name:          "default parameters, 100 requests",
			initialPayout: DefaultInitialPayout,
			minimumPayout: DefaultMinimumPayout,
			decayRate:     DefaultDecayRate,
			n:             100,

			expected: 9_511_500_808,
		},
		{
			name:          "default parameters, 10000 requests",
			initialPayout: DefaultInitialPayout,
			minimumPayout: DefaultMinimumPayout,
			decayRate:     DefaultDecayRate,
			n:             10_000,

			expected: 104_345_335_816,
		},
		{
			name:          "fixed payout mode, 1000 requests",
			initialPayout: 1_000_000,
			minimumPayout: 1_000_000,
			decayRate:     0,
			n:             1000,

			expected: 1_000_000_000,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			calculator, err := NewCalculator(tc.initialPayout, tc.minimumPayout, tc.decayRate)
			require.NoError(t, err)

			// when
			total, err := calculator.CalculateCumulative(tc.n)

			// then
			require.NoError(t, err)
			assert.Equal(t, tc.expected, total)
		})
	}
}

func TestCalculateCumulativeMatchesSum(t *testing.T) {
	// given
	calculator, err := NewCalculator(10_000_000, 1_000_000, 0.01)
	require.NoError(t, err)

	// when
	var sum int64
	for i := int64(1); i <= 250; i++ {
		amount, err := calculator.Calculate(i)
		require.NoError(t, err)
		sum += amount
	}

	total, err := calculator.CalculateCumulative(250)
	require.NoError(t, err)

	// then
	assert.Equal(t, sum, total)
}

func TestNewCalculatorInvalidParameters(t *testing.T) {
	tt := []struct {
		name          string
		initialPayout int64
		minimumPayout int64
		decayRate     float64
	}{
		{
			name:          "initial payout zero",
			initialPayout: 0,
			minimumPayout: 1,
			decayRate:     0.001,
		},
		{
			name:          "minimum payout zero",
			initialPayout: 100,
			minimumPayout: 0,
			decayRate:     0.001,
		},
		{
			name:          "minimum payout greater than initial",
			initialPayout: 100,
			minimumPayout: 101,
			decayRate:     0.001,
		},
		{
			name:          "negative decay rate",
			initialPayout: 100,
			minimumPayout: 100,
			decayRate:     -0.5,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCalculator(tc.initialPayout, tc.minimumPayout, tc.decayRate)
			require.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}

func TestCalculateInvalidOrdinal(t *testing.T) {
	calculator, err := NewCalculator(DefaultInitialPayout, DefaultMinimumPayout, DefaultDecayRate)
	require.NoError(t, err)

	_, err = calculator.Calculate(0)
	require.ErrorIs(t, err, ErrInvalidOrdinal)

	_, err = calculator.CalculateCumulative(-1)
	require.ErrorIs(t, err, ErrInvalidOrdinal)
}
