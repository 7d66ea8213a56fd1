package payout

import (
	"errors"
	"fmt"
	"math"
)

// Default parameters, chosen so that the faucet spends roughly 10 tBSV over
// its first 10,000 requests and a fixed 0.01 tBSV per request afterwards.
const (
	DefaultInitialPayout int64   = 100_000_000
	DefaultMinimumPayout int64   = 1_000_000
	DefaultDecayRate     float64 = 0.001
)

var (
	ErrInvalidParameters = errors.New("invalid payout parameters")
	ErrInvalidOrdinal    = errors.New("request ordinal must be greater than or equal to 1")
)

// Calculator computes the reward for the n-th payout request using
// exponential decay. It is pure and safe for concurrent use.
type Calculator struct {
	initialPayout int64
	minimumPayout int64
	decayRate     float64
}

// NewCalculator validates the payout parameters and returns a calculator.
// A decay rate of 0 yields a fixed payout of initialPayout for every request.
func NewCalculator(initialPayout, minimumPayout int64, decayRate float64) (*Calculator, error) {
	if initialPayout <= 0 {
		return nil, errors.Join(ErrInvalidParameters, fmt.Errorf("initial payout must be greater than 0, got %d", initialPayout))
	}

	if minimumPayout <= 0 || minimumPayout > initialPayout {
		return nil, errors.Join(ErrInvalidParameters, fmt.Errorf("minimum payout must be in (0, %d], got %d", initialPayout, minimumPayout))
	}

	if decayRate < 0 {
		return nil, errors.Join(ErrInvalidParameters, fmt.Errorf("decay rate must not be negative, got %f", decayRate))
	}

	return &Calculator{
		initialPayout: initialPayout,
		minimumPayout: minimumPayout,
		decayRate:     decayRate,
	}, nil
}

// Calculate returns the payout in satoshis for the given 1-based request
// ordinal. The amount decays exponentially with the ordinal and is clamped to
// the minimum payout.
func (c *Calculator) Calculate(ordinal int64) (int64, error) {
	if ordinal < 1 {
		return 0, errors.Join(ErrInvalidOrdinal, fmt.Errorf("ordinal: %d", ordinal))
	}

	amount := int64(math.Floor(float64(c.initialPayout) * math.Exp(-c.decayRate*float64(ordinal))))
	if amount < c.minimumPayout {
		return c.minimumPayout, nil
	}

	return amount, nil
}

// CalculateCumulative returns the total satoshis paid out after n requests.
func (c *Calculator) CalculateCumulative(n int64) (int64, error) {
	if n < 1 {
		return 0, errors.Join(ErrInvalidOrdinal, fmt.Errorf("ordinal: %d", n))
	}

	var total int64
	for i := int64(1); i <= n; i++ {
		amount, err := c.Calculate(i)
		if err != nil {
			return 0, err
		}

		total += amount
	}

	return total, nil
}
