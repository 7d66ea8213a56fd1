package faucet

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var ErrFailedToRegisterStats = errors.New("failed to register stats collector")

type Stats struct {
	payoutsCompleted  prometheus.Counter
	payoutsRejected   prometheus.Counter
	payoutsRolledBack prometheus.Counter
	satoshisPaidOut   prometheus.Counter
}

func NewStats() (*Stats, error) {
	s := &Stats{
		payoutsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "faucet_payouts_completed",
			Help: "Nr of payouts broadcast and recorded",
		}),
		payoutsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "faucet_payouts_rejected",
			Help: "Nr of payout requests rejected by the eligibility checks",
		}),
		payoutsRolledBack: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "faucet_payouts_rolled_back",
			Help: "Nr of reservations rolled back after a failed broadcast",
		}),
		satoshisPaidOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "faucet_satoshis_paid_out",
			Help: "Total satoshis paid out",
		}),
	}

	err := registerStats(
		s.payoutsCompleted,
		s.payoutsRejected,
		s.payoutsRolledBack,
		s.satoshisPaidOut,
	)
	if err != nil {
		return nil, errors.Join(ErrFailedToRegisterStats, err)
	}

	return s, nil
}

func (s *Stats) UnregisterStats() {
	unregisterStats(
		s.payoutsCompleted,
		s.payoutsRejected,
		s.payoutsRolledBack,
		s.satoshisPaidOut,
	)
}

func registerStats(cs ...prometheus.Collector) error {
	for _, c := range cs {
		err := prometheus.Register(c)
		if err != nil {
			return errors.Join(ErrFailedToRegisterStats, err)
		}
	}

	return nil
}

func unregisterStats(cs ...prometheus.Collector) {
	for _, c := range cs {
		_ = prometheus.Unregister(c)
	}
}
