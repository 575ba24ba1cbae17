package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"liyu1981.xyz/battery-rental-service/pkg/rental"
)

var _ rental.Recorder = (*PromRecorder)(nil)

// PromRecorder counts reconciliations, state transitions and aborted commits.
type PromRecorder struct {
	reconciles  *prometheus.CounterVec
	transitions *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

// NewPromRecorder registers the rental metrics on the default Prometheus registerer.
func NewPromRecorder() (*PromRecorder, error) {
	return NewPromRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromRecorderWithRegistry registers the rental metrics on reg, reusing collectors
// that are already there. A nil registerer defaults to the global one.
func NewPromRecorderWithRegistry(reg prometheus.Registerer) (*PromRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	reconciles, err := registerCounterVec(reg, prometheus.CounterOpts{
		Name: "rental_reconcile_total",
		Help: "Usage reconciliations by outcome",
	}, "outcome")
	if err != nil {
		return nil, err
	}
	transitions, err := registerCounterVec(reg, prometheus.CounterOpts{
		Name: "rental_transitions_total",
		Help: "State transitions applied to orders, usage sessions and station rentals",
	}, "entity", "event")
	if err != nil {
		return nil, err
	}
	failures, err := registerCounterVec(reg, prometheus.CounterOpts{
		Name: "rental_commit_failures_total",
		Help: "Units of work rolled back by the store",
	}, "op")
	if err != nil {
		return nil, err
	}

	return &PromRecorder{reconciles: reconciles, transitions: transitions, failures: failures}, nil
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels ...string) (*prometheus.CounterVec, error) {
	c := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, err
	}
	return c, nil
}

func (p *PromRecorder) RecordReconcile(outcome string) {
	p.reconciles.WithLabelValues(outcome).Inc()
}

func (p *PromRecorder) RecordTransition(entity, event string) {
	p.transitions.WithLabelValues(entity, event).Inc()
}

func (p *PromRecorder) RecordCommitFailure(op string) {
	p.failures.WithLabelValues(op).Inc()
}
