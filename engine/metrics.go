package engine

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/michaelpento.lv/arbengine/arberr"
)

// Metrics instruments the engine's evaluate and execute paths.
type Metrics struct {
	Evaluations      prometheus.CounterVec
	Executions       prometheus.CounterVec
	ExecutionLatency prometheus.Histogram
	ActiveExecutions prometheus.Gauge
	RealizedProfit   prometheus.Counter
	Errors           prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{}

	m.Evaluations = *prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arbengine_evaluations_total",
		Help: "Number of opportunity evaluations by outcome",
	}, []string{"outcome"})

	m.Executions = *prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arbengine_executions_total",
		Help: "Number of execution attempts by result",
	}, []string{"result"})

	m.ExecutionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbengine_execution_latency_seconds",
		Help:    "Latency of two-leg executions",
		Buckets: prometheus.DefBuckets,
	})

	m.ActiveExecutions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arbengine_active_executions",
		Help: "Number of executions currently in progress",
	})

	m.RealizedProfit = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arbengine_realized_profit_units_total",
		Help: "Cumulative realized profit in smallest token units",
	})

	m.Errors = *prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arbengine_errors_total",
		Help: "Number of engine errors by kind",
	}, []string{"kind"})

	return m
}

// Register adds every instrument to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		&m.Evaluations, &m.Executions, m.ExecutionLatency,
		m.ActiveExecutions, m.RealizedProfit, &m.Errors,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// errKind maps an engine error to its taxonomy label.
func errKind(err error) string {
	switch {
	case errors.Is(err, arberr.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, arberr.ErrNotAllowed):
		return "not_allowed"
	case errors.Is(err, arberr.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, arberr.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, arberr.ErrSlippageExceeded):
		return "slippage_exceeded"
	case errors.Is(err, arberr.ErrDeadlineExceeded):
		return "deadline_exceeded"
	case errors.Is(err, arberr.ErrBelowProfitThreshold):
		return "below_profit_threshold"
	case errors.Is(err, arberr.ErrUnprofitable):
		return "unprofitable"
	case errors.Is(err, arberr.ErrReentrancy):
		return "reentrancy"
	case errors.Is(err, arberr.ErrArithmetic):
		return "arithmetic"
	default:
		return "other"
	}
}
