package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// BillingRunTotal counts billing computation runs by outcome.
	BillingRunTotal *prometheus.CounterVec
	// BillingRunDuration records billing run latency in milliseconds.
	BillingRunDuration *prometheus.HistogramVec
	// BillingDiagnosticsTotal counts diagnostics emitted during billing runs.
	BillingDiagnosticsTotal *prometheus.CounterVec
	// GateOpsTotal counts gate-in/gate-out operations by outcome.
	GateOpsTotal *prometheus.CounterVec
	// StatementJobsTotal counts background statement generation outcomes.
	StatementJobsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		BillingRunTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "billing_run_total",
			Help:      "Count of billing computation runs by outcome.",
		}, []string{"result"})
		BillingRunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "billing_run_duration_ms",
			Help:      "Latency of billing computation runs in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"result"})
		BillingDiagnosticsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "billing_diagnostics_total",
			Help:      "Count of diagnostics emitted by billing runs.",
		}, []string{"code"})
		GateOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_ops_total",
			Help:      "Count of gate-in and gate-out operations by outcome.",
		}, []string{"direction", "result"})
		StatementJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statement_jobs_total",
			Help:      "Count of background statement generation job outcomes.",
		}, []string{"result"})

		mustRegisterCollector(reg, BillingRunTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BillingRunTotal = v
			}
		})
		mustRegisterCollector(reg, BillingRunDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				BillingRunDuration = v
			}
		})
		mustRegisterCollector(reg, BillingDiagnosticsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BillingDiagnosticsTotal = v
			}
		})
		mustRegisterCollector(reg, GateOpsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				GateOpsTotal = v
			}
		})
		mustRegisterCollector(reg, StatementJobsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				StatementJobsTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
