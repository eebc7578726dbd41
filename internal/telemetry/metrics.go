package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — набор метрик обработки репозиториев.
//
// Все методы безопасны на nil-приёмнике: компоненты, которым метрики
// не передали, работают без них.
type Metrics struct {
	stepsTotal    *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	runsTotal     *prometheus.CounterVec
	activeWorkers prometheus.Gauge
}

// NewMetrics создаёт и регистрирует метрики в реестре по умолчанию.
func NewMetrics() *Metrics {
	return &Metrics{
		stepsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "repodp_steps_total",
			Help: "Executed pipeline steps by method and status.",
		}, []string{"method", "status"}),
		stepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "repodp_step_duration_seconds",
			Help:    "Step execution duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"method"}),
		runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "repodp_runs_total",
			Help: "Completed pipeline runs by result.",
		}, []string{"result"}),
		activeWorkers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "repodp_batch_active_workers",
			Help: "Currently busy batch workers.",
		}),
	}
}

// ObserveStep учитывает выполнение шага.
func (m *Metrics) ObserveStep(method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.stepsTotal.WithLabelValues(method, status).Inc()
	m.stepDuration.WithLabelValues(method).Observe(seconds)
}

// ObserveRun учитывает завершение прогона пайплайна.
func (m *Metrics) ObserveRun(result string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(result).Inc()
}

// WorkerStarted отмечает занятого воркера.
func (m *Metrics) WorkerStarted() {
	if m == nil {
		return
	}
	m.activeWorkers.Inc()
}

// WorkerFinished отмечает освободившегося воркера.
func (m *Metrics) WorkerFinished() {
	if m == nil {
		return
	}
	m.activeWorkers.Dec()
}
