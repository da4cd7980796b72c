// Package metrics provides Prometheus metrics for the game.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "saferroad"

// Manager owns a registry with the game metrics and the Go runtime collectors.
type Manager struct {
	registry *prometheus.Registry

	datasetRecords prometheus.Gauge
	gamesStarted   prometheus.Counter
	choices        *prometheus.CounterVec
	gamesFinished  *prometheus.CounterVec
	finalScore     prometheus.Histogram
}

// NewManager creates a Manager with its own registry so that parallel servers in tests don't collide.
func NewManager() *Manager {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), //nolint:exhaustruct // defaults
	)
	auto := promauto.With(registry)

	return &Manager{
		registry: registry,
		datasetRecords: auto.NewGauge(prometheus.GaugeOpts{ //nolint:exhaustruct // optional fields
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Number of road records loaded from the dataset",
		}),
		gamesStarted: auto.NewCounter(prometheus.CounterOpts{ //nolint:exhaustruct // optional fields
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Total number of games started, including replays",
		}),
		choices: auto.NewCounterVec(prometheus.CounterOpts{ //nolint:exhaustruct // optional fields
			Namespace: namespace,
			Name:      "choices_total",
			Help:      "Total number of road choices by outcome",
		}, []string{"outcome"}),
		gamesFinished: auto.NewCounterVec(prometheus.CounterOpts{ //nolint:exhaustruct // optional fields
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Total number of games that reached the final score by verdict",
		}, []string{"verdict"}),
		finalScore: auto.NewHistogram(prometheus.HistogramOpts{ //nolint:exhaustruct // optional fields
			Namespace: namespace,
			Name:      "final_score",
			Help:      "Distribution of final scores",
			Buckets:   prometheus.LinearBuckets(0, 1, 6), //nolint:mnd // one bucket per possible score
		}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}) //nolint:exhaustruct // defaults
}

// DatasetLoaded records the size of the dataset.
func (m *Manager) DatasetLoaded(records int) {
	m.datasetRecords.Set(float64(records))
}

// GameStarted counts a new game.
func (m *Manager) GameStarted() {
	m.gamesStarted.Inc()
}

// ChoiceMade counts a road choice.
func (m *Manager) ChoiceMade(correct bool) {
	outcome := "incorrect"
	if correct {
		outcome = "correct"
	}
	m.choices.WithLabelValues(outcome).Inc()
}

// GameFinished records the final score and verdict of a game.
func (m *Manager) GameFinished(score int, verdict string) {
	m.gamesFinished.WithLabelValues(verdict).Inc()
	m.finalScore.Observe(float64(score))
}

