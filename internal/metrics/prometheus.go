package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modgate/internal/gate"
)

const namespace = "modgate"

// Prometheus implements gate.Metrics with Prometheus collectors on a
// private registry.
type Prometheus struct {
	registry *prometheus.Registry

	staged        *prometheus.CounterVec
	verdicts      *prometheus.CounterVec
	decisions     *prometheus.CounterVec
	publishes     *prometheus.CounterVec
	sweeps        *prometheus.CounterVec
	inFlight      prometheus.Gauge
	stageDuration *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them, together with
// the Go runtime and process collectors, on a new registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		staged: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "content_staged_total",
				Help:      "Content items staged, by kind",
			},
			[]string{"kind"},
		),
		verdicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "modality_verdicts_total",
				Help:      "Modality analysis verdicts, by modality and verdict",
			},
			[]string{"modality", "verdict"},
		),
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Moderation decisions recorded, by outcome and origin",
			},
			[]string{"decision", "automated"},
		),
		publishes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publish_outcomes_total",
				Help:      "Publish attempts, by outcome",
			},
			[]string{"outcome"},
		),
		sweeps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweeper_actions_total",
				Help:      "Sweeper actions on stuck items, by action",
			},
			[]string{"action"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "items_in_flight",
				Help:      "Content items currently being processed",
			},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each pipeline stage",
				Buckets:   []float64{.05, .1, .5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		),
	}
}

func (p *Prometheus) ContentStaged(kind gate.Kind) {
	p.staged.WithLabelValues(string(kind)).Inc()
}

func (p *Prometheus) ModalityVerdict(modality gate.Modality, verdict gate.Verdict) {
	p.verdicts.WithLabelValues(string(modality), string(verdict)).Inc()
}

func (p *Prometheus) DecisionRecorded(decision gate.Decision, automated bool) {
	p.decisions.WithLabelValues(string(decision), strconv.FormatBool(automated)).Inc()
}

func (p *Prometheus) PublishOutcome(outcome string) {
	p.publishes.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) SweepAction(action string) {
	p.sweeps.WithLabelValues(action).Inc()
}

func (p *Prometheus) InFlight(delta int) {
	p.inFlight.Add(float64(delta))
}

func (p *Prometheus) StageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Registry exposes the underlying registry, for tests and extra collectors.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Compile-time check that Prometheus implements gate.Metrics interface
var _ gate.Metrics = (*Prometheus)(nil)
