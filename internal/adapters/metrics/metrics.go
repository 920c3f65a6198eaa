// Package metrics exports go-live session progress as Prometheus metrics.
package metrics

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/golive/internal/domain"
)

const namespace = "golive"

var states = []domain.LifecycleState{
	domain.StateIdle,
	domain.StatePrepopulating,
	domain.StateAwaitingConfirmation,
	domain.StateActivating,
	domain.StateLive,
	domain.StateError,
}

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Collector records lifecycle transitions (as an event emitter) and checklist
// step outcomes (as a snapshot observer).
type Collector struct {
	State        *prometheus.GaugeVec
	Transitions  *prometheus.CounterVec
	Steps        *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
	Compensated  *prometheus.CounterVec

	mu          sync.Mutex
	attempt     string
	seen        map[stepKey]struct{}
	compensated int
}

// stepKey identifies one run of a step. A rebuilt checklist restarts
// generations at zero, so the start time tells its runs apart.
type stepKey struct {
	name       string
	generation int
	startedAt  time.Time
}

// NewCollector creates and registers the session metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	c := &Collector{
		State: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "Current lifecycle state of the go-live session (1 for the active state).",
		}, []string{"state"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Total number of lifecycle transitions, by source and target state.",
		}, []string{"from", "to"}),
		Steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checklist_steps_total",
			Help:      "Total number of finished checklist steps, by kind, platform and result.",
		}, []string{"kind", "platform", "status"}),
		StepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checklist_step_duration_seconds",
			Help:      "Duration of finished checklist steps in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
		Compensated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensations_total",
			Help:      "Total number of platforms rolled back with a stop call.",
		}, []string{"platform"}),
		seen: make(map[stepKey]struct{}),
	}
	c.setState(domain.StateIdle)
	return c
}

// OnStateChange implements app.EventEmitter.
func (c *Collector) OnStateChange(previous, current domain.LifecycleState, _ string) {
	c.Transitions.WithLabelValues(previous.String(), current.String()).Inc()
	c.setState(current)
}

func (c *Collector) setState(current domain.LifecycleState) {
	for _, s := range states {
		v := 0.0
		if s == current {
			v = 1
		}
		c.State.WithLabelValues(s.String()).Set(v)
	}
}

// OnUpdate implements app.Observer. Each step run is counted once, when it
// first shows up finished.
func (c *Collector) OnUpdate(snap domain.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if snap.AttemptID != c.attempt {
		c.attempt = snap.AttemptID
		c.seen = make(map[stepKey]struct{})
		c.compensated = 0
	}

	for _, st := range snap.Checklist {
		if !st.Status.Terminal() {
			continue
		}
		key := stepKey{name: st.Name, generation: st.Generation, startedAt: st.StartedAt}
		if _, ok := c.seen[key]; ok {
			continue
		}
		c.seen[key] = struct{}{}

		kind, platform := splitStep(st.Name)
		c.Steps.WithLabelValues(kind, platform, string(st.Status)).Inc()
		if !st.StartedAt.IsZero() && st.FinishedAt.After(st.StartedAt) {
			c.StepDuration.WithLabelValues(kind).Observe(st.FinishedAt.Sub(st.StartedAt).Seconds())
		}
	}

	for _, id := range snap.Compensated[min(c.compensated, len(snap.Compensated)):] {
		c.Compensated.WithLabelValues(string(id)).Inc()
	}
	c.compensated = len(snap.Compensated)
}

// splitStep turns "apply:twitch" into ("apply", "twitch"). Shared steps have
// no platform.
func splitStep(name string) (kind, platform string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}
