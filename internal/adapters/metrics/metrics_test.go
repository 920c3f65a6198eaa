package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/golive/internal/domain"
)

func TestCollector_StateGauge(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	assert.Equal(t, 1.0, testutil.ToFloat64(c.State.WithLabelValues("idle")))

	c.OnStateChange(domain.StateIdle, domain.StatePrepopulating, "session started")
	c.OnStateChange(domain.StatePrepopulating, domain.StateAwaitingConfirmation, "prepopulated")

	assert.Equal(t, 0.0, testutil.ToFloat64(c.State.WithLabelValues("idle")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.State.WithLabelValues("prepopulating")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.State.WithLabelValues("awaitingConfirmation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Transitions.WithLabelValues("idle", "prepopulating")))
}

func TestCollector_CountsEachStepGenerationOnce(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	start := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

	step := func(name string, status domain.StepStatus, gen int) domain.ChecklistStep {
		return domain.ChecklistStep{
			Name:       name,
			Status:     status,
			Generation: gen,
			StartedAt:  start,
			FinishedAt: start.Add(300 * time.Millisecond),
		}
	}

	snap := domain.Snapshot{
		Version:   1,
		AttemptID: "a1",
		Checklist: []domain.ChecklistStep{
			step(domain.StepMergeSettings, domain.StepDone, 0),
			step("apply:twitch", domain.StepFailed, 0),
			{Name: "apply:flextv", Status: domain.StepRunning},
		},
	}
	c.OnUpdate(snap)
	snap.Version = 2
	c.OnUpdate(snap)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Steps.WithLabelValues("merge-settings", "", "done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Steps.WithLabelValues("apply", "twitch", "failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Steps.WithLabelValues("apply", "flextv", "done")))

	// A retry opens a new generation of the failed step.
	snap.Version = 3
	snap.Checklist[1] = step("apply:twitch", domain.StepDone, 1)
	c.OnUpdate(snap)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Steps.WithLabelValues("apply", "twitch", "done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Steps.WithLabelValues("merge-settings", "", "done")))

	// A new attempt counts its steps again.
	c.OnUpdate(domain.Snapshot{
		Version:   4,
		AttemptID: "a2",
		Checklist: []domain.ChecklistStep{step(domain.StepMergeSettings, domain.StepDone, 0)},
	})
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Steps.WithLabelValues("merge-settings", "", "done")))
}

func TestCollector_CountsStepsOfRebuiltChecklist(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	start := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

	applied := func(at time.Time) domain.Snapshot {
		return domain.Snapshot{
			AttemptID: "a1",
			Checklist: []domain.ChecklistStep{{
				Name:       "apply:twitch",
				Status:     domain.StepDone,
				StartedAt:  at,
				FinishedAt: at.Add(time.Second),
			}},
		}
	}
	c.OnUpdate(applied(start))
	// Same attempt, fresh checklist: generation is zero again.
	c.OnUpdate(applied(start.Add(time.Minute)))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Steps.WithLabelValues("apply", "twitch", "done")))
}

func TestCollector_Compensations(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.OnUpdate(domain.Snapshot{AttemptID: "a1", Compensated: []domain.PlatformID{"flextv"}})
	c.OnUpdate(domain.Snapshot{AttemptID: "a1", Compensated: []domain.PlatformID{"flextv", "twitch"}})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Compensated.WithLabelValues("flextv")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Compensated.WithLabelValues("twitch")))
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := NewRegistry()
	c := NewCollector(reg)
	c.OnStateChange(domain.StateIdle, domain.StatePrepopulating, "")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `golive_session_state{state="prepopulating"} 1`))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}

func TestSplitStep(t *testing.T) {
	tests := []struct {
		name, kind, platform string
	}{
		{"apply:twitch", "apply", "twitch"},
		{"validate:flextv", "validate", "flextv"},
		{"go-live", "go-live", ""},
	}
	for _, tt := range tests {
		kind, platform := splitStep(tt.name)
		assert.Equal(t, tt.kind, kind, tt.name)
		assert.Equal(t, tt.platform, platform, tt.name)
	}
}
