package httpplatform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/golive/internal/domain"
	"github.com/bft-labs/golive/pkg/log"
)

func newTestPlatform(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) *Platform {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{
		ID:             "flextv",
		BaseURL:        srv.URL + "/",
		Token:          "secret-token",
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return New(cfg, srv.Client(), log.NewNoopLogger(), nil)
}

func TestPlatform_PrepopulateReadsBroadcast(t *testing.T) {
	p := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/broadcast", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"title":    "Late show",
			"category": "talk",
			"fields":   map[string]any{"minAge": 19},
			"live":     true,
		})
	})

	d, err := p.Prepopulate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Late show", d.Title)
	assert.Equal(t, "talk", d.Category)
	assert.True(t, d.Live)
	assert.EqualValues(t, 19, d.Fields["minAge"])
}

func TestPlatform_PrepopulateNotFoundYieldsDefaults(t *testing.T) {
	p := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	d, err := p.Prepopulate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformDefaults{}, d)
}

func TestPlatform_ValidateMapsProblems(t *testing.T) {
	p := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/broadcast/validate", r.URL.Path)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"problems":[{"field":"category","message":"unknown category"}]}`))
	})

	err := p.Validate(context.Background(), domain.PlatformSettings{Platform: "flextv", Title: "Show"})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Problems, 1)
	assert.Equal(t, domain.FieldError{Platform: "flextv", Field: "category", Message: "unknown category"}, verr.Problems[0])
}

func TestPlatform_ApplySendsSettings(t *testing.T) {
	var got broadcastRequest
	p := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	err := p.ApplySettings(context.Background(), domain.PlatformSettings{
		Platform:   "flextv",
		Title:      "Show",
		Category:   "talk",
		MaxViewers: 300,
		Visibility: domain.Visibility{Secret: true, Password: "pw"},
		Audience:   domain.Audience{AdultOnly: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "Show", got.Title)
	assert.Equal(t, 300, got.MaxViewers)
	assert.True(t, got.Secret)
	assert.Equal(t, "pw", got.Password)
	assert.True(t, got.AdultOnly)
	assert.Zero(t, got.MinRank)
}

func TestPlatform_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, p.ApplySettings(context.Background(), domain.PlatformSettings{Title: "Show"}))
	assert.Equal(t, int32(3), calls.Load())
}

func TestPlatform_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	p := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	err := p.ApplySettings(context.Background(), domain.PlatformSettings{Title: "Show"})

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusBadGateway, serr.Code)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPlatform_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	p := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "stream key revoked", http.StatusForbidden)
	})

	err := p.ApplySettings(context.Background(), domain.PlatformSettings{Title: "Show"})

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusForbidden, serr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPlatform_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	p := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, func(c *Config) {
		c.MaxRetries = 0
		c.BreakerFailures = 2
		c.BreakerTimeout = time.Minute
	})

	ctx := context.Background()
	require.Error(t, p.Stop(ctx))
	require.Error(t, p.Stop(ctx))

	err := p.Stop(ctx)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(2), calls.Load())
}

func TestPlatform_StopToleratesNotFound(t *testing.T) {
	p := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		http.NotFound(w, r)
	})

	assert.NoError(t, p.Stop(context.Background()))
}

func TestPlatform_CancelledWhileBackingOff(t *testing.T) {
	p := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, func(c *Config) {
		c.InitialBackoff = time.Hour
		c.MaxBackoff = time.Hour
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.ApplySettings(ctx, domain.PlatformSettings{Title: "Show"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoff_DoublesWithJitterUpToMax(t *testing.T) {
	b := newBackoff(100*time.Millisecond, 300*time.Millisecond)

	first := b.next()
	assert.InDelta(t, float64(100*time.Millisecond), float64(first), float64(20*time.Millisecond))
	second := b.next()
	assert.InDelta(t, float64(200*time.Millisecond), float64(second), float64(40*time.Millisecond))
	third := b.next()
	assert.InDelta(t, float64(300*time.Millisecond), float64(third), float64(60*time.Millisecond))
	fourth := b.next()
	assert.InDelta(t, float64(300*time.Millisecond), float64(fourth), float64(60*time.Millisecond))
}
