package httpplatform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/bft-labs/golive/internal/domain"
	"github.com/bft-labs/golive/internal/ports"
	"github.com/bft-labs/golive/pkg/log"
)

const broadcastEndpoint = "/v1/broadcast"

// Config describes one REST streaming platform.
type Config struct {
	ID      domain.PlatformID
	BaseURL string
	Token   string
	Schema  domain.FieldSchema

	// MaxRetries is the number of retries after the first attempt for
	// transport errors, 429 and 5xx responses.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// BreakerFailures consecutive failures open the circuit for BreakerTimeout.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

func (c *Config) setDefaults() {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 250 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = 30 * time.Second
	}
}

// StatusError is a non-2xx answer from the platform.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Platform implements ports.Platform against a JSON REST API:
//
//	GET    /v1/broadcast           current broadcast or defaults
//	POST   /v1/broadcast/validate  422 with problems on invalid settings
//	PUT    /v1/broadcast           apply settings
//	DELETE /v1/broadcast           stop / reset
type Platform struct {
	cfg     Config
	client  ports.HTTPClient
	logger  ports.Logger
	clock   clockwork.Clock
	breaker *gobreaker.CircuitBreaker
}

// New creates a REST platform adapter. A nil clock uses the real clock.
func New(cfg Config, client ports.HTTPClient, logger ports.Logger, clock clockwork.Clock) *Platform {
	cfg.setDefaults()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	p := &Platform{
		cfg:    cfg,
		client: client,
		logger: logger,
		clock:  clock,
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(cfg.ID),
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				log.Platform(name),
				ports.String("from", from.String()),
				ports.String("to", to.String()))
		},
	})
	return p
}

// ID returns the configured platform ID.
func (p *Platform) ID() domain.PlatformID { return p.cfg.ID }

// Schema returns the configured field schema.
func (p *Platform) Schema() domain.FieldSchema { return p.cfg.Schema }

type broadcastResponse struct {
	Title    string         `json:"title"`
	Category string         `json:"category"`
	Fields   map[string]any `json:"fields"`
	Live     bool           `json:"live"`
}

type broadcastRequest struct {
	Title      string         `json:"title"`
	Category   string         `json:"category,omitempty"`
	Resolution string         `json:"resolution,omitempty"`
	MaxViewers int            `json:"max_viewers,omitempty"`
	Secret     bool           `json:"secret"`
	Password   string         `json:"password,omitempty"`
	AdultOnly  bool           `json:"adult_only"`
	MinRank    int            `json:"min_rank,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
}

type problemsResponse struct {
	Problems []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"problems"`
}

func toRequest(s domain.PlatformSettings) broadcastRequest {
	req := broadcastRequest{
		Title:      s.Title,
		Category:   s.Category,
		Resolution: s.Resolution,
		MaxViewers: s.MaxViewers,
		Secret:     s.Visibility.Secret,
		AdultOnly:  s.Audience.AdultOnly,
		Fields:     s.Fields,
	}
	if s.Visibility.Secret {
		req.Password = s.Visibility.Password
	}
	if s.Audience.MinRank > 0 {
		req.MinRank = s.Audience.MinRank
	}
	return req
}

// Prepopulate fetches the current broadcast. A 404 means nothing is
// configured yet and yields empty defaults.
func (p *Platform) Prepopulate(ctx context.Context) (domain.PlatformDefaults, error) {
	var out broadcastResponse
	status, body, err := p.do(ctx, http.MethodGet, broadcastEndpoint, nil)
	if err != nil {
		return domain.PlatformDefaults{}, err
	}
	switch {
	case status == http.StatusNotFound:
		return domain.PlatformDefaults{}, nil
	case status/100 != 2:
		return domain.PlatformDefaults{}, &StatusError{Code: status, Body: string(body)}
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.PlatformDefaults{}, fmt.Errorf("decode broadcast: %w", err)
	}
	return domain.PlatformDefaults{
		Title:    out.Title,
		Category: out.Category,
		Fields:   out.Fields,
		Live:     out.Live,
	}, nil
}

// Validate asks the platform to check the settings. A 422 answer becomes a
// *domain.ValidationError.
func (p *Platform) Validate(ctx context.Context, s domain.PlatformSettings) error {
	status, body, err := p.do(ctx, http.MethodPost, broadcastEndpoint+"/validate", toRequest(s))
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusUnprocessableEntity:
		var pr problemsResponse
		if err := json.Unmarshal(body, &pr); err != nil || len(pr.Problems) == 0 {
			return &domain.ValidationError{Problems: []domain.FieldError{{Platform: p.cfg.ID, Field: "settings", Message: strings.TrimSpace(string(body))}}}
		}
		verr := &domain.ValidationError{}
		for _, prob := range pr.Problems {
			verr.Problems = append(verr.Problems, domain.FieldError{Platform: p.cfg.ID, Field: prob.Field, Message: prob.Message})
		}
		return verr
	case status/100 != 2:
		return &StatusError{Code: status, Body: string(body)}
	}
	return nil
}

// ApplySettings pushes the settings with an idempotent PUT.
func (p *Platform) ApplySettings(ctx context.Context, s domain.PlatformSettings) error {
	status, body, err := p.do(ctx, http.MethodPut, broadcastEndpoint, toRequest(s))
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return &StatusError{Code: status, Body: string(body)}
	}
	return nil
}

// Stop resets the broadcast. A 404 means there is nothing left to stop.
func (p *Platform) Stop(ctx context.Context) error {
	status, body, err := p.do(ctx, http.MethodDelete, broadcastEndpoint, nil)
	if err != nil {
		return err
	}
	if status/100 != 2 && status != http.StatusNotFound {
		return &StatusError{Code: status, Body: string(body)}
	}
	return nil
}

// do sends one request through the circuit breaker, retrying transport
// errors, 429 and 5xx with backoff. Other statuses are returned to the
// caller without counting as breaker failures.
func (p *Platform) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var data []byte
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
	}

	bo := newBackoff(p.cfg.InitialBackoff, p.cfg.MaxBackoff)
	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := bo.next()
			p.logger.Debug("retrying platform request",
				log.Platform(string(p.cfg.ID)),
				ports.String("method", method),
				ports.Int("attempt", attempt),
				ports.Duration("delay", delay),
				ports.Err(lastErr))
			select {
			case <-p.clock.After(delay):
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			}
		}

		res, err := p.breaker.Execute(func() (interface{}, error) {
			return p.send(ctx, method, path, data)
		})
		if err == nil {
			r := res.(response)
			return r.status, r.body, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || ctx.Err() != nil {
			return 0, nil, err
		}
		lastErr = err
	}
	return 0, nil, fmt.Errorf("%s %s: giving up after %d attempts: %w", method, path, p.cfg.MaxRetries+1, lastErr)
}

type response struct {
	status int
	body   []byte
}

func (p *Platform) send(ctx context.Context, method, path string, data []byte) (response, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, body)
	if err != nil {
		return response{}, fmt.Errorf("create request: %w", err)
	}
	if p.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	}
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return response{}, fmt.Errorf("read response: %w", err)
	}

	serr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	if serr.retryable() {
		return response{}, serr
	}
	return response{status: resp.StatusCode, body: respBody}, nil
}
