package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/golive/internal/adapters/fs"
	"github.com/bft-labs/golive/internal/cliconfig"
	"github.com/bft-labs/golive/pkg/golive"
)

func TestMaskedConfig(t *testing.T) {
	cfg := cliconfig.Config{
		Stream: cliconfig.StreamConfig{Password: "room pw"},
		OBS:    cliconfig.OBSConfig{Password: "obs pw"},
		Platforms: []cliconfig.PlatformConfig{
			{ID: "flextv", Token: "secret-token"},
			{ID: "twitch"},
		},
	}

	masked := maskedConfig(cfg)

	assert.Equal(t, "*****", masked.Stream.Password)
	assert.Equal(t, "*****", masked.OBS.Password)
	assert.Equal(t, "*****", masked.Platforms[0].Token)
	assert.Empty(t, masked.Platforms[1].Token)
	assert.Equal(t, "secret-token", cfg.Platforms[0].Token, "input must not be modified")
}

func TestProgressPrinter_PrintsEachTransitionOnce(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)

	step := func(status golive.StepStatus, err error) golive.Snapshot {
		return golive.Snapshot{Checklist: []golive.ChecklistStep{{Name: "apply:flextv", Status: status, Err: err}}}
	}
	p.OnUpdate(step(golive.StepPending, nil))
	p.OnUpdate(step(golive.StepRunning, nil))
	p.OnUpdate(step(golive.StepRunning, nil))
	p.OnUpdate(step(golive.StepFailed, errors.New("403 forbidden")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "apply:flextv")
	assert.Contains(t, lines[1], "403 forbidden")
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, fs.Status{
		State:     "error",
		AttemptID: "a1",
		Error:     "start transmission: obs offline",
		UpdatedAt: time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC),
		Checklist: []fs.StepStatus{
			{Name: "merge", Status: "done"},
			{Name: "transmission", Status: "failed", Error: "obs offline"},
		},
		Prepopulation: map[string]fs.PrepopulateStatus{
			"twitch": {Title: "Last show"},
			"flextv": {Error: "timeout"},
		},
		Compensated: []string{"twitch"},
	})

	out := buf.String()
	assert.Contains(t, out, "State:    error")
	assert.Contains(t, out, "start transmission: obs offline")
	assert.Contains(t, out, "unavailable")
	assert.Contains(t, out, "Last show")
	assert.Contains(t, out, "transmission")
	assert.Contains(t, out, "Rolled back: [twitch]")
}

func TestRunnerAsk(t *testing.T) {
	var out bytes.Buffer
	r := &runner{out: &out}

	lines := readLines(strings.NewReader("y\nno\n"))
	ok, err := r.ask(context.Background(), lines, "? ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.ask(context.Background(), lines, "? ")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.ask(context.Background(), lines, "? ")
	require.NoError(t, err)
	assert.False(t, ok, "EOF declines")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.ask(ctx, make(chan string), "? ")
	assert.ErrorIs(t, err, context.Canceled)
}
