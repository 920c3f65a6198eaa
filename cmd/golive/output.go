package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/bft-labs/golive/internal/domain"
	"github.com/bft-labs/golive/pkg/golive"
)

// progressPrinter prints checklist steps as they reach a new status.
type progressPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	last map[string]golive.StepStatus
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, last: make(map[string]golive.StepStatus)}
}

func (p *progressPrinter) OnUpdate(snap golive.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, st := range snap.Checklist {
		if p.last[st.Name] == st.Status {
			continue
		}
		p.last[st.Name] = st.Status
		if st.Status == golive.StepPending {
			continue
		}
		line := fmt.Sprintf("  %s %s", statusMark(st.Status), st.Name)
		if st.Err != nil {
			line += ": " + st.Err.Error()
		}
		fmt.Fprintln(p.out, line)
	}
}

func statusMark(s golive.StepStatus) string {
	switch s {
	case golive.StepRunning:
		return "…"
	case golive.StepDone:
		return "✓"
	case golive.StepFailed:
		return "✗"
	default:
		return " "
	}
}

func (r *runner) printPrepopulation(snap golive.Snapshot) {
	ids := make([]golive.PlatformID, 0, len(snap.Prepopulation))
	for id := range snap.Prepopulation {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fmt.Fprintln(r.out, "Platforms:")
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	for _, id := range ids {
		res := snap.Prepopulation[id]
		switch {
		case res.Err != nil:
			fmt.Fprintf(tw, "  %s\tunavailable\t%v\n", id, res.Err)
		case res.Defaults.Live:
			fmt.Fprintf(tw, "  %s\tlive\t%s / %s\n", id, res.Defaults.Title, res.Defaults.Category)
		default:
			fmt.Fprintf(tw, "  %s\toffline\t%s / %s\n", id, res.Defaults.Title, res.Defaults.Category)
		}
	}
	tw.Flush()
}

func (r *runner) printDraft() {
	s := r.currentDraft()

	fmt.Fprintln(r.out, "\nStream settings:")
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "  title\t%s\n", s.Title)
	fmt.Fprintf(tw, "  category\t%s\n", s.Category)
	if s.Resolution != "" {
		fmt.Fprintf(tw, "  resolution\t%s\n", s.Resolution)
	}
	if s.MaxViewers > 0 {
		fmt.Fprintf(tw, "  max viewers\t%d\n", s.MaxViewers)
	}
	if s.Visibility.Secret {
		fmt.Fprintf(tw, "  visibility\tsecret\n")
	}
	if s.Audience.AdultOnly {
		fmt.Fprintf(tw, "  audience\tadults only\n")
	}
	if s.Audience.MinRank > 0 {
		fmt.Fprintf(tw, "  min rank\t%d\n", s.Audience.MinRank)
	}
	for _, o := range s.OverrideList() {
		var flags []string
		switch {
		case !o.Enabled:
			flags = append(flags, "disabled")
		case o.Required:
			flags = append(flags, "required")
		default:
			flags = append(flags, "optional")
		}
		if o.UseCustomFields {
			flags = append(flags, "custom fields")
		}
		fmt.Fprintf(tw, "  %s\t%s\n", o.Platform, strings.Join(flags, ", "))
	}
	tw.Flush()
}

func (r *runner) printFailure(err error) {
	var verr *golive.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintln(r.out, "Settings need correcting:")
		for _, p := range verr.Problems {
			fmt.Fprintf(r.out, "  - %s\n", p)
		}
		return
	}

	var terr *golive.TransmissionError
	if errors.As(err, &terr) {
		fmt.Fprintf(r.out, "Could not start the encoder: %v\n", terr.Err)
	} else {
		fmt.Fprintf(r.out, "Go-live failed: %v\n", err)
	}
	if comp := r.session.Snapshot().Compensated; len(comp) > 0 {
		fmt.Fprintf(r.out, "Rolled back %s.\n", joinIDs(comp))
	}
}

// livePlatforms returns the platforms whose settings were applied.
func (r *runner) livePlatforms(snap golive.Snapshot) []golive.PlatformID {
	var ids []golive.PlatformID
	for _, st := range snap.Checklist {
		if id, ok := domain.ApplyStepPlatform(st.Name); ok && st.Status == golive.StepDone {
			ids = append(ids, id)
		}
	}
	return ids
}

func joinIDs(ids []golive.PlatformID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}
