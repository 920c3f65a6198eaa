package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/bft-labs/golive/internal/domain"
)

const statusFileName = "status.json"

// Status is the on-disk form of a session snapshot. Errors are stored as
// their messages.
type Status struct {
	Version       uint64                       `json:"version"`
	AttemptID     string                       `json:"attempt_id,omitempty"`
	State         string                       `json:"state"`
	Error         string                       `json:"error,omitempty"`
	Checklist     []StepStatus                 `json:"checklist,omitempty"`
	Prepopulation map[string]PrepopulateStatus `json:"prepopulation,omitempty"`
	Compensated   []string                     `json:"compensated,omitempty"`
	UpdatedAt     time.Time                    `json:"updated_at"`
}

// StepStatus is one checklist entry.
type StepStatus struct {
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	DependsOn  []string   `json:"depends_on,omitempty"`
	Generation int        `json:"generation"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// PrepopulateStatus records what a platform reported before confirmation.
type PrepopulateStatus struct {
	Live     bool   `json:"live"`
	Title    string `json:"title,omitempty"`
	Category string `json:"category,omitempty"`
	Error    string `json:"error,omitempty"`
}

// StatusFileRepository implements ports.StatusRepository using a JSON file.
// Only the latest snapshot is kept.
type StatusFileRepository struct {
	dir string
}

// NewStatusFileRepository creates a new StatusFileRepository for the given directory.
func NewStatusFileRepository(dir string) *StatusFileRepository {
	return &StatusFileRepository{dir: dir}
}

// Load retrieves the last saved status from disk.
// Returns an empty status and nil error if no status file exists.
func (r *StatusFileRepository) Load(ctx context.Context) (Status, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return Status{}, nil
		}
		return Status{}, err
	}

	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// Save persists the snapshot atomically.
// Uses atomic write (write to temp file, then rename) to prevent corruption.
func (r *StatusFileRepository) Save(ctx context.Context, snap domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(toStatus(snap), "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmp, path)
}

// Path returns the full path to the status file.
func (r *StatusFileRepository) Path() string {
	return filepath.Join(r.dir, statusFileName)
}

func toStatus(snap domain.Snapshot) Status {
	st := Status{
		Version:   snap.Version,
		AttemptID: snap.AttemptID,
		State:     snap.State.String(),
		Error:     errString(snap.Err),
		UpdatedAt: snap.UpdatedAt,
	}
	for _, step := range snap.Checklist {
		st.Checklist = append(st.Checklist, StepStatus{
			Name:       step.Name,
			Status:     string(step.Status),
			Error:      errString(step.Err),
			DependsOn:  step.DependsOn,
			Generation: step.Generation,
			StartedAt:  timePtr(step.StartedAt),
			FinishedAt: timePtr(step.FinishedAt),
		})
	}
	if len(snap.Prepopulation) > 0 {
		st.Prepopulation = make(map[string]PrepopulateStatus, len(snap.Prepopulation))
		for id, res := range snap.Prepopulation {
			st.Prepopulation[string(id)] = PrepopulateStatus{
				Live:     res.Defaults.Live,
				Title:    res.Defaults.Title,
				Category: res.Defaults.Category,
				Error:    errString(res.Err),
			}
		}
	}
	for _, id := range snap.Compensated {
		st.Compensated = append(st.Compensated, string(id))
	}
	return st
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
