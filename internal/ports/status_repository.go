package ports

import (
	"context"

	"github.com/bft-labs/golive/internal/domain"
)

// StatusRepository persists the latest snapshot of a go-live session so
// that external tooling can inspect it. Only the current session is kept.
type StatusRepository interface {
	// Save persists the snapshot atomically.
	Save(ctx context.Context, snap domain.Snapshot) error
}
