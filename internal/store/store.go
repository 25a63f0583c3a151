// Package store persists chain snapshots so open-interest shifts can be
// compared across refreshes. Implementations include PostgreSQL and
// in-memory (testing and Postgres-less deployments).
package store

import (
	"context"
	"errors"

	"github.com/hetsaraiya/Nifty-Analysis/internal/model"
)

// ErrNotFound is returned when no snapshot matches the query.
var ErrNotFound = errors.New("store: snapshot not found")

// Store is the snapshot persistence interface. Snapshots are immutable:
// insert and read, never update.
type Store interface {
	// SaveSnapshot persists one generated chain.
	SaveSnapshot(ctx context.Context, snap *model.ChainSnapshot) error

	// GetSnapshot retrieves a snapshot by ID, quotes included.
	GetSnapshot(ctx context.Context, id string) (*model.ChainSnapshot, error)

	// LatestSnapshot returns the most recently generated snapshot.
	LatestSnapshot(ctx context.Context) (*model.ChainSnapshot, error)

	// ListSnapshots returns up to limit snapshots, newest first.
	ListSnapshots(ctx context.Context, limit int) ([]model.ChainSnapshot, error)
}
