package store

import (
	"github.com/croftlabs/croft/pkg/types"
)

// StateStore persists cluster snapshots across control-plane restarts.
// Secrets are never part of a snapshot and therefore never reach a store.
type StateStore interface {
	// Save replaces the stored snapshot with the given one.
	Save(snap *types.ClusterSnapshot) error
	// Load returns the stored snapshot, or nil when none has been saved.
	Load() (*types.ClusterSnapshot, error)
	Close() error
}
