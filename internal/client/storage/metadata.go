package storage

import (
	"context"
	"time"
)

//go:generate moq -out metadata_mock.go . SyncStateStorage

// SyncMeta результат последней успешной синхронизации проекта
type SyncMeta struct {
	LastSync time.Time
	LastID   int
}

// Synced reports whether the project was ever synced.
func (m SyncMeta) Synced() bool {
	return !m.LastSync.IsZero()
}

// SyncStateStorage defines interface for storing per-project sync state:
// the last sync result, the hashes of entities as last exchanged with the
// server, and deletions not yet pushed.
type SyncStateStorage interface {
	// GetSyncMeta returns zero SyncMeta if the project was never synced
	GetSyncMeta(ctx context.Context, project string) (SyncMeta, error)
	SaveSyncMeta(ctx context.Context, project string, meta SyncMeta) error

	// GetSyncedHashes returns entity id -> hash as of the last exchange
	GetSyncedHashes(ctx context.Context, project string) (map[int]string, error)
	SetSyncedHash(ctx context.Context, project string, id int, hash string) error
	RemoveSyncedHash(ctx context.Context, project string, id int) error

	// Pending deletions are entity ids deleted locally after they were synced
	AddPendingDeletion(ctx context.Context, project string, id int) error
	RemovePendingDeletion(ctx context.Context, project string, id int) error
	GetPendingDeletions(ctx context.Context, project string) ([]int, error)

	// ListProjects returns projects that have any sync state
	ListProjects(ctx context.Context) ([]string, error)
}
