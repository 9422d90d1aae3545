package sync

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/iudanet/manuscript/internal/client/storage"
	"github.com/iudanet/manuscript/internal/crypto"
	"github.com/iudanet/manuscript/internal/models"
)

// Deleter удаляет сущность локально вместе с зависимыми
type Deleter interface {
	Name() string
	Delete(id int) ([]int, error)
}

// DeleteLocal removes an entity locally and queues every removed id that the
// server already knows for deletion on the next sync.
func DeleteLocal(ctx context.Context, local Deleter, store storage.SyncStateStorage, id int) ([]int, error) {
	removed, err := local.Delete(id)
	if err != nil {
		return nil, err
	}

	synced, err := store.GetSyncedHashes(ctx, local.Name())
	if err != nil {
		return removed, fmt.Errorf("failed to load synced hashes: %w", err)
	}
	for _, rid := range removed {
		if _, ok := synced[rid]; !ok {
			continue
		}
		if err := store.AddPendingDeletion(ctx, local.Name(), rid); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Status локальные изменения с последней синхронизации
type Status struct {
	LastSync         time.Time
	Modified         []int
	New              []int
	PendingDeletions []int
	LastID           int
}

// LocalStatus compares the local project with the hashes of the last sync.
func LocalStatus(ctx context.Context, local LocalProject, store storage.SyncStateStorage) (*Status, error) {
	meta, err := store.GetSyncMeta(ctx, local.Name())
	if err != nil {
		return nil, err
	}
	synced, err := store.GetSyncedHashes(ctx, local.Name())
	if err != nil {
		return nil, err
	}
	pending, err := store.GetPendingDeletions(ctx, local.Name())
	if err != nil {
		return nil, err
	}

	st := &Status{
		LastSync:         meta.LastSync,
		LastID:           meta.LastID,
		PendingDeletions: pending,
	}
	for _, t := range models.SyncOrder {
		entities, err := local.Entities(t)
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			h, ok := synced[e.EntityID()]
			if !ok {
				st.New = append(st.New, e.EntityID())
				continue
			}
			cur, err := crypto.HashEntity(e)
			if err != nil {
				return nil, err
			}
			if cur != h {
				st.Modified = append(st.Modified, e.EntityID())
			}
		}
	}
	slices.Sort(st.New)
	slices.Sort(st.Modified)
	return st, nil
}
