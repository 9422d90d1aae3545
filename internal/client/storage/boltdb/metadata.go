package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/manuscript/internal/client/storage"
)

var _ storage.SyncStateStorage = (*Storage)(nil)

const (
	keyLastSyncTimestamp = "last_sync_timestamp"
	keyLastID            = "last_id"
)

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// idKey big-endian ключ: курсор bbolt обходит ID по возрастанию
func idKey(id int) []byte {
	return encodeUint64(uint64(id))
}

func decodeID(k []byte) (int, error) {
	if len(k) != 8 {
		return 0, fmt.Errorf("invalid id key length %d", len(k))
	}
	return int(binary.BigEndian.Uint64(k)), nil
}

// projectBucket возвращает bucket проекта, nil если состояния еще нет
func projectBucket(tx *bbolt.Tx, project string) (*bbolt.Bucket, error) {
	projects := tx.Bucket(bucketProjects)
	if projects == nil {
		return nil, fmt.Errorf("projects bucket not found")
	}
	return projects.Bucket([]byte(project)), nil
}

// projectSubBucket создает при необходимости bucket проекта и его вложенный bucket
func projectSubBucket(tx *bbolt.Tx, project string, name []byte) (*bbolt.Bucket, error) {
	projects := tx.Bucket(bucketProjects)
	if projects == nil {
		return nil, fmt.Errorf("projects bucket not found")
	}
	pb, err := projects.CreateBucketIfNotExists([]byte(project))
	if err != nil {
		return nil, fmt.Errorf("failed to create project bucket: %w", err)
	}
	b, err := pb.CreateBucketIfNotExists(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s bucket: %w", name, err)
	}
	return b, nil
}

func (s *Storage) update(project string, name []byte, fn func(b *bbolt.Bucket) error) error {
	if project == "" {
		return storage.ErrInvalidProject
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := projectSubBucket(tx, project, name)
		if err != nil {
			return err
		}
		return fn(b)
	})
}

// view вызывает fn с nil, если у проекта нет такого bucket
func (s *Storage) view(project string, name []byte, fn func(b *bbolt.Bucket) error) error {
	if project == "" {
		return storage.ErrInvalidProject
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		pb, err := projectBucket(tx, project)
		if err != nil {
			return err
		}
		if pb == nil {
			return fn(nil)
		}
		return fn(pb.Bucket(name))
	})
}

// SaveSyncMeta saves the result of the last successful sync
func (s *Storage) SaveSyncMeta(ctx context.Context, project string, meta storage.SyncMeta) error {
	err := s.update(project, bucketMeta, func(b *bbolt.Bucket) error {
		// Конвертируем timestamp в bytes
		if err := b.Put([]byte(keyLastSyncTimestamp), encodeUint64(uint64(meta.LastSync.UnixNano()))); err != nil {
			return err
		}
		return b.Put([]byte(keyLastID), encodeUint64(uint64(meta.LastID)))
	})
	if err != nil {
		return fmt.Errorf("failed to save sync meta: %w", err)
	}
	return nil
}

// GetSyncMeta retrieves the result of the last successful sync
// Returns zero meta if no sync has been performed yet
func (s *Storage) GetSyncMeta(ctx context.Context, project string) (storage.SyncMeta, error) {
	var meta storage.SyncMeta

	err := s.view(project, bucketMeta, func(b *bbolt.Bucket) error {
		if b == nil {
			// Первая синхронизация
			return nil
		}
		if ts := b.Get([]byte(keyLastSyncTimestamp)); len(ts) == 8 {
			meta.LastSync = time.Unix(0, int64(binary.BigEndian.Uint64(ts))).UTC()
		}
		if id := b.Get([]byte(keyLastID)); len(id) == 8 {
			meta.LastID = int(binary.BigEndian.Uint64(id))
		}
		return nil
	})
	if err != nil {
		return storage.SyncMeta{}, fmt.Errorf("failed to get sync meta: %w", err)
	}

	return meta, nil
}

// GetSyncedHashes returns the hashes recorded at the last exchange
func (s *Storage) GetSyncedHashes(ctx context.Context, project string) (map[int]string, error) {
	hashes := make(map[int]string)

	err := s.view(project, bucketHashes, func(b *bbolt.Bucket) error {
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			id, err := decodeID(k)
			if err != nil {
				return err
			}
			hashes[id] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get synced hashes: %w", err)
	}

	return hashes, nil
}

// SetSyncedHash records the hash of an entity as exchanged with the server
func (s *Storage) SetSyncedHash(ctx context.Context, project string, id int, hash string) error {
	err := s.update(project, bucketHashes, func(b *bbolt.Bucket) error {
		return b.Put(idKey(id), []byte(hash))
	})
	if err != nil {
		return fmt.Errorf("failed to set synced hash: %w", err)
	}
	return nil
}

// RemoveSyncedHash forgets the synced hash of an entity
func (s *Storage) RemoveSyncedHash(ctx context.Context, project string, id int) error {
	err := s.update(project, bucketHashes, func(b *bbolt.Bucket) error {
		return b.Delete(idKey(id))
	})
	if err != nil {
		return fmt.Errorf("failed to remove synced hash: %w", err)
	}
	return nil
}

// AddPendingDeletion queues a local deletion for the next sync
func (s *Storage) AddPendingDeletion(ctx context.Context, project string, id int) error {
	err := s.update(project, bucketDeletions, func(b *bbolt.Bucket) error {
		return b.Put(idKey(id), []byte{})
	})
	if err != nil {
		return fmt.Errorf("failed to add pending deletion: %w", err)
	}
	return nil
}

// RemovePendingDeletion drops a deletion once the server accepted it
func (s *Storage) RemovePendingDeletion(ctx context.Context, project string, id int) error {
	err := s.update(project, bucketDeletions, func(b *bbolt.Bucket) error {
		return b.Delete(idKey(id))
	})
	if err != nil {
		return fmt.Errorf("failed to remove pending deletion: %w", err)
	}
	return nil
}

// GetPendingDeletions returns queued deletions in ascending id order
func (s *Storage) GetPendingDeletions(ctx context.Context, project string) ([]int, error) {
	var ids []int

	err := s.view(project, bucketDeletions, func(b *bbolt.Bucket) error {
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			id, err := decodeID(k)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pending deletions: %w", err)
	}

	return ids, nil
}

// ListProjects returns names of projects with stored sync state
func (s *Storage) ListProjects(ctx context.Context) ([]string, error) {
	var projects []string

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketProjects)
		if bucket == nil {
			return fmt.Errorf("projects bucket not found")
		}
		return bucket.ForEachBucket(func(k []byte) error {
			projects = append(projects, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}
