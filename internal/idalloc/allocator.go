// Package idalloc выдает ID сущностей проекта. Последовательность ID общая
// для всех типов сущностей: сцена, заметка и событие никогда не получат
// одинаковый числовой ID.
package idalloc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/iudanet/manuscript/internal/filestore"
)

var (
	// ErrIDSpaceCorrupted indicates the same numeric id is used by entities of
	// different types. This is never resolved automatically.
	ErrIDSpaceCorrupted = errors.New("id space corrupted")
)

// FirstID is the id handed out for an empty project. 0 is the scene tree root.
const FirstID = 1

// Scanner lists all persisted entities of a project.
type Scanner interface {
	List() ([]filestore.Ref, error)
}

// Allocator кеширует следующий свободный ID проекта.
type Allocator struct {
	scanner Scanner
	next    int
	floor   int // floor нижняя граница next: выданные и зарезервированные ID
	loaded  bool
	mu      sync.Mutex
}

// New creates an allocator over the given scanner. Nothing is read until the
// first FindNextID or ClaimNextID call.
func New(scanner Scanner) *Allocator {
	return &Allocator{scanner: scanner}
}

// FindNextID сканирует все сущности проекта и кеширует max(id)+1.
// Ошибка сканирования отказывает в выдаче ID: уникальность важнее доступности.
func (a *Allocator) FindNextID() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.findLocked()
}

func (a *Allocator) findLocked() (int, error) {
	refs, err := a.scanner.List()
	if err != nil {
		a.loaded = false
		return 0, fmt.Errorf("failed to scan project entities: %w", err)
	}

	maxID := FirstID - 1
	seen := make(map[int]string, len(refs))
	for _, ref := range refs {
		if other, ok := seen[ref.ID]; ok {
			a.loaded = false
			return 0, fmt.Errorf("%w: id %d used by %s and %s", ErrIDSpaceCorrupted, ref.ID, other, ref.Name)
		}
		seen[ref.ID] = ref.Name
		if ref.ID > maxID {
			maxID = ref.ID
		}
	}

	next := maxID + 1
	// Уже выданные, но еще не записанные ID не переиспользуются
	if a.floor > next {
		next = a.floor
	}

	a.next = next
	a.loaded = true

	return next, nil
}

// ClaimNextID returns the next id and advances the in-memory counter. The id
// becomes persistent only when the entity is written.
func (a *Allocator) ClaimNextID() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.loaded {
		if _, err := a.findLocked(); err != nil {
			return 0, err
		}
	}

	id := a.next
	a.next++
	a.floor = a.next

	return id, nil
}

// Reserve guarantees that the next claimed id is greater than lastID.
// Used when the server reports the last id it has seen for the project.
func (a *Allocator) Reserve(lastID int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.loaded {
		if _, err := a.findLocked(); err != nil {
			return err
		}
	}

	if lastID+1 > a.floor {
		a.floor = lastID + 1
	}
	if a.floor > a.next {
		a.next = a.floor
	}
	return nil
}

// LastID returns the highest id that was handed out or found on disk.
func (a *Allocator) LastID() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.loaded {
		if _, err := a.findLocked(); err != nil {
			return 0, err
		}
	}

	return a.next - 1, nil
}

// Invalidate drops the cached counter so the next call rescans the project.
// Claimed ids are still never reused within the process.
func (a *Allocator) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.loaded = false
}
