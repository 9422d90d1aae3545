// Package repository собирает серверную синхронизацию проекта: сессии,
// синхронизаторы сущностей, учетные данные в sqlite и проверку ID.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/manuscript/internal/filestore"
	"github.com/iudanet/manuscript/internal/idalloc"
	"github.com/iudanet/manuscript/internal/models"
	"github.com/iudanet/manuscript/internal/server/session"
	"github.com/iudanet/manuscript/internal/server/storage"
	"github.com/iudanet/manuscript/internal/server/synchronizer"
)

var (
	// ErrUnknownEntityType indicates a request for an unsupported entity type
	ErrUnknownEntityType = errors.New("unknown entity type")
)

// Key ключ сессии синхронизации: пользователь и проект.
type Key struct {
	UserID  string
	Project string
}

// SyncSession сессия синхронизации проекта. data - рабочая копия учетных
// данных, сохраняется в EndSync.
type SyncSession struct {
	started   time.Time
	data      *models.ProjectSyncData
	syncID    string
	projectID string
	Key
	maxID int
	mu    sync.Mutex
}

func (s *SyncSession) SyncID() string     { return s.syncID }
func (s *SyncSession) Started() time.Time { return s.started }

// ProjectID returns the registry id of the synced project.
func (s *SyncSession) ProjectID() string { return s.projectID }

// markSaved снимает с ID отметку удаления. persist вызывается под mu с новым
// набором удаленных ID, только если набор изменился.
func (s *SyncSession) markSaved(id int, persist func(deleted []int) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id > s.maxID {
		s.maxID = id
	}
	if !s.data.IsDeleted(id) {
		return nil
	}
	delete(s.data.DeletedIDs, id)
	return persist(s.data.SortedDeletedIDs())
}

func (s *SyncSession) markDeleted(id int, persist func(deleted []int) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id > s.maxID {
		s.maxID = id
	}
	s.data.DeletedIDs[id] = struct{}{}
	return persist(s.data.SortedDeletedIDs())
}

// Storage хранилище реестра проектов и учетных данных синхронизации.
type Storage interface {
	storage.SyncDataStorage
	storage.ProjectStorage
}

// SessionManager менеджер сессий репозитория.
type SessionManager = session.Manager[Key, *SyncSession]

// BeginResult ответ на начало синхронизации.
type BeginResult struct {
	LastSync       time.Time
	UpdateSequence map[models.EntityType][]int
	SyncID         string
	DeletedIDs     []int
	LastID         int
}

// Repository серверный репозиторий проектов.
type Repository struct {
	sessions *SessionManager
	handlers map[models.EntityType]synchronizer.Handler
	storage  Storage
	logger   *slog.Logger
	layout   filestore.Layout
}

// New creates a repository. handlers must contain one handler per entity type.
func New(
	sessions *SessionManager,
	handlers map[models.EntityType]synchronizer.Handler,
	store Storage,
	layout filestore.Layout,
	logger *slog.Logger,
) *Repository {
	return &Repository{
		sessions: sessions,
		handlers: handlers,
		storage:  store,
		layout:   layout,
		logger:   logger,
	}
}

func (r *Repository) handler(t models.EntityType) (synchronizer.Handler, error) {
	h, ok := r.handlers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, t)
	}
	return h, nil
}

func (r *Repository) session(userID, project, syncID string) (*SyncSession, error) {
	return r.sessions.ValidateSyncID(Key{UserID: userID, Project: project}, syncID)
}

// persistDeleted сохраняет набор удаленных ID сразу, не дожидаясь EndSync:
// файл уже удален, и отметка должна пережить отмену или истечение сессии.
func (r *Repository) persistDeleted(ctx context.Context, sess *SyncSession) func(deleted []int) error {
	return func(deleted []int) error {
		if err := r.storage.SaveDeletedIDs(ctx, sess.ProjectID(), deleted); err != nil {
			return fmt.Errorf("failed to save deleted ids: %w", err)
		}
		return nil
	}
}

// BeginSync открывает сессию синхронизации и возвращает то, что клиенту
// нужно скачать: последовательности обновлений по типам и удаленные ID.
// Проект с поврежденным пространством ID не синхронизируется.
func (r *Repository) BeginSync(ctx context.Context, userID, project string, clientState models.ClientEntityState) (*BeginResult, error) {
	dir, err := r.layout.ProjectDir(userID, project)
	if err != nil {
		return nil, err
	}

	diskLastID, err := idalloc.New(dir).LastID()
	if err != nil {
		if errors.Is(err, idalloc.ErrIDSpaceCorrupted) {
			r.logger.Error("project id space corrupted", "user_id", userID, "project", project, "error", err)
		}
		return nil, err
	}

	def, err := r.storage.EnsureProject(ctx, userID, project)
	if err != nil {
		return nil, fmt.Errorf("failed to register project: %w", err)
	}

	data, err := r.storage.GetSyncData(ctx, def.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync data: %w", err)
	}

	key := Key{UserID: userID, Project: project}
	sess, err := r.sessions.CreateNewSession(key, func(syncID string, started time.Time) *SyncSession {
		return &SyncSession{
			Key:       key,
			syncID:    syncID,
			started:   started,
			projectID: def.ID,
			data:      data,
			maxID:     max(data.LastID, diskLastID),
		}
	})
	if err != nil {
		return nil, err
	}

	result := &BeginResult{
		SyncID:         sess.SyncID(),
		LastSync:       data.LastSync,
		LastID:         max(data.LastID, diskLastID),
		DeletedIDs:     data.SortedDeletedIDs(),
		UpdateSequence: make(map[models.EntityType][]int, len(models.SyncOrder)),
	}

	for _, t := range models.SyncOrder {
		h, err := r.handler(t)
		if err != nil {
			r.sessions.TerminateSession(key)
			return nil, err
		}
		ids, err := h.UpdateSequence(ctx, userID, project, clientState)
		if err != nil {
			r.sessions.TerminateSession(key)
			return nil, fmt.Errorf("failed to build %s update sequence: %w", t, err)
		}
		result.UpdateSequence[t] = ids
	}

	r.logger.Info("sync started",
		"user_id", userID,
		"project", project,
		"last_id", result.LastID,
		"deleted_count", len(result.DeletedIDs))

	return result, nil
}

// LoadEntity returns a server entity within the session.
func (r *Repository) LoadEntity(ctx context.Context, userID, project, syncID string, t models.EntityType, id int) (models.Entity, error) {
	if _, err := r.session(userID, project, syncID); err != nil {
		return nil, err
	}

	h, err := r.handler(t)
	if err != nil {
		return nil, err
	}
	return h.Load(ctx, userID, project, id)
}

// SaveEntity stores a client entity within the session. A conflict is
// returned as an error matching synchronizer.ErrEntityConflict.
func (r *Repository) SaveEntity(ctx context.Context, userID, project, syncID string, e models.Entity, originalHash *string, force bool) (bool, error) {
	sess, err := r.session(userID, project, syncID)
	if err != nil {
		return false, err
	}

	h, err := r.handler(e.EntityType())
	if err != nil {
		return false, err
	}

	saved, err := h.Save(ctx, userID, project, e, originalHash, force)
	if err != nil {
		if !errors.Is(err, synchronizer.ErrEntityConflict) {
			r.logger.Warn("failed to save entity", "user_id", userID, "project", project, "entity_id", e.EntityID(), "error", err)
		}
		return false, err
	}

	if saved {
		if err := sess.markSaved(e.EntityID(), r.persistDeleted(ctx, sess)); err != nil {
			r.logger.Error("failed to restore deleted id", "user_id", userID, "project", project, "entity_id", e.EntityID(), "error", err)
			return false, err
		}
	}
	return saved, nil
}

// DeleteEntity удаляет сущность любого типа и запоминает ID как удаленный,
// чтобы другие устройства удалили ее у себя. originalHash - хеш, который
// клиент видел при последнем обмене: если сущность с тех пор изменилась,
// возвращается конфликт (synchronizer.ErrEntityConflict) и ничего не удаляется.
func (r *Repository) DeleteEntity(ctx context.Context, userID, project, syncID string, id int, originalHash *string) (bool, error) {
	sess, err := r.session(userID, project, syncID)
	if err != nil {
		return false, err
	}

	dir, err := r.layout.ProjectDir(userID, project)
	if err != nil {
		return false, err
	}
	refs, err := dir.Find(id)
	if err != nil {
		return false, fmt.Errorf("failed to find entity: %w", err)
	}

	deleted := false
	for _, ref := range refs {
		h, err := r.handler(ref.Type)
		if err != nil {
			return false, err
		}
		ok, err := h.Delete(ctx, userID, project, id, originalHash)
		if err != nil {
			if !errors.Is(err, synchronizer.ErrEntityConflict) {
				r.logger.Warn("failed to delete entity", "user_id", userID, "project", project, "entity_id", id, "error", err)
			}
			return false, err
		}
		deleted = deleted || ok
	}

	if err := sess.markDeleted(id, r.persistDeleted(ctx, sess)); err != nil {
		r.logger.Error("failed to record deleted id", "user_id", userID, "project", project, "entity_id", id, "error", err)
		return deleted, err
	}
	r.logger.Debug("entity deleted", "user_id", userID, "project", project, "entity_id", id, "existed", deleted)
	return deleted, nil
}

// EndSync сохраняет учетные данные сессии и закрывает ее.
func (r *Repository) EndSync(ctx context.Context, userID, project, syncID string, lastSync time.Time, lastID int) error {
	sess, err := r.session(userID, project, syncID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	data := &models.ProjectSyncData{
		LastSync:   lastSync,
		LastID:     max(sess.data.LastID, lastID, sess.maxID),
		DeletedIDs: make(map[int]struct{}, len(sess.data.DeletedIDs)),
	}
	for id := range sess.data.DeletedIDs {
		data.DeletedIDs[id] = struct{}{}
	}
	sess.mu.Unlock()

	if err := r.storage.SaveSyncData(ctx, sess.ProjectID(), data); err != nil {
		return fmt.Errorf("failed to save sync data: %w", err)
	}

	r.sessions.TerminateSession(sess.Key)
	r.logger.Info("sync finished", "user_id", userID, "project", project, "last_id", data.LastID)
	return nil
}

// CancelSync closes the session without persisting lastSync and lastID.
// Entities already written stay written, deletions are already recorded.
func (r *Repository) CancelSync(_ context.Context, userID, project, syncID string) error {
	sess, err := r.session(userID, project, syncID)
	if err != nil {
		return err
	}

	r.sessions.TerminateSession(sess.Key)
	r.logger.Info("sync cancelled", "user_id", userID, "project", project)
	return nil
}

// ListProjects returns the projects registered for the user.
func (r *Repository) ListProjects(ctx context.Context, userID string) ([]*models.ProjectDefinition, error) {
	return r.storage.ListProjects(ctx, userID)
}
