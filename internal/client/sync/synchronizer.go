package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	clientapi "github.com/iudanet/manuscript/internal/client/api"
	"github.com/iudanet/manuscript/internal/client/project"
	"github.com/iudanet/manuscript/internal/client/storage"
	"github.com/iudanet/manuscript/internal/crypto"
	"github.com/iudanet/manuscript/internal/models"
	"github.com/iudanet/manuscript/pkg/api"
)

// DefaultCancelTimeout время на освобождение серверной сессии после сбоя
const DefaultCancelTimeout = 5 * time.Second

var (
	// ErrAlreadyStarted a Synchronizer runs only once
	ErrAlreadyStarted = errors.New("synchronization already started")
	// ErrNoSuchConflict no pending conflict for the entity
	ErrNoSuchConflict = errors.New("no pending conflict for entity")
	// ErrNotRunning the synchronization is not in progress
	ErrNotRunning = errors.New("synchronization is not running")
	// ErrNotDeleteConflict the conflict is not between a local deletion and a server edit
	ErrNotDeleteConflict = errors.New("conflict is not a deletion conflict")
)

// Progress ход синхронизации
type Progress struct {
	Type     models.EntityType
	Message  string
	Fraction float64 // доля выполненной работы по всему проекту, 0..1
}

// Callbacks вызываются синхронно из горутины синхронизации, без удержания
// внутренних блокировок. Любое поле может быть nil.
type Callbacks struct {
	OnProgress    func(p Progress)
	OnLog         func(msg string)
	OnConflict    func(c models.Conflict)
	OnStateChange func(s State)
}

// Result итог синхронизации. При ошибке содержит частичный прогресс.
type Result struct {
	LastSync          time.Time
	ReIdentified      map[int]int // старый ID -> новый ID
	Pushed            int
	Pulled            int
	DeletedLocal      int // удалено локально по данным сервера
	DeletedRemote     int // локальные удаления, отправленные на сервер
	Conflicts         int
	ConflictsResolved int
	Failed            int // сущности, пропущенные из-за ошибок
	LastID            int
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithCallbacks sets the progress, log, conflict and state callbacks.
func WithCallbacks(cb Callbacks) Option {
	return func(s *Synchronizer) {
		s.callbacks = cb
	}
}

// WithClock replaces time.Now, used for the lastSync timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) {
		s.now = now
	}
}

// WithCancelTimeout bounds the best-effort CancelSync call after a failure.
func WithCancelTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		s.cancelTimeout = d
	}
}

// Synchronizer одна синхронизация одного проекта. Run вызывается один раз.
type Synchronizer struct {
	server    ServerAPI
	local     LocalProject
	store     storage.SyncStateStorage
	logger    *slog.Logger
	callbacks Callbacks
	now       func() time.Time

	// заполняется в Run, читается только горутиной Run
	result        *Result
	serverDeleted map[int]struct{}
	handled       map[int]struct{} // отправленные, конфликтные и пропущенные ID

	resolvedCh    chan struct{}
	cancelTimeout time.Duration

	mu        sync.Mutex
	state     State
	syncID    string
	synced    map[int]string // ID -> хеш на момент последнего обмена с сервером
	conflicts map[int]models.Conflict
	resolved  int
	// удаления, принятые сервером; снимаются из очереди после EndSync
	deletedRemote []int
}

// New creates a synchronizer for one run over the local project.
func New(server ServerAPI, local LocalProject, store storage.SyncStateStorage, logger *slog.Logger, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		server:        server,
		local:         local,
		store:         store,
		logger:        logger.With("project", local.Name()),
		now:           time.Now,
		cancelTimeout: DefaultCancelTimeout,
		resolvedCh:    make(chan struct{}, 1),
		conflicts:     make(map[int]models.Conflict),
		synced:        make(map[int]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Project returns the name of the synchronized project.
func (s *Synchronizer) Project() string {
	return s.local.Name()
}

// State returns the current state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Conflicts returns the pending conflicts ordered by entity id.
func (s *Synchronizer) Conflicts() []models.Conflict {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Conflict, 0, len(s.conflicts))
	for _, c := range s.conflicts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID() < out[j].EntityID() })
	return out
}

func (s *Synchronizer) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.logger.Debug("sync state changed", "state", state.String())
	if s.callbacks.OnStateChange != nil {
		s.callbacks.OnStateChange(state)
	}
}

func (s *Synchronizer) logf(format string, args ...any) {
	if s.callbacks.OnLog != nil {
		s.callbacks.OnLog(fmt.Sprintf(format, args...))
	}
}

func (s *Synchronizer) progress(typeIndex, done, total int, t models.EntityType, msg string) {
	if s.callbacks.OnProgress == nil {
		return
	}
	frac := 1.0
	if total > 0 {
		frac = float64(done) / float64(total)
	}
	s.callbacks.OnProgress(Progress{
		Type:     t,
		Message:  msg,
		Fraction: (float64(typeIndex) + frac) / float64(len(models.SyncOrder)),
	})
}

func (s *Synchronizer) syncedHash(id int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.synced[id]
	return h, ok
}

// recordSynced запоминает хеш сущности, которым клиент и сервер обменялись
func (s *Synchronizer) recordSynced(ctx context.Context, id int, hash string) error {
	if err := s.store.SetSyncedHash(ctx, s.Project(), id, hash); err != nil {
		return err
	}
	s.mu.Lock()
	s.synced[id] = hash
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) forgetSynced(ctx context.Context, id int) error {
	if err := s.store.RemoveSyncedHash(ctx, s.Project(), id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.synced, id)
	s.mu.Unlock()
	return nil
}

// isEntityError ошибка касается одной сущности: она пропускается, остальное продолжается
func isEntityError(err error) bool {
	return errors.Is(err, clientapi.ErrIDCollision) ||
		errors.Is(err, clientapi.ErrBadRequest) ||
		errors.Is(err, clientapi.ErrNotFound) ||
		errors.Is(err, clientapi.ErrEntityIO)
}

// localIndex все локальные сущности по ID
func (s *Synchronizer) localIndex() (map[int]models.Entity, error) {
	index := make(map[int]models.Entity)
	for _, t := range models.SyncOrder {
		entities, err := s.local.Entities(t)
		if err != nil {
			return nil, fmt.Errorf("failed to read local %s entities: %w", t, err)
		}
		for _, e := range entities {
			index[e.EntityID()] = e
		}
	}
	return index, nil
}

// Run выполняет синхронизацию. Возвращает частичный результат и при ошибке.
func (s *Synchronizer) Run(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	s.mu.Unlock()

	s.result = &Result{ReIdentified: make(map[int]int)}
	s.handled = make(map[int]struct{})
	project := s.Project()

	s.setState(StateBeginning)
	s.logger.Info("sync started")

	synced, err := s.store.GetSyncedHashes(ctx, project)
	if err != nil {
		return s.fail(ctx, fmt.Errorf("failed to load synced hashes: %w", err))
	}
	s.mu.Lock()
	s.synced = synced
	s.mu.Unlock()

	pending, err := s.store.GetPendingDeletions(ctx, project)
	if err != nil {
		return s.fail(ctx, fmt.Errorf("failed to load pending deletions: %w", err))
	}
	pendingSet := make(map[int]struct{}, len(pending))
	for _, id := range pending {
		pendingSet[id] = struct{}{}
	}

	index, err := s.localIndex()
	if err != nil {
		return s.fail(ctx, err)
	}

	// Сервер сравнивает с тем, что клиент видел при прошлом обмене. Пропавшие
	// локально файлы без ожидающего удаления сервер пришлет заново.
	clientState := make(models.ClientEntityState, len(synced))
	for id, h := range synced {
		_, exists := index[id]
		_, deleting := pendingSet[id]
		if exists || deleting {
			clientState[id] = h
		}
	}

	resp, err := s.server.BeginSync(ctx, project, clientState)
	if err != nil {
		return s.fail(ctx, fmt.Errorf("begin sync: %w", err))
	}
	s.mu.Lock()
	s.syncID = resp.SyncID
	s.mu.Unlock()
	s.result.LastID = resp.LastID
	s.logf("sync session opened, server last id %d", resp.LastID)

	if err := s.reidentify(ctx, index, resp.LastID); err != nil {
		return s.fail(ctx, err)
	}

	s.setState(StateSyncingEntities)

	if err := s.pushDeletions(ctx, pending); err != nil {
		return s.fail(ctx, err)
	}

	s.serverDeleted = make(map[int]struct{}, len(resp.DeletedIDs))
	for _, id := range resp.DeletedIDs {
		s.serverDeleted[id] = struct{}{}
		// Удаленная на сервере сущность, которой нет и локально.
		// Ожидающие удаления снимаются в finalize.
		if _, deleting := pendingSet[id]; deleting {
			continue
		}
		if _, exists := index[id]; !exists {
			if _, ok := s.syncedHash(id); ok {
				if err := s.forgetSynced(ctx, id); err != nil {
					return s.fail(ctx, err)
				}
			}
		}
	}

	for i, t := range models.SyncOrder {
		if err := ctx.Err(); err != nil {
			return s.fail(ctx, err)
		}
		if err := s.syncType(ctx, i, t, resp); err != nil {
			return s.fail(ctx, err)
		}
	}

	if err := s.awaitConflicts(ctx); err != nil {
		return s.fail(ctx, err)
	}

	return s.finalize(ctx, resp.LastID)
}

// reidentify выдает новые ID локальным сущностям, созданным без связи с
// сервером, чьи ID сервер уже мог выдать другому устройству.
func (s *Synchronizer) reidentify(ctx context.Context, index map[int]models.Entity, serverLastID int) error {
	var colliding []int
	for id := range index {
		if id > serverLastID {
			continue
		}
		if _, ok := s.syncedHash(id); !ok {
			colliding = append(colliding, id)
		}
	}
	sort.Ints(colliding)

	// Новые ID должны быть больше любого ID сервера
	if err := s.local.Reserve(serverLastID); err != nil {
		return fmt.Errorf("failed to reserve server ids: %w", err)
	}

	for _, oldID := range colliding {
		if err := ctx.Err(); err != nil {
			return err
		}
		newID, err := s.local.ReIdentify(oldID)
		if err != nil {
			return fmt.Errorf("failed to re-identify entity %d: %w", oldID, err)
		}
		s.result.ReIdentified[oldID] = newID
		s.logf("entity %d renumbered to %d", oldID, newID)
	}
	return nil
}

// pushDeletions отправляет локальные удаления с хешем последнего обмена.
// Если сущность на сервере с тех пор изменилась, удаление становится
// конфликтом. Очередь удалений очищается только после EndSync.
func (s *Synchronizer) pushDeletions(ctx context.Context, pending []int) error {
	project := s.Project()
	syncID := s.currentSyncID()

	for _, id := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Удаленная локально сущность не скачивается заново в этом раунде
		s.handled[id] = struct{}{}

		var original *string
		if h, ok := s.syncedHash(id); ok {
			original = &h
		}

		_, err := s.server.DeleteEntity(ctx, project, syncID, id, original)
		if err != nil {
			var conflict *clientapi.ConflictError
			if errors.As(err, &conflict) {
				s.park(models.NewDeleteConflict[models.Entity](conflict.Server))
				continue
			}
			if isEntityError(err) {
				s.logger.Warn("failed to delete entity on server", "entity_id", id, "error", err)
				s.result.Failed++
				continue
			}
			return fmt.Errorf("delete entity %d: %w", id, err)
		}

		s.mu.Lock()
		s.deletedRemote = append(s.deletedRemote, id)
		s.mu.Unlock()
		s.logf("deleted %d on server", id)
	}
	return nil
}

func (s *Synchronizer) currentSyncID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncID
}

// syncType синхронизирует один тип: серверные удаления, отправка локальных
// изменений, загрузка серверных.
func (s *Synchronizer) syncType(ctx context.Context, typeIndex int, t models.EntityType, resp *api.BeginSyncResponse) error {
	entities, err := s.local.Entities(t)
	if err != nil {
		return fmt.Errorf("failed to read local %s entities: %w", t, err)
	}

	type change struct {
		entity models.Entity
		hash   string
	}
	var changed []change

	for _, e := range entities {
		id := e.EntityID()
		h, err := crypto.HashEntity(e)
		if err != nil {
			s.logger.Warn("failed to hash entity", "entity_id", id, "error", err)
			s.result.Failed++
			continue
		}
		synced, wasSynced := s.syncedHash(id)
		unchanged := wasSynced && synced == h

		if _, deleted := s.serverDeleted[id]; deleted {
			if unchanged {
				if err := s.local.Remove(t, id); err != nil {
					return fmt.Errorf("failed to remove entity %d: %w", id, err)
				}
				if err := s.forgetSynced(ctx, id); err != nil {
					return err
				}
				s.result.DeletedLocal++
				s.logf("%s %d deleted on server, removed locally", t, id)
				continue
			}
			// Локальная правка побеждает удаление: сущность будет отправлена заново
			s.logf("%s %d deleted on server but modified locally, keeping it", t, id)
		}

		if !unchanged {
			changed = append(changed, change{entity: e, hash: h})
		}
	}

	pull := resp.UpdateSequence[t.Stub()]
	total := len(changed) + len(pull)
	done := 0
	s.progress(typeIndex, done, total, t, fmt.Sprintf("syncing %s", t))

	for _, c := range changed {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.push(ctx, c.entity, c.hash); err != nil {
			return err
		}
		done++
		s.progress(typeIndex, done, total, t, fmt.Sprintf("pushed %s %d", t, c.entity.EntityID()))
	}

	for _, id := range pull {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.pull(ctx, t, id); err != nil {
			return err
		}
		done++
		s.progress(typeIndex, done, total, t, fmt.Sprintf("pulled %s %d", t, id))
	}

	if t == models.EntityTypeScene {
		if err := s.normalizeScenes(ctx); err != nil {
			return err
		}
	}

	s.logger.Debug("entity type synced", "type", t, "pushed", len(changed), "pulled", len(pull))
	return nil
}

// push отправляет изменения сущности. Конфликт откладывается, ошибка
// отдельной сущности пропускает ее, остальные ошибки прерывают синхронизацию.
func (s *Synchronizer) push(ctx context.Context, e models.Entity, hash string) error {
	id := e.EntityID()
	s.handled[id] = struct{}{}

	var original *string
	if h, ok := s.syncedHash(id); ok {
		original = &h
	}

	_, err := s.server.SaveEntity(ctx, s.Project(), s.currentSyncID(), e, original, false)
	if err != nil {
		var conflict *clientapi.ConflictError
		if errors.As(err, &conflict) {
			s.park(models.NewEntityConflict[models.Entity](conflict.Server, e))
			return nil
		}
		if isEntityError(err) {
			s.logger.Warn("failed to push entity", "entity_id", id, "type", e.EntityType(), "error", err)
			s.logf("skipped %s %d: %v", e.EntityType(), id, err)
			s.result.Failed++
			return nil
		}
		return fmt.Errorf("save entity %d: %w", id, err)
	}

	if err := s.recordSynced(ctx, id, hash); err != nil {
		return err
	}
	s.result.Pushed++
	return nil
}

func (s *Synchronizer) park(c models.Conflict) {
	s.mu.Lock()
	s.conflicts[c.EntityID()] = c
	s.mu.Unlock()

	s.result.Conflicts++
	s.logger.Info("conflict parked", "entity_id", c.EntityID(), "type", c.Type())
	s.logf("conflict on %s %d", c.Type(), c.EntityID())
	if s.callbacks.OnConflict != nil {
		s.callbacks.OnConflict(c)
	}
}

func (s *Synchronizer) pull(ctx context.Context, t models.EntityType, id int) error {
	if _, ok := s.handled[id]; ok {
		return nil
	}
	s.handled[id] = struct{}{}

	server, err := s.server.LoadEntity(ctx, s.Project(), s.currentSyncID(), t, id)
	if err != nil {
		if isEntityError(err) {
			s.logger.Warn("failed to load entity", "entity_id", id, "type", t, "error", err)
			s.result.Failed++
			return nil
		}
		return fmt.Errorf("load entity %d: %w", id, err)
	}

	existing, err := s.local.Find(id)
	switch {
	case err == nil && existing.EntityType() != t:
		s.logger.Error("id used by different entity types", "entity_id", id, "local_type", existing.EntityType(), "server_type", t)
		s.logf("skipped %s %d: id is used locally by a %s", t, id, existing.EntityType())
		s.result.Failed++
		return nil
	case err != nil && !errors.Is(err, project.ErrNotFound):
		s.logger.Error("failed to look up local entity", "entity_id", id, "error", err)
		s.result.Failed++
		return nil
	}

	hash, err := crypto.HashEntity(server)
	if err != nil {
		s.result.Failed++
		return nil
	}
	if err := s.local.Save(server); err != nil {
		return fmt.Errorf("failed to write entity %d: %w", id, err)
	}
	if err := s.recordSynced(ctx, id, hash); err != nil {
		return err
	}
	s.result.Pulled++
	return nil
}

// normalizeScenes перенумеровывает порядок сцен после слияния и сразу
// отправляет переписанные сцены.
func (s *Synchronizer) normalizeScenes(ctx context.Context) error {
	changed, err := s.local.NormalizeScenes()
	if err != nil {
		return fmt.Errorf("failed to normalize scenes: %w", err)
	}
	for _, scene := range changed {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.mu.Lock()
		_, conflicted := s.conflicts[scene.ID]
		s.mu.Unlock()
		if conflicted {
			continue
		}
		hash, err := crypto.HashEntity(scene)
		if err != nil {
			return err
		}
		if h, ok := s.syncedHash(scene.ID); ok && h == hash {
			continue
		}
		if err := s.push(ctx, scene, hash); err != nil {
			return err
		}
	}
	return nil
}

func (s *Synchronizer) awaitConflicts(ctx context.Context) error {
	for {
		s.mu.Lock()
		pending := len(s.conflicts)
		s.mu.Unlock()
		if pending == 0 {
			return nil
		}

		if s.State() != StateConflictPending {
			s.setState(StateConflictPending)
			s.logf("waiting for %d conflict(s) to be resolved", pending)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.resolvedCh:
		}
	}
}

// pendingConflict возвращает отложенный конфликт и ID сессии
func (s *Synchronizer) pendingConflict(id int) (models.Conflict, string, error) {
	s.mu.Lock()
	c, ok := s.conflicts[id]
	state := s.state
	syncID := s.syncID
	s.mu.Unlock()

	if !ok {
		return nil, "", fmt.Errorf("%w: %d", ErrNoSuchConflict, id)
	}
	if state.Terminal() {
		return nil, "", ErrNotRunning
	}
	return c, syncID, nil
}

func (s *Synchronizer) conflictResolved(id int) {
	s.mu.Lock()
	delete(s.conflicts, id)
	s.resolved++
	s.mu.Unlock()

	select {
	case s.resolvedCh <- struct{}{}:
	default:
	}
}

// ResolveConflict принимает выбранную пользователем версию сущности:
// принудительно записывает ее на сервер и локально. Для конфликта удаления
// это отказ от удаления. Можно вызывать из любой горутины, в том числе из
// OnConflict.
func (s *Synchronizer) ResolveConflict(ctx context.Context, resolution models.Entity) error {
	if resolution == nil {
		return errors.New("resolution entity is nil")
	}
	id := resolution.EntityID()

	c, syncID, err := s.pendingConflict(id)
	if err != nil {
		return err
	}
	if resolution.EntityType() != c.Type() {
		return fmt.Errorf("resolution type %s does not match conflict type %s", resolution.EntityType(), c.Type())
	}

	original, wasSynced := s.syncedHash(id)
	var originalHash *string
	if wasSynced {
		originalHash = &original
	}
	if _, err := s.server.SaveEntity(ctx, s.Project(), syncID, resolution, originalHash, true); err != nil {
		return fmt.Errorf("failed to save resolution: %w", err)
	}

	hash, err := crypto.HashEntity(resolution)
	if err != nil {
		return err
	}
	if err := s.local.Save(resolution); err != nil {
		return fmt.Errorf("failed to write resolution: %w", err)
	}
	if err := s.recordSynced(ctx, id, hash); err != nil {
		return err
	}
	if c.Deleted() {
		if err := s.store.RemovePendingDeletion(ctx, s.Project(), id); err != nil {
			return err
		}
	}

	s.conflictResolved(id)
	s.logger.Info("conflict resolved", "entity_id", id, "type", resolution.EntityType(), "kept_deleted", false)
	return nil
}

// ConfirmDeletion разрешает конфликт удаления в пользу локального удаления:
// сущность удаляется на сервере без проверки хеша.
func (s *Synchronizer) ConfirmDeletion(ctx context.Context, id int) error {
	c, syncID, err := s.pendingConflict(id)
	if err != nil {
		return err
	}
	if !c.Deleted() {
		return fmt.Errorf("%w: %d", ErrNotDeleteConflict, id)
	}

	if _, err := s.server.DeleteEntity(ctx, s.Project(), syncID, id, nil); err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	s.mu.Lock()
	s.deletedRemote = append(s.deletedRemote, id)
	s.mu.Unlock()

	s.conflictResolved(id)
	s.logger.Info("conflict resolved", "entity_id", id, "type", c.Type(), "kept_deleted", true)
	return nil
}

func (s *Synchronizer) finalize(ctx context.Context, serverLastID int) (*Result, error) {
	s.setState(StateFinalizing)

	localLast, err := s.local.LastID()
	if err != nil {
		return s.fail(ctx, fmt.Errorf("failed to read last local id: %w", err))
	}
	lastID := max(serverLastID, localLast)
	lastSync := s.now().UTC()

	if err := s.server.EndSync(ctx, s.Project(), s.currentSyncID(), lastSync, lastID); err != nil {
		return s.fail(ctx, fmt.Errorf("end sync: %w", err))
	}
	// Сессия на сервере закрыта
	s.mu.Lock()
	s.syncID = ""
	s.resultCounters()
	deletedRemote := s.deletedRemote
	s.mu.Unlock()

	for _, id := range deletedRemote {
		if err := s.store.RemovePendingDeletion(ctx, s.Project(), id); err != nil {
			s.setState(StateFailed)
			return s.result, err
		}
		if err := s.forgetSynced(ctx, id); err != nil {
			s.setState(StateFailed)
			return s.result, err
		}
	}

	if err := s.store.SaveSyncMeta(ctx, s.Project(), storage.SyncMeta{LastSync: lastSync, LastID: lastID}); err != nil {
		s.setState(StateFailed)
		return s.result, fmt.Errorf("failed to save sync meta: %w", err)
	}

	s.result.LastSync = lastSync
	s.result.LastID = lastID
	s.setState(StateCompleted)
	s.logger.Info("sync completed",
		"pushed", s.result.Pushed,
		"pulled", s.result.Pulled,
		"conflicts", s.result.Conflicts,
		"failed", s.result.Failed)
	return s.result, nil
}

// resultCounters переносит счетчики, которые меняют ResolveConflict и
// ConfirmDeletion. Вызывается под mu.
func (s *Synchronizer) resultCounters() {
	s.result.ConflictsResolved = s.resolved
	s.result.DeletedRemote = len(s.deletedRemote)
}

// fail завершает синхронизацию с ошибкой и освобождает серверную сессию.
func (s *Synchronizer) fail(ctx context.Context, err error) (*Result, error) {
	state := StateFailed
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		state = StateCancelled
	}

	s.mu.Lock()
	syncID := s.syncID
	s.syncID = ""
	if s.result != nil {
		s.resultCounters()
	}
	s.mu.Unlock()

	if syncID != "" && !errors.Is(err, clientapi.ErrInvalidSyncID) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cancelTimeout)
		if cerr := s.server.CancelSync(cctx, s.Project(), syncID); cerr != nil {
			s.logger.Warn("failed to cancel server session", "error", cerr)
		}
		cancel()
	}

	if state == StateCancelled {
		s.logger.Info("sync cancelled")
	} else {
		s.logger.Error("sync failed", "error", err)
	}
	s.setState(state)
	return s.result, err
}
