package sync

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientapi "github.com/iudanet/manuscript/internal/client/api"
	"github.com/iudanet/manuscript/internal/client/project"
	"github.com/iudanet/manuscript/internal/client/storage/boltdb"
	"github.com/iudanet/manuscript/internal/crypto"
	"github.com/iudanet/manuscript/internal/models"
	"github.com/iudanet/manuscript/pkg/api"
)

var testNow = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newLocal(t *testing.T) (*project.Project, *boltdb.Storage) {
	t.Helper()
	dir := t.TempDir()
	p, err := project.Open(filepath.Join(dir, "projects"), "novel", testLogger(), project.WithStrictTree())
	require.NoError(t, err)

	store, err := boltdb.New(context.Background(), filepath.Join(dir, "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return p, store
}

// newServerMock сервер без сущностей, принимающий любые записи
func newServerMock(lastID int) *ServerAPIMock {
	return &ServerAPIMock{
		BeginSyncFunc: func(ctx context.Context, project string, clientState models.ClientEntityState) (*api.BeginSyncResponse, error) {
			return &api.BeginSyncResponse{SyncID: "sync-1", LastID: lastID, UpdateSequence: map[string][]int{}}, nil
		},
		SaveEntityFunc: func(ctx context.Context, project, syncID string, e models.Entity, originalHash *string, force bool) (bool, error) {
			return true, nil
		},
		LoadEntityFunc: func(ctx context.Context, project, syncID string, t models.EntityType, id int) (models.Entity, error) {
			return nil, clientapi.ErrNotFound
		},
		DeleteEntityFunc: func(ctx context.Context, project, syncID string, id int, originalHash *string) (bool, error) {
			return true, nil
		},
		EndSyncFunc: func(ctx context.Context, project, syncID string, lastSync time.Time, lastID int) error {
			return nil
		},
		CancelSyncFunc: func(ctx context.Context, project, syncID string) error {
			return nil
		},
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "conflict_pending", StateConflictPending.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.True(t, StateCancelled.Terminal())
	assert.False(t, StateFinalizing.Terminal())
}

func TestSynchronizer_PushNew(t *testing.T) {
	ctx := context.Background()
	local, store := newLocal(t)
	note, err := local.AddNote("idea", testNow)
	require.NoError(t, err)

	server := newServerMock(0)
	var states []State
	s := New(server, local, store, testLogger(),
		WithClock(func() time.Time { return testNow }),
		WithCallbacks(Callbacks{OnStateChange: func(st State) { states = append(states, st) }}))

	result, err := s.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, []State{StateBeginning, StateSyncingEntities, StateFinalizing, StateCompleted}, states)
	assert.Equal(t, 1, result.Pushed)
	assert.Equal(t, 1, result.LastID)
	assert.Empty(t, result.ReIdentified)

	require.Len(t, server.SaveEntityCalls(), 1)
	call := server.SaveEntityCalls()[0]
	assert.Nil(t, call.OriginalHash)
	assert.False(t, call.Force)
	assert.Equal(t, "sync-1", call.SyncID)

	require.Len(t, server.EndSyncCalls(), 1)
	assert.Equal(t, testNow, server.EndSyncCalls()[0].LastSync)
	assert.Equal(t, 1, server.EndSyncCalls()[0].LastID)
	assert.Empty(t, server.CancelSyncCalls())

	hashes, err := store.GetSyncedHashes(ctx, "novel")
	require.NoError(t, err)
	assert.Equal(t, crypto.MustHashEntity(note), hashes[note.ID])

	meta, err := store.GetSyncMeta(ctx, "novel")
	require.NoError(t, err)
	assert.True(t, testNow.Equal(meta.LastSync))

	// Повторный запуск запрещен
	_, err = s.Run(ctx)
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestSynchronizer_UnchangedNotPushed(t *testing.T) {
	ctx := context.Background()
	local, store := newLocal(t)
	note, err := local.AddNote("idea", testNow)
	require.NoError(t, err)
	require.NoError(t, store.SetSyncedHash(ctx, "novel", note.ID, crypto.MustHashEntity(note)))

	server := newServerMock(1)
	_, err = New(server, local, store, testLogger()).Run(ctx)
	require.NoError(t, err)

	assert.Empty(t, server.SaveEntityCalls())
	require.Len(t, server.BeginSyncCalls(), 1)
	assert.Equal(t, models.ClientEntityState{note.ID: crypto.MustHashEntity(note)}, server.BeginSyncCalls()[0].ClientState)
}

func TestSynchronizer_ReIdentify(t *testing.T) {
	ctx := context.Background()
	local, store := newLocal(t)
	chapter, err := local.AddScene(models.RootSceneID, "chapter", models.SceneTypeChapter, "")
	require.NoError(t, err)
	child, err := local.AddScene(chapter.ID, "child", models.SceneTypeScene, "")
	require.NoError(t, err)

	// Сервер уже выдал ID 1..5 другому устройству
	server := newServerMock(5)
	result, err := New(server, local, store, testLogger()).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, map[int]int{chapter.ID: 6, child.ID: 7}, result.ReIdentified)
	assert.Equal(t, 7, result.LastID)

	var pushed []int
	for _, c := range server.SaveEntityCalls() {
		pushed = append(pushed, c.E.EntityID())
	}
	assert.ElementsMatch(t, []int{6, 7}, pushed)

	moved, err := local.Load(models.EntityTypeScene, 7)
	require.NoError(t, err)
	assert.Equal(t, 6, moved.(*models.Scene).ParentID)
}

func TestSynchronizer_PullAndServerDeletions(t *testing.T) {
	ctx := context.Background()
	local, store := newLocal(t)

	kept := &models.Note{ID: 2, Content: "synced"}
	edited := &models.Note{ID: 3, Content: "edited locally"}
	require.NoError(t, local.Save(kept))
	require.NoError(t, local.Save(edited))
	require.NoError(t, store.SetSyncedHash(ctx, "novel", 2, crypto.MustHashEntity(kept)))
	require.NoError(t, store.SetSyncedHash(ctx, "novel", 3, crypto.MustHashEntity(&models.Note{ID: 3, Content: "old"})))
	// Удаленная на сервере и отсутствующая локально
	require.NoError(t, store.SetSyncedHash(ctx, "novel", 9, "gone"))

	server := newServerMock(10)
	server.BeginSyncFunc = func(ctx context.Context, project string, clientState models.ClientEntityState) (*api.BeginSyncResponse, error) {
		// Хеш 9 не отправляется: файла нет
		assert.NotContains(t, clientState, 9)
		return &api.BeginSyncResponse{
			SyncID:         "sync-1",
			LastID:         10,
			DeletedIDs:     []int{2, 3, 9},
			UpdateSequence: map[string][]int{"scene": {4, 5}, "timeline_event": {6}},
		}, nil
	}
	server.LoadEntityFunc = func(ctx context.Context, project, syncID string, t models.EntityType, id int) (models.Entity, error) {
		switch id {
		case 4:
			return &models.Scene{ID: 4, Name: "b", Type: models.SceneTypeScene, Order: 0}, nil
		case 5:
			return &models.Scene{ID: 5, Name: "a", Type: models.SceneTypeScene, Order: 0}, nil
		case 6:
			return &models.TimelineEvent{ID: 6, Date: "spring"}, nil
		}
		return nil, clientapi.ErrNotFound
	}

	var fractions []float64
	s := New(server, local, store, testLogger(), WithCallbacks(Callbacks{
		OnProgress: func(p Progress) { fractions = append(fractions, p.Fraction) },
	}))
	result, err := s.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, result.DeletedLocal)
	assert.Equal(t, 3, result.Pulled)

	_, err = local.Find(2)
	assert.ErrorIs(t, err, project.ErrNotFound)

	// Локальная правка пережила удаление на сервере и отправлена
	_, err = local.Find(3)
	require.NoError(t, err)

	// Сцены с одинаковым Order перенумерованы и отправлены
	scene5, err := local.Load(models.EntityTypeScene, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, scene5.(*models.Scene).Order)

	var pushed []int
	for _, c := range server.SaveEntityCalls() {
		pushed = append(pushed, c.E.EntityID())
	}
	assert.ElementsMatch(t, []int{3, 5}, pushed)

	hashes, err := store.GetSyncedHashes(ctx, "novel")
	require.NoError(t, err)
	assert.NotContains(t, hashes, 2)
	assert.NotContains(t, hashes, 9)
	assert.Contains(t, hashes, 6)

	require.NotEmpty(t, fractions)
	assert.InDelta(t, 1.0, fractions[len(fractions)-1], 1e-9)
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1])
	}
}

func TestSynchronizer_PendingDeletionsPushed(t *testing.T) {
	ctx := context.Background()
	local, store := newLocal(t)
	require.NoError(t, store.SetSyncedHash(ctx, "novel", 4, "h4"))
	require.NoError(t, store.AddPendingDeletion(ctx, "novel", 4))

	server := newServerMock(4)
	server.BeginSyncFunc = func(ctx context.Context, project string, clientState models.ClientEntityState) (*api.BeginSyncResponse, error) {
		// Ожидающее удаление остается в состоянии клиента
		assert.Equal(t, models.ClientEntityState{4: "h4"}, clientState)
		return &api.BeginSyncResponse{SyncID: "sync-1", LastID: 4, UpdateSequence: map[string][]int{"note": {4}}}, nil
	}

	result, err := New(server, local, store, testLogger()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeletedRemote)
	require.Len(t, server.DeleteEntityCalls(), 1)
	call := server.DeleteEntityCalls()[0]
	assert.Equal(t, 4, call.ID)
	require.NotNil(t, call.OriginalHash)
	assert.Equal(t, "h4", *call.OriginalHash)
	// Удаленная сущность не скачивается обратно
	assert.Empty(t, server.LoadEntityCalls())

	pending, err := store.GetPendingDeletions(ctx, "novel")
	require.NoError(t, err)
	assert.Empty(t, pending)
	hashes, err := store.GetSyncedHashes(ctx, "novel")
	require.NoError(t, err)
	assert.NotContains(t, hashes, 4)
}

// Удаление, принятое сервером в неудачном раунде, остается в очереди
func TestSynchronizer_DeletionKeptUntilEndSync(t *testing.T) {
	ctx := context.Background()
	local, store := newLocal(t)
	require.NoError(t, store.SetSyncedHash(ctx, "novel", 4, "h4"))
	require.NoError(t, store.AddPendingDeletion(ctx, "novel", 4))

	server := newServerMock(4)
	server.EndSyncFunc = func(ctx context.Context, project, syncID string, lastSync time.Time, lastID int) error {
		return errors.New("connection reset")
	}

	_, err := New(server, local, store, testLogger()).Run(ctx)
	require.Error(t, err)
	require.Len(t, server.DeleteEntityCalls(), 1)
	assert.Len(t, server.CancelSyncCalls(), 1)

	pending, err := store.GetPendingDeletions(ctx, "novel")
	require.NoError(t, err)
	assert.Equal(t, []int{4}, pending)
	hashes, err := store.GetSyncedHashes(ctx, "novel")
	require.NoError(t, err)
	assert.Equal(t, "h4", hashes[4])

	// Следующий раунд повторяет удаление и очищает очередь
	retry := newServerMock(4)
	_, err = New(retry, local, store, testLogger()).Run(ctx)
	require.NoError(t, err)
	require.Len(t, retry.DeleteEntityCalls(), 1)

	pending, err = store.GetPendingDeletions(ctx, "novel")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// deleteConflictServer сервер, на котором удаляемую сущность успели изменить
func deleteConflictServer(serverVersion models.Entity) *ServerAPIMock {
	server := newServerMock(serverVersion.EntityID())
	server.DeleteEntityFunc = func(ctx context.Context, project, syncID string, id int, originalHash *string) (bool, error) {
		if originalHash != nil {
			return false, &clientapi.ConflictError{Server: serverVersion}
		}
		return true, nil
	}
	return server
}

func TestSynchronizer_DeleteConflictKeepsServerVersion(t *testing.T) {
	ctx := context.Background()
	local, store := newLocal(t)
	require.NoError(t, store.SetSyncedHash(ctx, "novel", 4, "base"))
	require.NoError(t, store.AddPendingDeletion(ctx, "novel", 4))

	serverVersion := &models.Note{ID: 4, Content: "edited on B"}
	server := deleteConflictServer(serverVersion)

	var s *Synchronizer
	var resolveErr error
	s = New(server, local, store, testLogger(), WithCallbacks(Callbacks{
		OnConflict: func(c models.Conflict) {
			assert.True(t, c.Deleted())
			assert.Nil(t, c.Client())
			resolveErr = s.ResolveConflict(ctx, c.Server())
		},
	}))

	result, err := s.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, resolveErr)
	assert.Equal(t, 1, result.Conflicts)
	assert.Equal(t, 1, result.ConflictsResolved)
	assert.Equal(t, 0, result.DeletedRemote)

	require.Len(t, server.SaveEntityCalls(), 1)
	assert.True(t, server.SaveEntityCalls()[0].Force)

	// Сущность восстановлена локально, удаление снято с очереди
	got, err := local.Load(models.EntityTypeNote, 4)
	require.NoError(t, err)
	assert.Equal(t, "edited on B", got.(*models.Note).Content)

	pending, err := store.GetPendingDeletions(ctx, "novel")
	require.NoError(t, err)
	assert.Empty(t, pending)
	hashes, err := store.GetSyncedHashes(ctx, "novel")
	require.NoError(t, err)
	assert.Equal(t, crypto.MustHashEntity(serverVersion), hashes[4])
}

func TestSynchronizer_DeleteConflictConfirmed(t *testing.T) {
	ctx := context.Background()
	local, store := newLocal(t)
	require.NoError(t, store.SetSyncedHash(ctx, "novel", 4, "base"))
	require.NoError(t, store.AddPendingDeletion(ctx, "novel", 4))

	server := deleteConflictServer(&models.Note{ID: 4, Content: "edited on B"})

	var s *Synchronizer
	var resolveErr error
	s = New(server, local, store, testLogger(), WithCallbacks(Callbacks{
		OnConflict: func(c models.Conflict) {
			assert.ErrorIs(t, s.ConfirmDeletion(ctx, 99), ErrNoSuchConflict)
			resolveErr = s.ConfirmDeletion(ctx, c.EntityID())
		},
	}))

	result, err := s.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, resolveErr)
	assert.Equal(t, 1, result.ConflictsResolved)
	assert.Equal(t, 1, result.DeletedRemote)

	// Первая попытка с хешем, подтверждение без проверки
	calls := server.DeleteEntityCalls()
	require.Len(t, calls, 2)
	assert.NotNil(t, calls[0].OriginalHash)
	assert.Nil(t, calls[1].OriginalHash)
	assert.Empty(t, server.SaveEntityCalls())

	_, err = local.Load(models.EntityTypeNote, 4)
	assert.Error(t, err)

	pending, err := store.GetPendingDeletions(ctx, "novel")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSynchronizer_ConfirmDeletionRejectsEditConflict(t *testing.T) {
	ctx := context.Background()
	local, store := newLocal(t)
	require.NoError(t, local.Save(&models.Note{ID: 1, Content: "client"}))
	require.NoError(t, store.SetSyncedHash(ctx, "novel", 1, "base"))

	server := conflictServer(&models.Note{ID: 1, Content: "server"})

	var s *Synchronizer
	var confirmErr error
	s = New(server, local, store, testLogger(), WithCallbacks(Callbacks{
		OnConflict: func(c models.Conflict) {
			confirmErr = s.ConfirmDeletion(ctx, c.EntityID())
			require.NoError(t, s.ResolveConflict(ctx, c.Server()))
		},
	}))

	_, err := s.Run(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, confirmErr, ErrNotDeleteConflict)
	assert.Empty(t, server.DeleteEntityCalls())
}

func TestSynchronizer_EntityErrorsSkipped(t *testing.T) {
	ctx := context.Background()
	local, store := newLocal(t)
	require.NoError(t, local.Save(&models.Note{ID: 1, Content: "collides"}))
	require.NoError(t, local.Save(&models.Note{ID: 2, Content: "fine"}))
	// Локально 3 - заметка, на сервере 3 - сцена
	require.NoError(t, local.Save(&models.Note{ID: 3, Content: "mine"}))
	for _, id := range []int{1, 2, 3} {
		require.NoError(t, store.SetSyncedHash(ctx, "novel", id, "stale"))
	}

	server := newServerMock(3)
	server.BeginSyncFunc = func(ctx context.Context, project string, clientState models.ClientEntityState) (*api.BeginSyncResponse, error) {
		return &api.BeginSyncResponse{SyncID: "sync-1", LastID: 3, UpdateSequence: map[string][]int{"scene": {3}}}, nil
	}
	server.SaveEntityFunc = func(ctx context.Context, project, syncID string, e models.Entity, originalHash *string, force bool) (bool, error) {
		if e.EntityID() == 1 {
			return false, &clientapi.Error{StatusCode: 409, Code: api.ErrCodeIDCollision}
		}
		return true, nil
	}
	server.LoadEntityFunc = func(ctx context.Context, project, syncID string, t models.EntityType, id int) (models.Entity, error) {
		return &models.Scene{ID: 3, Type: models.SceneTypeScene}, nil
	}

	result, err := New(server, local, store, testLogger()).Run(ctx)
	require.NoError(t, err)
	// Сцены синхронизируются раньше заметок: сцена 3 упирается в локальную заметку
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 2, result.Pushed)
	assert.Equal(t, 0, result.Pulled)

	// Заметка 3 не перезаписана сценой
	e, err := local.Find(3)
	require.NoError(t, err)
	assert.Equal(t, models.EntityTypeNote, e.EntityType())
}

func TestSynchronizer_CrossTypeCollisionOnPull(t *testing.T) {
	ctx := context.Background()
	local, store := newLocal(t)
	note := &models.Note{ID: 5, Content: "local"}
	require.NoError(t, local.Save(note))
	require.NoError(t, store.SetSyncedHash(ctx, "novel", 5, crypto.MustHashEntity(note)))

	server := newServerMock(5)
	server.BeginSyncFunc = func(ctx context.Context, project string, clientState models.ClientEntityState) (*api.BeginSyncResponse, error) {
		return &api.BeginSyncResponse{SyncID: "sync-1", LastID: 5, UpdateSequence: map[string][]int{"timeline_event": {5}}}, nil
	}
	server.LoadEntityFunc = func(ctx context.Context, project, syncID string, t models.EntityType, id int) (models.Entity, error) {
		return &models.TimelineEvent{ID: 5}, nil
	}

	result, err := New(server, local, store, testLogger()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	e, err := local.Find(5)
	require.NoError(t, err)
	assert.Equal(t, "local", e.(*models.Note).Content)
}

func TestSynchronizer_TransportFailure(t *testing.T) {
	ctx := context.Background()
	local, store := newLocal(t)
	_, err := local.AddNote("idea", testNow)
	require.NoError(t, err)

	server := newServerMock(0)
	server.SaveEntityFunc = func(ctx context.Context, project, syncID string, e models.Entity, originalHash *string, force bool) (bool, error) {
		return false, errors.New("connection reset")
	}

	s := New(server, local, store, testLogger())
	result, err := s.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	require.NotNil(t, result)
	assert.Equal(t, StateFailed, s.State())

	require.Len(t, server.CancelSyncCalls(), 1)
	assert.Equal(t, "sync-1", server.CancelSyncCalls()[0].SyncID)
	assert.Empty(t, server.EndSyncCalls())

	meta, err := store.GetSyncMeta(ctx, "novel")
	require.NoError(t, err)
	assert.False(t, meta.Synced())
}

func TestSynchronizer_BeginFailure(t *testing.T) {
	local, store := newLocal(t)
	server := newServerMock(0)
	server.BeginSyncFunc = func(ctx context.Context, project string, clientState models.ClientEntityState) (*api.BeginSyncResponse, error) {
		return nil, &clientapi.Error{StatusCode: 409, Code: api.ErrCodeSessionAlreadyActive}
	}

	s := New(server, local, store, testLogger())
	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, clientapi.ErrSessionAlreadyActive)
	assert.Equal(t, StateFailed, s.State())
	// Сессии нет, отменять нечего
	assert.Empty(t, server.CancelSyncCalls())
}

func TestSynchronizer_InvalidSyncIDNotCancelled(t *testing.T) {
	local, store := newLocal(t)
	_, err := local.AddNote("idea", testNow)
	require.NoError(t, err)

	server := newServerMock(0)
	server.SaveEntityFunc = func(ctx context.Context, project, syncID string, e models.Entity, originalHash *string, force bool) (bool, error) {
		return false, &clientapi.Error{StatusCode: 410, Code: api.ErrCodeInvalidSyncID}
	}

	_, err = New(server, local, store, testLogger()).Run(context.Background())
	assert.ErrorIs(t, err, clientapi.ErrInvalidSyncID)
	assert.Empty(t, server.CancelSyncCalls())
}

func TestSynchronizer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	local, store := newLocal(t)
	_, err := local.AddNote("idea", testNow)
	require.NoError(t, err)

	server := newServerMock(0)
	server.CancelSyncFunc = func(ctx context.Context, project, syncID string) error {
		// Контекст отмены синхронизации не передается в CancelSync
		assert.NoError(t, ctx.Err())
		return nil
	}

	s := New(server, local, store, testLogger(), WithCallbacks(Callbacks{
		OnProgress: func(Progress) { cancel() },
	}))
	_, err = s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCancelled, s.State())
	assert.Len(t, server.CancelSyncCalls(), 1)
	assert.Empty(t, server.SaveEntityCalls())
}

func conflictServer(serverVersion models.Entity) *ServerAPIMock {
	server := newServerMock(1)
	server.SaveEntityFunc = func(ctx context.Context, project, syncID string, e models.Entity, originalHash *string, force bool) (bool, error) {
		if !force {
			return false, &clientapi.ConflictError{Server: serverVersion}
		}
		return true, nil
	}
	return server
}

func TestSynchronizer_ConflictResolvedInCallback(t *testing.T) {
	ctx := context.Background()
	local, store := newLocal(t)
	require.NoError(t, local.Save(&models.Note{ID: 1, Content: "client"}))
	require.NoError(t, store.SetSyncedHash(ctx, "novel", 1, crypto.MustHashEntity(&models.Note{ID: 1, Content: "base"})))

	serverVersion := &models.Note{ID: 1, Content: "server"}
	server := conflictServer(serverVersion)

	var s *Synchronizer
	var resolveErr error
	s = New(server, local, store, testLogger(), WithCallbacks(Callbacks{
		OnConflict: func(c models.Conflict) {
			assert.Equal(t, 1, c.EntityID())
			assert.Equal(t, "client", c.Client().(*models.Note).Content)
			resolveErr = s.ResolveConflict(ctx, c.Server())
		},
	}))

	result, err := s.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, resolveErr)
	assert.Equal(t, 1, result.Conflicts)
	assert.Equal(t, 1, result.ConflictsResolved)
	assert.Empty(t, s.Conflicts())

	e, err := local.Find(1)
	require.NoError(t, err)
	assert.Equal(t, "server", e.(*models.Note).Content)

	hashes, err := store.GetSyncedHashes(ctx, "novel")
	require.NoError(t, err)
	assert.Equal(t, crypto.MustHashEntity(serverVersion), hashes[1])

	calls := server.SaveEntityCalls()
	require.Len(t, calls, 2)
	assert.True(t, calls[1].Force)
}

func TestSynchronizer_ConflictResolvedFromAnotherGoroutine(t *testing.T) {
	ctx := context.Background()
	local, store := newLocal(t)
	clientVersion := &models.Note{ID: 1, Content: "client"}
	require.NoError(t, local.Save(clientVersion))
	require.NoError(t, store.SetSyncedHash(ctx, "novel", 1, "base"))

	server := conflictServer(&models.Note{ID: 1, Content: "server"})
	s := New(server, local, store, testLogger())

	runner := NewRunner()
	runner.Start(ctx, s)

	require.Eventually(t, func() bool { return s.State() == StateConflictPending }, 5*time.Second, 5*time.Millisecond)
	conflicts := s.Conflicts()
	require.Len(t, conflicts, 1)

	assert.ErrorIs(t, s.ResolveConflict(ctx, &models.Note{ID: 99}), ErrNoSuchConflict)
	assert.Error(t, s.ResolveConflict(ctx, &models.Scene{ID: 1}))
	require.NoError(t, s.ResolveConflict(ctx, conflicts[0].Client()))

	result, err := runner.Wait("novel")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, 1, result.ConflictsResolved)

	e, err := local.Find(1)
	require.NoError(t, err)
	assert.Equal(t, "client", e.(*models.Note).Content)

	// После завершения разрешать нечего
	assert.ErrorIs(t, s.ResolveConflict(ctx, clientVersion), ErrNoSuchConflict)
}

func TestSynchronizer_ConflictPendingCancelled(t *testing.T) {
	ctx := context.Background()
	local, store := newLocal(t)
	require.NoError(t, local.Save(&models.Note{ID: 1, Content: "client"}))
	require.NoError(t, store.SetSyncedHash(ctx, "novel", 1, "base"))

	server := conflictServer(&models.Note{ID: 1, Content: "server"})
	s := New(server, local, store, testLogger())

	runner := NewRunner()
	runner.Start(ctx, s)
	require.Eventually(t, func() bool { return s.State() == StateConflictPending }, 5*time.Second, 5*time.Millisecond)

	runner.Cancel("novel")
	_, err := runner.Wait("novel")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCancelled, s.State())
	assert.Len(t, server.CancelSyncCalls(), 1)

	// Конфликт остался неразрешенным, синхронизация завершена
	assert.ErrorIs(t, s.ResolveConflict(ctx, &models.Note{ID: 1}), ErrNotRunning)
}
