package synchronizer

import "sync"

type projectKey struct {
	userID  string
	project string
}

type projectLock struct {
	mu   sync.Mutex
	refs int
}

// ProjectLocks блокировки проектов пользователей. Общие для синхронизаторов
// всех типов: проверка ID по всем типам и запись выполняются под одной
// блокировкой проекта, разные проекты друг друга не ждут.
type ProjectLocks struct {
	locks map[projectKey]*projectLock
	mu    sync.Mutex
}

// NewProjectLocks creates an empty lock registry.
func NewProjectLocks() *ProjectLocks {
	return &ProjectLocks{locks: make(map[projectKey]*projectLock)}
}

// Lock blocks until the project is free and returns the unlock function.
func (l *ProjectLocks) Lock(userID, project string) func() {
	key := projectKey{userID: userID, project: project}

	l.mu.Lock()
	pl, ok := l.locks[key]
	if !ok {
		pl = &projectLock{}
		l.locks[key] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()

		l.mu.Lock()
		defer l.mu.Unlock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.locks, key)
		}
	}
}

// size количество проектов с удерживаемой или ожидаемой блокировкой
func (l *ProjectLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
