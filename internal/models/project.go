package models

import (
	"sort"
	"time"
)

// ProjectDefinition описывает проект пользователя.
// Name - ключ, видимый пользователю, ID - непрозрачный идентификатор (UUID).
type ProjectDefinition struct {
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	ID        string    `json:"id"`
}

// ProjectSyncData учетные данные синхронизации проекта на сервере.
type ProjectSyncData struct {
	LastSync   time.Time        `json:"last_sync"`
	DeletedIDs map[int]struct{} `json:"-"`
	LastID     int              `json:"last_id"`
}

// NewProjectSyncData returns empty bookkeeping for a never-synced project.
func NewProjectSyncData() *ProjectSyncData {
	return &ProjectSyncData{
		DeletedIDs: make(map[int]struct{}),
	}
}

// IsDeleted reports whether id was deleted on the server.
func (d *ProjectSyncData) IsDeleted(id int) bool {
	_, ok := d.DeletedIDs[id]
	return ok
}

// SortedDeletedIDs returns deleted ids in ascending order.
func (d *ProjectSyncData) SortedDeletedIDs() []int {
	ids := make([]int, 0, len(d.DeletedIDs))
	for id := range d.DeletedIDs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ClientEntityState maps entity id to its content hash as known by the client.
type ClientEntityState map[int]string
