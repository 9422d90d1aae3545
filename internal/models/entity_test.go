package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityType(t *testing.T) {
	for _, want := range SyncOrder {
		got, err := ParseEntityType(want.Stub())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseEntityType("chapter")
	assert.Error(t, err)
}

func TestNewEntity(t *testing.T) {
	for _, typ := range SyncOrder {
		e, err := NewEntity(typ)
		require.NoError(t, err)
		assert.Equal(t, typ, e.EntityType())
		assert.Zero(t, e.EntityID())
	}

	_, err := NewEntity(EntityType("unknown"))
	assert.Error(t, err)
}

func TestWithID(t *testing.T) {
	entry := &EncyclopediaEntry{ID: 3, Name: "Harbor", Tags: []string{"place"}}

	got, err := WithID(entry, 8)
	require.NoError(t, err)

	copied := got.(*EncyclopediaEntry)
	assert.Equal(t, 8, copied.ID)
	assert.Equal(t, 3, entry.ID)

	// Теги не разделяют массив с оригиналом
	copied.Tags[0] = "city"
	assert.Equal(t, "place", entry.Tags[0])

	_, err = WithID(nil, 1)
	assert.Error(t, err)
}

func TestEntityConflict(t *testing.T) {
	c := NewEntityConflict(&Note{ID: 5, Content: "server"}, &Note{ID: 5, Content: "client"})

	var conflict Conflict = c
	assert.Equal(t, EntityTypeNote, conflict.Type())
	assert.Equal(t, 5, conflict.EntityID())
	assert.Equal(t, "server", conflict.Server().(*Note).Content)
	assert.Equal(t, "client", conflict.Client().(*Note).Content)
}

func TestProjectSyncData(t *testing.T) {
	d := NewProjectSyncData()
	assert.False(t, d.IsDeleted(4))

	d.DeletedIDs[9] = struct{}{}
	d.DeletedIDs[4] = struct{}{}
	assert.True(t, d.IsDeleted(4))
	assert.Equal(t, []int{4, 9}, d.SortedDeletedIDs())
}

func TestDeleteConflict(t *testing.T) {
	var conflict Conflict = NewDeleteConflict(&Note{ID: 6, Content: "edited"})

	assert.True(t, conflict.Deleted())
	assert.Nil(t, conflict.Client())
	assert.Equal(t, 6, conflict.EntityID())
	assert.Equal(t, EntityTypeNote, conflict.Type())

	assert.False(t, NewEntityConflict(&Note{ID: 6}, &Note{ID: 6}).Deleted())
}
