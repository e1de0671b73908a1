package storage

import (
	"testing"

	"community-backend/internal/chat"
	"community-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(id string) *chat.Session {
	return chat.NewSession(id, chat.Options{
		Assistant:         "rights",
		SystemInstruction: "persona",
		Greeting:          "hello",
	}, nil, nil)
}

func TestMemoryStorageSessionLifecycle(t *testing.T) {
	store := NewMemoryStorage()

	require.NoError(t, store.Create(newTestSession("b")))
	require.NoError(t, store.Create(newTestSession("a")))
	assert.ErrorIs(t, store.Create(newTestSession("a")), ErrSessionExists)

	got, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID())

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID())

	deleted, err := store.Delete("a")
	require.NoError(t, err)
	assert.Equal(t, "a", deleted.ID())

	_, err = store.Get("a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Delete("a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCommunityStoreAddAndList(t *testing.T) {
	store := NewMemoryCommunityStore()

	garden, err := store.Add(model.Community{Name: "Garden Club", Description: "Urban gardening", Category: "hobby", CreatedBy: "alice"})
	require.NoError(t, err)
	assert.NotEmpty(t, garden.ID)
	assert.Equal(t, []string{"alice"}, garden.Members)

	_, err = store.Add(model.Community{Name: "  garden club "})
	assert.ErrorIs(t, err, ErrCommunityExists)
	_, err = store.Add(model.Community{Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidData)

	_, err = store.Add(model.Community{Name: "Tenants Union", Description: "Housing rights", Category: "advocacy"})
	require.NoError(t, err)

	all, err := store.List(CommunityFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byCategory, err := store.List(CommunityFilter{Category: "ADVOCACY"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "Tenants Union", byCategory[0].Name)

	byQuery, err := store.List(CommunityFilter{Query: "garden"})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)

	byMember, err := store.List(CommunityFilter{MemberID: "alice"})
	require.NoError(t, err)
	require.Len(t, byMember, 1)
	assert.Equal(t, garden.ID, byMember[0].ID)
}

func TestCommunityStoreMembership(t *testing.T) {
	store := NewMemoryCommunityStore()
	c, err := store.Add(model.Community{Name: "Readers"})
	require.NoError(t, err)

	joined, err := store.Join(c.ID, "bob")
	require.NoError(t, err)
	assert.True(t, joined.HasMember("bob"))

	_, err = store.Join(c.ID, "bob")
	assert.ErrorIs(t, err, ErrAlreadyMember)
	_, err = store.Join("missing", "bob")
	assert.ErrorIs(t, err, ErrCommunityNotFound)
	_, err = store.Join(c.ID, "")
	assert.ErrorIs(t, err, ErrInvalidData)

	left, err := store.Leave(c.ID, "bob")
	require.NoError(t, err)
	assert.False(t, left.HasMember("bob"))

	_, err = store.Leave(c.ID, "bob")
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestCommunityStoreAnnouncements(t *testing.T) {
	store := NewMemoryCommunityStore()
	c, err := store.Add(model.Community{Name: "Readers", CreatedBy: "alice"})
	require.NoError(t, err)

	_, err = store.Announce(model.Announcement{CommunityID: c.ID, Author: "mallory", Text: "spam"})
	assert.ErrorIs(t, err, ErrNotMember)
	_, err = store.Announce(model.Announcement{CommunityID: c.ID, Author: "alice", Text: "  "})
	assert.ErrorIs(t, err, ErrInvalidData)

	_, err = store.Announce(model.Announcement{CommunityID: c.ID, Author: "alice", Text: "first"})
	require.NoError(t, err)
	_, err = store.Announce(model.Announcement{CommunityID: c.ID, Author: "alice", Text: "second"})
	require.NoError(t, err)

	list, err := store.Announcements(c.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Text)

	_, err = store.Announcements("missing")
	assert.ErrorIs(t, err, ErrCommunityNotFound)
}
