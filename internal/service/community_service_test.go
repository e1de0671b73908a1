package service

import (
	"testing"

	"community-backend/internal/model"
	"community-backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommunityServiceFlow(t *testing.T) {
	svc := NewCommunityService(storage.NewMemoryCommunityStore())

	c, err := svc.Create(model.CreateCommunityRequest{Name: "Tenants Union", Category: " advocacy ", UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "advocacy", c.Category)
	assert.True(t, c.HasMember("alice"))

	_, err = svc.Create(model.CreateCommunityRequest{Name: "tenants union"})
	assert.ErrorIs(t, err, storage.ErrCommunityExists)

	c, err = svc.Join(c.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, c.Members)

	a, err := svc.Announce(c.ID, model.AnnouncementRequest{UserID: "bob", Text: "Meeting on Friday"})
	require.NoError(t, err)
	assert.Equal(t, "bob", a.Author)

	list, err := svc.Announcements(c.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.Leave(c.ID, "bob")
	require.NoError(t, err)
	_, err = svc.Announce(c.ID, model.AnnouncementRequest{UserID: "bob", Text: "again"})
	assert.ErrorIs(t, err, storage.ErrNotMember)

	mine, err := svc.List(storage.CommunityFilter{MemberID: "alice"})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
