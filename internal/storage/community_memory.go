package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"community-backend/internal/model"

	"github.com/google/uuid"
)

type communityRecord struct {
	community     model.Community
	members       map[string]struct{}
	announcements []model.Announcement
}

func (r *communityRecord) view() model.Community {
	c := r.community
	c.Members = make([]string, 0, len(r.members))
	for m := range r.members {
		c.Members = append(c.Members, m)
	}
	sort.Strings(c.Members)
	return c
}

// MemoryCommunityStore 由调用方持有并显式传递，没有全局单例
type MemoryCommunityStore struct {
	mu          sync.RWMutex
	communities map[string]*communityRecord
	now         func() time.Time
}

func NewMemoryCommunityStore() *MemoryCommunityStore {
	return &MemoryCommunityStore{
		communities: make(map[string]*communityRecord),
		now:         time.Now,
	}
}

func (s *MemoryCommunityStore) List(filter CommunityFilter) ([]model.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	result := make([]model.Community, 0, len(s.communities))
	for _, r := range s.communities {
		if filter.Category != "" && !strings.EqualFold(r.community.Category, filter.Category) {
			continue
		}
		if filter.MemberID != "" {
			if _, ok := r.members[filter.MemberID]; !ok {
				continue
			}
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(r.community.Name), query) &&
			!strings.Contains(strings.ToLower(r.community.Description), query) {
			continue
		}
		result = append(result, r.view())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].Name < result[j].Name
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryCommunityStore) Get(communityID string) (model.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.communities[communityID]
	if !ok {
		return model.Community{}, ErrCommunityNotFound
	}
	return r.view(), nil
}

// Add 名称不能为空且不区分大小写唯一；创建者自动加入
func (s *MemoryCommunityStore) Add(community model.Community) (model.Community, error) {
	community.Name = strings.TrimSpace(community.Name)
	if community.Name == "" {
		return model.Community{}, fmt.Errorf("%w: community name is required", ErrInvalidData)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.communities {
		if strings.EqualFold(r.community.Name, community.Name) {
			return model.Community{}, fmt.Errorf("%w: %s", ErrCommunityExists, community.Name)
		}
	}

	if community.ID == "" {
		community.ID = uuid.NewString()
	}
	if community.CreatedAt.IsZero() {
		community.CreatedAt = s.now()
	}

	r := &communityRecord{
		community: community,
		members:   make(map[string]struct{}),
	}
	for _, m := range community.Members {
		r.members[m] = struct{}{}
	}
	if community.CreatedBy != "" {
		r.members[community.CreatedBy] = struct{}{}
	}
	r.community.Members = nil
	s.communities[community.ID] = r

	return r.view(), nil
}

func (s *MemoryCommunityStore) Join(communityID, userID string) (model.Community, error) {
	if userID == "" {
		return model.Community{}, fmt.Errorf("%w: user id is required", ErrInvalidData)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.communities[communityID]
	if !ok {
		return model.Community{}, ErrCommunityNotFound
	}
	if _, member := r.members[userID]; member {
		return model.Community{}, ErrAlreadyMember
	}
	r.members[userID] = struct{}{}
	return r.view(), nil
}

func (s *MemoryCommunityStore) Leave(communityID, userID string) (model.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.communities[communityID]
	if !ok {
		return model.Community{}, ErrCommunityNotFound
	}
	if _, member := r.members[userID]; !member {
		return model.Community{}, ErrNotMember
	}
	delete(r.members, userID)
	return r.view(), nil
}

// Announce 只有成员可以发布公告
func (s *MemoryCommunityStore) Announce(a model.Announcement) (model.Announcement, error) {
	a.Text = strings.TrimSpace(a.Text)
	if a.Text == "" {
		return model.Announcement{}, fmt.Errorf("%w: announcement text is required", ErrInvalidData)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.communities[a.CommunityID]
	if !ok {
		return model.Announcement{}, ErrCommunityNotFound
	}
	if _, member := r.members[a.Author]; !member {
		return model.Announcement{}, ErrNotMember
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	r.announcements = append(r.announcements, a)
	return a, nil
}

// Announcements 最新的在前
func (s *MemoryCommunityStore) Announcements(communityID string) ([]model.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.communities[communityID]
	if !ok {
		return nil, ErrCommunityNotFound
	}
	result := make([]model.Announcement, 0, len(r.announcements))
	for i := len(r.announcements) - 1; i >= 0; i-- {
		result = append(result, r.announcements[i])
	}
	return result, nil
}
