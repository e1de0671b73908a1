package service

import (
	"fmt"
	"strings"

	"community-backend/internal/metrics"
	"community-backend/internal/model"
	"community-backend/internal/storage"
	"community-backend/pkg/logger"

	"github.com/sirupsen/logrus"
)

type CommunityService struct {
	store storage.CommunityStore
}

func NewCommunityService(store storage.CommunityStore) *CommunityService {
	return &CommunityService{store: store}
}

func (s *CommunityService) List(filter storage.CommunityFilter) ([]model.Community, error) {
	return s.store.List(filter)
}

func (s *CommunityService) Get(communityID string) (model.Community, error) {
	return s.store.Get(communityID)
}

func (s *CommunityService) Create(req model.CreateCommunityRequest) (model.Community, error) {
	community, err := s.store.Add(model.Community{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		CreatedBy:   req.UserID,
	})
	if err != nil {
		return model.Community{}, fmt.Errorf("failed to create community: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"community_id": community.ID,
		"created_by":   community.CreatedBy,
	}).Info("community created")
	return community, nil
}

func (s *CommunityService) Join(communityID, userID string) (model.Community, error) {
	community, err := s.store.Join(communityID, userID)
	if err != nil {
		return model.Community{}, err
	}
	metrics.CommunityMemberships.WithLabelValues("join").Inc()
	return community, nil
}

func (s *CommunityService) Leave(communityID, userID string) (model.Community, error) {
	community, err := s.store.Leave(communityID, userID)
	if err != nil {
		return model.Community{}, err
	}
	metrics.CommunityMemberships.WithLabelValues("leave").Inc()
	return community, nil
}

func (s *CommunityService) Announce(communityID string, req model.AnnouncementRequest) (model.Announcement, error) {
	return s.store.Announce(model.Announcement{
		CommunityID: communityID,
		Author:      req.UserID,
		Text:        req.Text,
	})
}

func (s *CommunityService) Announcements(communityID string) ([]model.Announcement, error) {
	return s.store.Announcements(communityID)
}
