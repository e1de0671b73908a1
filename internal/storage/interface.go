package storage

import (
	"community-backend/internal/chat"
	"community-backend/internal/model"
)

// SessionStore 挂载中的会话，仅存在于进程内存
type SessionStore interface {
	Create(session *chat.Session) error
	Get(sessionID string) (*chat.Session, error)
	// Delete 移除并返回会话，由调用方负责 Close
	Delete(sessionID string) (*chat.Session, error)
	List() ([]*chat.Session, error)
}

type CommunityFilter struct {
	Query    string
	Category string
	MemberID string
}

// CommunityStore 社区目录：list/add/join/leave 以及公告
type CommunityStore interface {
	List(filter CommunityFilter) ([]model.Community, error)
	Get(communityID string) (model.Community, error)
	Add(community model.Community) (model.Community, error)
	Join(communityID, userID string) (model.Community, error)
	Leave(communityID, userID string) (model.Community, error)
	Announce(announcement model.Announcement) (model.Announcement, error)
	Announcements(communityID string) ([]model.Announcement, error)
}
