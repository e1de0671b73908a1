package model

import "time"

type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
	SenderError  Sender = "error"
)

// MessageKind 区分真实消息与等待结果的占位消息
type MessageKind string

const (
	KindReal    MessageKind = "real"
	KindPending MessageKind = "pending"
)

type Message struct {
	ID        string      `json:"id"`
	Sender    Sender      `json:"sender"`
	Text      string      `json:"text"`
	Kind      MessageKind `json:"kind"`
	Timestamp time.Time   `json:"timestamp"`
}

func (m Message) IsPending() bool {
	return m.Kind == KindPending
}

// SessionSnapshot 是某一时刻会话状态的只读拷贝，供展示层渲染
type SessionSnapshot struct {
	SessionID       string    `json:"session_id"`
	Assistant       string    `json:"assistant"`
	Messages        []Message `json:"messages"`
	Input           string    `json:"input"`
	Busy            bool      `json:"busy"`
	CopiedMessageID string    `json:"copied_message_id,omitempty"`
	// Version 每次状态变化加一，展示层据此丢弃过期快照
	Version         uint64    `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Community 社区目录条目
type Community struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Members     []string  `json:"members"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c Community) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

type Announcement struct {
	ID          string    `json:"id"`
	CommunityID string    `json:"community_id"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}
