package model

// AssistantResponse 对外暴露的助手信息，不包含系统指令
type AssistantResponse struct {
	Name     string   `json:"name"`
	Title    string   `json:"title"`
	Greeting string   `json:"greeting"`
	Prompts  []string `json:"prompts"`
	Theme    string   `json:"theme"`
}

type SessionSummary struct {
	SessionID    string `json:"session_id"`
	Assistant    string `json:"assistant"`
	Busy         bool   `json:"busy"`
	MessageCount int    `json:"message_count"`
	UpdatedAt    int64  `json:"updated_at"`
}

// SendResponse send 的结果；Accepted 为 false 表示被守卫静默拒绝
type SendResponse struct {
	Accepted bool            `json:"accepted"`
	Outcome  string          `json:"outcome,omitempty"`
	Reply    *Message        `json:"reply,omitempty"`
	Session  SessionSnapshot `json:"session"`
}

type CopyResponse struct {
	Copied    bool   `json:"copied"`
	MessageID string `json:"message_id"`
	Text      string `json:"text,omitempty"`
}
