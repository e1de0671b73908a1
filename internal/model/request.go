package model

type SendMessageRequest struct {
	Text string `json:"text"`
}

type InputRequest struct {
	Text string `json:"text"`
}

type CreateCommunityRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	UserID      string `json:"user_id"`
}

type MembershipRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type AnnouncementRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Text   string `json:"text" binding:"required"`
}
