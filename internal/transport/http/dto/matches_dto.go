package dto

import "time"

type MatchResponse struct {
	UserID      int64                `json:"user_id"`
	DisplayName string               `json:"display_name"`
	Age         int                  `json:"age"`
	Bio         string               `json:"bio,omitempty"`
	PhotoURL    *string              `json:"photo_url,omitempty"`
	IsOnline    bool                 `json:"is_online"`
	MatchedAt   time.Time            `json:"matched_at"`
	LastMessage *LastMessageResponse `json:"last_message,omitempty"`
}

type LastMessageResponse struct {
	ID           int64     `json:"id"`
	SenderUserID int64     `json:"sender_user_id"`
	Content      string    `json:"content"`
	Kind         string    `json:"kind"`
	IsRead       bool      `json:"is_read"`
	CreatedAt    time.Time `json:"created_at"`
}

type MatchListResponse struct {
	Matches []MatchResponse `json:"matches"`
}

type UnmatchResponse struct {
	OK bool `json:"ok"`
}
