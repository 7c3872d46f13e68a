package dto

import "time"

type SendMessageRequest struct {
	ReceiverID int64   `json:"receiver_id"`
	Content    string  `json:"content"`
	Kind       string  `json:"kind,omitempty"`
	MediaKey   *string `json:"media_key,omitempty"`
	ReplyToID  *int64  `json:"reply_to_id,omitempty"`
}

type MessageResponse struct {
	ID             int64      `json:"id"`
	SenderUserID   int64      `json:"sender_user_id"`
	ReceiverUserID int64      `json:"receiver_user_id"`
	Content        string     `json:"content"`
	Kind           string     `json:"kind"`
	MediaURL       *string    `json:"media_url,omitempty"`
	ReplyToID      *int64     `json:"reply_to_id,omitempty"`
	IsRead         bool       `json:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type ConversationResponse struct {
	Messages []MessageResponse `json:"messages"`
	HasMore  bool              `json:"has_more"`
}

type ConversationSummaryResponse struct {
	UserID      int64               `json:"user_id"`
	DisplayName string              `json:"display_name"`
	Age         int                 `json:"age"`
	PhotoURL    *string             `json:"photo_url,omitempty"`
	IsOnline    bool                `json:"is_online"`
	LastMessage LastMessageResponse `json:"last_message"`
	UnreadCount int                 `json:"unread_count"`
}

type ConversationListResponse struct {
	Conversations []ConversationSummaryResponse `json:"conversations"`
}

type MarkReadResponse struct {
	OK      bool  `json:"ok"`
	Updated int64 `json:"updated"`
}

type DeleteMessageResponse struct {
	OK bool `json:"ok"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type MessageSearchResponse struct {
	Messages []MessageResponse `json:"messages"`
}
