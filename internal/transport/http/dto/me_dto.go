package dto

import "time"

type MeResponse struct {
	ID              int64     `json:"id"`
	TelegramID      int64     `json:"telegram_id"`
	DisplayName     string    `json:"display_name"`
	Age             int       `json:"age,omitempty"`
	Gender          string    `json:"gender,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	Interests       []string  `json:"interests,omitempty"`
	PhotoURL        *string   `json:"photo_url,omitempty"`
	IsActive        bool      `json:"is_active"`
	ProfileComplete bool      `json:"profile_complete"`
	IsOnline        bool      `json:"is_online"`
	LastSeen        time.Time `json:"last_seen"`
	CreatedAt       time.Time `json:"created_at"`
}

type DeactivateResponse struct {
	OK bool `json:"ok"`
}
