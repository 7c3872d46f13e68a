package dto

import "time"

type SwipeRequest struct {
	TargetID int64  `json:"target_id"`
	Action   string `json:"action"`
}

type SwipeResponse struct {
	OK      bool   `json:"ok"`
	Action  string `json:"action"`
	IsMatch bool   `json:"is_match"`
}

type SwipeHistoryItem struct {
	UserID      int64     `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Age         int       `json:"age"`
	Action      string    `json:"action"`
	SwipedAt    time.Time `json:"swiped_at"`
}

type SwipeHistoryResponse struct {
	Items   []SwipeHistoryItem `json:"items"`
	HasMore bool               `json:"has_more"`
}

type SwipeStatsResponse struct {
	LikesSent      int `json:"likes_sent"`
	PassesSent     int `json:"passes_sent"`
	SuperLikesSent int `json:"super_likes_sent"`
	LikesReceived  int `json:"likes_received"`
	Matches        int `json:"matches"`
}
