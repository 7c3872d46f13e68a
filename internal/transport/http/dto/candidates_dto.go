package dto

type CandidateCardResponse struct {
	UserID      int64    `json:"user_id"`
	DisplayName string   `json:"display_name"`
	Age         int      `json:"age"`
	Bio         string   `json:"bio,omitempty"`
	Interests   []string `json:"interests,omitempty"`
	PhotoURL    *string  `json:"photo_url,omitempty"`
	IsOnline    bool     `json:"is_online"`
}

type CandidatePageResponse struct {
	Candidates []CandidateCardResponse `json:"candidates"`
	HasMore    bool                    `json:"has_more"`
}
