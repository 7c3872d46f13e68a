package dto

type TelegramAuthRequest struct {
	InitData string `json:"init_data"`
}

type AuthTokenResponse struct {
	AccessToken  string         `json:"access_token"`
	ExpiresInSec int64          `json:"expires_in_sec"`
	Me           AuthMeResponse `json:"me"`
}

type AuthMeResponse struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
}
