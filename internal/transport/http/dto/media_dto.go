package dto

type MediaUploadResponse struct {
	MediaKey string `json:"media_key"`
	URL      string `json:"url"`
}
