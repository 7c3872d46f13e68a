package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/mkravch/tgdate/internal/services/auth"
	mediasvc "github.com/mkravch/tgdate/internal/services/media"
	"github.com/mkravch/tgdate/internal/transport/http/dto"
	httperrors "github.com/mkravch/tgdate/internal/transport/http/errors"
)

const maxAttachmentUploadSize = 20 << 20 // 20 MiB

type MediaHandler struct {
	service *mediasvc.Service
}

func NewMediaHandler(service *mediasvc.Service) *MediaHandler {
	return &MediaHandler{service: service}
}

// Upload handles POST /media. The returned media_key goes into the
// send-message request as the attachment reference.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAttachmentUploadSize)
	if err := r.ParseMultipartForm(maxAttachmentUploadSize); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "file is required")
		return
	}
	defer file.Close()

	if header == nil || header.Size <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "file is empty")
		return
	}

	contentType := header.Header.Get("Content-Type")
	upload, err := h.service.UploadAttachment(r.Context(), identity.UserID, header.Filename, contentType, file, header.Size)
	if err != nil {
		switch {
		case errors.Is(err, mediasvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid media request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "media upload failed")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.MediaUploadResponse{
		MediaKey: upload.Key,
		URL:      upload.URL,
	})
}
