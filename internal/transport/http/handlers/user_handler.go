package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/mkravch/tgdate/internal/services/auth"
	usersvc "github.com/mkravch/tgdate/internal/services/users"
	"github.com/mkravch/tgdate/internal/transport/http/dto"
	httperrors "github.com/mkravch/tgdate/internal/transport/http/errors"
)

type UserHandler struct {
	service *usersvc.Service
}

func NewUserHandler(service *usersvc.Service) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}

	profile, err := h.service.Me(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, usersvc.ErrUserNotFound) {
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load profile")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MeResponse{
		ID:              profile.ID,
		TelegramID:      profile.TelegramID,
		DisplayName:     profile.DisplayName,
		Age:             profile.Age,
		Gender:          profile.Gender,
		Bio:             profile.Bio,
		Interests:       profile.Interests,
		PhotoURL:        profile.PhotoURL,
		IsActive:        profile.IsActive,
		ProfileComplete: profile.ProfileComplete,
		IsOnline:        profile.IsOnline,
		LastSeen:        profile.LastSeen,
		CreatedAt:       profile.CreatedAt,
	})
}

func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}

	if err := h.service.Deactivate(r.Context(), identity.UserID); err != nil {
		if errors.Is(err, usersvc.ErrUserNotFound) {
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to deactivate account")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.DeactivateResponse{OK: true})
}
