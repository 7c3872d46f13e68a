package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/mkravch/tgdate/internal/services/auth"
	matchsvc "github.com/mkravch/tgdate/internal/services/matches"
	"github.com/mkravch/tgdate/internal/transport/http/dto"
	httperrors "github.com/mkravch/tgdate/internal/transport/http/errors"
)

type MatchHandler struct {
	service *matchsvc.Service
}

func NewMatchHandler(service *matchsvc.Service) *MatchHandler {
	return &MatchHandler{service: service}
}

func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	matches, err := h.service.List(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load matches")
		return
	}

	payload := make([]dto.MatchResponse, 0, len(matches))
	for _, match := range matches {
		payload = append(payload, mapMatch(match))
	}

	httperrors.Write(w, http.StatusOK, dto.MatchListResponse{Matches: payload})
}

func (h *MatchHandler) Detail(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	counterpartID, ok := pathInt64(r, "userId")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	match, err := h.service.Detail(r.Context(), identity.UserID, counterpartID)
	if err != nil {
		switch {
		case errors.Is(err, matchsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid match request")
		case errors.Is(err, matchsvc.ErrMatchNotFound):
			writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load match")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, mapMatch(match))
}

func (h *MatchHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	counterpartID, ok := pathInt64(r, "userId")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	if err := h.service.Unmatch(r.Context(), identity.UserID, counterpartID); err != nil {
		switch {
		case errors.Is(err, matchsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid unmatch request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to unmatch")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.UnmatchResponse{OK: true})
}

func mapMatch(match matchsvc.Match) dto.MatchResponse {
	payload := dto.MatchResponse{
		UserID:      match.CounterpartID,
		DisplayName: match.DisplayName,
		Age:         match.Age,
		Bio:         match.Bio,
		PhotoURL:    match.PhotoURL,
		IsOnline:    match.IsOnline,
		MatchedAt:   match.MatchedAt,
	}
	if match.LastMessage != nil {
		payload.LastMessage = &dto.LastMessageResponse{
			ID:           match.LastMessage.ID,
			SenderUserID: match.LastMessage.SenderUserID,
			Content:      match.LastMessage.Content,
			Kind:         match.LastMessage.Kind,
			IsRead:       match.LastMessage.IsRead,
			CreatedAt:    match.LastMessage.CreatedAt,
		}
	}
	return payload
}
