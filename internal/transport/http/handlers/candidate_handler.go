package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/mkravch/tgdate/internal/services/auth"
	candidatesvc "github.com/mkravch/tgdate/internal/services/candidates"
	"github.com/mkravch/tgdate/internal/transport/http/dto"
	httperrors "github.com/mkravch/tgdate/internal/transport/http/errors"
)

type CandidateHandler struct {
	service *candidatesvc.Service
}

func NewCandidateHandler(service *candidatesvc.Service) *CandidateHandler {
	return &CandidateHandler{service: service}
}

func (h *CandidateHandler) Next(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CANDIDATE_SERVICE_UNAVAILABLE", "candidate service is unavailable")
		return
	}

	page, err := h.service.Next(r.Context(), identity.UserID, queryInt(r, "limit", 0))
	if err != nil {
		switch {
		case errors.Is(err, candidatesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid candidates request")
		case errors.Is(err, candidatesvc.ErrViewerNotFound):
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
		case errors.Is(err, candidatesvc.ErrProfileIncomplete):
			writeForbidden(w, "PROFILE_INCOMPLETE", "complete your profile to browse candidates")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load candidates")
		}
		return
	}

	cards := make([]dto.CandidateCardResponse, 0, len(page.Cards))
	for _, card := range page.Cards {
		cards = append(cards, dto.CandidateCardResponse{
			UserID:      card.UserID,
			DisplayName: card.DisplayName,
			Age:         card.Age,
			Bio:         card.Bio,
			Interests:   card.Interests,
			PhotoURL:    card.PhotoURL,
			IsOnline:    card.IsOnline,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.CandidatePageResponse{
		Candidates: cards,
		HasMore:    page.HasMore,
	})
}
