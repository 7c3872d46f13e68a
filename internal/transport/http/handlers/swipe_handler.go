package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	authsvc "github.com/mkravch/tgdate/internal/services/auth"
	swipesvc "github.com/mkravch/tgdate/internal/services/swipes"
	"github.com/mkravch/tgdate/internal/transport/http/dto"
	httperrors "github.com/mkravch/tgdate/internal/transport/http/errors"
	"github.com/mkravch/tgdate/internal/transport/ws"
)

type SwipeHandler struct {
	service *swipesvc.Service
	hub     *ws.Hub
}

func NewSwipeHandler(service *swipesvc.Service, hub *ws.Hub) *SwipeHandler {
	return &SwipeHandler{service: service, hub: hub}
}

func (h *SwipeHandler) Swipe(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.TargetID <= 0 || strings.TrimSpace(req.Action) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "target_id and action are required")
		return
	}

	result, err := h.service.Swipe(r.Context(), identity.UserID, req.TargetID, req.Action)
	if err != nil {
		h.handleSwipeError(w, err)
		return
	}

	if result.IsMatch && h.hub != nil {
		event := &ws.Event{
			Type: ws.EventMatchNew,
			Payload: map[string]any{
				"user_id": identity.UserID,
			},
		}
		h.hub.Push(req.TargetID, event)
	}

	httperrors.Write(w, http.StatusOK, dto.SwipeResponse{
		OK:      true,
		Action:  result.Action,
		IsMatch: result.IsMatch,
	})
}

func (h *SwipeHandler) handleSwipeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, swipesvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe request")
	case errors.Is(err, swipesvc.ErrSelfSwipe):
		writeBadRequest(w, "VALIDATION_ERROR", "cannot swipe yourself")
	case errors.Is(err, swipesvc.ErrInvalidAction):
		writeBadRequest(w, "VALIDATION_ERROR", "unsupported action")
	case errors.Is(err, swipesvc.ErrTargetNotFound):
		writeNotFound(w, "TARGET_NOT_FOUND", "swipe target not found")
	case errors.Is(err, swipesvc.ErrTargetInactive):
		writeNotFound(w, "TARGET_NOT_FOUND", "swipe target is not available")
	case errors.Is(err, swipesvc.ErrDuplicateSwipe):
		writeConflict(w, "DUPLICATE_SWIPE", "target already swiped")
	default:
		if tf, ok := swipesvc.IsTooFast(err); ok {
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "TOO_FAST",
				Message:       "too many swipes, slow down",
				RetryAfterSec: tf.RetryAfterSec,
			})
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to process swipe")
	}
}

func (h *SwipeHandler) History(w http.ResponseWriter, r *http.Request) {
	h.writeHistory(w, r, h.service.History)
}

func (h *SwipeHandler) LikesReceived(w http.ResponseWriter, r *http.Request) {
	h.writeHistory(w, r, h.service.LikesReceived)
}

func (h *SwipeHandler) LikesSent(w http.ResponseWriter, r *http.Request) {
	h.writeHistory(w, r, h.service.LikesSent)
}

func (h *SwipeHandler) writeHistory(w http.ResponseWriter, r *http.Request, load func(ctx context.Context, userID int64, limit, offset int) (swipesvc.HistoryPage, error)) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	page, err := load(r.Context(), identity.UserID, queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load swipe history")
		return
	}

	items := make([]dto.SwipeHistoryItem, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, dto.SwipeHistoryItem{
			UserID:      item.UserID,
			DisplayName: item.DisplayName,
			Age:         item.Age,
			Action:      item.Action,
			SwipedAt:    item.SwipedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.SwipeHistoryResponse{
		Items:   items,
		HasMore: page.HasMore,
	})
}

func (h *SwipeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	stats, err := h.service.Stats(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load stats")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SwipeStatsResponse{
		LikesSent:      stats.LikesSent,
		PassesSent:     stats.PassesSent,
		SuperLikesSent: stats.SuperLikesSent,
		LikesReceived:  stats.LikesReceived,
		Matches:        stats.Matches,
	})
}
