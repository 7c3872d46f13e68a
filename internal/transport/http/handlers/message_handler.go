package handlers

import (
	"errors"
	"net/http"
	"strings"

	authsvc "github.com/mkravch/tgdate/internal/services/auth"
	chatsvc "github.com/mkravch/tgdate/internal/services/chat"
	"github.com/mkravch/tgdate/internal/transport/http/dto"
	httperrors "github.com/mkravch/tgdate/internal/transport/http/errors"
	"github.com/mkravch/tgdate/internal/transport/ws"
)

type MessageHandler struct {
	service *chatsvc.Service
	hub     *ws.Hub
}

func NewMessageHandler(service *chatsvc.Service, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{service: service, hub: hub}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.ReceiverID <= 0 || strings.TrimSpace(req.Content) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "receiver_id and content are required")
		return
	}

	msg, err := h.service.Send(r.Context(), identity.UserID, req.ReceiverID, req.Content, req.Kind, req.MediaKey, req.ReplyToID)
	if err != nil {
		h.handleChatError(w, err)
		return
	}

	payload := mapMessage(msg)

	if h.hub != nil {
		h.hub.Push(req.ReceiverID, &ws.Event{
			Type:    ws.EventMessageNew,
			Payload: payload,
		})
	}

	httperrors.Write(w, http.StatusCreated, payload)
}

func (h *MessageHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	otherID, ok := pathInt64(r, "userId")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	page, err := h.service.Conversation(r.Context(), identity.UserID, otherID, queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		h.handleChatError(w, err)
		return
	}

	messages := make([]dto.MessageResponse, 0, len(page.Messages))
	for _, msg := range page.Messages {
		messages = append(messages, mapMessage(msg))
	}

	httperrors.Write(w, http.StatusOK, dto.ConversationResponse{
		Messages: messages,
		HasMore:  page.HasMore,
	})
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	otherID, ok := pathInt64(r, "userId")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	updated, err := h.service.MarkRead(r.Context(), identity.UserID, otherID)
	if err != nil {
		h.handleChatError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MarkReadResponse{OK: true, Updated: updated})
}

func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	summaries, err := h.service.Conversations(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load conversations")
		return
	}

	payload := make([]dto.ConversationSummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		payload = append(payload, dto.ConversationSummaryResponse{
			UserID:      summary.CounterpartID,
			DisplayName: summary.DisplayName,
			Age:         summary.Age,
			PhotoURL:    summary.PhotoURL,
			IsOnline:    summary.IsOnline,
			LastMessage: dto.LastMessageResponse{
				ID:           summary.LastMessage.ID,
				SenderUserID: summary.LastMessage.SenderUserID,
				Content:      summary.LastMessage.Content,
				Kind:         summary.LastMessage.Kind,
				IsRead:       summary.LastMessage.IsRead,
				CreatedAt:    summary.LastMessage.CreatedAt,
			},
			UnreadCount: summary.UnreadCount,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.ConversationListResponse{Conversations: payload})
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	messageID, ok := pathInt64(r, "messageId")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid message id")
		return
	}

	if err := h.service.DeleteMessage(r.Context(), identity.UserID, messageID); err != nil {
		h.handleChatError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.DeleteMessageResponse{OK: true})
}

func (h *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	count, err := h.service.UnreadCount(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to count unread messages")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.UnreadCountResponse{Count: count})
}

func (h *MessageHandler) Search(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "query parameter q is required")
		return
	}

	messages, err := h.service.Search(r.Context(), identity.UserID, query, queryInt64(r, "user_id"), queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		h.handleChatError(w, err)
		return
	}

	payload := make([]dto.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		payload = append(payload, mapMessage(msg))
	}

	httperrors.Write(w, http.StatusOK, dto.MessageSearchResponse{Messages: payload})
}

func (h *MessageHandler) handleChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid chat request")
	case errors.Is(err, chatsvc.ErrSelfMessage):
		writeBadRequest(w, "VALIDATION_ERROR", "cannot message yourself")
	case errors.Is(err, chatsvc.ErrEmptyContent):
		writeBadRequest(w, "VALIDATION_ERROR", "message content is empty")
	case errors.Is(err, chatsvc.ErrContentTooLong):
		writeBadRequest(w, "VALIDATION_ERROR", "message content is too long")
	case errors.Is(err, chatsvc.ErrInvalidKind):
		writeBadRequest(w, "VALIDATION_ERROR", "unsupported message kind")
	case errors.Is(err, chatsvc.ErrInvalidReplyTarget):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid reply target")
	case errors.Is(err, chatsvc.ErrNotMatched):
		writeForbidden(w, "NOT_MATCHED", "users are not matched")
	case errors.Is(err, chatsvc.ErrMessageNotFound):
		writeNotFound(w, "MESSAGE_NOT_FOUND", "message not found")
	case errors.Is(err, chatsvc.ErrNotMessageOwner):
		writeForbidden(w, "NOT_MESSAGE_OWNER", "only the sender can delete a message")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process chat request")
	}
}

func mapMessage(msg chatsvc.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:             msg.ID,
		SenderUserID:   msg.SenderUserID,
		ReceiverUserID: msg.ReceiverUserID,
		Content:        msg.Content,
		Kind:           msg.Kind,
		MediaURL:       msg.MediaURL,
		ReplyToID:      msg.ReplyToID,
		IsRead:         msg.IsRead,
		ReadAt:         msg.ReadAt,
		CreatedAt:      msg.CreatedAt,
	}
}
