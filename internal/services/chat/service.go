package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	pgrepo "github.com/mkravch/tgdate/internal/repo/postgres"
)

const (
	kindText    = "text"
	kindImage   = "image"
	kindSticker = "sticker"
	kindGIF     = "gif"

	mediaURLTTL = 15 * time.Minute
)

var (
	ErrValidation         = errors.New("validation error")
	ErrSelfMessage        = errors.New("self message")
	ErrNotMatched         = errors.New("users are not matched")
	ErrEmptyContent       = errors.New("empty message content")
	ErrContentTooLong     = errors.New("message content too long")
	ErrInvalidKind        = errors.New("invalid message kind")
	ErrInvalidReplyTarget = errors.New("invalid reply target")
	ErrMessageNotFound    = errors.New("message not found")
	ErrNotMessageOwner    = errors.New("not message owner")
)

type MessageStore interface {
	Create(ctx context.Context, senderUserID, receiverUserID int64, content, kind string, mediaKey *string, replyToID *int64, now time.Time) (pgrepo.MessageRecord, error)
	GetByID(ctx context.Context, messageID int64) (pgrepo.MessageRecord, error)
	ListConversation(ctx context.Context, userA, userB int64, limit, offset int) ([]pgrepo.MessageRecord, error)
	MarkConversationRead(ctx context.Context, readerUserID, otherUserID int64, now time.Time) (int64, error)
	SoftDelete(ctx context.Context, messageID int64, now time.Time) error
	ListConversationSummaries(ctx context.Context, userID int64, limit int) ([]pgrepo.ConversationSummaryRecord, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	Search(ctx context.Context, userID int64, query string, otherUserID int64, limit, offset int) ([]pgrepo.MessageRecord, error)
}

// MatchChecker answers whether two users currently hold a mutual like.
type MatchChecker interface {
	IsMutual(ctx context.Context, userA, userB int64) (bool, error)
}

type PresenceChecker interface {
	IsOnline(ctx context.Context, userID int64, fallbackLastSeen time.Time) (bool, error)
}

type MediaSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// MediaRemover drops attachment objects whose message is gone.
type MediaRemover interface {
	RemoveObject(ctx context.Context, key string) error
}

type Config struct {
	MaxContentLength int
	PageSize         int
	MaxPageSize      int
	ConversationsCap int
	MarkReadOnFetch  bool
}

type Message struct {
	ID             int64
	SenderUserID   int64
	ReceiverUserID int64
	Content        string
	Kind           string
	MediaURL       *string
	ReplyToID      *int64
	IsRead         bool
	ReadAt         *time.Time
	CreatedAt      time.Time
}

type ConversationPage struct {
	Messages []Message
	HasMore  bool
}

type ConversationSummary struct {
	CounterpartID int64
	DisplayName   string
	Age           int
	PhotoURL      *string
	IsOnline      bool
	LastMessage   Message
	UnreadCount   int
}

type Service struct {
	messages    MessageStore
	matches     MatchChecker
	presence    PresenceChecker
	media       MediaSigner
	mediaRemove MediaRemover
	cfg         Config
	now         func() time.Time
}

type Dependencies struct {
	MsgStore     MessageStore
	Matches      MatchChecker
	Presence     PresenceChecker
	MediaSigner  MediaSigner
	MediaRemover MediaRemover
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = 1000
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.ConversationsCap <= 0 {
		cfg.ConversationsCap = 100
	}

	return &Service{
		messages:    deps.MsgStore,
		matches:     deps.Matches,
		presence:    deps.Presence,
		media:       deps.MediaSigner,
		mediaRemove: deps.MediaRemover,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Send stores one message after passing the conversation gate. The gate is
// evaluated against the live swipe ledger on every call, so a pair that just
// unmatched loses the ability to write mid-conversation.
func (s *Service) Send(ctx context.Context, senderID, receiverID int64, content, kind string, mediaKey *string, replyToID *int64) (Message, error) {
	if senderID <= 0 || receiverID <= 0 {
		return Message{}, ErrValidation
	}
	if senderID == receiverID {
		return Message{}, ErrSelfMessage
	}
	if s.messages == nil || s.matches == nil {
		return Message{}, fmt.Errorf("chat dependencies are not configured")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > s.cfg.MaxContentLength {
		return Message{}, ErrContentTooLong
	}

	normalizedKind, err := normalizeKind(kind)
	if err != nil {
		return Message{}, err
	}

	if err := s.requireMatch(ctx, senderID, receiverID); err != nil {
		return Message{}, err
	}

	if replyToID != nil {
		if err := s.checkReplyTarget(ctx, senderID, receiverID, *replyToID); err != nil {
			return Message{}, err
		}
	}

	record, err := s.messages.Create(ctx, senderID, receiverID, content, normalizedKind, mediaKey, replyToID, s.now().UTC())
	if err != nil {
		return Message{}, fmt.Errorf("create message: %w", err)
	}

	return s.buildMessage(ctx, record), nil
}

// Conversation returns one page of the two users' chat, oldest message
// first. The store pages from the newest end, so an offset of zero always
// lands on the latest messages.
func (s *Service) Conversation(ctx context.Context, userID, otherID int64, limit, offset int) (ConversationPage, error) {
	if userID <= 0 || otherID <= 0 || userID == otherID {
		return ConversationPage{}, ErrValidation
	}
	if s.messages == nil || s.matches == nil {
		return ConversationPage{}, fmt.Errorf("chat dependencies are not configured")
	}

	if err := s.requireMatch(ctx, userID, otherID); err != nil {
		return ConversationPage{}, err
	}

	limit = s.clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	records, err := s.messages.ListConversation(ctx, userID, otherID, limit, offset)
	if err != nil {
		return ConversationPage{}, fmt.Errorf("list conversation: %w", err)
	}

	messages := make([]Message, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		messages = append(messages, s.buildMessage(ctx, records[i]))
	}

	if s.cfg.MarkReadOnFetch {
		if _, err := s.messages.MarkConversationRead(ctx, userID, otherID, s.now().UTC()); err != nil {
			return ConversationPage{}, fmt.Errorf("mark conversation read: %w", err)
		}
	}

	return ConversationPage{
		Messages: messages,
		HasMore:  len(records) == limit,
	}, nil
}

// MarkRead marks every unread incoming message from otherID as read and
// returns how many rows changed. Calling it again is a no-op.
func (s *Service) MarkRead(ctx context.Context, userID, otherID int64) (int64, error) {
	if userID <= 0 || otherID <= 0 || userID == otherID {
		return 0, ErrValidation
	}
	if s.messages == nil || s.matches == nil {
		return 0, fmt.Errorf("chat dependencies are not configured")
	}

	if err := s.requireMatch(ctx, userID, otherID); err != nil {
		return 0, err
	}

	updated, err := s.messages.MarkConversationRead(ctx, userID, otherID, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark conversation read: %w", err)
	}

	return updated, nil
}

// Conversations returns a rollup of every conversation the caller has,
// newest activity first.
func (s *Service) Conversations(ctx context.Context, userID int64) ([]ConversationSummary, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.messages == nil {
		return nil, fmt.Errorf("message store is nil")
	}

	records, err := s.messages.ListConversationSummaries(ctx, userID, s.cfg.ConversationsCap)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	summaries := make([]ConversationSummary, 0, len(records))
	for _, rec := range records {
		summary := ConversationSummary{
			CounterpartID: rec.CounterpartID,
			DisplayName:   rec.DisplayName,
			Age:           rec.Age,
			PhotoURL:      s.buildMediaURL(ctx, rec.PhotoKey),
			LastMessage:   s.buildMessage(ctx, rec.LastMessage),
			UnreadCount:   rec.UnreadCount,
		}
		if s.presence != nil {
			online, err := s.presence.IsOnline(ctx, rec.CounterpartID, rec.LastSeen)
			if err == nil {
				summary.IsOnline = online
			}
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// DeleteMessage soft-deletes one of the caller's own messages.
func (s *Service) DeleteMessage(ctx context.Context, userID, messageID int64) error {
	if userID <= 0 || messageID <= 0 {
		return ErrValidation
	}
	if s.messages == nil {
		return fmt.Errorf("message store is nil")
	}

	record, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("get message: %w", err)
	}
	if record.SenderUserID != userID {
		return ErrNotMessageOwner
	}
	if record.IsDeleted {
		return ErrMessageNotFound
	}

	if err := s.messages.SoftDelete(ctx, messageID, s.now().UTC()); err != nil {
		if errors.Is(err, pgrepo.ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("soft delete message: %w", err)
	}

	// the attachment object is unreachable once the row is hidden
	if record.MediaKey != nil && s.mediaRemove != nil {
		_ = s.mediaRemove.RemoveObject(ctx, *record.MediaKey)
	}

	return nil
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	if userID <= 0 {
		return 0, ErrValidation
	}
	if s.messages == nil {
		return 0, fmt.Errorf("message store is nil")
	}

	count, err := s.messages.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}

	return count, nil
}

// Search finds the caller's messages containing the query, optionally
// narrowed to one conversation.
func (s *Service) Search(ctx context.Context, userID int64, query string, otherID int64, limit, offset int) ([]Message, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrValidation
	}
	if s.messages == nil {
		return nil, fmt.Errorf("message store is nil")
	}

	limit = s.clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	records, err := s.messages.Search(ctx, userID, query, otherID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}

	messages := make([]Message, 0, len(records))
	for _, rec := range records {
		messages = append(messages, s.buildMessage(ctx, rec))
	}

	return messages, nil
}

func (s *Service) requireMatch(ctx context.Context, userA, userB int64) error {
	mutual, err := s.matches.IsMutual(ctx, userA, userB)
	if err != nil {
		return fmt.Errorf("check match: %w", err)
	}
	if !mutual {
		return ErrNotMatched
	}
	return nil
}

func (s *Service) checkReplyTarget(ctx context.Context, senderID, receiverID, replyToID int64) error {
	target, err := s.messages.GetByID(ctx, replyToID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMessageNotFound) {
			return ErrInvalidReplyTarget
		}
		return fmt.Errorf("get reply target: %w", err)
	}
	if target.IsDeleted {
		return ErrInvalidReplyTarget
	}
	samePair := (target.SenderUserID == senderID && target.ReceiverUserID == receiverID) ||
		(target.SenderUserID == receiverID && target.ReceiverUserID == senderID)
	if !samePair {
		return ErrInvalidReplyTarget
	}
	return nil
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.PageSize
	}
	if limit > s.cfg.MaxPageSize {
		return s.cfg.MaxPageSize
	}
	return limit
}

func (s *Service) buildMessage(ctx context.Context, rec pgrepo.MessageRecord) Message {
	msg := Message{
		ID:             rec.ID,
		SenderUserID:   rec.SenderUserID,
		ReceiverUserID: rec.ReceiverUserID,
		Content:        rec.Content,
		Kind:           rec.Kind,
		ReplyToID:      rec.ReplyToID,
		IsRead:         rec.IsRead,
		ReadAt:         rec.ReadAt,
		CreatedAt:      rec.CreatedAt,
	}
	if rec.MediaKey != nil {
		msg.MediaURL = s.buildMediaURL(ctx, *rec.MediaKey)
	}
	return msg
}

func (s *Service) buildMediaURL(ctx context.Context, key string) *string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		value := trimmed
		return &value
	}
	if s.media == nil {
		return nil
	}

	url, err := s.media.PresignGet(ctx, trimmed, mediaURLTTL)
	if err != nil {
		return nil
	}
	value := strings.TrimSpace(url)
	if value == "" {
		return nil
	}
	return &value
}

func normalizeKind(input string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(input))
	if value == "" {
		return kindText, nil
	}
	switch value {
	case kindText, kindImage, kindSticker, kindGIF:
		return value, nil
	default:
		return "", ErrInvalidKind
	}
}
