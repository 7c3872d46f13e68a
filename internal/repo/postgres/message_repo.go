package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrMessageNotFound = errors.New("message not found")

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

type MessageRecord struct {
	ID             int64
	SenderUserID   int64
	ReceiverUserID int64
	Content        string
	Kind           string
	MediaKey       *string
	ReplyToID      *int64
	IsRead         bool
	ReadAt         *time.Time
	IsDeleted      bool
	DeletedAt      *time.Time
	CreatedAt      time.Time
}

// ConversationSummaryRecord is one row of the per-counterpart rollup: the
// latest non-deleted message plus the reader's unread count.
type ConversationSummaryRecord struct {
	CounterpartID int64
	DisplayName   string
	Age           int
	PhotoKey      string
	LastSeen      time.Time
	LastMessage   MessageRecord
	UnreadCount   int
}

func (r *MessageRepo) Create(ctx context.Context, senderUserID, receiverUserID int64, content, kind string, mediaKey *string, replyToID *int64, now time.Time) (MessageRecord, error) {
	if senderUserID <= 0 || receiverUserID <= 0 || strings.TrimSpace(content) == "" {
		return MessageRecord{}, fmt.Errorf("invalid message payload")
	}
	if r.pool == nil {
		return MessageRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var rec MessageRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO messages (
	sender_user_id,
	receiver_user_id,
	content,
	kind,
	media_key,
	reply_to_id,
	is_read,
	is_deleted,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, FALSE, FALSE, $7)
RETURNING id, sender_user_id, receiver_user_id, content, kind, media_key, reply_to_id,
	is_read, read_at, is_deleted, deleted_at, created_at
`, senderUserID, receiverUserID, strings.TrimSpace(content), strings.ToLower(strings.TrimSpace(kind)), mediaKey, replyToID, now.UTC()).Scan(
		&rec.ID,
		&rec.SenderUserID,
		&rec.ReceiverUserID,
		&rec.Content,
		&rec.Kind,
		&rec.MediaKey,
		&rec.ReplyToID,
		&rec.IsRead,
		&rec.ReadAt,
		&rec.IsDeleted,
		&rec.DeletedAt,
		&rec.CreatedAt,
	)
	if err != nil {
		return MessageRecord{}, fmt.Errorf("create message: %w", err)
	}

	return rec, nil
}

func (r *MessageRepo) GetByID(ctx context.Context, messageID int64) (MessageRecord, error) {
	if messageID <= 0 {
		return MessageRecord{}, fmt.Errorf("invalid message id")
	}
	if r.pool == nil {
		return MessageRecord{}, ErrMessageNotFound
	}

	var rec MessageRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, sender_user_id, receiver_user_id, content, kind, media_key, reply_to_id,
	is_read, read_at, is_deleted, deleted_at, created_at
FROM messages
WHERE id = $1
`, messageID).Scan(
		&rec.ID,
		&rec.SenderUserID,
		&rec.ReceiverUserID,
		&rec.Content,
		&rec.Kind,
		&rec.MediaKey,
		&rec.ReplyToID,
		&rec.IsRead,
		&rec.ReadAt,
		&rec.IsDeleted,
		&rec.DeletedAt,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MessageRecord{}, ErrMessageNotFound
		}
		return MessageRecord{}, fmt.Errorf("get message by id: %w", err)
	}

	return rec, nil
}

// ListConversation returns the non-deleted pair messages newest-first.
// Callers reverse before handing the page to clients.
func (r *MessageRepo) ListConversation(ctx context.Context, userA, userB int64, limit, offset int) ([]MessageRecord, error) {
	if userA <= 0 || userB <= 0 {
		return nil, fmt.Errorf("invalid conversation pair")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if r.pool == nil {
		return []MessageRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, sender_user_id, receiver_user_id, content, kind, media_key, reply_to_id,
	is_read, read_at, is_deleted, deleted_at, created_at
FROM messages
WHERE is_deleted = FALSE
	AND (
		(sender_user_id = $1 AND receiver_user_id = $2)
		OR (sender_user_id = $2 AND receiver_user_id = $1)
	)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4
`, userA, userB, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows, limit)
}

// MarkConversationRead flips the reader's unread messages from the given
// counterpart. Idempotent: already-read rows are untouched, so readAt is
// set exactly once per message.
func (r *MessageRepo) MarkConversationRead(ctx context.Context, readerUserID, otherUserID int64, now time.Time) (int64, error) {
	if readerUserID <= 0 || otherUserID <= 0 {
		return 0, fmt.Errorf("invalid mark read payload")
	}
	if r.pool == nil {
		return 0, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result, err := r.pool.Exec(ctx, `
UPDATE messages
SET is_read = TRUE, read_at = $3
WHERE receiver_user_id = $1
	AND sender_user_id = $2
	AND is_read = FALSE
`, readerUserID, otherUserID, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("mark conversation read: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *MessageRepo) SoftDelete(ctx context.Context, messageID int64, now time.Time) error {
	if messageID <= 0 {
		return fmt.Errorf("invalid message id")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result, err := r.pool.Exec(ctx, `
UPDATE messages
SET is_deleted = TRUE, deleted_at = $2
WHERE id = $1 AND is_deleted = FALSE
`, messageID, now.UTC())
	if err != nil {
		return fmt.Errorf("soft delete message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrMessageNotFound
	}

	return nil
}

// SoftDeletePair purges a whole conversation inside the unmatch transaction.
func (r *MessageRepo) SoftDeletePair(ctx context.Context, tx pgx.Tx, userA, userB int64, now time.Time) error {
	if userA <= 0 || userB <= 0 {
		return fmt.Errorf("invalid conversation pair")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if _, err := tx.Exec(ctx, `
UPDATE messages
SET is_deleted = TRUE, deleted_at = $3
WHERE is_deleted = FALSE
	AND (
		(sender_user_id = $1 AND receiver_user_id = $2)
		OR (sender_user_id = $2 AND receiver_user_id = $1)
	)
`, userA, userB, now.UTC()); err != nil {
		return fmt.Errorf("soft delete conversation pair: %w", err)
	}

	return nil
}

// ListConversationSummaries groups the user's non-deleted messages by
// counterpart: latest message per pair plus the unread count, counterpart
// profile card joined in. Newest conversations first.
func (r *MessageRepo) ListConversationSummaries(ctx context.Context, userID int64, limit int) ([]ConversationSummaryRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []ConversationSummaryRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	t.counterpart_id,
	COALESCE(u.display_name, ''),
	COALESCE(u.age, 0),
	COALESCE(u.photo_key, ''),
	u.last_seen,
	t.id, t.sender_user_id, t.receiver_user_id, t.content, t.kind, t.media_key, t.reply_to_id,
	t.is_read, t.read_at, t.created_at,
	(
		SELECT COUNT(*)
		FROM messages n
		WHERE n.receiver_user_id = $1
			AND n.sender_user_id = t.counterpart_id
			AND n.is_read = FALSE
			AND n.is_deleted = FALSE
	) AS unread_count
FROM (
	SELECT DISTINCT ON (counterpart_id)
		CASE WHEN m.sender_user_id = $1 THEN m.receiver_user_id ELSE m.sender_user_id END AS counterpart_id,
		m.id, m.sender_user_id, m.receiver_user_id, m.content, m.kind, m.media_key, m.reply_to_id,
		m.is_read, m.read_at, m.created_at
	FROM messages m
	WHERE m.is_deleted = FALSE
		AND (m.sender_user_id = $1 OR m.receiver_user_id = $1)
	ORDER BY counterpart_id, m.created_at DESC, m.id DESC
) t
JOIN users u ON u.id = t.counterpart_id
ORDER BY t.created_at DESC, t.id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversation summaries: %w", err)
	}
	defer rows.Close()

	items := make([]ConversationSummaryRecord, 0, limit)
	for rows.Next() {
		var rec ConversationSummaryRecord
		if err := rows.Scan(
			&rec.CounterpartID,
			&rec.DisplayName,
			&rec.Age,
			&rec.PhotoKey,
			&rec.LastSeen,
			&rec.LastMessage.ID,
			&rec.LastMessage.SenderUserID,
			&rec.LastMessage.ReceiverUserID,
			&rec.LastMessage.Content,
			&rec.LastMessage.Kind,
			&rec.LastMessage.MediaKey,
			&rec.LastMessage.ReplyToID,
			&rec.LastMessage.IsRead,
			&rec.LastMessage.ReadAt,
			&rec.LastMessage.CreatedAt,
			&rec.UnreadCount,
		); err != nil {
			return nil, fmt.Errorf("scan conversation summary: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate conversation summaries: %w", rows.Err())
	}

	return items, nil
}

// LastMessageByCounterpart returns, for each given counterpart, the latest
// non-deleted pair message. Used by the match list to order matches by
// conversation activity without N+1 queries.
func (r *MessageRepo) LastMessageByCounterpart(ctx context.Context, userID int64, counterpartIDs []int64) (map[int64]MessageRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	out := make(map[int64]MessageRecord, len(counterpartIDs))
	if r.pool == nil || len(counterpartIDs) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT DISTINCT ON (counterpart_id)
	CASE WHEN m.sender_user_id = $1 THEN m.receiver_user_id ELSE m.sender_user_id END AS counterpart_id,
	m.id, m.sender_user_id, m.receiver_user_id, m.content, m.kind, m.media_key, m.reply_to_id,
	m.is_read, m.read_at, m.created_at
FROM messages m
WHERE m.is_deleted = FALSE
	AND (
		(m.sender_user_id = $1 AND m.receiver_user_id = ANY($2))
		OR (m.receiver_user_id = $1 AND m.sender_user_id = ANY($2))
	)
ORDER BY counterpart_id, m.created_at DESC, m.id DESC
`, userID, counterpartIDs)
	if err != nil {
		return nil, fmt.Errorf("list last messages by counterpart: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var counterpartID int64
		var rec MessageRecord
		if err := rows.Scan(
			&counterpartID,
			&rec.ID,
			&rec.SenderUserID,
			&rec.ReceiverUserID,
			&rec.Content,
			&rec.Kind,
			&rec.MediaKey,
			&rec.ReplyToID,
			&rec.IsRead,
			&rec.ReadAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan last message: %w", err)
		}
		out[counterpartID] = rec
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate last messages: %w", rows.Err())
	}

	return out, nil
}

func (r *MessageRepo) CountUnread(ctx context.Context, userID int64) (int, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return 0, nil
	}

	var count int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM messages
WHERE receiver_user_id = $1
	AND is_read = FALSE
	AND is_deleted = FALSE
`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}

	return count, nil
}

func (r *MessageRepo) Search(ctx context.Context, userID int64, query string, otherUserID int64, limit, offset int) ([]MessageRecord, error) {
	if userID <= 0 || strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("invalid search payload")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if r.pool == nil {
		return []MessageRecord{}, nil
	}

	pattern := "%" + escapeLikePattern(strings.TrimSpace(query)) + "%"
	var rows pgx.Rows
	var err error
	if otherUserID > 0 {
		rows, err = r.pool.Query(ctx, `
SELECT id, sender_user_id, receiver_user_id, content, kind, media_key, reply_to_id,
	is_read, read_at, is_deleted, deleted_at, created_at
FROM messages
WHERE is_deleted = FALSE
	AND content ILIKE $2
	AND (
		(sender_user_id = $1 AND receiver_user_id = $3)
		OR (sender_user_id = $3 AND receiver_user_id = $1)
	)
ORDER BY created_at DESC, id DESC
LIMIT $4 OFFSET $5
`, userID, pattern, otherUserID, limit, offset)
	} else {
		rows, err = r.pool.Query(ctx, `
SELECT id, sender_user_id, receiver_user_id, content, kind, media_key, reply_to_id,
	is_read, read_at, is_deleted, deleted_at, created_at
FROM messages
WHERE is_deleted = FALSE
	AND content ILIKE $2
	AND (sender_user_id = $1 OR receiver_user_id = $1)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4
`, userID, pattern, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows, limit)
}

// escapeLikePattern neutralizes LIKE metacharacters so a user query
// matches them literally.
func escapeLikePattern(query string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(query)
}

func scanMessages(rows pgx.Rows, capacity int) ([]MessageRecord, error) {
	items := make([]MessageRecord, 0, capacity)
	for rows.Next() {
		var rec MessageRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.SenderUserID,
			&rec.ReceiverUserID,
			&rec.Content,
			&rec.Kind,
			&rec.MediaKey,
			&rec.ReplyToID,
			&rec.IsRead,
			&rec.ReadAt,
			&rec.IsDeleted,
			&rec.DeletedAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate messages: %w", rows.Err())
	}

	return items, nil
}
