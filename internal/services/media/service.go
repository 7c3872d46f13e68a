package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ObjectStorage is the slice of S3Storage the upload flow needs.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	storage ObjectStorage
	now     func() time.Time
}

// Upload is a stored attachment: the key goes onto the message row, the
// URL is a short-lived read link for the uploader's immediate preview.
type Upload struct {
	Key string
	URL string
}

func NewService(storage ObjectStorage) *Service {
	return &Service{
		storage: storage,
		now:     time.Now,
	}
}

// UploadAttachment stores one attachment body and returns its object key.
func (s *Service) UploadAttachment(ctx context.Context, userID int64, fileName, contentType string, body io.Reader, size int64) (Upload, error) {
	if userID <= 0 || body == nil || size <= 0 {
		return Upload{}, ErrValidation
	}
	if s.storage == nil {
		return Upload{}, fmt.Errorf("object storage is not configured")
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return Upload{}, fmt.Errorf("ensure bucket: %w", err)
	}

	key, err := s.buildAttachmentKey(userID, fileName)
	if err != nil {
		return Upload{}, fmt.Errorf("build object key: %w", err)
	}

	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}

	if err := s.storage.PutObject(ctx, key, body, size, contentType); err != nil {
		return Upload{}, fmt.Errorf("put object: %w", err)
	}

	url, err := s.storage.PresignGet(ctx, key, signedURLTTL)
	if err != nil {
		return Upload{}, fmt.Errorf("presign attachment url: %w", err)
	}

	return Upload{Key: key, URL: url}, nil
}

// RemoveObject deletes one stored object. Missing keys are not an error.
func (s *Service) RemoveObject(ctx context.Context, key string) error {
	if s.storage == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	return s.storage.Delete(ctx, key)
}

func (s *Service) buildAttachmentKey(userID int64, fileName string) (string, error) {
	rnd := make([]byte, 8)
	if _, err := rand.Read(rnd); err != nil {
		return "", err
	}

	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if ext == "" {
		ext = ".bin"
	}

	stamp := s.now().UTC().Format("20060102T150405")
	return fmt.Sprintf("users/%d/attachments/%s_%s%s", userID, stamp, hex.EncodeToString(rnd), ext), nil
}
