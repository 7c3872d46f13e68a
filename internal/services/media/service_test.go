package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type storageStub struct {
	ensureCalls int
	ensureErr   error
	putCalls    int
	putErr      error
	lastKey     string
	lastSize    int64
	lastType    string
	deleteCalls int
	deletedKey  string
}

func (s *storageStub) EnsureBucket(context.Context) error {
	s.ensureCalls++
	return s.ensureErr
}

func (s *storageStub) PutObject(_ context.Context, key string, _ io.Reader, size int64, contentType string) error {
	s.putCalls++
	s.lastKey = key
	s.lastSize = size
	s.lastType = contentType
	return s.putErr
}

func (s *storageStub) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://cdn.example/" + key, nil
}

func (s *storageStub) Delete(_ context.Context, key string) error {
	s.deleteCalls++
	s.deletedKey = key
	return nil
}

func TestUploadAttachmentBuildsKeyAndURL(t *testing.T) {
	storage := &storageStub{}
	svc := NewService(storage)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	up, err := svc.UploadAttachment(context.Background(), 101, "photo.JPG", "image/jpeg", strings.NewReader("data"), 4)
	if err != nil {
		t.Fatalf("upload attachment: %v", err)
	}
	if storage.ensureCalls != 1 || storage.putCalls != 1 {
		t.Fatalf("expected ensure+put once, got %d/%d", storage.ensureCalls, storage.putCalls)
	}
	if !strings.HasPrefix(up.Key, "users/101/attachments/20260301T120000_") {
		t.Fatalf("unexpected key prefix: %q", up.Key)
	}
	if !strings.HasSuffix(up.Key, ".jpg") {
		t.Fatalf("extension must be lowercased, got %q", up.Key)
	}
	if up.URL != "https://cdn.example/"+up.Key {
		t.Fatalf("unexpected url: %q", up.URL)
	}
	if storage.lastType != "image/jpeg" || storage.lastSize != 4 {
		t.Fatalf("unexpected put args: %q %d", storage.lastType, storage.lastSize)
	}
}

func TestUploadAttachmentDefaults(t *testing.T) {
	storage := &storageStub{}
	svc := NewService(storage)

	up, err := svc.UploadAttachment(context.Background(), 101, "noext", "", strings.NewReader("data"), 4)
	if err != nil {
		t.Fatalf("upload attachment: %v", err)
	}
	if !strings.HasSuffix(up.Key, ".bin") {
		t.Fatalf("missing extension must fall back to .bin, got %q", up.Key)
	}
	if storage.lastType != "application/octet-stream" {
		t.Fatalf("blank content type must fall back, got %q", storage.lastType)
	}
}

func TestUploadAttachmentValidation(t *testing.T) {
	svc := NewService(&storageStub{})

	if _, err := svc.UploadAttachment(context.Background(), 0, "a.png", "image/png", strings.NewReader("x"), 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for zero user, got %v", err)
	}
	if _, err := svc.UploadAttachment(context.Background(), 101, "a.png", "image/png", nil, 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for nil body, got %v", err)
	}
	if _, err := svc.UploadAttachment(context.Background(), 101, "a.png", "image/png", strings.NewReader("x"), 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for zero size, got %v", err)
	}
}

func TestUploadAttachmentStopsOnEnsureFailure(t *testing.T) {
	storage := &storageStub{ensureErr: errors.New("bucket down")}
	svc := NewService(storage)

	if _, err := svc.UploadAttachment(context.Background(), 101, "a.png", "image/png", strings.NewReader("x"), 1); err == nil {
		t.Fatalf("expected ensure failure to surface")
	}
	if storage.putCalls != 0 {
		t.Fatalf("put must not run after ensure failure")
	}
}

func TestRemoveObject(t *testing.T) {
	storage := &storageStub{}
	svc := NewService(storage)

	if err := svc.RemoveObject(context.Background(), "users/101/attachments/x.png"); err != nil {
		t.Fatalf("remove object: %v", err)
	}
	if storage.deleteCalls != 1 || storage.deletedKey != "users/101/attachments/x.png" {
		t.Fatalf("unexpected delete calls: %d %q", storage.deleteCalls, storage.deletedKey)
	}

	if err := svc.RemoveObject(context.Background(), "  "); err != nil {
		t.Fatalf("blank key must be a no-op, got %v", err)
	}
	if storage.deleteCalls != 1 {
		t.Fatalf("blank key must not reach storage")
	}
}
