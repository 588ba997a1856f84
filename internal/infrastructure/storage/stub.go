package storage

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/familynest/backend/internal/domain/capsule"
	infraconfig "github.com/familynest/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StubAttachmentStore is used when object storage is disabled (development).
// It hands out placeholder URLs and never removes anything.
type StubAttachmentStore struct {
	// BaseURL prefixes generated URLs
	BaseURL   string
	expiresIn time.Duration
	now       func() time.Time
}

var _ capsule.AttachmentStore = (*StubAttachmentStore)(nil)

// NewStubAttachmentStore creates a new StubAttachmentStore
func NewStubAttachmentStore() *StubAttachmentStore {
	return &StubAttachmentStore{
		BaseURL:   "https://storage.example.com",
		expiresIn: defaultPresignExpiration,
		now:       time.Now,
	}
}

// DownloadURL returns a placeholder URL for key
func (s *StubAttachmentStore) DownloadURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	expiresAt := s.now().Add(s.expiresIn).UTC()
	return strings.TrimRight(s.BaseURL, "/") + "/download/" + url.PathEscape(key) +
		"?expires=" + url.QueryEscape(expiresAt.Format(time.RFC3339)), nil
}

// Delete does nothing
func (s *StubAttachmentStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}

// NewAttachmentStore returns the S3 store when storage is enabled and the stub otherwise
func NewAttachmentStore(cfg *infraconfig.StorageConfig, logger *zap.Logger) (capsule.AttachmentStore, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("Object storage disabled, attachment URLs are placeholders")
		return NewStubAttachmentStore(), nil
	}
	store, err := NewS3AttachmentStore(cfg, WithLogger(logger))
	if err != nil {
		return nil, err
	}
	logger.Info("Object storage enabled",
		zap.String("bucket", store.Bucket()),
		zap.String("endpoint", cfg.Endpoint),
	)
	return store, nil
}
