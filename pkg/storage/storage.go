// Package storage archives raw payload bytes in a blob container, backed by
// Azure Blob Storage or an in-process map.
package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/mobby57/memoLib-sub019/pkg/lifecycle"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrEmptyKey   = errors.New("storage key must not be empty")
	ErrInvalidKey = errors.New("storage key contains invalid path segment")
)

// System is a flat key/blob store. Keys are slash-separated relative paths.
type System interface {
	Start(lc *lifecycle.Coordinator) error
	Ready() bool
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	// Download returns ErrNotFound for a missing key. The caller closes the reader.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// New returns the System for cfg.Provider. The Azure container is created
// by a startup hook, not here.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	logger = logger.With("system", "storage", "provider", cfg.Provider)

	if cfg.Provider == ProviderMemory {
		logger.Warn("archived payloads are held in memory and lost on restart")
		return NewMemory(), nil
	}
	return newAzure(cfg, logger)
}

// validateKey rejects empty keys, absolute keys and any ".." segment.
func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.HasPrefix(key, "/") || slices.Contains(strings.Split(key, "/"), "..") {
		return ErrInvalidKey
	}
	return nil
}
