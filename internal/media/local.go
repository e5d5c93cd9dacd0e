package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// localStorage writes objects under a directory served by the API itself.
type localStorage struct {
	dir       string
	urlPrefix string
	logger    zerolog.Logger
}

// NewLocalStorage creates a file system backed Storage rooted at dir.
// Returned URLs are urlPrefix + "/" + key.
func NewLocalStorage(dir, urlPrefix string, logger zerolog.Logger) (Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory %s: %w", dir, err)
	}
	return &localStorage{
		dir:       dir,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		logger:    logger.With().Str("component", "local-media-storage").Logger(),
	}, nil
}

func (s *localStorage) Save(ctx context.Context, key, contentType string, body io.ReadSeeker) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	file, err := os.Create(target)
	if err != nil {
		s.logger.Error().Err(err).Str("file", target).Msg("failed to create media file")
		return "", fmt.Errorf("failed to create media file %s: %w", target, err)
	}
	defer file.Close()

	written, err := io.Copy(file, body)
	if err != nil {
		s.logger.Error().Err(err).Str("file", target).Msg("failed to write media file")
		return "", fmt.Errorf("failed to write media file %s: %w", target, err)
	}

	s.logger.Info().
		Str("key", key).
		Str("content_type", contentType).
		Int64("bytes", written).
		Msg("media stored locally")

	return s.urlPrefix + "/" + key, nil
}
