// Package media stores uploaded product images and returns the URL they are
// served from.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Storage persists an object under key and returns its public URL.
type Storage interface {
	Save(ctx context.Context, key, contentType string, body io.ReadSeeker) (string, error)
}

// ErrUnsupportedImage is returned for content types that are not accepted images.
var ErrUnsupportedImage = errors.New("unsupported image type")

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ImageExtension returns the file extension for an accepted image content type.
func ImageExtension(contentType string) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := allowedImageTypes[ct]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnsupportedImage, contentType)
	}
	return ext, nil
}

// cleanKey rejects keys that would escape the storage root.
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return cleaned, nil
}
