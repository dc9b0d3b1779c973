// Package storage keeps raw check-in audio durably, either on the local
// filesystem or in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"time"

	"github.com/google/uuid"
)

// AudioStore is the durable home of uploaded audio blobs.
type AudioStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Open returns common.ErrorNotFound when the key does not exist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Presigner is implemented by stores that can hand out direct,
// time-limited download URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// now is replaced in tests.
var now = time.Now

// NewKey returns a fresh storage key of the form users/<yyyy>/<m>/<d>/<uuid><ext>.
func NewKey(contentType string) string {
	d := now()
	return fmt.Sprintf("users/%d/%d/%d/%v%s", d.Year(), d.Month(), d.Day(), uuid.New(), extension(contentType))
}

func extension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg":
		return ".mp3"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	}
	return ""
}

// ContentType guesses the media type of a key produced by NewKey.
func ContentType(key string) string {
	switch path.Ext(key) {
	case ".webm":
		return "audio/webm"
	case ".ogg":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	}
	return "application/octet-stream"
}
