package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectStore is the durable home for generated media. Put returns a stable,
// publicly resolvable URL; Get reads an object back by that URL (used when a
// prior artifact is needed as reference input).
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// ArtifactKey builds a collision-resistant object key namespaced by owner:
// {ownerID}/{unix-nano}-{short-uuid}.{ext}. Keys are never reused or updated
// in place, so concurrent writers need no coordination.
func ArtifactKey(ownerID, contentType string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%d-%s%s", ownerID, time.Now().UnixNano(), suffix, ExtensionForMIME(contentType))
}

// ExtensionForMIME maps a content type onto a file extension for storage keys.
func ExtensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	default:
		return ".bin"
	}
}
