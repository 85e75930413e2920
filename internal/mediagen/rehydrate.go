package mediagen

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers"
	"server/internal/storage"
)

// Rehydrator moves provider output into durable storage. Providers return
// either inline bytes or short-lived hosted URLs; after rehydration the
// artifact URL points at the service's own object store. Failure is
// non-fatal: the artifact keeps its ephemeral URL and the response still
// succeeds, at the cost of the link eventually expiring.
type Rehydrator struct {
	Store      storage.ObjectStore
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// NewRehydrator builds a rehydrator with a 60-second download client.
func NewRehydrator(store storage.ObjectStore, logger *infra.Logger) *Rehydrator {
	return &Rehydrator{
		Store:      store,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Logger:     logger,
	}
}

// Rehydrate persists the artifact for the owner and rewrites its URL to the
// durable one. authorizer, when non-nil, signs the download request for
// provider URLs that need authentication.
func (r *Rehydrator) Rehydrate(ctx context.Context, ownerID string, artifact *domain.GeneratedArtifact, authorizer providers.URLAuthorizer) {
	if r.Store == nil || artifact == nil {
		return
	}

	data := artifact.Data
	contentType := artifact.MIME
	if len(data) == 0 {
		fetched, fetchedType, err := r.fetch(ctx, artifact.URL, authorizer)
		if err != nil {
			if r.Logger != nil {
				r.Logger.Warn().
					Err(err).
					Str("user_id", ownerID).
					Str("provider", artifact.Provider).
					Msg("artifact download failed, serving ephemeral provider url")
			}
			return
		}
		data = fetched
		if contentType == "" {
			contentType = fetchedType
		}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := storage.ArtifactKey(ownerID, contentType)
	url, err := r.Store.Put(ctx, key, data, contentType)
	if err != nil {
		// Inline-only results have no provider URL to fall back on; a data
		// URL keeps the response usable instead of returning an empty link.
		if artifact.URL == "" {
			artifact.URL = encodeDataURL(data, contentType)
			artifact.Data = nil
			artifact.MIME = contentType
		}
		if r.Logger != nil {
			r.Logger.Warn().
				Err(err).
				Str("user_id", ownerID).
				Str("provider", artifact.Provider).
				Msg("artifact upload failed, serving ephemeral url")
		}
		return
	}

	artifact.URL = url
	artifact.Data = nil
	artifact.MIME = contentType
	if r.Logger != nil {
		r.Logger.Debug().
			Str("user_id", ownerID).
			Str("key", key).
			Str("provider", artifact.Provider).
			Msg("artifact persisted to durable storage")
	}
}

// fetch downloads provider-hosted media, handling data URLs inline.
func (r *Rehydrator) fetch(ctx context.Context, rawURL string, authorizer providers.URLAuthorizer) ([]byte, string, error) {
	if rawURL == "" {
		return nil, "", fmt.Errorf("artifact has neither data nor url")
	}
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURL(rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build download request: %w", err)
	}
	if authorizer != nil {
		authorizer.AuthorizeDownload(req)
	}

	client := r.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download artifact: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", fmt.Errorf("download artifact: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read artifact body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func encodeDataURL(data []byte, contentType string) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func decodeDataURL(raw string) ([]byte, string, error) {
	rest := strings.TrimPrefix(raw, "data:")
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, "", fmt.Errorf("malformed data url")
	}
	contentType := strings.TrimSuffix(meta, ";base64")
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("decode data url: %w", err)
		}
		return data, contentType, nil
	}
	return []byte(payload), contentType, nil
}
