package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/middleware"
	"server/internal/storage"
	"server/pkg/zip"
)

const (
	defaultVideoDuration = 8
	maxVideoDuration     = 60
	defaultListLimit     = 20
	maxListLimit         = 100
	maxExportItems       = 25
)

type generateRequest struct {
	Prompt         string `json:"prompt"`
	AspectRatio    string `json:"aspect_ratio"`
	Duration       int    `json:"duration_seconds"`
	ConversationID string `json:"conversation_id"`
}

type artifactResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	URL         string `json:"url"`
	Provider    string `json:"provider"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Duration    int    `json:"duration_seconds,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toArtifactResponse(rec *domain.ArtifactRecord) artifactResponse {
	return artifactResponse{
		ID:          rec.ID,
		Kind:        string(rec.Kind),
		URL:         rec.URL,
		Provider:    rec.Provider,
		Prompt:      rec.Prompt,
		AspectRatio: rec.AspectRatio,
		Width:       rec.Width,
		Height:      rec.Height,
		Duration:    rec.Duration,
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
	}
}

// GenerateImage handles POST /v1/images.
func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	a.generate(w, r, domain.MediaKindImage)
}

// GenerateVideo handles POST /v1/videos.
func (a *App) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	a.generate(w, r, domain.MediaKindVideo)
}

func (a *App) generate(w http.ResponseWriter, r *http.Request, kind domain.MediaKind) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}

	duration := 0
	if kind == domain.MediaKindVideo {
		duration = req.Duration
		if duration <= 0 {
			duration = defaultVideoDuration
		}
		if duration > maxVideoDuration {
			a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("duration_seconds must be at most %d", maxVideoDuration))
			return
		}
	}

	record, err := a.Orchestrator.Generate(r.Context(), domain.GenerationRequest{
		Prompt:         req.Prompt,
		Kind:           kind,
		AspectRatio:    req.AspectRatio,
		Duration:       duration,
		UserID:         userID,
		ConversationID: req.ConversationID,
		RequestID:      middleware.RequestIDFromContext(r.Context()),
		Locale:         middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		a.generateError(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, toArtifactResponse(record))
}

func (a *App) generateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPrompt):
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
	case errors.Is(err, domain.ErrAllProvidersExhausted):
		if a.Logger != nil {
			a.Logger.Error().
				Err(err).
				Str("request_id", middleware.RequestIDFromContext(r.Context())).
				Msg("all providers exhausted")
		}
		a.error(w, http.StatusBadGateway, "all_providers_exhausted", "no provider could fulfil the request")
	default:
		if a.Logger != nil {
			a.Logger.Error().
				Err(err).
				Str("request_id", middleware.RequestIDFromContext(r.Context())).
				Msg("generation failed")
		}
		a.error(w, http.StatusInternalServerError, "internal", "generation failed")
	}
}

// ListMedia handles GET /v1/media.
func (a *App) ListMedia(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	kind, ok := parseKindFilter(r.URL.Query().Get("kind"))
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "kind must be image or video")
		return
	}
	limit := queryInt(r, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := queryInt(r, "offset", 0)

	records, total, err := a.Repo.ListByUser(r.Context(), userID, kind, limit, offset)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list media")
		return
	}
	items := make([]artifactResponse, 0, len(records))
	for i := range records {
		items = append(items, toArtifactResponse(&records[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

// DeleteMedia handles DELETE /v1/media/{id}.
func (a *App) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	if err := a.Repo.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "media not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to delete media")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportMedia handles GET /v1/media/export: a zip archive of the requester's
// most recent artifacts. Items whose bytes cannot be fetched are skipped so a
// single missing object does not sink the whole archive.
func (a *App) ExportMedia(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	kind, ok := parseKindFilter(r.URL.Query().Get("kind"))
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "kind must be image or video")
		return
	}
	limit := queryInt(r, "limit", 10)
	if limit > maxExportItems {
		limit = maxExportItems
	}

	records, _, err := a.Repo.ListByUser(r.Context(), userID, kind, limit, 0)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list media")
		return
	}
	var assets []zip.Asset
	for i := range records {
		rec := &records[i]
		data, contentType, err := a.Store.Get(r.Context(), rec.URL)
		if err != nil {
			if a.Logger != nil {
				a.Logger.Warn().Err(err).Str("media_id", rec.ID).Msg("export skipped unreadable artifact")
			}
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: exportFilename(rec, contentType),
			MIME:     contentType,
			Data:     data,
		})
	}
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no exportable media")
		return
	}

	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="media-export.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func exportFilename(rec *domain.ArtifactRecord, contentType string) string {
	ext := storage.ExtensionForMIME(contentType)
	if ext == ".bin" {
		if urlExt := path.Ext(rec.URL); urlExt != "" {
			ext = urlExt
		}
	}
	return fmt.Sprintf("%s-%s%s", rec.Kind, rec.ID, ext)
}

func parseKindFilter(raw string) (domain.MediaKind, bool) {
	switch raw {
	case "":
		return "", true
	case "image":
		return domain.MediaKindImage, true
	case "video":
		return domain.MediaKindVideo, true
	default:
		return "", false
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
