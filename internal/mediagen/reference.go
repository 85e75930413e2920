package mediagen

import (
	"context"
	"errors"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers"
	"server/internal/storage"
)

// metadata key on artifact records holding the provider-side file handle of a
// previously staged video, so later edits skip the re-upload.
const metaFileHandle = "file_handle"

// Resolver decides whether a request should carry prior media as reference
// input and, when it should, loads that media. Resolution is best effort: any
// failure degrades to a referenceless request so generation still proceeds.
type Resolver struct {
	Repo   domain.MediaRepository
	Store  storage.ObjectStore
	// Stager uploads video reference bytes to the provider side. Nil disables
	// staging, which degrades video edits to plain generation.
	Stager       providers.FileStager
	StageRetries int
	Logger       *infra.Logger
}

// Resolve inspects the prompt against the user's most recent artifact and
// returns reference input when the prompt reads as an edit. A nil return with
// nil error means the request proceeds without reference.
func (r *Resolver) Resolve(ctx context.Context, req domain.GenerationRequest) (*domain.ReferenceInput, error) {
	if r.Repo == nil {
		return nil, nil
	}
	if !IsEditRequest(req.Prompt) {
		return nil, nil
	}

	last, err := r.Repo.FindLatest(ctx, req.UserID, req.Kind, req.ConversationID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, domain.ErrNotFound) {
			r.warn(err, req, "artifact history lookup failed, generating without reference")
		}
		return nil, nil
	}
	if last == nil {
		return nil, nil
	}

	ref := &domain.ReferenceInput{Prompt: last.Prompt}

	if req.Kind == domain.MediaKindVideo {
		// A cached provider handle skips the download and re-upload entirely.
		if handle := last.Metadata[metaFileHandle]; handle != "" {
			ref.FileHandle = handle
			ref.MIME = contentTypeFor(last)
			return ref, nil
		}
	}

	if r.Store == nil {
		return nil, nil
	}
	data, contentType, err := r.Store.Get(ctx, last.URL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.warn(err, req, "reference download failed, generating without reference")
		return nil, nil
	}
	if contentType == "" {
		contentType = contentTypeFor(last)
	}

	if req.Kind == domain.MediaKindVideo {
		handle, err := r.stage(ctx, data, contentType)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.warn(err, req, "reference staging failed, generating without reference")
			return nil, nil
		}
		ref.FileHandle = handle
		ref.MIME = contentType
		return ref, nil
	}

	ref.Data = data
	ref.MIME = contentType
	return ref, nil
}

// stage uploads the bytes to the provider with one retry on failure.
func (r *Resolver) stage(ctx context.Context, data []byte, contentType string) (string, error) {
	if r.Stager == nil {
		return "", errors.New("no file stager configured")
	}
	attempts := 1 + r.StageRetries
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		handle, err := r.Stager.StageFile(ctx, data, contentType)
		if err == nil {
			return handle, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (r *Resolver) warn(err error, req domain.GenerationRequest, msg string) {
	if r.Logger == nil {
		return
	}
	r.Logger.Warn().
		Err(err).
		Str("user_id", req.UserID).
		Str("request_id", req.RequestID).
		Str("kind", string(req.Kind)).
		Msg(msg)
}

func contentTypeFor(rec *domain.ArtifactRecord) string {
	if rec.Kind == domain.MediaKindVideo {
		return "video/mp4"
	}
	return "image/png"
}
