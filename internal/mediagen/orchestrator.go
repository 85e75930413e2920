package mediagen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers"
)

// Orchestrator runs the full generation pipeline: resolve reference input,
// walk the provider chain, rehydrate the result into durable storage, and
// append the artifact to the user's history.
type Orchestrator struct {
	Resolver   *Resolver
	ImageChain *Chain
	VideoChain *Chain
	Rehydrator *Rehydrator
	Repo       domain.MediaRepository
	Logger     *infra.Logger
}

// Generate produces one artifact for the request. History persistence is best
// effort: once a provider has produced media the user gets it back even if the
// bookkeeping write fails.
func (o *Orchestrator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.ArtifactRecord, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, domain.ErrInvalidPrompt
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	chain, err := o.chainFor(req.Kind)
	if err != nil {
		return nil, err
	}

	if req.Reference == nil && o.Resolver != nil {
		ref, err := o.Resolver.Resolve(ctx, req)
		if err != nil {
			return nil, err
		}
		req.Reference = ref
	}

	started := time.Now()
	artifact, err := chain.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	if o.Rehydrator != nil {
		o.Rehydrator.Rehydrate(ctx, req.UserID, artifact, o.authorizerFor(artifact.Provider))
	}

	record := recordFor(req, artifact)
	if o.Repo != nil {
		if err := o.Repo.Append(ctx, record); err != nil {
			// The media exists and the URL works; losing the history row only
			// costs future reference resolution for this artifact.
			if o.Logger != nil {
				o.Logger.Warn().
					Err(err).
					Str("user_id", req.UserID).
					Str("request_id", req.RequestID).
					Msg("artifact history write failed")
			}
		}
	}

	if o.Logger != nil {
		o.Logger.Info().
			Str("user_id", req.UserID).
			Str("request_id", req.RequestID).
			Str("kind", string(req.Kind)).
			Str("provider", artifact.Provider).
			Bool("referenced", req.Reference.HasPayload()).
			Dur("elapsed", time.Since(started)).
			Msg("generation completed")
	}
	return record, nil
}

func (o *Orchestrator) chainFor(kind domain.MediaKind) (*Chain, error) {
	switch kind {
	case domain.MediaKindImage:
		if o.ImageChain != nil {
			return o.ImageChain, nil
		}
	case domain.MediaKindVideo:
		if o.VideoChain != nil {
			return o.VideoChain, nil
		}
	default:
		return nil, fmt.Errorf("unsupported media kind %q", kind)
	}
	return nil, fmt.Errorf("%w: no chain configured for %s", domain.ErrAllProvidersExhausted, kind)
}

// authorizerFor finds the adapter that produced the artifact, when it signs
// its download URLs.
func (o *Orchestrator) authorizerFor(provider string) providers.URLAuthorizer {
	for _, chain := range []*Chain{o.ImageChain, o.VideoChain} {
		if chain == nil {
			continue
		}
		for _, adapter := range chain.Adapters {
			if adapter.Descriptor().Name != provider {
				continue
			}
			if authorizer, ok := adapter.(providers.URLAuthorizer); ok {
				return authorizer
			}
			return nil
		}
	}
	return nil
}

func recordFor(req domain.GenerationRequest, artifact *domain.GeneratedArtifact) *domain.ArtifactRecord {
	metadata := map[string]string{}
	if artifact.FileHandle != "" {
		metadata[metaFileHandle] = artifact.FileHandle
	}
	width, height := artifact.Width, artifact.Height
	if width == 0 || height == 0 {
		if req.Kind == domain.MediaKindVideo {
			width, height = providers.VideoDimensions(req.AspectRatio)
		} else {
			width, height = providers.AspectDimensions(req.AspectRatio)
		}
	}
	duration := artifact.Duration
	if duration == 0 {
		duration = req.Duration
	}
	return &domain.ArtifactRecord{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		Kind:           req.Kind,
		URL:            artifact.URL,
		Provider:       artifact.Provider,
		Prompt:         req.Prompt,
		AspectRatio:    req.AspectRatio,
		Width:          width,
		Height:         height,
		Duration:       duration,
		ConversationID: req.ConversationID,
		Metadata:       metadata,
		CreatedAt:      time.Now().UTC(),
	}
}
