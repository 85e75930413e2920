package mediagen

import (
	"context"
	"errors"
	"fmt"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers"
)

// Chain tries providers in strict priority order until one produces an
// artifact. Retryable failures always advance to the next provider; fatal
// failures advance too unless FatalAdvances is disabled, in which case they
// abort the chain immediately.
type Chain struct {
	Adapters []providers.Adapter
	Poller   *Poller
	Logger   *infra.Logger
	// FatalAdvances keeps the chain moving past fatal classification. Enabled
	// by default: a request one vendor rejects as malformed may still be
	// accepted by the next.
	FatalAdvances bool
}

// NewChain builds a chain with fatal-advances enabled.
func NewChain(adapters []providers.Adapter, poller *Poller, logger *infra.Logger) *Chain {
	return &Chain{Adapters: adapters, Poller: poller, Logger: logger, FatalAdvances: true}
}

// Generate runs the request down the chain and returns the first artifact.
// When every provider fails, the returned error wraps
// domain.ErrAllProvidersExhausted together with each per-provider failure.
func (c *Chain) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedArtifact, error) {
	if len(c.Adapters) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", domain.ErrAllProvidersExhausted)
	}

	var failures []error
	for _, adapter := range c.Adapters {
		desc := adapter.Descriptor()

		attempt := req
		if attempt.Reference.HasPayload() && !desc.SupportsReference {
			// Degrade rather than skip: the provider still sees the full
			// prompt, just without the attached media.
			attempt.Reference = nil
			if c.Logger != nil {
				c.Logger.Info().
					Str("provider", desc.Name).
					Str("request_id", req.RequestID).
					Msg("provider does not accept reference media, submitting prompt only")
			}
		}

		artifact, err := c.attempt(ctx, adapter, attempt)
		if err == nil {
			return artifact, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		outcome := providers.Classify(err)
		failures = append(failures, fmt.Errorf("%s: %w", desc.Name, err))
		if c.Logger != nil {
			c.Logger.Warn().
				Err(err).
				Str("provider", desc.Name).
				Str("request_id", req.RequestID).
				Bool("retryable", outcome == providers.OutcomeRetryable).
				Msg("provider attempt failed")
		}
		if outcome == providers.OutcomeFatal && !c.FatalAdvances {
			return nil, fmt.Errorf("%s: %w", desc.Name, err)
		}
	}

	return nil, fmt.Errorf("%w: %w", domain.ErrAllProvidersExhausted, errors.Join(failures...))
}

func (c *Chain) attempt(ctx context.Context, adapter providers.Adapter, req domain.GenerationRequest) (*domain.GeneratedArtifact, error) {
	result, err := adapter.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	if result.Artifact != nil {
		return result.Artifact, nil
	}
	if result.Operation == nil {
		return nil, fmt.Errorf("submit returned neither artifact nor operation")
	}
	if c.Poller == nil {
		return nil, fmt.Errorf("async operation returned but no poller configured")
	}
	return c.Poller.Await(ctx, adapter, result.Operation, req.Kind)
}
