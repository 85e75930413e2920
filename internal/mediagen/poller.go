package mediagen

import (
	"context"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers"
)

// ErrPollBudgetExhausted marks a job that never reached a terminal state
// within its attempt budget. The fallback chain treats it as retryable.
type ErrPollBudgetExhausted struct {
	Provider string
	Attempts int
}

func (e *ErrPollBudgetExhausted) Error() string {
	return fmt.Sprintf("%s: job timed out after %d poll attempts", e.Provider, e.Attempts)
}

// Poller drives asynchronous provider operations to a terminal state with a
// fixed interval and a per-kind attempt budget.
type Poller struct {
	Interval    time.Duration
	ImageBudget int
	VideoBudget int
	Logger      *infra.Logger
}

// NewPoller applies the standard budgets: one-second interval, 30 attempts
// for images, 120 for videos.
func NewPoller(cfg infra.PollConfig, logger *infra.Logger) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	imageBudget := cfg.ImageBudget
	if imageBudget <= 0 {
		imageBudget = 30
	}
	videoBudget := cfg.VideoBudget
	if videoBudget <= 0 {
		videoBudget = 120
	}
	return &Poller{Interval: interval, ImageBudget: imageBudget, VideoBudget: videoBudget, Logger: logger}
}

func (p *Poller) budgetFor(kind domain.MediaKind) int {
	if kind == domain.MediaKindVideo {
		return p.VideoBudget
	}
	return p.ImageBudget
}

// Await polls the operation until it is terminal or the budget runs out. Every
// poll attempt counts against the budget, including ones that error at the
// transport level; a transport error does not abort the loop because the next
// tick may succeed.
func (p *Poller) Await(ctx context.Context, adapter providers.Adapter, op *providers.Operation, kind domain.MediaKind) (*domain.GeneratedArtifact, error) {
	desc := adapter.Descriptor()
	budget := p.budgetFor(kind)
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	var lastErr error
	for op.Polls < budget {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		op.Polls++

		result, err := adapter.Poll(ctx, op)
		if err != nil {
			lastErr = err
			if p.Logger != nil {
				p.Logger.Warn().
					Err(err).
					Str("provider", desc.Name).
					Str("operation", op.Handle).
					Int("attempt", op.Polls).
					Msg("poll attempt failed")
			}
			continue
		}
		if !result.Done {
			continue
		}
		if result.Err != nil {
			return nil, result.Err
		}
		if result.Artifact == nil {
			return nil, fmt.Errorf("%s: operation completed without artifact", desc.Name)
		}
		if p.Logger != nil {
			p.Logger.Info().
				Str("provider", desc.Name).
				Str("operation", op.Handle).
				Int("attempts", op.Polls).
				Dur("elapsed", time.Since(op.StartedAt)).
				Msg("async job completed")
		}
		return result.Artifact, nil
	}

	if p.Logger != nil {
		p.Logger.Warn().
			Str("provider", desc.Name).
			Str("operation", op.Handle).
			Int("attempts", op.Polls).
			AnErr("last_error", lastErr).
			Msg("poll budget exhausted")
	}
	return nil, &ErrPollBudgetExhausted{Provider: desc.Name, Attempts: op.Polls}
}
