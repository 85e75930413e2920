package mediagen

import (
	"context"
	"errors"
	"testing"
	"time"

	"server/internal/domain"
	"server/internal/providers"
)

func TestPollerCompletes(t *testing.T) {
	adapter := &fakeAdapter{
		desc: providers.Descriptor{Name: "veo", Kind: domain.MediaKindVideo, Async: true},
		pollQueue: []providers.PollResult{
			{},
			{},
			{Done: true, Artifact: &domain.GeneratedArtifact{Provider: "veo", URL: "u"}},
		},
	}
	poller := &Poller{Interval: time.Millisecond, ImageBudget: 10, VideoBudget: 10}
	op := &providers.Operation{Handle: "operations/x", StartedAt: time.Now()}

	artifact, err := poller.Await(context.Background(), adapter, op, domain.MediaKindVideo)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if artifact.URL != "u" {
		t.Fatalf("url = %q", artifact.URL)
	}
	if op.Polls != 3 {
		t.Fatalf("polls = %d, want 3", op.Polls)
	}
}

func TestPollerBudgetExhausted(t *testing.T) {
	adapter := &fakeAdapter{
		desc: providers.Descriptor{Name: "veo", Kind: domain.MediaKindVideo, Async: true},
	}
	poller := &Poller{Interval: time.Millisecond, ImageBudget: 2, VideoBudget: 4}
	op := &providers.Operation{Handle: "operations/x", StartedAt: time.Now()}

	_, err := poller.Await(context.Background(), adapter, op, domain.MediaKindVideo)
	var exhausted *ErrPollBudgetExhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want ErrPollBudgetExhausted", err)
	}
	if exhausted.Attempts != 4 {
		t.Fatalf("attempts = %d, want video budget 4", exhausted.Attempts)
	}
	if providers.Classify(err) != providers.OutcomeRetryable {
		t.Fatalf("poll timeout should classify as retryable")
	}
}

func TestPollerImageBudgetApplies(t *testing.T) {
	adapter := &fakeAdapter{
		desc: providers.Descriptor{Name: "veo", Kind: domain.MediaKindImage, Async: true},
	}
	poller := &Poller{Interval: time.Millisecond, ImageBudget: 2, VideoBudget: 10}
	op := &providers.Operation{Handle: "operations/x", StartedAt: time.Now()}

	_, err := poller.Await(context.Background(), adapter, op, domain.MediaKindImage)
	var exhausted *ErrPollBudgetExhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want ErrPollBudgetExhausted", err)
	}
	if exhausted.Attempts != 2 {
		t.Fatalf("attempts = %d, want image budget 2", exhausted.Attempts)
	}
}

func TestPollerTerminalFailure(t *testing.T) {
	adapter := &fakeAdapter{
		desc: providers.Descriptor{Name: "veo", Kind: domain.MediaKindVideo, Async: true},
		pollQueue: []providers.PollResult{
			{Done: true, Err: errors.New("safety rejection")},
		},
	}
	poller := &Poller{Interval: time.Millisecond, ImageBudget: 5, VideoBudget: 5}
	op := &providers.Operation{Handle: "operations/x", StartedAt: time.Now()}

	_, err := poller.Await(context.Background(), adapter, op, domain.MediaKindVideo)
	if err == nil || err.Error() != "safety rejection" {
		t.Fatalf("err = %v, want terminal provider failure", err)
	}
	if adapter.polls != 1 {
		t.Fatalf("polls = %d, want 1 after terminal failure", adapter.polls)
	}
}

func TestPollerTransportErrorsDoNotAbort(t *testing.T) {
	adapter := &fakeAdapter{
		desc:    providers.Descriptor{Name: "veo", Kind: domain.MediaKindVideo, Async: true},
		pollErr: errors.New("connection reset"),
	}
	poller := &Poller{Interval: time.Millisecond, ImageBudget: 3, VideoBudget: 3}
	op := &providers.Operation{Handle: "operations/x", StartedAt: time.Now()}

	_, err := poller.Await(context.Background(), adapter, op, domain.MediaKindVideo)
	var exhausted *ErrPollBudgetExhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want budget exhaustion after repeated transport errors", err)
	}
	if adapter.polls != 3 {
		t.Fatalf("polls = %d, want full budget consumed", adapter.polls)
	}
}

func TestPollerContextCancellation(t *testing.T) {
	adapter := &fakeAdapter{
		desc: providers.Descriptor{Name: "veo", Kind: domain.MediaKindVideo, Async: true},
	}
	poller := &Poller{Interval: time.Hour, ImageBudget: 5, VideoBudget: 5}
	op := &providers.Operation{Handle: "operations/x", StartedAt: time.Now()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := poller.Await(ctx, adapter, op, domain.MediaKindVideo)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
