package mediagen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"server/internal/domain"
	"server/internal/providers"
)

type fakeAdapter struct {
	desc       providers.Descriptor
	submitErr  error
	artifact   *domain.GeneratedArtifact
	operation  *providers.Operation
	pollQueue  []providers.PollResult
	pollErr    error
	submits    int
	polls      int
	lastSubmit domain.GenerationRequest
}

func (f *fakeAdapter) Descriptor() providers.Descriptor { return f.desc }

func (f *fakeAdapter) Submit(ctx context.Context, req domain.GenerationRequest) (*providers.SubmitResult, error) {
	f.submits++
	f.lastSubmit = req
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.operation != nil {
		return &providers.SubmitResult{Operation: f.operation}, nil
	}
	return &providers.SubmitResult{Artifact: f.artifact}, nil
}

func (f *fakeAdapter) Poll(ctx context.Context, op *providers.Operation) (*providers.PollResult, error) {
	f.polls++
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	if len(f.pollQueue) == 0 {
		return &providers.PollResult{}, nil
	}
	next := f.pollQueue[0]
	f.pollQueue = f.pollQueue[1:]
	return &next, nil
}

func imageAdapter(name string) *fakeAdapter {
	return &fakeAdapter{
		desc:     providers.Descriptor{Name: name, Kind: domain.MediaKindImage, SupportsReference: true},
		artifact: &domain.GeneratedArtifact{Provider: name, MIME: "image/png", Data: []byte{1}},
	}
}

func testPoller() *Poller {
	return &Poller{Interval: time.Millisecond, ImageBudget: 5, VideoBudget: 5}
}

func TestChainFirstProviderWins(t *testing.T) {
	first := imageAdapter("first")
	second := imageAdapter("second")
	chain := NewChain([]providers.Adapter{first, second}, testPoller(), nil)

	artifact, err := chain.Generate(context.Background(), domain.GenerationRequest{Kind: domain.MediaKindImage, Prompt: "a cat"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if artifact.Provider != "first" {
		t.Fatalf("provider = %q, want first", artifact.Provider)
	}
	if second.submits != 0 {
		t.Fatalf("second provider was tried %d times, want 0", second.submits)
	}
}

func TestChainAdvancesOnRetryable(t *testing.T) {
	first := imageAdapter("first")
	first.submitErr = &providers.StatusError{Provider: "first", Status: 429, Message: "quota exceeded"}
	second := imageAdapter("second")
	chain := NewChain([]providers.Adapter{first, second}, testPoller(), nil)

	artifact, err := chain.Generate(context.Background(), domain.GenerationRequest{Kind: domain.MediaKindImage, Prompt: "a cat"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if artifact.Provider != "second" {
		t.Fatalf("provider = %q, want second", artifact.Provider)
	}
}

func TestChainFatalAdvancesByDefault(t *testing.T) {
	first := imageAdapter("first")
	first.submitErr = &providers.StatusError{Provider: "first", Status: 400, Message: "unsupported parameter"}
	second := imageAdapter("second")
	chain := NewChain([]providers.Adapter{first, second}, testPoller(), nil)

	artifact, err := chain.Generate(context.Background(), domain.GenerationRequest{Kind: domain.MediaKindImage, Prompt: "a cat"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if artifact.Provider != "second" {
		t.Fatalf("provider = %q, want second", artifact.Provider)
	}
}

func TestChainFatalAbortsWhenDisabled(t *testing.T) {
	first := imageAdapter("first")
	first.submitErr = &providers.StatusError{Provider: "first", Status: 400, Message: "unsupported parameter"}
	second := imageAdapter("second")
	chain := NewChain([]providers.Adapter{first, second}, testPoller(), nil)
	chain.FatalAdvances = false

	_, err := chain.Generate(context.Background(), domain.GenerationRequest{Kind: domain.MediaKindImage, Prompt: "a cat"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if second.submits != 0 {
		t.Fatalf("second provider was tried after fatal abort")
	}
}

func TestChainExhaustion(t *testing.T) {
	first := imageAdapter("first")
	first.submitErr = errors.New("rate limit hit")
	second := imageAdapter("second")
	second.submitErr = errors.New("service unavailable")
	chain := NewChain([]providers.Adapter{first, second}, testPoller(), nil)

	_, err := chain.Generate(context.Background(), domain.GenerationRequest{Kind: domain.MediaKindImage, Prompt: "a cat"})
	if !errors.Is(err, domain.ErrAllProvidersExhausted) {
		t.Fatalf("err = %v, want ErrAllProvidersExhausted", err)
	}
	for _, fragment := range []string{"first", "second"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("error %q does not mention %s", err.Error(), fragment)
		}
	}
}

func TestChainStripsReferenceForUnsupportingProvider(t *testing.T) {
	first := imageAdapter("first")
	first.desc.SupportsReference = false
	first.submitErr = errors.New("quota exceeded")
	second := imageAdapter("second")
	chain := NewChain([]providers.Adapter{first, second}, testPoller(), nil)

	ref := &domain.ReferenceInput{Data: []byte{1, 2, 3}, MIME: "image/png"}
	_, err := chain.Generate(context.Background(), domain.GenerationRequest{
		Kind:      domain.MediaKindImage,
		Prompt:    "a cat",
		Reference: ref,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if first.lastSubmit.Reference != nil {
		t.Fatalf("unsupporting provider received reference input")
	}
	if second.lastSubmit.Reference == nil {
		t.Fatalf("supporting provider lost the reference input")
	}
}

func TestChainAsyncProvider(t *testing.T) {
	async := &fakeAdapter{
		desc:      providers.Descriptor{Name: "async", Kind: domain.MediaKindVideo, Async: true},
		operation: &providers.Operation{Handle: "operations/abc", StartedAt: time.Now()},
		pollQueue: []providers.PollResult{
			{},
			{Done: true, Artifact: &domain.GeneratedArtifact{Provider: "async", URL: "https://example.com/v.mp4"}},
		},
	}
	chain := NewChain([]providers.Adapter{async}, testPoller(), nil)

	artifact, err := chain.Generate(context.Background(), domain.GenerationRequest{Kind: domain.MediaKindVideo, Prompt: "a wave"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if artifact.URL != "https://example.com/v.mp4" {
		t.Fatalf("url = %q", artifact.URL)
	}
	if async.polls != 2 {
		t.Fatalf("polls = %d, want 2", async.polls)
	}
}
