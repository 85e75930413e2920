package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"server/internal/domain"
)

func TestOpenAIImageSubmitURLResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization = %q", got)
		}
		var req openAIImageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Size != "1792x1024" {
			t.Errorf("size = %q, want 1792x1024 for 16:9", req.Size)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"url": "https://oai.test/img.png"}},
		})
	}))
	defer srv.Close()

	adapter := NewOpenAIImage(OpenAIImageOptions{APIKey: "sk-test", BaseURL: srv.URL})
	result, err := adapter.Submit(context.Background(), domain.GenerationRequest{
		Prompt: "a red bicycle", Kind: domain.MediaKindImage, AspectRatio: "16:9",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// Hosted URLs are left for the rehydrator to persist.
	if result.Artifact.URL != "https://oai.test/img.png" || result.Artifact.Data != nil {
		t.Fatalf("artifact = %+v", result.Artifact)
	}
	if result.Artifact.Width != 1792 || result.Artifact.Height != 1024 {
		t.Fatalf("dims = %dx%d", result.Artifact.Width, result.Artifact.Height)
	}
}

func TestOpenAIImageErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "content policy violation", "type": "invalid_request_error"},
		})
	}))
	defer srv.Close()

	adapter := NewOpenAIImage(OpenAIImageOptions{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := adapter.Submit(context.Background(), domain.GenerationRequest{Prompt: "x", Kind: domain.MediaKindImage})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if statusErr.Message != "content policy violation" {
		t.Fatalf("message = %q", statusErr.Message)
	}
	if Classify(err) != OutcomeFatal {
		t.Fatalf("policy rejection should classify fatal")
	}
}
