package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"server/internal/domain"
)

func TestGeminiImageSubmit(t *testing.T) {
	var captured geminiGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{
						"inlineData": map[string]any{
							"mimeType": "image/png",
							"data":     base64.StdEncoding.EncodeToString([]byte{1, 2, 3}),
						},
					}},
				},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	adapter := NewGeminiImage(GeminiImageOptions{APIKey: "test-key", BaseURL: srv.URL})
	result, err := adapter.Submit(context.Background(), domain.GenerationRequest{
		Prompt:      "a red bicycle",
		Kind:        domain.MediaKindImage,
		AspectRatio: "1:1",
		Reference: &domain.ReferenceInput{
			Data: []byte{9, 9},
			MIME: "image/png",
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Artifact == nil || len(result.Artifact.Data) != 3 {
		t.Fatalf("artifact = %+v", result.Artifact)
	}
	if result.Artifact.Provider != "gemini" {
		t.Fatalf("provider = %q", result.Artifact.Provider)
	}

	if len(captured.Contents) != 1 || len(captured.Contents[0].Parts) != 2 {
		t.Fatalf("request parts = %+v, want text plus inline reference", captured.Contents)
	}
	inline := captured.Contents[0].Parts[1].InlineData
	if inline == nil || inline.MimeType != "image/png" {
		t.Fatalf("inline reference = %+v", inline)
	}
}

func TestGeminiImageErrorDecodesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "status": "RESOURCE_EXHAUSTED", "message": "quota exceeded"},
		})
	}))
	defer srv.Close()

	adapter := NewGeminiImage(GeminiImageOptions{APIKey: "k", BaseURL: srv.URL})
	_, err := adapter.Submit(context.Background(), domain.GenerationRequest{Prompt: "x", Kind: domain.MediaKindImage})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if statusErr.Status != http.StatusTooManyRequests {
		t.Fatalf("status = %d", statusErr.Status)
	}
	if Classify(err) != OutcomeRetryable {
		t.Fatalf("429 should classify retryable")
	}
}

func TestGeminiImageNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	adapter := NewGeminiImage(GeminiImageOptions{APIKey: "k", BaseURL: srv.URL})
	if _, err := adapter.Submit(context.Background(), domain.GenerationRequest{Prompt: "x", Kind: domain.MediaKindImage}); err == nil {
		t.Fatalf("expected error for empty candidates")
	}
}

func TestBuildImagePrompt(t *testing.T) {
	prompt := buildImagePrompt(domain.GenerationRequest{
		Prompt:      "a red bicycle",
		AspectRatio: "16:9",
		Reference:   &domain.ReferenceInput{Data: []byte{1}, Prompt: "a blue bicycle"},
	})
	for _, want := range []string{"a red bicycle", "Aspect ratio: 16:9", "a blue bicycle"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt %q missing %q", prompt, want)
		}
	}
}
