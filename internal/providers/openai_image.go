package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// OpenAIImageOptions configures the DALL-E adapter.
type OpenAIImageOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// OpenAIImage generates images through the OpenAI images API. Results come
// back as short-lived hosted URLs, so the rehydrator always runs for them.
// Reference input is not supported; edit requests are submitted without it.
type OpenAIImage struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

type openAIImageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality,omitempty"`
	Style   string `json:"style,omitempty"`
}

type openAIImageResponse struct {
	Data []struct {
		URL     string `json:"url,omitempty"`
		B64JSON string `json:"b64_json,omitempty"`
	} `json:"data"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message,omitempty"`
		Type    string `json:"type,omitempty"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

// NewOpenAIImage constructs the adapter with sane defaults.
func NewOpenAIImage(opts OpenAIImageOptions) *OpenAIImage {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := opts.Model
	if model == "" {
		model = "dall-e-3"
	}
	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &OpenAIImage{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}
}

func (o *OpenAIImage) Descriptor() Descriptor {
	return Descriptor{Name: "openai", Kind: domain.MediaKindImage, SupportsReference: false, Async: false}
}

// Submit performs one images/generations call.
func (o *OpenAIImage) Submit(ctx context.Context, req domain.GenerationRequest) (*SubmitResult, error) {
	size, width, height := openAISize(req.AspectRatio)
	payload := openAIImageRequest{
		Model:   o.model,
		Prompt:  strings.TrimSpace(req.Prompt),
		N:       1,
		Size:    size,
		Quality: "hd",
		Style:   "vivid",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: invoke: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr openAIErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, &StatusError{Provider: "openai", Status: resp.StatusCode, Message: apiErr.Error.Message}
		}
		data, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{Provider: "openai", Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	var decoded openAIImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(decoded.Data) == 0 {
		return nil, fmt.Errorf("openai: empty image response")
	}

	artifact := &domain.GeneratedArtifact{
		MIME:     "image/png",
		Width:    width,
		Height:   height,
		Provider: "openai",
		Prompt:   req.Prompt,
	}
	first := decoded.Data[0]
	switch {
	case first.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(first.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("openai: decode image data: %w", err)
		}
		artifact.Data = data
		if w, h := DecodeImageDimensions(data); w > 0 && h > 0 {
			artifact.Width, artifact.Height = w, h
		}
	case first.URL != "":
		artifact.URL = first.URL
	default:
		return nil, fmt.Errorf("openai: image response has neither url nor data")
	}

	o.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", o.model).
		Msg("openai: generated image")
	return &SubmitResult{Artifact: artifact}, nil
}

// Poll is never reached for this synchronous adapter.
func (o *OpenAIImage) Poll(ctx context.Context, op *Operation) (*PollResult, error) {
	return nil, fmt.Errorf("openai: synchronous adapter has no operations")
}

// openAISize maps an aspect ratio onto a supported DALL-E size.
func openAISize(aspect string) (string, int, int) {
	switch strings.TrimSpace(strings.ToLower(aspect)) {
	case "16:9", "4:3":
		return "1792x1024", 1792, 1024
	case "9:16", "3:4":
		return "1024x1792", 1024, 1792
	default:
		return "1024x1024", 1024, 1024
	}
}

var _ Adapter = (*OpenAIImage)(nil)
