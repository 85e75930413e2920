package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// GeminiImageOptions configures the Gemini image adapter.
type GeminiImageOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// GeminiImage generates images through the Gemini generateContent API. It is
// synchronous and accepts inline reference bytes, which makes it the first
// choice for edit requests.
type GeminiImage struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiGenerateRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiGenConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason,omitempty"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Status  string `json:"status,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewGeminiImage constructs the adapter with sane defaults.
func NewGeminiImage(opts GeminiImageOptions) *GeminiImage {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash-image"
	}
	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &GeminiImage{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}
}

func (g *GeminiImage) Descriptor() Descriptor {
	return Descriptor{Name: "gemini", Kind: domain.MediaKindImage, SupportsReference: true, Async: false}
}

// Submit performs one generateContent call and returns the decoded artifact.
func (g *GeminiImage) Submit(ctx context.Context, req domain.GenerationRequest) (*SubmitResult, error) {
	parts := []geminiPart{{Text: buildImagePrompt(req)}}
	if req.Reference.HasPayload() {
		if len(req.Reference.Data) > 0 {
			parts = append(parts, geminiPart{InlineData: &geminiInlineData{
				MimeType: req.Reference.MIME,
				Data:     base64.StdEncoding.EncodeToString(req.Reference.Data),
			}})
		} else if req.Reference.FileHandle != "" {
			parts = append(parts, geminiPart{FileData: &geminiFileData{
				MimeType: req.Reference.MIME,
				FileURI:  req.Reference.FileHandle,
			}})
		}
	}
	payload := geminiGenerateRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenConfig{ResponseModalities: []string{"IMAGE"}},
	}

	var response geminiGenerateResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(g.model))
	if err := g.invoke(ctx, path, payload, &response); err != nil {
		return nil, err
	}

	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("gemini: decode inline data: %w", err)
			}
			mime := part.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			width, height := DecodeImageDimensions(data)
			if width == 0 || height == 0 {
				width, height = AspectDimensions(req.AspectRatio)
			}
			g.logger.Debug().
				Str("request_id", req.RequestID).
				Str("model", g.model).
				Msg("gemini: generated image")
			return &SubmitResult{Artifact: &domain.GeneratedArtifact{
				Data:     data,
				MIME:     mime,
				Width:    width,
				Height:   height,
				Provider: "gemini",
				Prompt:   req.Prompt,
			}}, nil
		}
	}
	return nil, fmt.Errorf("gemini: no image content returned")
}

// Poll is never reached for this synchronous adapter.
func (g *GeminiImage) Poll(ctx context.Context, op *Operation) (*PollResult, error) {
	return nil, fmt.Errorf("gemini: synchronous adapter has no operations")
}

func (g *GeminiImage) invoke(ctx context.Context, path string, payload any, out any) error {
	endpoint := g.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("gemini: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gemini: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gemini: invoke: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return &StatusError{Provider: "gemini", Status: resp.StatusCode, Message: apiErr.Error.Message}
		}
		data, _ := io.ReadAll(resp.Body)
		return &StatusError{Provider: "gemini", Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gemini: decode response: %w", err)
	}
	return nil
}

func buildImagePrompt(req domain.GenerationRequest) string {
	var b strings.Builder
	prompt := strings.TrimSpace(req.Prompt)
	if prompt != "" {
		b.WriteString(prompt)
	}
	if aspect := strings.TrimSpace(req.AspectRatio); aspect != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Aspect ratio: ")
		b.WriteString(aspect)
	}
	if req.Reference.HasPayload() && strings.TrimSpace(req.Reference.Prompt) != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("The attached media was generated from: ")
		b.WriteString(strings.TrimSpace(req.Reference.Prompt))
	}
	if b.Len() == 0 {
		b.WriteString("Create an image")
	}
	return b.String()
}

var _ Adapter = (*GeminiImage)(nil)
