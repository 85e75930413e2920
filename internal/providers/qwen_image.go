package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// ErrQwenMissingAPIKey indicates the adapter was configured without credentials.
var ErrQwenMissingAPIKey = errors.New("qwen: api key is required")

// QwenImageOptions configures the DashScope Qwen adapter.
type QwenImageOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// QwenImage performs HTTP calls to the DashScope Qwen text-to-image API. It
// sits last in the image chain as a capacity reserve; result URLs are signed
// OSS links that expire, so the rehydrator always runs for them.
type QwenImage struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

type qwenGenerationRequest struct {
	Model      string              `json:"model"`
	Input      qwenGenerationInput `json:"input"`
	Parameters qwenParams          `json:"parameters"`
}

type qwenGenerationInput struct {
	Messages []qwenMessage `json:"messages"`
}

type qwenMessage struct {
	Role    string        `json:"role"`
	Content []qwenContent `json:"content"`
}

type qwenContent struct {
	Text string `json:"text,omitempty"`
}

type qwenParams struct {
	Size      string `json:"size,omitempty"`
	Watermark *bool  `json:"watermark,omitempty"`
}

type qwenGenerationResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Usage struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"usage"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type qwenErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewQwenImage constructs the adapter with sane defaults.
func NewQwenImage(opts QwenImageOptions) *QwenImage {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "qwen-image-plus"
	}
	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &QwenImage{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}
}

func (q *QwenImage) Descriptor() Descriptor {
	return Descriptor{Name: "qwen", Kind: domain.MediaKindImage, SupportsReference: false, Async: false}
}

// Submit invokes the DashScope API once and returns the hosted image URL.
func (q *QwenImage) Submit(ctx context.Context, req domain.GenerationRequest) (*SubmitResult, error) {
	if q.apiKey == "" {
		return nil, ErrQwenMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("qwen: prompt is required")
	}
	watermark := false
	payload := qwenGenerationRequest{
		Model: q.model,
		Input: qwenGenerationInput{
			Messages: []qwenMessage{{
				Role:    "user",
				Content: []qwenContent{{Text: prompt}},
			}},
		},
		Parameters: qwenParams{Size: qwenSize(req.AspectRatio), Watermark: &watermark},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("qwen: encode request: %w", err)
	}
	endpoint := q.baseURL + "/services/aigc/multimodal-generation/generation"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("qwen: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+q.apiKey)

	resp, err := q.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("qwen: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("qwen: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var detail qwenErrorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			return nil, &StatusError{Provider: "qwen", Status: resp.StatusCode, Message: fmt.Sprintf("%s (%s)", detail.Message, detail.Code)}
		}
		return nil, &StatusError{Provider: "qwen", Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var decoded qwenGenerationResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("qwen: decode response: %w", err)
	}
	if decoded.Code != "" {
		return nil, fmt.Errorf("qwen: %s (%s)", decoded.Message, decoded.Code)
	}
	imageURL := firstQwenImageURL(decoded)
	if imageURL == "" {
		return nil, errors.New("qwen: empty image url")
	}
	width, height := decoded.Usage.Width, decoded.Usage.Height
	if width == 0 || height == 0 {
		width, height = AspectDimensions(req.AspectRatio)
	}
	q.logger.Debug().
		Str("model", q.model).
		Str("request_id", decoded.RequestID).
		Msg("qwen: generated image")
	return &SubmitResult{Artifact: &domain.GeneratedArtifact{
		URL:      imageURL,
		MIME:     "image/png",
		Width:    width,
		Height:   height,
		Provider: "qwen",
		Prompt:   req.Prompt,
	}}, nil
}

// Poll is never reached for this synchronous adapter.
func (q *QwenImage) Poll(ctx context.Context, op *Operation) (*PollResult, error) {
	return nil, fmt.Errorf("qwen: synchronous adapter has no operations")
}

func qwenSize(aspect string) string {
	switch strings.TrimSpace(strings.ToLower(aspect)) {
	case "16:9":
		return "1664*928"
	case "9:16":
		return "928*1664"
	case "4:3":
		return "1472*1140"
	case "3:4":
		return "1140*1472"
	default:
		return "1328*1328"
	}
}

func firstQwenImageURL(resp qwenGenerationResponse) string {
	for _, choice := range resp.Output.Choices {
		for _, content := range choice.Message.Content {
			if url := strings.TrimSpace(content.Image); url != "" {
				return url
			}
		}
	}
	return ""
}

var _ Adapter = (*QwenImage)(nil)
