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

// VeoVideoOptions configures the Veo adapter.
type VeoVideoOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// VeoVideo drives video generation through the Gemini Veo long-running
// operation API. Submit returns an operation handle; the poll loop drives it
// to a terminal state. Reference video is supplied as a provider-side file
// handle obtained via StageFile.
type VeoVideo struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

type veoInstance struct {
	Prompt string        `json:"prompt"`
	Image  *veoInlineRef `json:"image,omitempty"`
	Video  *veoFileRef   `json:"video,omitempty"`
}

type veoInlineRef struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type veoFileRef struct {
	FileURI  string `json:"fileUri"`
	MimeType string `json:"mimeType,omitempty"`
}

type veoParameters struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

type veoSubmitRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type veoOperationResponse struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code,omitempty"`
		Status  string `json:"status,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

type veoFileUploadResponse struct {
	File struct {
		Name string `json:"name"`
		URI  string `json:"uri"`
	} `json:"file"`
}

// NewVeoVideo constructs the adapter with sane defaults.
func NewVeoVideo(opts VeoVideoOptions) *VeoVideo {
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
		model = "veo-3.1-generate-preview"
	}
	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &VeoVideo{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}
}

func (v *VeoVideo) Descriptor() Descriptor {
	return Descriptor{Name: "veo", Kind: domain.MediaKindVideo, SupportsReference: true, Async: true}
}

// Submit starts a long-running generation and returns the operation handle.
func (v *VeoVideo) Submit(ctx context.Context, req domain.GenerationRequest) (*SubmitResult, error) {
	instance := veoInstance{Prompt: strings.TrimSpace(req.Prompt)}
	if req.Reference.HasPayload() {
		switch {
		case req.Reference.FileHandle != "":
			instance.Video = &veoFileRef{FileURI: req.Reference.FileHandle, MimeType: req.Reference.MIME}
		case strings.HasPrefix(req.Reference.MIME, "image/"):
			instance.Image = &veoInlineRef{
				BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.Reference.Data),
				MimeType:           req.Reference.MIME,
			}
		}
	}
	payload := veoSubmitRequest{
		Instances:  []veoInstance{instance},
		Parameters: veoParameters{AspectRatio: req.AspectRatio, DurationSeconds: req.Duration},
	}

	var decoded veoOperationResponse
	path := fmt.Sprintf("/models/%s:predictLongRunning", url.PathEscape(v.model))
	if err := v.invoke(ctx, http.MethodPost, v.baseURL+path, payload, &decoded); err != nil {
		return nil, err
	}
	if decoded.Name == "" {
		return nil, fmt.Errorf("veo: no operation name returned")
	}
	v.logger.Debug().
		Str("request_id", req.RequestID).
		Str("operation", decoded.Name).
		Msg("veo: submitted generation")
	return &SubmitResult{Operation: &Operation{Handle: decoded.Name, StartedAt: time.Now()}}, nil
}

// Poll checks the operation once and reports its state.
func (v *VeoVideo) Poll(ctx context.Context, op *Operation) (*PollResult, error) {
	var decoded veoOperationResponse
	endpoint := v.baseURL + "/" + strings.TrimLeft(op.Handle, "/")
	if err := v.invoke(ctx, http.MethodGet, endpoint, nil, &decoded); err != nil {
		return nil, err
	}
	if !decoded.Done {
		return &PollResult{}, nil
	}
	if decoded.Error != nil {
		return &PollResult{Done: true, Err: &StatusError{
			Provider: "veo",
			Status:   veoErrorStatus(decoded.Error.Code, decoded.Error.Status),
			Message:  decoded.Error.Message,
		}}, nil
	}
	if decoded.Response == nil || len(decoded.Response.GenerateVideoResponse.GeneratedSamples) == 0 {
		return &PollResult{Done: true, Err: fmt.Errorf("veo: operation finished without video")}, nil
	}
	uri := decoded.Response.GenerateVideoResponse.GeneratedSamples[0].Video.URI
	if uri == "" {
		return &PollResult{Done: true, Err: fmt.Errorf("veo: operation finished without video uri")}, nil
	}
	// The result URI doubles as a files-API handle, so later edit requests
	// can reference this video without re-uploading it.
	return &PollResult{Done: true, Artifact: &domain.GeneratedArtifact{
		URL:        uri,
		MIME:       "video/mp4",
		Provider:   "veo",
		FileHandle: uri,
	}}, nil
}

// veoErrorStatus translates the google.rpc code carried by a failed operation
// into the HTTP status the outcome classifier keys on. Quota and transient
// codes land in the retryable bucket; everything else reads as a rejected
// request.
func veoErrorStatus(code int, status string) int {
	switch code {
	case 4: // DEADLINE_EXCEEDED
		return http.StatusGatewayTimeout
	case 8: // RESOURCE_EXHAUSTED
		return http.StatusTooManyRequests
	case 13: // INTERNAL
		return http.StatusInternalServerError
	case 14: // UNAVAILABLE
		return http.StatusServiceUnavailable
	}
	switch status {
	case "DEADLINE_EXCEEDED":
		return http.StatusGatewayTimeout
	case "RESOURCE_EXHAUSTED":
		return http.StatusTooManyRequests
	case "INTERNAL":
		return http.StatusInternalServerError
	case "UNAVAILABLE":
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

// StageFile uploads reference media to the provider's file endpoint and
// returns the opaque file handle for reuse in later edit requests.
func (v *VeoVideo) StageFile(ctx context.Context, data []byte, mime string) (string, error) {
	endpoint := strings.TrimSuffix(v.baseURL, "/v1beta") + "/upload/v1beta/files"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("veo: build upload request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", v.apiKey)
	httpReq.Header.Set("X-Goog-Upload-Protocol", "raw")
	httpReq.Header.Set("Content-Type", mime)

	resp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("veo: upload file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(resp.Body)
		return "", &StatusError{Provider: "veo", Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	var decoded veoFileUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("veo: decode upload response: %w", err)
	}
	if decoded.File.URI == "" {
		return "", fmt.Errorf("veo: upload returned no file uri")
	}
	return decoded.File.URI, nil
}

// AuthorizeDownload attaches the API key header required to fetch result
// URIs. The key lives in a header so it never lands in logs or redirects.
func (v *VeoVideo) AuthorizeDownload(req *http.Request) {
	req.Header.Set("x-goog-api-key", v.apiKey)
}

func (v *VeoVideo) invoke(ctx context.Context, method, endpoint string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("veo: marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("veo: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", v.apiKey)

	resp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("veo: invoke: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return &StatusError{Provider: "veo", Status: resp.StatusCode, Message: apiErr.Error.Message}
		}
		raw, _ := io.ReadAll(resp.Body)
		return &StatusError{Provider: "veo", Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("veo: decode response: %w", err)
	}
	return nil
}

var (
	_ Adapter       = (*VeoVideo)(nil)
	_ FileStager    = (*VeoVideo)(nil)
	_ URLAuthorizer = (*VeoVideo)(nil)
)
