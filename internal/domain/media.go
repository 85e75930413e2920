package domain

import "time"

// MediaKind enumerates the media pipelines the service runs.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// ReferenceInput carries prior media fed back into generation so the provider
// edits existing content instead of creating from scratch. Either inline bytes
// or a provider-side file handle is set, never both.
type ReferenceInput struct {
	Data       []byte
	MIME       string
	FileHandle string
	Prompt     string
}

// HasPayload reports whether the reference actually carries usable input.
func (r *ReferenceInput) HasPayload() bool {
	return r != nil && (len(r.Data) > 0 || r.FileHandle != "")
}

// GenerationRequest is the normalized, pre-validated request handed to the
// orchestrator. It is immutable for the duration of a generation.
type GenerationRequest struct {
	Prompt         string
	Kind           MediaKind
	AspectRatio    string
	Duration       int
	UserID         string
	ConversationID string
	RequestID      string
	Locale         string
	Reference      *ReferenceInput
}

// GeneratedArtifact is a provider result before and after rehydration. Data is
// set when the provider returned inline bytes; URL otherwise. After the
// rehydrator runs, URL is always durable.
type GeneratedArtifact struct {
	Data       []byte
	URL        string
	MIME       string
	Width      int
	Height     int
	Duration   int
	Provider   string
	Prompt     string
	FileHandle string
}

// ArtifactRecord is the durable history row for one generated artifact.
type ArtifactRecord struct {
	ID             string
	UserID         string
	Kind           MediaKind
	URL            string
	Provider       string
	Prompt         string
	AspectRatio    string
	Width          int
	Height         int
	Duration       int
	ConversationID string
	Metadata       map[string]string
	CreatedAt      time.Time
}
