package providers

import (
	"context"
	"net/http"
	"time"

	"server/internal/domain"
)

// Descriptor is the static configuration of one provider adapter.
type Descriptor struct {
	Name              string
	Kind              domain.MediaKind
	SupportsReference bool
	Async             bool
}

// Operation tracks one in-flight asynchronous job at a provider. It is owned
// by the poll loop that drives it and is discarded once terminal.
type Operation struct {
	Handle    string
	StartedAt time.Time
	Polls     int
}

// SubmitResult is what an adapter returns from Submit: synchronous providers
// set Artifact, asynchronous ones set Operation.
type SubmitResult struct {
	Artifact  *domain.GeneratedArtifact
	Operation *Operation
}

// PollResult reports the state of an asynchronous operation. Done with a nil
// Err means the artifact is ready; Done with a non-nil Err means the provider
// reported a terminal failure.
type PollResult struct {
	Done     bool
	Artifact *domain.GeneratedArtifact
	Err      error
}

// Adapter is the uniform contract every provider implements. Submit either
// produces an artifact directly or hands back an operation for the poller.
type Adapter interface {
	Descriptor() Descriptor
	Submit(ctx context.Context, req domain.GenerationRequest) (*SubmitResult, error)
	Poll(ctx context.Context, op *Operation) (*PollResult, error)
}

// FileStager is implemented by adapters that can host reference media on the
// provider side, returning an opaque file handle reusable across requests.
type FileStager interface {
	StageFile(ctx context.Context, data []byte, mime string) (string, error)
}

// URLAuthorizer is implemented by adapters whose result URLs require an
// authentication header on download. Keeping the key in a header rather than
// a query parameter keeps it out of logs and redirect chains.
type URLAuthorizer interface {
	AuthorizeDownload(req *http.Request)
}
