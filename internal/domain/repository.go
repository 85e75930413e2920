package domain

import "context"

// MediaRepository persists and recalls artifact history records. The store is
// external; the core only appends and reads.
type MediaRepository interface {
	Append(ctx context.Context, rec *ArtifactRecord) error
	// FindLatest returns the most recent artifact of the given kind for the
	// user. When conversationID is non-empty, a record scoped to that
	// conversation is preferred before falling back to the user's full history.
	FindLatest(ctx context.Context, userID string, kind MediaKind, conversationID string) (*ArtifactRecord, error)
	ListByUser(ctx context.Context, userID string, kind MediaKind, limit, offset int) ([]ArtifactRecord, int, error)
	Delete(ctx context.Context, id, userID string) error
}
