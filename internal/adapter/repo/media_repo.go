package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// MediaRepositoryPG implements domain.MediaRepository using PostgreSQL.
type MediaRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewMediaRepository constructs a new media repository instance.
func NewMediaRepository(pool *pgxpool.Pool) *MediaRepositoryPG {
	return &MediaRepositoryPG{pool: pool}
}

const artifactColumns = `id, user_id, kind, url, provider, prompt, aspect_ratio, width, height, duration, conversation_id, metadata, created_at`

// Append persists one artifact history row.
func (r *MediaRepositoryPG) Append(ctx context.Context, rec *domain.ArtifactRecord) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO media_artifacts (id, user_id, kind, url, provider, prompt, aspect_ratio, width, height, duration, conversation_id, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
`, rec.ID, rec.UserID, rec.Kind, rec.URL, rec.Provider, rec.Prompt, rec.AspectRatio, rec.Width, rec.Height, rec.Duration, rec.ConversationID, rec.Metadata, rec.CreatedAt)
	return err
}

// FindLatest returns the user's most recent artifact of the kind. A record
// scoped to the conversation wins over older history; without a match the
// lookup widens to the user's full history.
func (r *MediaRepositoryPG) FindLatest(ctx context.Context, userID string, kind domain.MediaKind, conversationID string) (*domain.ArtifactRecord, error) {
	if conversationID != "" {
		rec, err := r.queryOne(ctx, `
SELECT `+artifactColumns+`
FROM media_artifacts
WHERE user_id = $1 AND kind = $2 AND conversation_id = $3
ORDER BY created_at DESC
LIMIT 1;
`, userID, kind, conversationID)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return r.queryOne(ctx, `
SELECT `+artifactColumns+`
FROM media_artifacts
WHERE user_id = $1 AND kind = $2
ORDER BY created_at DESC
LIMIT 1;
`, userID, kind)
}

// ListByUser returns a page of the user's artifacts, newest first, along with
// the total count for pagination.
func (r *MediaRepositoryPG) ListByUser(ctx context.Context, userID string, kind domain.MediaKind, limit, offset int) ([]domain.ArtifactRecord, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM media_artifacts
WHERE user_id = $1 AND ($2 = '' OR kind = $2);
`, userID, kind).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+artifactColumns+`
FROM media_artifacts
WHERE user_id = $1 AND ($2 = '' OR kind = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4;
`, userID, kind, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []domain.ArtifactRecord
	for rows.Next() {
		rec, err := scanArtifact(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Delete removes one artifact row, scoped to its owner.
func (r *MediaRepositoryPG) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx, `
DELETE FROM media_artifacts
WHERE id = $1 AND user_id = $2;
`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MediaRepositoryPG) queryOne(ctx context.Context, query string, args ...any) (*domain.ArtifactRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotFound
	}
	return scanArtifact(rows)
}

func scanArtifact(row pgx.Row) (*domain.ArtifactRecord, error) {
	var rec domain.ArtifactRecord
	if err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Kind, &rec.URL, &rec.Provider, &rec.Prompt,
		&rec.AspectRatio, &rec.Width, &rec.Height, &rec.Duration,
		&rec.ConversationID, &rec.Metadata, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	if rec.Metadata == nil {
		rec.Metadata = map[string]string{}
	}
	return &rec, nil
}
