package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

const artifactColumns = "token_id, blob_key, content_type, size_bytes, sha256, generated_at"

// UpsertArtifact records artifact metadata for an APPROVED, unexpired token,
// replacing any previous row. It reports false when the header no longer
// qualifies at now.
func (s *Store) UpsertArtifact(ctx context.Context, artifact workflow.Artifact, now time.Time) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`INSERT INTO artifacts (token_id, blob_key, content_type, size_bytes, sha256, generated_at)
         SELECT CAST(? AS BIGINT), ?, ?, CAST(? AS BIGINT), ?, ?
          WHERE EXISTS (
              SELECT 1 FROM auth_tokens
               WHERE id = ? AND status = ? AND expires_at >= ?
          )
         ON CONFLICT (token_id) DO UPDATE SET
             blob_key = excluded.blob_key,
             content_type = excluded.content_type,
             size_bytes = excluded.size_bytes,
             sha256 = excluded.sha256,
             generated_at = excluded.generated_at`,
		artifact.TokenID,
		artifact.BlobKey,
		artifact.ContentType,
		artifact.SizeBytes,
		artifact.SHA256,
		formatTime(artifact.GeneratedAt),
		artifact.TokenID,
		string(workflow.StatusApproved),
		formatTime(now),
	)
	if err != nil {
		return false, fmt.Errorf("upsert artifact for token %d: %w", artifact.TokenID, err)
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return false, fmt.Errorf("upsert artifact for token %d: %w", artifact.TokenID, err)
	}
	return ok, nil
}

// GetArtifact returns artifact metadata or nil when none was attached.
func (s *Store) GetArtifact(ctx context.Context, tokenID int64) (*workflow.Artifact, error) {
	ctx = ensureContext(ctx)
	var (
		artifact     workflow.Artifact
		generatedRaw string
	)
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT "+artifactColumns+" FROM artifacts WHERE token_id = ?"), tokenID,
	).Scan(
		&artifact.TokenID,
		&artifact.BlobKey,
		&artifact.ContentType,
		&artifact.SizeBytes,
		&artifact.SHA256,
		&generatedRaw,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get artifact for token %d: %w", tokenID, err)
	}
	if generated, err := parseTimeString(generatedRaw); err == nil {
		artifact.GeneratedAt = generated
	}
	return &artifact, nil
}
