// Package artifacts stores the rendered document attached to an approved
// budget analysis.
//
// Metadata lives in the workflow store, one row per token; bytes live in a
// Blob backend (local directory, S3, or GCS when built with -tags gcp).
// Uploads replace earlier ones. Reads re-check the token horizon, so an
// artifact stops being served as soon as its token expires.
package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AndersD76/portalpili-producao-sub005/internal/logging"
	"github.com/AndersD76/portalpili-producao-sub005/internal/store"
	"github.com/AndersD76/portalpili-producao-sub005/internal/telemetry"
	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

// ErrEmptyArtifact rejects uploads without a body.
var ErrEmptyArtifact = errors.New("artifact body is empty")

// Service attaches and serves artifacts.
type Service struct {
	store   *store.Store
	blob    Blob
	logger  *slog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for expiry and generated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics records stored artifact sizes.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService builds a Service.
func NewService(st *store.Store, blob Blob, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  st,
		blob:   blob,
		logger: logging.NewComponentLogger(logger, "artifacts"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttachArtifact stores data for an APPROVED analysis token. A token in any
// other status gets ErrPreconditionFailed and nothing is written.
func (s *Service) AttachArtifact(ctx context.Context, token string, data []byte, contentType string) (*workflow.Artifact, error) {
	ctx = logging.WithToken(ctx, token)
	if len(data) == 0 {
		return nil, ErrEmptyArtifact
	}
	now := s.now().UTC()
	tok, err := s.store.GetByToken(ctx, token, now)
	if err != nil {
		return nil, err
	}
	if tok.Header.Kind != workflow.KindBudgetAnalysis {
		return nil, workflow.ErrWrongKind
	}
	if tok.Header.Status != workflow.StatusApproved {
		return nil, fmt.Errorf("%w: token is %s", workflow.ErrPreconditionFailed, tok.Header.Status)
	}

	sum := sha256.Sum256(data)
	artifact := workflow.Artifact{
		TokenID:     tok.Header.ID,
		ContentType: normalizeContentType(contentType, data),
		SizeBytes:   int64(len(data)),
		SHA256:      hex.EncodeToString(sum[:]),
		GeneratedAt: now,
	}
	artifact.BlobKey = BlobKey(tok.Header.ID, artifact.SHA256)

	previous, err := s.store.GetArtifact(ctx, tok.Header.ID)
	if err != nil {
		return nil, err
	}
	if err := s.blob.Put(ctx, artifact.BlobKey, data, artifact.ContentType); err != nil {
		return nil, fmt.Errorf("store artifact bytes: %w", err)
	}

	logger := logging.WithContext(ctx, s.logger).With(logging.Int64(logging.FieldTokenID, tok.Header.ID))
	ok, err := s.store.UpsertArtifact(ctx, artifact, now)
	if err != nil {
		s.discard(ctx, logger, tok.Header.ID, artifact.BlobKey)
		return nil, err
	}
	if !ok {
		s.discard(ctx, logger, tok.Header.ID, artifact.BlobKey)
		if tok.Header.Expired(s.now().UTC()) {
			return nil, workflow.ErrExpired
		}
		return nil, workflow.ErrPreconditionFailed
	}

	if previous != nil && previous.BlobKey != artifact.BlobKey {
		s.discard(ctx, logger, tok.Header.ID, previous.BlobKey)
	}
	s.metrics.ArtifactStored(ctx, artifact.SizeBytes)
	logger.Info("artifact attached",
		logging.Int64("size_bytes", artifact.SizeBytes),
		logging.String("content_type", artifact.ContentType),
		logging.String("sha256", artifact.SHA256),
		logging.Bool("replaced", previous != nil),
	)
	return &artifact, nil
}

// discard removes a blob that no metadata row points at. A concurrent upload
// of the same bytes may have claimed the key in the meantime, so the current
// row is consulted first.
func (s *Service) discard(ctx context.Context, logger *slog.Logger, tokenID int64, key string) {
	current, err := s.store.GetArtifact(ctx, tokenID)
	if err == nil && current != nil && current.BlobKey == key {
		return
	}
	if err := s.blob.Delete(ctx, key); err != nil {
		logger.Warn("artifact blob cleanup failed",
			logging.String("blob_key", key),
			logging.Error(err),
			logging.Alert("artifact_orphan"),
		)
	}
}

// FetchArtifact returns the artifact metadata and bytes for token. It fails
// with ErrExpired past the horizon regardless of status, and ErrNotFound when
// the token is unknown or nothing was attached.
func (s *Service) FetchArtifact(ctx context.Context, token string) (*workflow.Artifact, []byte, error) {
	ctx = logging.WithToken(ctx, token)
	tok, err := s.store.GetByToken(ctx, token, s.now().UTC())
	if err != nil {
		return nil, nil, err
	}
	if tok.Header.Kind != workflow.KindBudgetAnalysis {
		return nil, nil, workflow.ErrNotFound
	}
	artifact, err := s.store.GetArtifact(ctx, tok.Header.ID)
	if err != nil {
		return nil, nil, err
	}
	if artifact == nil {
		return nil, nil, workflow.ErrNotFound
	}
	data, err := s.blob.Get(ctx, artifact.BlobKey)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			logging.WithContext(ctx, s.logger).Error("artifact bytes missing",
				logging.Int64(logging.FieldTokenID, tok.Header.ID),
				logging.String("blob_key", artifact.BlobKey),
				logging.Alert("artifact_missing"),
			)
			return nil, nil, workflow.ErrNotFound
		}
		return nil, nil, err
	}
	return artifact, data, nil
}

func normalizeContentType(contentType string, data []byte) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" || contentType == "application/x-www-form-urlencoded" {
		return http.DetectContentType(data)
	}
	return contentType
}
