package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

const opportunityColumns = "id, title, owner_id, stage, updated_at"

const interactionColumns = "id, record_id, from_state, to_state, observed_state, source, token_id, created_at"

func scanOpportunity(scanner rowScanner) (*workflow.Opportunity, error) {
	var (
		opp        workflow.Opportunity
		stage      string
		updatedRaw string
	)
	if err := scanner.Scan(&opp.ID, &opp.Title, &opp.OwnerID, &stage, &updatedRaw); err != nil {
		return nil, err
	}
	opp.Stage = workflow.Stage(stage)
	if updated, err := parseTimeString(updatedRaw); err == nil {
		opp.UpdatedAt = updated
	}
	return &opp, nil
}

// UpsertOpportunity inserts or replaces a CRM opportunity row. The CRM owns
// these rows; operators and tests use this to mirror them locally.
func (s *Store) UpsertOpportunity(ctx context.Context, opp workflow.Opportunity) error {
	updated := opp.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO opportunities (id, title, owner_id, stage, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (id) DO UPDATE SET
             title = excluded.title,
             owner_id = excluded.owner_id,
             stage = excluded.stage,
             updated_at = excluded.updated_at`,
		opp.ID, opp.Title, opp.OwnerID, string(opp.Stage), formatTime(updated),
	)
	if err != nil {
		return fmt.Errorf("upsert opportunity %d: %w", opp.ID, err)
	}
	return nil
}

// GetOpportunity returns the opportunity or nil when it does not exist.
func (s *Store) GetOpportunity(ctx context.Context, id int64) (*workflow.Opportunity, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, s.dialect.rebind("SELECT "+opportunityColumns+" FROM opportunities WHERE id = ?"), id)
	opp, err := scanOpportunity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get opportunity %d: %w", id, err)
	}
	return opp, nil
}

// ListOpportunities returns opportunities ordered by id. A zero ownerID lists
// every owner.
func (s *Store) ListOpportunities(ctx context.Context, ownerID int64) ([]workflow.Opportunity, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + opportunityColumns + " FROM opportunities"
	var args []any
	if ownerID != 0 {
		query += " WHERE owner_id = ?"
		args = append(args, ownerID)
	}
	query += " ORDER BY id"
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	defer rows.Close()

	var out []workflow.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		out = append(out, *opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate opportunities: %w", err)
	}
	return out, nil
}

// CurrentStage reads the stage of a record inside the transaction. The
// boolean is false when the record does not exist.
func (t *Tx) CurrentStage(ctx context.Context, recordID int64) (workflow.Stage, bool, error) {
	var stage string
	err := t.tx.QueryRowContext(ctx, t.dialect.rebind("SELECT stage FROM opportunities WHERE id = ?"), recordID).Scan(&stage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read stage of record %d: %w", recordID, err)
	}
	return workflow.Stage(stage), true, nil
}

// SetStage writes a record's stage.
func (t *Tx) SetStage(ctx context.Context, recordID int64, stage workflow.Stage, at time.Time) error {
	res, err := t.tx.ExecContext(ctx, t.dialect.rebind(
		"UPDATE opportunities SET stage = ?, updated_at = ? WHERE id = ?"),
		string(stage), formatTime(at), recordID,
	)
	if err != nil {
		return fmt.Errorf("set stage of record %d: %w", recordID, err)
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("set stage of record %d: %w", recordID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %d", workflow.ErrRecordNotFound, recordID)
	}
	return nil
}

// AppendInteraction adds an audit entry and returns its id.
func (t *Tx) AppendInteraction(ctx context.Context, in workflow.Interaction) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, t.dialect.rebind(
		`INSERT INTO interactions (record_id, from_state, to_state, observed_state, source, token_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		in.RecordID,
		nullableString(in.FromState),
		in.ToState,
		nullableString(in.ObservedState),
		in.Source,
		nullableInt64(in.TokenID),
		formatTime(in.CreatedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append interaction for record %d: %w", in.RecordID, err)
	}
	return id, nil
}

// InteractionFilter narrows ListInteractions. Zero fields are ignored.
type InteractionFilter struct {
	RecordID int64
	TokenID  int64
}

// ListInteractions returns audit entries in insertion order.
func (s *Store) ListInteractions(ctx context.Context, filter InteractionFilter) ([]workflow.Interaction, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + interactionColumns + " FROM interactions WHERE 1 = 1"
	var args []any
	if filter.RecordID != 0 {
		query += " AND record_id = ?"
		args = append(args, filter.RecordID)
	}
	if filter.TokenID != 0 {
		query += " AND token_id = ?"
		args = append(args, filter.TokenID)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []workflow.Interaction
	for rows.Next() {
		var (
			in         workflow.Interaction
			fromState  sql.NullString
			observed   sql.NullString
			tokenID    sql.NullInt64
			createdRaw string
		)
		if err := rows.Scan(&in.ID, &in.RecordID, &fromState, &in.ToState, &observed, &in.Source, &tokenID, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		in.FromState = fromState.String
		in.ObservedState = observed.String
		if tokenID.Valid {
			value := tokenID.Int64
			in.TokenID = &value
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			in.CreatedAt = created
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return out, nil
}
