package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

// TokenSpec describes a header to insert.
type TokenSpec struct {
	Token           string
	Kind            workflow.Kind
	SubjectID       int64
	CreatedAt       time.Time
	ExpiresAt       time.Time
	Proposal        *workflow.Proposal
	NotifyRecipient string
}

// ItemSpec describes one item to insert alongside a header.
type ItemSpec struct {
	RecordID   int64
	PriorState string
}

// InsertToken writes a header and its items, returning the header id.
func (t *Tx) InsertToken(ctx context.Context, spec TokenSpec, items []ItemSpec) (int64, error) {
	if len(items) == 0 {
		return 0, workflow.ErrNoItems
	}
	var proposalJSON any
	if spec.Proposal != nil {
		encoded, err := json.Marshal(spec.Proposal)
		if err != nil {
			return 0, fmt.Errorf("encode proposal: %w", err)
		}
		proposalJSON = string(encoded)
	}

	var tokenID int64
	err := t.tx.QueryRowContext(ctx, t.dialect.rebind(
		`INSERT INTO auth_tokens (
            token, kind, subject_id, status, total_items, responded_items,
            created_at, expires_at, proposal_json, notify_recipient
        ) VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?) RETURNING id`),
		spec.Token,
		string(spec.Kind),
		spec.SubjectID,
		string(workflow.StatusPending),
		len(items),
		formatTime(spec.CreatedAt),
		formatTime(spec.ExpiresAt),
		proposalJSON,
		nullableString(spec.NotifyRecipient),
	).Scan(&tokenID)
	if err != nil {
		return 0, fmt.Errorf("insert token: %w", err)
	}

	insertItem := t.dialect.rebind(`INSERT INTO workflow_items (token_id, record_id, prior_state) VALUES (?, ?, ?)`)
	for _, item := range items {
		if _, err := t.tx.ExecContext(ctx, insertItem, tokenID, item.RecordID, item.PriorState); err != nil {
			return 0, fmt.Errorf("insert item for record %d: %w", item.RecordID, err)
		}
	}
	return tokenID, nil
}

// LookupToken loads a token with its items regardless of expiry. Operator
// tooling uses it; request paths go through GetByToken.
func (s *Store) LookupToken(ctx context.Context, token string) (*workflow.Token, error) {
	ctx = ensureContext(ctx)
	if token == "" {
		return nil, workflow.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT "+tokenColumns+" FROM auth_tokens WHERE token = ?"), token)
	return s.loadToken(ctx, row)
}

// LookupTokenByID loads a token by its header id regardless of expiry.
func (s *Store) LookupTokenByID(ctx context.Context, id int64) (*workflow.Token, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT "+tokenColumns+" FROM auth_tokens WHERE id = ?"), id)
	return s.loadToken(ctx, row)
}

// GetByToken resolves a token as seen by an external actor at now. Unknown
// tokens yield workflow.ErrNotFound and tokens past their horizon yield
// workflow.ErrExpired; no row is written either way.
func (s *Store) GetByToken(ctx context.Context, token string, now time.Time) (*workflow.Token, error) {
	tok, err := s.LookupToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if tok.Header.Expired(now) {
		return nil, workflow.ErrExpired
	}
	return tok, nil
}

func (s *Store) loadToken(ctx context.Context, row *sql.Row) (*workflow.Token, error) {
	header, proposalRaw, err := scanHeader(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, workflow.ErrNotFound
		}
		return nil, fmt.Errorf("load token: %w", err)
	}
	tok := &workflow.Token{Header: *header}
	if proposalRaw.Valid && proposalRaw.String != "" {
		var proposal workflow.Proposal
		if err := json.Unmarshal([]byte(proposalRaw.String), &proposal); err != nil {
			return nil, fmt.Errorf("decode proposal for token %d: %w", header.ID, err)
		}
		tok.Proposal = &proposal
	}
	items, err := loadItems(ctx, s.db, s.dialect, header.ID)
	if err != nil {
		return nil, err
	}
	tok.Items = items
	return tok, nil
}

func loadItems(ctx context.Context, q querier, d dialect, tokenID int64) ([]workflow.Item, error) {
	rows, err := q.QueryContext(ctx,
		d.rebind("SELECT "+itemColumns+" FROM workflow_items WHERE token_id = ? ORDER BY id"), tokenID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []workflow.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// RefreshCounts recomputes responded_items and the derived status of a
// STATUS_CHECK header from its item rows. The header row is locked before
// counting, so concurrent answers on Postgres serialize here and the last
// committer counts every answered item. The update only ever raises the
// stored count.
func (t *Tx) RefreshCounts(ctx context.Context, tokenID int64) error {
	var (
		kind      string
		status    string
		total     int
		responded int
	)
	err := t.tx.QueryRowContext(ctx, t.dialect.rebind(
		"SELECT kind, status, total_items, responded_items FROM auth_tokens WHERE id = ?"+t.dialect.forUpdate()), tokenID,
	).Scan(&kind, &status, &total, &responded)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return workflow.ErrNotFound
		}
		return fmt.Errorf("load header counts: %w", err)
	}
	if workflow.Kind(kind) != workflow.KindStatusCheck {
		return nil
	}

	var answered int
	if err := t.tx.QueryRowContext(ctx, t.dialect.rebind(
		"SELECT COUNT(1) FROM workflow_items WHERE token_id = ? AND responded_at IS NOT NULL"), tokenID,
	).Scan(&answered); err != nil {
		return fmt.Errorf("count answered items: %w", err)
	}
	if answered > total {
		answered = total
	}

	current := workflow.Status(status)
	next := workflow.NextStatus(current, answered, total)
	if workflow.Regresses(current, next) || (answered <= responded && next == current) {
		return nil
	}
	if _, err := t.tx.ExecContext(ctx, t.dialect.rebind(
		"UPDATE auth_tokens SET responded_items = ?, status = ? WHERE id = ? AND responded_items <= ?"),
		answered, string(next), tokenID, answered,
	); err != nil {
		return fmt.Errorf("update header counts: %w", err)
	}
	return nil
}

// DecisionInput carries an approval decision for the single analysis item.
type DecisionInput struct {
	TokenID          int64
	Decision         workflow.Decision
	Note             string
	AdjustedDiscount *float64
	DecidedAt        time.Time
}

// Decide records an analysis decision. It succeeds only for the first caller
// while the header is PENDING and unexpired; every later caller gets false
// and the stored decision is left untouched.
func (s *Store) Decide(ctx context.Context, in DecisionInput) (bool, error) {
	ctx = ensureContext(ctx)
	var won bool
	err := s.InTx(ctx, func(tx *Tx) error {
		won = false
		decidedAt := formatTime(in.DecidedAt)
		res, err := tx.tx.ExecContext(ctx, tx.dialect.rebind(
			`UPDATE auth_tokens
                SET status = ?, responded_items = total_items, decided_at = ?
              WHERE id = ? AND kind = ? AND status = ? AND expires_at >= ?`),
			string(in.Decision.Status()),
			decidedAt,
			in.TokenID,
			string(workflow.KindBudgetAnalysis),
			string(workflow.StatusPending),
			decidedAt,
		)
		if err != nil {
			return fmt.Errorf("decide header: %w", err)
		}
		ok, err := rowsAffected(res)
		if err != nil {
			return fmt.Errorf("decide header: %w", err)
		}
		if !ok {
			return nil
		}
		if _, err := tx.tx.ExecContext(ctx, tx.dialect.rebind(
			`UPDATE workflow_items
                SET new_state = ?, note = ?, adjusted_discount = ?, responded_at = ?
              WHERE token_id = ? AND responded_at IS NULL`),
			string(in.Decision),
			nullableString(in.Note),
			nullableFloat(in.AdjustedDiscount),
			decidedAt,
			in.TokenID,
		); err != nil {
			return fmt.Errorf("decide item: %w", err)
		}
		won = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

// RecordNotification stores the recipient and provider message id of the
// last delivered notification. The values are informational only.
func (s *Store) RecordNotification(ctx context.Context, tokenID int64, recipient, messageID string) error {
	_, err := s.execWithRetry(ctx,
		`UPDATE auth_tokens
            SET notify_recipient = COALESCE(?, notify_recipient),
                notify_message_id = COALESCE(?, notify_message_id)
          WHERE id = ?`,
		nullableString(recipient),
		nullableString(messageID),
		tokenID,
	)
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

// ListTokens returns the most recent headers, newest first. A zero subjectID
// lists every subject.
func (s *Store) ListTokens(ctx context.Context, subjectID int64, limit int) ([]workflow.Header, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT " + tokenColumns + " FROM auth_tokens"
	args := []any{}
	if subjectID != 0 {
		query += " WHERE subject_id = ?"
		args = append(args, subjectID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var headers []workflow.Header
	for rows.Next() {
		header, _, err := scanHeader(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		headers = append(headers, *header)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return headers, nil
}
