package store

import (
	"context"
	"fmt"
	"time"
)

// AnswerInput carries one external answer for a status-check item.
type AnswerInput struct {
	ItemID      int64
	NewState    string
	Note        string
	RespondedAt time.Time
}

// AnswerItem stores an answer when the item has none yet and its token is
// still within its horizon at RespondedAt. It reports whether the row was
// written; false means another writer got there first or the token expired.
func (t *Tx) AnswerItem(ctx context.Context, in AnswerInput) (bool, error) {
	respondedAt := formatTime(in.RespondedAt)
	res, err := t.tx.ExecContext(ctx, t.dialect.rebind(
		`UPDATE workflow_items
            SET new_state = ?, note = ?, responded_at = ?
          WHERE id = ?
            AND responded_at IS NULL
            AND EXISTS (
                SELECT 1 FROM auth_tokens t
                 WHERE t.id = workflow_items.token_id AND t.expires_at >= ?
            )`),
		in.NewState,
		nullableString(in.Note),
		respondedAt,
		in.ItemID,
		respondedAt,
	)
	if err != nil {
		return false, fmt.Errorf("answer item %d: %w", in.ItemID, err)
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return false, fmt.Errorf("answer item %d: %w", in.ItemID, err)
	}
	return ok, nil
}
