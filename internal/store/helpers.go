package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

// timeLayout is fixed width so lexical order matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

const tokenColumns = "id, token, kind, subject_id, status, total_items, responded_items, created_at, expires_at, decided_at, proposal_json, notify_recipient, notify_message_id"

const itemColumns = "id, token_id, record_id, prior_state, new_state, note, adjusted_discount, responded_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func parseNullTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func scanHeader(scanner rowScanner) (*workflow.Header, sql.NullString, error) {
	var (
		header      workflow.Header
		kind        string
		status      string
		createdRaw  string
		expiresRaw  string
		decidedRaw  sql.NullString
		proposalRaw sql.NullString
		recipient   sql.NullString
		messageID   sql.NullString
	)
	if err := scanner.Scan(
		&header.ID,
		&header.Token,
		&kind,
		&header.SubjectID,
		&status,
		&header.TotalItems,
		&header.RespondedItems,
		&createdRaw,
		&expiresRaw,
		&decidedRaw,
		&proposalRaw,
		&recipient,
		&messageID,
	); err != nil {
		return nil, proposalRaw, err
	}
	header.Kind = workflow.Kind(kind)
	header.Status = workflow.Status(status)
	header.NotifyRecipient = recipient.String
	header.NotifyMessageID = messageID.String
	header.DecidedAt = parseNullTime(decidedRaw)
	if created, err := parseTimeString(createdRaw); err == nil {
		header.CreatedAt = created
	}
	expires, err := parseTimeString(expiresRaw)
	if err != nil {
		// An unparseable horizon must never read as "still valid".
		expires = time.Time{}
	}
	header.ExpiresAt = expires
	return &header, proposalRaw, nil
}

func scanItem(scanner rowScanner) (workflow.Item, error) {
	var (
		item        workflow.Item
		newState    sql.NullString
		note        sql.NullString
		discount    sql.NullFloat64
		respondedAt sql.NullString
	)
	if err := scanner.Scan(
		&item.ID,
		&item.TokenID,
		&item.RecordID,
		&item.PriorState,
		&newState,
		&note,
		&discount,
		&respondedAt,
	); err != nil {
		return item, err
	}
	item.NewState = newState.String
	item.Note = note.String
	if discount.Valid {
		value := discount.Float64
		item.AdjustedDiscount = &value
	}
	item.RespondedAt = parseNullTime(respondedAt)
	return item, nil
}

func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
