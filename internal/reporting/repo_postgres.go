package reporting

import (
	"context"
	"database/sql"
	"time"

	"callbridge/internal/calls"
	"callbridge/internal/messages"
	"callbridge/internal/wallet"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) ListCallRecords(ctx context.Context, userID string, from, to time.Time) ([]calls.CallRecord, error) {
	const q = `
SELECT id, user_id, sid, from_number, to_number, direction, status, duration_seconds, cost_minor, COALESCE(voicemail_url, ''), started_at, ended_at
FROM call_records
WHERE user_id = $1 AND ended_at >= $2 AND ended_at < $3
`
	rows, err := r.db.QueryContext(ctx, q, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []calls.CallRecord
	for rows.Next() {
		var rec calls.CallRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.SID, &rec.From, &rec.To, &rec.Direction,
			&rec.Status, &rec.DurationSeconds, &rec.CostMinor, &rec.VoicemailURL, &rec.StartedAt, &rec.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListMessages(ctx context.Context, userID string, from, to time.Time) ([]messages.Message, error) {
	const q = `
SELECT id, user_id, sid, from_number, to_number, body, direction, cost_minor, read, created_at
FROM messages
WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
`
	rows, err := r.db.QueryContext(ctx, q, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []messages.Message
	for rows.Next() {
		var m messages.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.SID, &m.From, &m.To, &m.Body, &m.Direction, &m.CostMinor, &m.Read, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListTransactions(ctx context.Context, userID string, from, to time.Time) ([]wallet.Transaction, error) {
	const q = `
SELECT id, user_id, type, amount_minor, method, status, external_ref, created_at
FROM wallet_transactions
WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
`
	rows, err := r.db.QueryContext(ctx, q, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []wallet.Transaction
	for rows.Next() {
		var t wallet.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.AmountMinor, &t.Method, &t.Status, &t.ExternalRef, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
