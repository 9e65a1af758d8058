package voicemail

import (
	"context"
	"database/sql"
)

// Repository persists voicemails. Insert is idempotent on the
// recording URL (unique index, ON CONFLICT DO NOTHING).
type Repository interface {
	Insert(ctx context.Context, v Voicemail) (bool, error)
	SetDuration(ctx context.Context, recordingURL string, durationSeconds int) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Voicemail, error)
	MarkRead(ctx context.Context, userID, id string) (bool, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const voicemailColumns = `id, user_id, call_sid, from_number, recording_url, duration_seconds, read, created_at`

func (r *PostgresRepo) Insert(ctx context.Context, v Voicemail) (bool, error) {
	const q = `
INSERT INTO voicemails (` + voicemailColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (recording_url) DO NOTHING
`
	res, err := r.db.ExecContext(ctx, q,
		v.ID, v.UserID, v.CallSID, v.From, v.RecordingURL, v.DurationSeconds, v.Read, v.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepo) SetDuration(ctx context.Context, recordingURL string, durationSeconds int) error {
	const q = `UPDATE voicemails SET duration_seconds = $2 WHERE recording_url = $1`
	_, err := r.db.ExecContext(ctx, q, recordingURL, durationSeconds)
	return err
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Voicemail, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `
SELECT ` + voicemailColumns + `
FROM voicemails
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Voicemail
	for rows.Next() {
		var v Voicemail
		if err := rows.Scan(&v.ID, &v.UserID, &v.CallSID, &v.From, &v.RecordingURL, &v.DurationSeconds, &v.Read, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) MarkRead(ctx context.Context, userID, id string) (bool, error) {
	const q = `UPDATE voicemails SET read = TRUE WHERE id = $1 AND user_id = $2`
	return r.execOwned(ctx, q, id, userID)
}

func (r *PostgresRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	const q = `DELETE FROM voicemails WHERE id = $1 AND user_id = $2`
	return r.execOwned(ctx, q, id, userID)
}

func (r *PostgresRepo) execOwned(ctx context.Context, q, id, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, q, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
