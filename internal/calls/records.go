package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// RecordStore persists finished calls.
//
// Insert is idempotent on the provider SID: the table carries a unique
// index on sid, and the insert is ON CONFLICT DO NOTHING. A duplicate
// terminal webhook therefore writes nothing and reports false.
type RecordStore interface {
	Insert(ctx context.Context, r CallRecord) (bool, error)
	ExistsBySID(ctx context.Context, sid string) (bool, error)
	FindBySID(ctx context.Context, sid string) (CallRecord, bool, error)
	History(ctx context.Context, userID string, limit int) ([]CallRecord, error)

	// SetCost backfills the settled cost onto a record that was
	// claimed before billing ran.
	SetCost(ctx context.Context, sid string, costMinor int64) error

	// SetVoicemailURL backfills a recording URL onto an existing
	// record, for recordings that finish processing after the call's
	// terminal status lands.
	SetVoicemailURL(ctx context.Context, sid, url string) error
}

type PostgresRecordStore struct {
	db *sql.DB
}

func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

const recordColumns = `id, user_id, sid, from_number, to_number, direction, status, duration_seconds, cost_minor, voicemail_url, started_at, ended_at`

func (s *PostgresRecordStore) Insert(ctx context.Context, r CallRecord) (bool, error) {
	const q = `
INSERT INTO call_records (` + recordColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (sid) DO NOTHING
`
	res, err := s.db.ExecContext(ctx, q,
		r.ID, r.UserID, r.SID, r.From, r.To, r.Direction, r.Status,
		r.DurationSeconds, r.CostMinor, nullIfEmpty(r.VoicemailURL), r.StartedAt, r.EndedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresRecordStore) ExistsBySID(ctx context.Context, sid string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM call_records WHERE sid = $1)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, q, sid).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresRecordStore) FindBySID(ctx context.Context, sid string) (CallRecord, bool, error) {
	const q = `SELECT ` + recordColumns + ` FROM call_records WHERE sid = $1`
	r, err := scanRecord(s.db.QueryRowContext(ctx, q, sid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecord{}, false, nil
		}
		return CallRecord{}, false, err
	}
	return r, true, nil
}

func (s *PostgresRecordStore) History(ctx context.Context, userID string, limit int) ([]CallRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `
SELECT ` + recordColumns + `
FROM call_records
WHERE user_id = $1
ORDER BY ended_at DESC
LIMIT $2
`
	rows, err := s.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresRecordStore) SetCost(ctx context.Context, sid string, costMinor int64) error {
	const q = `UPDATE call_records SET cost_minor = $2 WHERE sid = $1`
	_, err := s.db.ExecContext(ctx, q, sid, costMinor)
	return err
}

func (s *PostgresRecordStore) SetVoicemailURL(ctx context.Context, sid, url string) error {
	const q = `UPDATE call_records SET voicemail_url = $2 WHERE sid = $1`
	_, err := s.db.ExecContext(ctx, q, sid, url)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (CallRecord, error) {
	var r CallRecord
	var voicemail sql.NullString
	var started, ended time.Time
	err := row.Scan(&r.ID, &r.UserID, &r.SID, &r.From, &r.To, &r.Direction,
		&r.Status, &r.DurationSeconds, &r.CostMinor, &voicemail, &started, &ended)
	if err != nil {
		return CallRecord{}, err
	}
	r.VoicemailURL = voicemail.String
	r.StartedAt = started
	r.EndedAt = ended
	return r, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
