package messages

import (
	"context"
	"database/sql"
	"time"
)

// Repository persists messages. Insert is idempotent on SID the same
// way call records are: unique index plus ON CONFLICT DO NOTHING.
type Repository interface {
	Insert(ctx context.Context, m Message) (bool, error)
	History(ctx context.Context, userID string, limit int) ([]Message, error)
	Conversation(ctx context.Context, userID, peer string, limit int) ([]Message, error)
	MarkRead(ctx context.Context, userID, peer string) error
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const messageColumns = `id, user_id, sid, from_number, to_number, body, direction, cost_minor, read, created_at`

func (r *PostgresRepo) Insert(ctx context.Context, m Message) (bool, error) {
	const q = `
INSERT INTO messages (` + messageColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (sid) DO NOTHING
`
	res, err := r.db.ExecContext(ctx, q,
		m.ID, m.UserID, m.SID, m.From, m.To, m.Body, m.Direction, m.CostMinor, m.Read, m.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepo) History(ctx context.Context, userID string, limit int) ([]Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `
SELECT ` + messageColumns + `
FROM messages
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	return r.query(ctx, q, userID, limit)
}

func (r *PostgresRepo) Conversation(ctx context.Context, userID, peer string, limit int) ([]Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `
SELECT ` + messageColumns + `
FROM messages
WHERE user_id = $1 AND (from_number = $2 OR to_number = $2)
ORDER BY created_at
LIMIT $3
`
	return r.query(ctx, q, userID, peer, limit)
}

func (r *PostgresRepo) MarkRead(ctx context.Context, userID, peer string) error {
	const q = `
UPDATE messages
SET read = TRUE
WHERE user_id = $1 AND from_number = $2 AND direction = 'inbound' AND read = FALSE
`
	_, err := r.db.ExecContext(ctx, q, userID, peer)
	return err
}

func (r *PostgresRepo) query(ctx context.Context, q string, args ...any) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var created time.Time
		if err := rows.Scan(&m.ID, &m.UserID, &m.SID, &m.From, &m.To, &m.Body, &m.Direction, &m.CostMinor, &m.Read, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = created
		out = append(out, m)
	}
	return out, rows.Err()
}
