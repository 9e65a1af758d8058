package plans

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"callbridge/pkg/utils"
)

var (
	ErrNotFound      = errors.New("plan not found")
	ErrAlreadyActive = errors.New("active plan already exists")
)

// Debiter is the wallet slice the purchase path charges through,
// inside the repository's own transaction.
type Debiter interface {
	DebitTx(ctx context.Context, tx *sql.Tx, userID string, amountMinor int64, method, externalRef string) (bool, error)
}

// Repository persists user plans.
//
// ConsumeMinutes and MarkExpired are conditional updates so that
// concurrent billing events against the same plan settle correctly
// without locks above the database.
type Repository interface {
	FindByID(ctx context.Context, id string) (UserPlan, bool, error)
	FindActive(ctx context.Context, userID, countryCode string) (UserPlan, bool, error)
	FindByUser(ctx context.Context, userID string) ([]UserPlan, error)

	// InsertPaid charges one period and inserts the plan in a single
	// transaction: a failed insert rolls the debit back, so the user
	// can never be charged for a plan that was not created. Returns
	// false on insufficient balance and ErrAlreadyActive when the
	// user already holds an active plan for the country.
	InsertPaid(ctx context.Context, p UserPlan, amountMinor int64, w Debiter) (bool, error)

	// ConsumeMinutes adds minutes to the plan's usage if and only if
	// the plan is still active and the cap would not be exceeded.
	// Returns false when the guard fails.
	ConsumeMinutes(ctx context.Context, id string, minutes int) (bool, error)

	// MarkExpired flips an active plan to expired. Safe to call twice.
	MarkExpired(ctx context.Context, id string) error

	Cancel(ctx context.Context, id, userID string) (bool, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const planColumns = `id, user_id, country_code, status, minutes_limit, minutes_used, started_at, next_billing_at, created_at`

func (r *PostgresRepo) FindByID(ctx context.Context, id string) (UserPlan, bool, error) {
	const q = `SELECT ` + planColumns + ` FROM user_plans WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) FindActive(ctx context.Context, userID, countryCode string) (UserPlan, bool, error) {
	const q = `
SELECT ` + planColumns + `
FROM user_plans
WHERE user_id = $1 AND country_code = $2 AND status = 'active'
ORDER BY created_at DESC
LIMIT 1
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, userID, countryCode))
}

func (r *PostgresRepo) FindByUser(ctx context.Context, userID string) ([]UserPlan, error) {
	const q = `SELECT ` + planColumns + ` FROM user_plans WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// errDuplicateActive aborts a purchase transaction when the partial
// unique index on (user_id, country_code) WHERE status = 'active'
// rejects the insert; the debit rolls back with it.
var errDuplicateActive = errors.New("plans: active plan already exists")

func (r *PostgresRepo) InsertPaid(ctx context.Context, p UserPlan, amountMinor int64, w Debiter) (bool, error) {
	var charged bool
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		ok, err := w.DebitTx(ctx, tx, p.UserID, amountMinor, "unlimited_plan", p.ID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		const q = `
INSERT INTO user_plans (` + planColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (user_id, country_code) WHERE status = 'active' DO NOTHING
`
		res, err := tx.ExecContext(ctx, q,
			p.ID, p.UserID, p.CountryCode, p.Status,
			p.MinutesLimit, p.MinutesUsed, p.StartedAt, p.NextBillingAt, p.CreatedAt)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errDuplicateActive
		}
		charged = true
		return nil
	})
	if errors.Is(err, errDuplicateActive) {
		return false, ErrAlreadyActive
	}
	return charged, err
}

func (r *PostgresRepo) ConsumeMinutes(ctx context.Context, id string, minutes int) (bool, error) {
	const q = `
UPDATE user_plans
SET minutes_used = minutes_used + $2
WHERE id = $1 AND status = 'active' AND minutes_used + $2 <= minutes_limit
`
	res, err := r.db.ExecContext(ctx, q, id, minutes)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepo) MarkExpired(ctx context.Context, id string) error {
	const q = `UPDATE user_plans SET status = 'expired' WHERE id = $1 AND status = 'active'`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

func (r *PostgresRepo) Cancel(ctx context.Context, id, userID string) (bool, error) {
	const q = `UPDATE user_plans SET status = 'canceled' WHERE id = $1 AND user_id = $2 AND status = 'active'`
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

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepo) scanOne(row *sql.Row) (UserPlan, bool, error) {
	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserPlan{}, false, nil
		}
		return UserPlan{}, false, err
	}
	return p, true, nil
}

func scanPlan(row rowScanner) (UserPlan, error) {
	var p UserPlan
	var started, next, created time.Time
	err := row.Scan(&p.ID, &p.UserID, &p.CountryCode, &p.Status,
		&p.MinutesLimit, &p.MinutesUsed, &started, &next, &created)
	if err != nil {
		return UserPlan{}, err
	}
	p.StartedAt = started
	p.NextBillingAt = next
	p.CreatedAt = created
	return p, nil
}
