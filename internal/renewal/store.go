package renewal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"callbridge/internal/numbers"
	"callbridge/internal/plans"
	"callbridge/pkg/utils"
)

// DueNumber is an assigned number whose rental period has lapsed.
type DueNumber struct {
	NumberID    string
	UserID      string
	CountryCode string
}

// DuePlan is an active plan whose period has lapsed.
type DuePlan struct {
	PlanID      string
	UserID      string
	CountryCode string
}

// Outcome says how a renewal attempt ended.
type Outcome int

const (
	// OutcomeRenewed: charged and advanced.
	OutcomeRenewed Outcome = iota
	// OutcomeShortfall: the wallet could not cover the charge;
	// nothing was written.
	OutcomeShortfall
	// OutcomeStale: the row was no longer due, typically because a
	// concurrent sweep renewed it first; nothing was written. A stale
	// row must not be punished.
	OutcomeStale
)

// Store is the persistence contract for the renewal sweep.
//
// RenewNumber and RenewPlan are atomic per row: the debit and the
// period advance happen in one transaction, so a crash mid-sweep can
// never charge without renewing or renew without charging.
// SuspendNumber and ExpirePlan are guarded on the due date so they can
// never punish a row another sweep just renewed.
type Store interface {
	DueNumbers(ctx context.Context, now time.Time, limit int) ([]DueNumber, error)
	RenewNumber(ctx context.Context, d DueNumber, amountMinor int64, now time.Time) (Outcome, error)
	SuspendNumber(ctx context.Context, numberID string, now time.Time) error

	DuePlans(ctx context.Context, now time.Time, limit int) ([]DuePlan, error)
	RenewPlan(ctx context.Context, d DuePlan, amountMinor int64, now time.Time) (Outcome, error)
	ExpirePlan(ctx context.Context, planID string, now time.Time) error
}

// Debiter is the wallet slice the store charges through inside its own
// transactions.
type Debiter interface {
	DebitTx(ctx context.Context, tx *sql.Tx, userID string, amountMinor int64, method, externalRef string) (bool, error)
}

// errStaleRow aborts a renewal transaction when the row was already
// advanced by a concurrent sweep; the debit rolls back with it.
var errStaleRow = errors.New("renewal: row no longer due")

type PostgresStore struct {
	db     *sql.DB
	wallet Debiter
}

func NewPostgresStore(db *sql.DB, w Debiter) *PostgresStore {
	return &PostgresStore{db: db, wallet: w}
}

func (s *PostgresStore) DueNumbers(ctx context.Context, now time.Time, limit int) ([]DueNumber, error) {
	const q = `
SELECT id, user_id, country_code
FROM virtual_numbers
WHERE status = 'assigned' AND next_billing_at <= $1
ORDER BY next_billing_at
LIMIT $2
`
	rows, err := s.db.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DueNumber
	for rows.Next() {
		var d DueNumber
		if err := rows.Scan(&d.NumberID, &d.UserID, &d.CountryCode); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RenewNumber(ctx context.Context, d DueNumber, amountMinor int64, now time.Time) (Outcome, error) {
	outcome := OutcomeShortfall
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		charged, err := s.wallet.DebitTx(ctx, tx, d.UserID, amountMinor, "number_renewal", d.NumberID)
		if err != nil {
			return err
		}
		if !charged {
			return nil
		}
		// Guard on the due date so a concurrent sweep charging the same
		// row rolls this one back instead of double-advancing.
		const q = `
UPDATE virtual_numbers
SET next_billing_at = $2
WHERE id = $1 AND status = 'assigned' AND next_billing_at <= $3
`
		res, err := tx.ExecContext(ctx, q, d.NumberID, now.Add(numbers.RentalPeriod), now)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errStaleRow
		}
		outcome = OutcomeRenewed
		return nil
	})
	if errors.Is(err, errStaleRow) {
		return OutcomeStale, nil
	}
	return outcome, err
}

func (s *PostgresStore) SuspendNumber(ctx context.Context, numberID string, now time.Time) error {
	const q = `
UPDATE virtual_numbers
SET status = 'suspended'
WHERE id = $1 AND status = 'assigned' AND next_billing_at <= $2
`
	_, err := s.db.ExecContext(ctx, q, numberID, now)
	return err
}

func (s *PostgresStore) DuePlans(ctx context.Context, now time.Time, limit int) ([]DuePlan, error) {
	const q = `
SELECT id, user_id, country_code
FROM user_plans
WHERE status = 'active' AND next_billing_at <= $1
ORDER BY next_billing_at
LIMIT $2
`
	rows, err := s.db.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DuePlan
	for rows.Next() {
		var d DuePlan
		if err := rows.Scan(&d.PlanID, &d.UserID, &d.CountryCode); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RenewPlan(ctx context.Context, d DuePlan, amountMinor int64, now time.Time) (Outcome, error) {
	outcome := OutcomeShortfall
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		charged, err := s.wallet.DebitTx(ctx, tx, d.UserID, amountMinor, "plan_renewal", d.PlanID)
		if err != nil {
			return err
		}
		if !charged {
			return nil
		}
		const q = `
UPDATE user_plans
SET next_billing_at = $2, minutes_used = 0, started_at = $3
WHERE id = $1 AND status = 'active' AND next_billing_at <= $3
`
		res, err := tx.ExecContext(ctx, q, d.PlanID, now.Add(plans.Period), now)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errStaleRow
		}
		outcome = OutcomeRenewed
		return nil
	})
	if errors.Is(err, errStaleRow) {
		return OutcomeStale, nil
	}
	return outcome, err
}

func (s *PostgresStore) ExpirePlan(ctx context.Context, planID string, now time.Time) error {
	const q = `
UPDATE user_plans
SET status = 'expired'
WHERE id = $1 AND status = 'active' AND next_billing_at <= $2
`
	_, err := s.db.ExecContext(ctx, q, planID, now)
	return err
}
