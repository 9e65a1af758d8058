package numbers

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"callbridge/pkg/utils"
)

var (
	ErrNotFound     = errors.New("number not found")
	ErrNotAvailable = errors.New("number not available")
)

// Debiter is the wallet slice the purchase path charges through,
// inside the repository's own transaction.
type Debiter interface {
	DebitTx(ctx context.Context, tx *sql.Tx, userID string, amountMinor int64, method, externalRef string) (bool, error)
}

// Repository is the persistence contract for virtual numbers.
//
// Assumed table: virtual_numbers with UNIQUE (phone_number).
type Repository interface {
	FindByID(ctx context.Context, id string) (VirtualNumber, bool, error)
	FindAssignedByPhone(ctx context.Context, phoneNumber string) (VirtualNumber, bool, error)
	FindAssignedByUser(ctx context.Context, userID string) ([]VirtualNumber, error)
	FindAvailable(ctx context.Context, countryCode string) ([]VirtualNumber, error)

	// ClaimPaid charges one rental period and flips an available
	// number to assigned for userID, in a single transaction: losing
	// the claim rolls the debit back. Returns false on insufficient
	// balance and ErrNotAvailable when the number was claimed or
	// removed concurrently.
	ClaimPaid(ctx context.Context, id, userID string, amountMinor int64, at time.Time, w Debiter) (bool, error)

	// Release returns a number to the available pool.
	Release(ctx context.Context, id string) error

	Insert(ctx context.Context, n VirtualNumber) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]VirtualNumber, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const numberColumns = `id, country_code, phone_number, status, user_id, assigned_at, next_billing_at, created_at`

func scanNumber(row interface{ Scan(...any) error }) (VirtualNumber, error) {
	var n VirtualNumber
	var userID sql.NullString
	var assignedAt, nextBillingAt sql.NullTime
	err := row.Scan(
		&n.ID,
		&n.CountryCode,
		&n.PhoneNumber,
		&n.Status,
		&userID,
		&assignedAt,
		&nextBillingAt,
		&n.CreatedAt,
	)
	if err != nil {
		return VirtualNumber{}, err
	}
	n.UserID = userID.String
	if assignedAt.Valid {
		t := assignedAt.Time
		n.AssignedAt = &t
	}
	if nextBillingAt.Valid {
		t := nextBillingAt.Time
		n.NextBillingAt = &t
	}
	return n, nil
}

func (r *PostgresRepo) FindByID(ctx context.Context, id string) (VirtualNumber, bool, error) {
	q := `SELECT ` + numberColumns + ` FROM virtual_numbers WHERE id = $1`
	n, err := scanNumber(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return VirtualNumber{}, false, nil
		}
		return VirtualNumber{}, false, err
	}
	return n, true, nil
}

func (r *PostgresRepo) FindAssignedByPhone(ctx context.Context, phoneNumber string) (VirtualNumber, bool, error) {
	q := `SELECT ` + numberColumns + ` FROM virtual_numbers WHERE phone_number = $1 AND status = 'assigned'`
	n, err := scanNumber(r.db.QueryRowContext(ctx, q, phoneNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return VirtualNumber{}, false, nil
		}
		return VirtualNumber{}, false, err
	}
	return n, true, nil
}

func (r *PostgresRepo) FindAssignedByUser(ctx context.Context, userID string) ([]VirtualNumber, error) {
	q := `SELECT ` + numberColumns + ` FROM virtual_numbers WHERE user_id = $1 AND status = 'assigned' ORDER BY assigned_at`
	return r.queryNumbers(ctx, q, userID)
}

func (r *PostgresRepo) FindAvailable(ctx context.Context, countryCode string) ([]VirtualNumber, error) {
	if countryCode == "" {
		q := `SELECT ` + numberColumns + ` FROM virtual_numbers WHERE status = 'available' ORDER BY country_code, phone_number`
		return r.queryNumbers(ctx, q)
	}
	q := `SELECT ` + numberColumns + ` FROM virtual_numbers WHERE status = 'available' AND country_code = $1 ORDER BY phone_number`
	return r.queryNumbers(ctx, q, countryCode)
}

// errClaimLost aborts a purchase transaction when the conditional
// claim matched no row; the debit rolls back with it.
var errClaimLost = errors.New("numbers: number no longer available")

func (r *PostgresRepo) ClaimPaid(ctx context.Context, id, userID string, amountMinor int64, at time.Time, w Debiter) (bool, error) {
	var claimed bool
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		charged, err := w.DebitTx(ctx, tx, userID, amountMinor, "number_rental", id)
		if err != nil {
			return err
		}
		if !charged {
			return nil
		}
		// Conditional update: only an available row can be claimed, so
		// two racing purchases cannot both win.
		const q = `
UPDATE virtual_numbers
SET status = 'assigned', user_id = $2, assigned_at = $3, next_billing_at = $4
WHERE id = $1 AND status = 'available'
`
		res, err := tx.ExecContext(ctx, q, id, userID, at, at.Add(RentalPeriod))
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return errClaimLost
		}
		claimed = true
		return nil
	})
	if errors.Is(err, errClaimLost) {
		return false, ErrNotAvailable
	}
	return claimed, err
}

func (r *PostgresRepo) Release(ctx context.Context, id string) error {
	const q = `
UPDATE virtual_numbers
SET status = 'available', user_id = NULL, assigned_at = NULL, next_billing_at = NULL
WHERE id = $1
`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

func (r *PostgresRepo) Insert(ctx context.Context, n VirtualNumber) error {
	const q = `
INSERT INTO virtual_numbers (id, country_code, phone_number, status, user_id, assigned_at, next_billing_at, created_at)
VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8)
`
	_, err := r.db.ExecContext(ctx, q, n.ID, n.CountryCode, n.PhoneNumber, n.Status, n.UserID, n.AssignedAt, n.NextBillingAt, n.CreatedAt)
	return err
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM virtual_numbers WHERE id = $1`, id)
	return err
}

func (r *PostgresRepo) List(ctx context.Context) ([]VirtualNumber, error) {
	q := `SELECT ` + numberColumns + ` FROM virtual_numbers ORDER BY country_code, phone_number`
	return r.queryNumbers(ctx, q)
}

func (r *PostgresRepo) queryNumbers(ctx context.Context, q string, args ...any) ([]VirtualNumber, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VirtualNumber
	for rows.Next() {
		n, err := scanNumber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
