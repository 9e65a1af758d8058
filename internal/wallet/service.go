package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"callbridge/pkg/utils"

	"github.com/google/uuid"
)

// Service provides wallet operations.
//
// Money invariants:
// - No balance update without a transaction row
// - Transactions are append-only (status is the only mutable field,
//   and only pending -> completed/rejected)
// - Balance mutation is always a single conditional UPDATE with an
//   embedded increment, never read-then-write, so concurrent debits
//   (two calls ending at once, a renewal sweep racing a webhook)
//   cannot drive the balance negative.
type Service struct {
	db    *sql.DB
	clock func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, clock: time.Now}
}

var (
	ErrNotFound        = errors.New("wallet not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotPending      = errors.New("transaction not pending")
)

func (s *Service) GetBalance(ctx context.Context, userID string) (Balance, error) {
	if userID == "" {
		return Balance{}, ErrInvalidArgument
	}
	const q = `
SELECT user_id, currency, balance_minor, updated_at
FROM wallet_balances
WHERE user_id = $1
`
	var b Balance
	if err := s.db.QueryRowContext(ctx, q, userID).Scan(&b.UserID, &b.Currency, &b.BalanceMinor, &b.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Balance{}, ErrNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

// DebitIfSufficient atomically charges the user if and only if the
// balance covers the amount. Returns false (and writes nothing) on a
// shortfall. The guard and the decrement are one UPDATE statement.
func (s *Service) DebitIfSufficient(ctx context.Context, userID string, amountMinor int64, method, externalRef string) (bool, error) {
	if userID == "" || method == "" {
		return false, ErrInvalidArgument
	}
	if amountMinor <= 0 {
		return false, ErrInvalidArgument
	}

	var charged bool
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		ok, err := s.DebitTx(ctx, tx, userID, amountMinor, method, externalRef)
		if err != nil {
			return err
		}
		charged = ok
		return nil
	})
	return charged, err
}

// DebitTx is DebitIfSufficient inside a caller-supplied transaction.
// Purchases and renewals compose through it so the charge and the row
// it pays for commit or roll back together.
func (s *Service) DebitTx(ctx context.Context, tx *sql.Tx, userID string, amountMinor int64, method, externalRef string) (bool, error) {
	now := s.clock().UTC()

	const q = `
UPDATE wallet_balances
SET balance_minor = balance_minor - $2, updated_at = $3
WHERE user_id = $1 AND balance_minor >= $2
`
	res, err := tx.ExecContext(ctx, q, userID, amountMinor, now)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	if err := insertTransaction(ctx, tx, Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        TxTypeDebit,
		AmountMinor: amountMinor,
		Method:      method,
		Status:      TxStatusCompleted,
		ExternalRef: externalRef,
		CreatedAt:   now,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// Credit adds funds immediately (admin adjustments, internal refunds).
func (s *Service) Credit(ctx context.Context, userID string, amountMinor int64, method, externalRef string) error {
	if userID == "" || method == "" || amountMinor <= 0 {
		return ErrInvalidArgument
	}
	now := s.clock().UTC()
	return utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if err := applyCredit(ctx, tx, userID, amountMinor, now); err != nil {
			return err
		}
		return insertTransaction(ctx, tx, Transaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			Type:        TxTypeCredit,
			AmountMinor: amountMinor,
			Method:      method,
			Status:      TxStatusCompleted,
			ExternalRef: externalRef,
			CreatedAt:   now,
		})
	})
}

// RequestTopUp records a pending credit. No balance effect until an
// admin approves it.
func (s *Service) RequestTopUp(ctx context.Context, userID string, amountMinor int64, method, externalRef string) (Transaction, error) {
	if userID == "" || amountMinor <= 0 {
		return Transaction{}, ErrInvalidArgument
	}
	switch method {
	case "usdt", "google_play":
	default:
		return Transaction{}, ErrInvalidArgument
	}

	txn := Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        TxTypeCredit,
		AmountMinor: amountMinor,
		Method:      method,
		Status:      TxStatusPending,
		ExternalRef: externalRef,
		CreatedAt:   s.clock().UTC(),
	}
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		return insertTransaction(ctx, tx, txn)
	})
	if err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

// ApproveTopUp flips a pending credit to completed and applies it to
// the balance. The status flip is conditional on the row still being
// pending, so two concurrent approvals credit at most once.
func (s *Service) ApproveTopUp(ctx context.Context, txnID string) (Transaction, error) {
	if txnID == "" {
		return Transaction{}, ErrInvalidArgument
	}
	now := s.clock().UTC()

	var out Transaction
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const q = `
UPDATE wallet_transactions
SET status = 'completed'
WHERE id = $1 AND status = 'pending'
RETURNING id, user_id, type, amount_minor, method, status, external_ref, created_at
`
		err := tx.QueryRowContext(ctx, q, txnID).Scan(
			&out.ID, &out.UserID, &out.Type, &out.AmountMinor,
			&out.Method, &out.Status, &out.ExternalRef, &out.CreatedAt,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotPending
			}
			return err
		}
		return applyCredit(ctx, tx, out.UserID, out.AmountMinor, now)
	})
	if err != nil {
		return Transaction{}, err
	}
	return out, nil
}

// RejectTopUp marks a pending credit rejected. No balance effect.
func (s *Service) RejectTopUp(ctx context.Context, txnID string) error {
	if txnID == "" {
		return ErrInvalidArgument
	}
	const q = `UPDATE wallet_transactions SET status = 'rejected' WHERE id = $1 AND status = 'pending'`
	res, err := s.db.ExecContext(ctx, q, txnID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotPending
	}
	return nil
}

func (s *Service) ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `
SELECT id, user_id, type, amount_minor, method, status, external_ref, created_at
FROM wallet_transactions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	return s.queryTransactions(ctx, q, userID, limit)
}

func (s *Service) ListPendingTopUps(ctx context.Context) ([]Transaction, error) {
	const q = `
SELECT id, user_id, type, amount_minor, method, status, external_ref, created_at
FROM wallet_transactions
WHERE status = 'pending' AND type = 'credit'
ORDER BY created_at
`
	return s.queryTransactions(ctx, q)
}

func (s *Service) queryTransactions(ctx context.Context, q string, args ...any) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.AmountMinor, &t.Method, &t.Status, &t.ExternalRef, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t Transaction) error {
	const q = `
INSERT INTO wallet_transactions (id, user_id, type, amount_minor, method, status, external_ref, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := tx.ExecContext(ctx, q, t.ID, t.UserID, t.Type, t.AmountMinor, t.Method, t.Status, t.ExternalRef, t.CreatedAt)
	return err
}

func applyCredit(ctx context.Context, tx *sql.Tx, userID string, amountMinor int64, now time.Time) error {
	// Upsert keeps first-topup working without a provisioning step.
	const q = `
INSERT INTO wallet_balances (user_id, currency, balance_minor, updated_at)
VALUES ($1, 'USD', $2, $3)
ON CONFLICT (user_id)
DO UPDATE SET balance_minor = wallet_balances.balance_minor + EXCLUDED.balance_minor,
              updated_at = EXCLUDED.updated_at
`
	_, err := tx.ExecContext(ctx, q, userID, amountMinor, now)
	return err
}
