package pricing

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("pricing not found")

// Repository abstracts rate-card persistence.
//
// FindByCountry returning (Pricing{}, false, nil) is the normal
// "no pricing provisioned" case; callers on the billing path must treat
// it as nothing-to-charge, never as a hard failure.
type Repository interface {
	FindByCountry(ctx context.Context, countryCode string) (Pricing, bool, error)
	Upsert(ctx context.Context, p Pricing) error
	List(ctx context.Context) ([]Pricing, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) FindByCountry(ctx context.Context, countryCode string) (Pricing, bool, error) {
	const q = `
SELECT id, country_code, currency, number_monthly_minor, call_per_minute_minor,
       sms_minor, unlimited_plan_monthly_minor, created_at, updated_at
FROM pricing
WHERE country_code = $1
`
	var p Pricing
	err := r.db.QueryRowContext(ctx, q, countryCode).Scan(
		&p.ID,
		&p.CountryCode,
		&p.Currency,
		&p.NumberMonthlyMinor,
		&p.CallPerMinuteMinor,
		&p.SMSMinor,
		&p.UnlimitedPlanMonthlyMinor,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Pricing{}, false, nil
		}
		return Pricing{}, false, err
	}
	return p, true, nil
}

func (r *PostgresRepo) Upsert(ctx context.Context, p Pricing) error {
	const q = `
INSERT INTO pricing (
  id, country_code, currency, number_monthly_minor, call_per_minute_minor,
  sms_minor, unlimited_plan_monthly_minor, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (country_code)
DO UPDATE SET currency = EXCLUDED.currency,
              number_monthly_minor = EXCLUDED.number_monthly_minor,
              call_per_minute_minor = EXCLUDED.call_per_minute_minor,
              sms_minor = EXCLUDED.sms_minor,
              unlimited_plan_monthly_minor = EXCLUDED.unlimited_plan_monthly_minor,
              updated_at = EXCLUDED.updated_at
`
	_, err := r.db.ExecContext(ctx, q,
		p.ID,
		p.CountryCode,
		p.Currency,
		p.NumberMonthlyMinor,
		p.CallPerMinuteMinor,
		p.SMSMinor,
		p.UnlimitedPlanMonthlyMinor,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) List(ctx context.Context) ([]Pricing, error) {
	const q = `
SELECT id, country_code, currency, number_monthly_minor, call_per_minute_minor,
       sms_minor, unlimited_plan_monthly_minor, created_at, updated_at
FROM pricing
ORDER BY country_code
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Pricing
	for rows.Next() {
		var p Pricing
		if err := rows.Scan(
			&p.ID,
			&p.CountryCode,
			&p.Currency,
			&p.NumberMonthlyMinor,
			&p.CallPerMinuteMinor,
			&p.SMSMinor,
			&p.UnlimitedPlanMonthlyMinor,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
