package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"eventregistration/internal/domain"
)

type pricingRepository struct {
	DB *sql.DB
}

func NewPricingRepository(db *sql.DB) domain.PricingRepository {
	return &pricingRepository{
		DB: db,
	}
}

const pricingColumns = `
	id, reg_conf_id, title, description, price, include_tax, tax_rate,
	quantity, registration_cap, spots_taken, payment_required,
	start_dt, end_dt, allow_anonymous, allow_user, allow_member, group_ids,
	status, created_at, updated_at
`

// countActiveQuery counts non-cancelled registrants on a tier. When payment
// is required only fully paid registrations hold a spot, checked against the
// invoice balance.
const countActiveQuery = `
	SELECT COUNT(*)
	FROM registrants r
	JOIN registrations reg ON reg.id = r.registration_id
	WHERE r.pricing_id = $1
	  AND r.cancel_dt IS NULL
	  AND NOT reg.canceled
	  AND (
		NOT $2
		OR EXISTS (
			SELECT 1 FROM invoices i
			WHERE i.object_type = 'registration'
			  AND i.object_id = reg.id
			  AND i.balance <= 0
		)
	  )
`

func (r *pricingRepository) Create(ctx context.Context, t *domain.PricingTier) error {
	query := `
		INSERT INTO pricing_tiers (
			reg_conf_id, title, description, price, include_tax, tax_rate,
			quantity, registration_cap, spots_taken, payment_required,
			start_dt, end_dt, allow_anonymous, allow_user, allow_member, group_ids,
			status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		t.RegConfID, t.Title, t.Description, t.Price, t.IncludeTax, t.TaxRate,
		t.Quantity, t.RegistrationCap, t.SpotsTaken, t.PaymentRequired,
		t.StartDt, t.EndDt, t.AllowAnonymous, t.AllowUser, t.AllowMember,
		pq.StringArray(t.GroupIDs), t.Status, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
}

func (r *pricingRepository) GetByID(ctx context.Context, id string) (*domain.PricingTier, error) {
	query := `SELECT ` + pricingColumns + ` FROM pricing_tiers WHERE id = $1`
	row := r.DB.QueryRowContext(ctx, query, id)
	t, err := scanPricingTier(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *pricingRepository) ListByConfig(ctx context.Context, regConfID string) ([]*domain.PricingTier, error) {
	query := `SELECT ` + pricingColumns + ` FROM pricing_tiers WHERE reg_conf_id = $1 ORDER BY price ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, regConfID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []*domain.PricingTier
	for rows.Next() {
		t, err := scanPricingTier(rows)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPricingTier(row rowScanner) (*domain.PricingTier, error) {
	t := &domain.PricingTier{}
	var paymentRequired sql.NullBool
	var groupIDs pq.StringArray
	err := row.Scan(
		&t.ID, &t.RegConfID, &t.Title, &t.Description, &t.Price, &t.IncludeTax,
		&t.TaxRate, &t.Quantity, &t.RegistrationCap, &t.SpotsTaken, &paymentRequired,
		&t.StartDt, &t.EndDt, &t.AllowAnonymous, &t.AllowUser, &t.AllowMember,
		&groupIDs, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paymentRequired.Valid {
		t.PaymentRequired = &paymentRequired.Bool
	}
	t.GroupIDs = groupIDs
	return t, nil
}

func (r *pricingRepository) Update(ctx context.Context, t *domain.PricingTier) error {
	query := `
		UPDATE pricing_tiers
		SET title = $2, description = $3, price = $4, include_tax = $5, tax_rate = $6,
			quantity = $7, registration_cap = $8, payment_required = $9,
			start_dt = $10, end_dt = $11, allow_anonymous = $12, allow_user = $13,
			allow_member = $14, group_ids = $15, status = $16, updated_at = $17
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query,
		t.ID, t.Title, t.Description, t.Price, t.IncludeTax, t.TaxRate,
		t.Quantity, t.RegistrationCap, t.PaymentRequired,
		t.StartDt, t.EndDt, t.AllowAnonymous, t.AllowUser, t.AllowMember,
		pq.StringArray(t.GroupIDs), t.Status, t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pricingRepository) Disable(ctx context.Context, id string) error {
	query := `
		UPDATE pricing_tiers
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, id, domain.TierDisabled)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pricingRepository) CountActive(ctx context.Context, tierID string, paymentRequired bool) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, countActiveQuery, tierID, paymentRequired).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *pricingRepository) RefreshSpotsTaken(ctx context.Context, tierID string, paymentRequired bool) (int, error) {
	n, err := r.CountActive(ctx, tierID, paymentRequired)
	if err != nil {
		return 0, err
	}
	query := `
		UPDATE pricing_tiers
		SET spots_taken = $2, updated_at = NOW()
		WHERE id = $1 AND spots_taken <> $2
	`
	if _, err := r.DB.ExecContext(ctx, query, tierID, n); err != nil {
		return 0, err
	}
	return n, nil
}
