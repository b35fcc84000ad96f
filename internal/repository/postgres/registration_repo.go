package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"eventregistration/internal/domain"
)

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{
		DB: db,
	}
}

const registrationColumns = `
	id, guid, event_id, invoice_id, tier_id, amount_paid, gratuity, canceled,
	is_table, quantity, override_table, override_price_table, created_at, updated_at
`

func (r *registrationRepository) CreateWithRegistrants(ctx context.Context, reg *domain.Registration, registrants []*domain.Registrant) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock the capped tiers in id order and recount under the lock, so two
	// concurrent registrations for the same tier serialize instead of both
	// passing a stale check.
	demand := make(map[string]int)
	for _, rt := range registrants {
		if rt.PricingID != nil {
			demand[*rt.PricingID]++
		}
	}
	tierIDs := make([]string, 0, len(demand))
	for id := range demand {
		tierIDs = append(tierIDs, id)
	}
	sort.Strings(tierIDs)

	for _, tierID := range tierIDs {
		var regCap int
		err := tx.QueryRowContext(ctx,
			`SELECT registration_cap FROM pricing_tiers WHERE id = $1 FOR UPDATE`,
			tierID,
		).Scan(&regCap)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		if regCap == 0 {
			continue
		}

		var taken int
		if err := tx.QueryRowContext(ctx, countActiveQuery, tierID, false).Scan(&taken); err != nil {
			return err
		}
		if taken+demand[tierID] > regCap {
			return domain.ErrCapacityExceeded
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE pricing_tiers SET spots_taken = $2, updated_at = NOW() WHERE id = $1`,
			tierID, taken+demand[tierID],
		)
		if err != nil {
			return err
		}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO registrations (
			guid, event_id, tier_id, amount_paid, gratuity, canceled,
			is_table, quantity, override_table, override_price_table, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		reg.GUID, reg.EventID, reg.TierID, reg.AmountPaid, reg.Gratuity, reg.Canceled,
		reg.IsTable, reg.Quantity, reg.OverrideTable, reg.OverridePriceTable,
		reg.CreatedAt, reg.UpdatedAt,
	).Scan(&reg.ID)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}

	for _, rt := range registrants {
		rt.RegistrationID = reg.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO registrants (
				registration_id, pricing_id, amount, override, override_price, is_primary,
				first_name, last_name, email, phone, company_name,
				address, city, state, zip, country, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			RETURNING id
		`,
			rt.RegistrationID, rt.PricingID, rt.Amount, rt.Override, rt.OverridePrice,
			rt.IsPrimary, rt.FirstName, rt.LastName, rt.Email, rt.Phone, rt.CompanyName,
			rt.Address, rt.City, rt.State, rt.Zip, rt.Country, rt.CreatedAt, rt.UpdatedAt,
		).Scan(&rt.ID)
		if err != nil {
			return fmt.Errorf("insert registrant: %w", err)
		}
	}

	return tx.Commit()
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg := &domain.Registration{}
	var invoiceID, tierID sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&reg.ID, &reg.GUID, &reg.EventID, &invoiceID, &tierID, &reg.AmountPaid,
		&reg.Gratuity, &reg.Canceled, &reg.IsTable, &reg.Quantity,
		&reg.OverrideTable, &reg.OverridePriceTable, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if invoiceID.Valid {
		reg.InvoiceID = &invoiceID.String
	}
	if tierID.Valid {
		reg.TierID = &tierID.String
	}
	return reg, nil
}

func (r *registrationRepository) Update(ctx context.Context, reg *domain.Registration) error {
	query := `
		UPDATE registrations
		SET amount_paid = $2, gratuity = $3, canceled = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, reg.ID, reg.AmountPaid, reg.Gratuity, reg.Canceled, reg.UpdatedAt)
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

func (r *registrationRepository) SetInvoice(ctx context.Context, registrationID, invoiceID string) error {
	query := `
		UPDATE registrations
		SET invoice_id = $2, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, registrationID, invoiceID)
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

func (r *registrationRepository) CountActiveForEvent(ctx context.Context, eventID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM registrants r
		JOIN registrations reg ON reg.id = r.registration_id
		WHERE reg.event_id = $1
		  AND r.cancel_dt IS NULL
		  AND NOT reg.canceled
	`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, eventID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
