package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventregistration/internal/domain"
)

type regConfRepository struct {
	DB *sql.DB
}

func NewRegConfRepository(db *sql.DB) domain.RegConfRepository {
	return &regConfRepository{
		DB: db,
	}
}

const regConfColumns = `
	id, event_id, enabled, payment_required, reg_limit, allow_guests, guest_limit,
	gratuity_enabled, gratuity_options, cancel_by_dt, cancellation_fee,
	cancellation_percent, created_at, updated_at
`

func (r *regConfRepository) Create(ctx context.Context, c *domain.RegistrationConfiguration) error {
	query := `
		INSERT INTO registration_configurations (
			event_id, enabled, payment_required, reg_limit, allow_guests, guest_limit,
			gratuity_enabled, gratuity_options, cancel_by_dt, cancellation_fee,
			cancellation_percent, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		c.EventID, c.Enabled, c.PaymentRequired, c.Limit, c.AllowGuests, c.GuestLimit,
		c.GratuityEnabled, c.GratuityOptions, c.CancelByDt, c.CancellationFee,
		c.CancellationPercent, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
}

func (r *regConfRepository) GetByID(ctx context.Context, id string) (*domain.RegistrationConfiguration, error) {
	query := `SELECT ` + regConfColumns + ` FROM registration_configurations WHERE id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

func (r *regConfRepository) GetByEventID(ctx context.Context, eventID string) (*domain.RegistrationConfiguration, error) {
	query := `SELECT ` + regConfColumns + ` FROM registration_configurations WHERE event_id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, eventID))
}

func (r *regConfRepository) scanOne(row *sql.Row) (*domain.RegistrationConfiguration, error) {
	c := &domain.RegistrationConfiguration{}
	var cancelBy sql.NullTime
	err := row.Scan(
		&c.ID, &c.EventID, &c.Enabled, &c.PaymentRequired, &c.Limit, &c.AllowGuests,
		&c.GuestLimit, &c.GratuityEnabled, &c.GratuityOptions, &cancelBy,
		&c.CancellationFee, &c.CancellationPercent, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if cancelBy.Valid {
		c.CancelByDt = &cancelBy.Time
	}
	return c, nil
}

func (r *regConfRepository) Update(ctx context.Context, c *domain.RegistrationConfiguration) error {
	query := `
		UPDATE registration_configurations
		SET enabled = $2, payment_required = $3, reg_limit = $4, allow_guests = $5,
			guest_limit = $6, gratuity_enabled = $7, gratuity_options = $8,
			cancel_by_dt = $9, cancellation_fee = $10, cancellation_percent = $11,
			updated_at = $12
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query,
		c.ID, c.Enabled, c.PaymentRequired, c.Limit, c.AllowGuests, c.GuestLimit,
		c.GratuityEnabled, c.GratuityOptions, c.CancelByDt, c.CancellationFee,
		c.CancellationPercent, c.UpdatedAt,
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
