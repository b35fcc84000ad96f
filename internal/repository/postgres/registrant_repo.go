package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"eventregistration/internal/domain"
)

type registrantRepository struct {
	DB *sql.DB
}

func NewRegistrantRepository(db *sql.DB) domain.RegistrantRepository {
	return &registrantRepository{
		DB: db,
	}
}

const registrantColumns = `
	id, registration_id, pricing_id, amount, override, override_price, is_primary,
	first_name, last_name, email, phone, company_name,
	address, city, state, zip, country,
	cancel_dt, checked_in, checked_in_dt, checked_out, checked_out_dt,
	attendance_dates, created_at, updated_at
`

func (r *registrantRepository) GetByID(ctx context.Context, id string) (*domain.Registrant, error) {
	query := `SELECT ` + registrantColumns + ` FROM registrants WHERE id = $1`
	row := r.DB.QueryRowContext(ctx, query, id)
	rt, err := scanRegistrant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return rt, nil
}

func (r *registrantRepository) ListByRegistration(ctx context.Context, registrationID string) ([]*domain.Registrant, error) {
	query := `SELECT ` + registrantColumns + ` FROM registrants WHERE registration_id = $1 ORDER BY id ASC`
	rows, err := r.DB.QueryContext(ctx, query, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var registrants []*domain.Registrant
	for rows.Next() {
		rt, err := scanRegistrant(rows)
		if err != nil {
			return nil, err
		}
		registrants = append(registrants, rt)
	}
	return registrants, rows.Err()
}

func (r *registrantRepository) ListByEvent(ctx context.Context, eventID string, p domain.PaginationParams) ([]*domain.Registrant, int, error) {
	countQuery := `
		SELECT COUNT(*)
		FROM registrants rt
		JOIN registrations reg ON reg.id = rt.registration_id
		WHERE reg.event_id = $1
	`
	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, eventID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + registrantColumns + `
		FROM registrants
		WHERE registration_id IN (SELECT id FROM registrations WHERE event_id = $1)
		ORDER BY last_name ASC, id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var registrants []*domain.Registrant
	for rows.Next() {
		rt, err := scanRegistrant(rows)
		if err != nil {
			return nil, 0, err
		}
		registrants = append(registrants, rt)
	}
	return registrants, total, rows.Err()
}

func scanRegistrant(row rowScanner) (*domain.Registrant, error) {
	rt := &domain.Registrant{}
	var pricingID sql.NullString
	var cancelDt, checkedInDt, checkedOutDt sql.NullTime
	var attendance pq.StringArray
	err := row.Scan(
		&rt.ID, &rt.RegistrationID, &pricingID, &rt.Amount, &rt.Override,
		&rt.OverridePrice, &rt.IsPrimary,
		&rt.FirstName, &rt.LastName, &rt.Email, &rt.Phone, &rt.CompanyName,
		&rt.Address, &rt.City, &rt.State, &rt.Zip, &rt.Country,
		&cancelDt, &rt.CheckedIn, &checkedInDt, &rt.CheckedOut, &checkedOutDt,
		&attendance, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if pricingID.Valid {
		rt.PricingID = &pricingID.String
	}
	if cancelDt.Valid {
		rt.CancelDt = &cancelDt.Time
	}
	if checkedInDt.Valid {
		rt.CheckedInDt = &checkedInDt.Time
	}
	if checkedOutDt.Valid {
		rt.CheckedOutDt = &checkedOutDt.Time
	}
	rt.AttendanceDates = attendance
	return rt, nil
}

func (r *registrantRepository) Update(ctx context.Context, rt *domain.Registrant) error {
	query := `
		UPDATE registrants
		SET amount = $2, override = $3, override_price = $4, is_primary = $5,
			first_name = $6, last_name = $7, email = $8, phone = $9, company_name = $10,
			address = $11, city = $12, state = $13, zip = $14, country = $15,
			cancel_dt = $16, checked_in = $17, checked_in_dt = $18,
			checked_out = $19, checked_out_dt = $20, attendance_dates = $21,
			updated_at = $22
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query,
		rt.ID, rt.Amount, rt.Override, rt.OverridePrice, rt.IsPrimary,
		rt.FirstName, rt.LastName, rt.Email, rt.Phone, rt.CompanyName,
		rt.Address, rt.City, rt.State, rt.Zip, rt.Country,
		rt.CancelDt, rt.CheckedIn, rt.CheckedInDt, rt.CheckedOut, rt.CheckedOutDt,
		pq.StringArray(rt.AttendanceDates), rt.UpdatedAt,
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

func (r *registrantRepository) CountActiveSiblings(ctx context.Context, registrationID, excludeID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM registrants
		WHERE registration_id = $1
		  AND id <> $2
		  AND cancel_dt IS NULL
	`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, registrationID, excludeID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
