package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"eventregistration/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestRegistrantRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{
		"id", "registration_id", "pricing_id", "amount", "override", "override_price", "is_primary",
		"first_name", "last_name", "email", "phone", "company_name",
		"address", "city", "state", "zip", "country",
		"cancel_dt", "checked_in", "checked_in_dt", "checked_out", "checked_out_dt",
		"attendance_dates", "created_at", "updated_at",
	}
	mock.ExpectQuery(`SELECT (.+) FROM registrants WHERE id = \$1`).
		WithArgs("rgt-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"rgt-1", "reg-1", "tier-1", "50.00", false, "0", true,
			"Ada", "Lovelace", "ada@example.com", "", "",
			"", "", "", "", "",
			nil, false, nil, false, nil,
			"{2026-03-01}", now, now,
		))

	repo := NewRegistrantRepository(db)
	rt, err := repo.GetByID(ctx, "rgt-1")
	require.NoError(t, err)
	require.Equal(t, "reg-1", rt.RegistrationID)
	require.NotNil(t, rt.PricingID)
	require.True(t, rt.Active())
	require.Equal(t, []string{"2026-03-01"}, rt.AttendanceDates)

	mock.ExpectQuery(`SELECT (.+) FROM registrants WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrantRepository_ListByEvent(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{
		"id", "registration_id", "pricing_id", "amount", "override", "override_price", "is_primary",
		"first_name", "last_name", "email", "phone", "company_name",
		"address", "city", "state", "zip", "country",
		"cancel_dt", "checked_in", "checked_in_dt", "checked_out", "checked_out_dt",
		"attendance_dates", "created_at", "updated_at",
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM registrants rt\s+JOIN registrations reg`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery(`SELECT (.+) FROM registrants\s+WHERE registration_id IN`).
		WithArgs("ev-1", 20, 20).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"rgt-1", "reg-1", nil, "50.00", false, "0", true,
			"Ada", "Lovelace", "ada@example.com", "", "",
			"", "", "", "", "",
			nil, false, nil, false, nil,
			"{}", now, now,
		))

	repo := NewRegistrantRepository(db)
	registrants, total, err := repo.ListByEvent(ctx, "ev-1", domain.PaginationParams{Page: 2, PageSize: 20})
	require.NoError(t, err)
	require.Equal(t, 42, total)
	require.Len(t, registrants, 1)
	require.Equal(t, "Lovelace", registrants[0].LastName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrantRepository_CountActiveSiblings(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM registrants\s+WHERE registration_id = \$1`).
		WithArgs("reg-1", "rgt-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	repo := NewRegistrantRepository(db)
	n, err := repo.CountActiveSiblings(ctx, "reg-1", "rgt-1")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
