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

func TestEventRepository_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		event   *domain.Event
		mock    func(mock sqlmock.Sqlmock)
		wantID  string
		wantErr bool
	}{
		{
			name: "success",
			event: &domain.Event{
				Title:     "GopherConf 2026",
				StartDt:   time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
				EndDt:     time.Date(2026, 9, 3, 17, 0, 0, 0, time.UTC),
				CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
				UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events \(title, start_dt, end_dt, created_at, updated_at\)`).
					WithArgs("GopherConf 2026",
						time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
						time.Date(2026, 9, 3, 17, 0, 0, 0, time.UTC),
						time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
						time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-uuid-1"))
			},
			wantID:  "ev-uuid-1",
			wantErr: false,
		},
		{
			name: "db error",
			event: &domain.Event{
				Title:     "GopherConf",
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events`).
					WillReturnError(sql.ErrConnDone)
			},
			wantID:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewEventRepository(db)
			err = repo.Create(ctx, tt.event)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.wantID, tt.event.ID)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM events`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "start_dt", "end_dt", "created_at", "updated_at"}).
			AddRow("ev-1", "GopherConf", now, now.Add(8*time.Hour), now, now))

	repo := NewEventRepository(db)
	ev, err := repo.GetByID(ctx, "ev-1")
	require.NoError(t, err)
	require.Equal(t, "GopherConf", ev.Title)

	mock.ExpectQuery(`SELECT (.+) FROM events`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
