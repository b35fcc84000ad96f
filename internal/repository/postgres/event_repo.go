package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventregistration/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, start_dt, end_dt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, e.Title, e.StartDt, e.EndDt, e.CreatedAt, e.UpdatedAt).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT id, title, start_dt, end_dt, created_at, updated_at
		FROM events
		WHERE id = $1
	`
	e := &domain.Event{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Title, &e.StartDt, &e.EndDt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}
