package domain

import (
	"context"
	"time"
)

// Event is the calendar event registrations attach to. Only the fields the
// registration engine needs are modeled here; presentation concerns live in
// the surrounding platform.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartDt   time.Time `json:"start_dt"`
	EndDt     time.Time `json:"end_dt"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEvent returns a new Event with the given fields. ID is typically set by the repository on create.
func NewEvent(title string, startDt, endDt time.Time, createdAt, updatedAt time.Time) *Event {
	return &Event{
		Title:     title,
		StartDt:   startDt,
		EndDt:     endDt,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
}
