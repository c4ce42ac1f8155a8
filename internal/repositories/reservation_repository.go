package repositories

import (
	"context"
	"time"

	"studio_booking_backend/internal/models"
)

// ReservationQuery selects reservations by exact field values.
// Zero-valued fields do not constrain the query. Times matches any of the given labels.
type ReservationQuery struct {
	Date    *time.Time
	Time    string
	Times   []string
	Service string
	IsGroup *bool
}

// Matches reports whether r satisfies the query. The in-memory store uses it directly
// and the SQL store mirrors it in its WHERE clause.
func (q ReservationQuery) Matches(r models.Reservation) bool {
	if q.Date != nil && !r.Date.Equal(*q.Date) {
		return false
	}
	if q.Time != "" && r.Time != q.Time {
		return false
	}
	if q.Times != nil {
		found := false
		for _, t := range q.Times {
			if r.Time == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Service != "" && r.Service != q.Service {
		return false
	}
	if q.IsGroup != nil && r.IsGroup != *q.IsGroup {
		return false
	}
	return true
}

// ReservationRepository defines the interface for reservation persistence.
type ReservationRepository interface {
	FindReservations(ctx context.Context, q ReservationQuery) ([]models.Reservation, error)
	// FindFirstReservation returns nil and no error when nothing matches.
	FindFirstReservation(ctx context.Context, q ReservationQuery) (*models.Reservation, error)
	CreateReservation(ctx context.Context, reservation *models.Reservation) (*models.Reservation, error)
	UpdateReservation(ctx context.Context, id int64, patch models.ReservationPatch) (*models.Reservation, error)
	// DeleteReservation returns the deleted row, or ErrNotFound.
	DeleteReservation(ctx context.Context, id int64) (*models.Reservation, error)
	ListReservations(ctx context.Context, filters models.ReservationFilters) ([]models.Reservation, int, error)
	// WithDayLock runs fn while holding an exclusive lock for the given day.
	// Repository calls made through the argument of fn observe and write under that lock.
	WithDayLock(ctx context.Context, day time.Time, fn func(repo ReservationRepository) error) error
}

// dayRange returns the half-open interval [day, day+1) used by the list date filter.
func dayRange(day time.Time) (time.Time, time.Time) {
	return day, day.AddDate(0, 0, 1)
}
