package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"studio_booking_backend/internal/models"
)

// MemoryReservationRepository keeps reservations in process memory.
// It backs the "memory" store driver and the service tests.
type MemoryReservationRepository struct {
	mu           sync.RWMutex
	reservations map[int64]models.Reservation
	nextID       int64

	locksMu  sync.Mutex
	dayLocks map[string]*dayLock
}

// dayLock is dropped from dayLocks once no caller holds or waits on it.
type dayLock struct {
	sync.Mutex
	refs int
}

// NewMemoryReservationRepository creates an empty in-memory repository.
func NewMemoryReservationRepository() *MemoryReservationRepository {
	return &MemoryReservationRepository{
		reservations: make(map[int64]models.Reservation),
		dayLocks:     make(map[string]*dayLock),
	}
}

func (r *MemoryReservationRepository) sorted(match func(models.Reservation) bool) []models.Reservation {
	out := []models.Reservation{}
	for _, res := range r.reservations {
		if match(res) {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *MemoryReservationRepository) FindReservations(ctx context.Context, q ReservationQuery) ([]models.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(q.Matches), nil
}

func (r *MemoryReservationRepository) FindFirstReservation(ctx context.Context, q ReservationQuery) (*models.Reservation, error) {
	found, err := r.FindReservations(ctx, q)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &found[0], nil
}

func (r *MemoryReservationRepository) CreateReservation(ctx context.Context, reservation *models.Reservation) (*models.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now()
	reservation.ID = r.nextID
	reservation.CreatedAt = now
	reservation.UpdatedAt = now
	r.reservations[reservation.ID] = *reservation

	created := *reservation
	return &created, nil
}

func (r *MemoryReservationRepository) UpdateReservation(ctx context.Context, id int64, patch models.ReservationPatch) (*models.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.IsEmpty() {
		return &res, nil
	}
	if patch.ClientID != nil {
		res.ClientID = *patch.ClientID
	}
	if patch.Service != nil {
		res.Service = *patch.Service
	}
	if patch.Date != nil {
		res.Date = *patch.Date
	}
	if patch.Time != nil {
		res.Time = *patch.Time
	}
	if patch.Status != nil {
		res.Status = *patch.Status
	}
	res.UpdatedAt = time.Now()
	r.reservations[id] = res
	return &res, nil
}

func (r *MemoryReservationRepository) DeleteReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.reservations, id)
	return &res, nil
}

func (r *MemoryReservationRepository) ListReservations(ctx context.Context, filters models.ReservationFilters) ([]models.Reservation, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.sorted(func(res models.Reservation) bool {
		if filters.Status != nil && *filters.Status != "" && res.Status != *filters.Status {
			return false
		}
		if filters.Date != nil {
			from, to := dayRange(*filters.Date)
			if res.Date.Before(from) || !res.Date.Before(to) {
				return false
			}
		}
		if filters.ClientID != nil && res.ClientID != *filters.ClientID {
			return false
		}
		return true
	})
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.Before(matched[j].Date)
		}
		return matched[i].Time < matched[j].Time
	})

	total := len(matched)
	if filters.PageSize > 0 {
		start := 0
		if filters.Page > 1 {
			start = (filters.Page - 1) * filters.PageSize
		}
		if start > total {
			start = total
		}
		end := start + filters.PageSize
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (r *MemoryReservationRepository) WithDayLock(ctx context.Context, day time.Time, fn func(repo ReservationRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := day.Format("2006-01-02")

	r.locksMu.Lock()
	lock, ok := r.dayLocks[key]
	if !ok {
		lock = &dayLock{}
		r.dayLocks[key] = lock
	}
	lock.refs++
	r.locksMu.Unlock()

	lock.Lock()
	defer func() {
		lock.Unlock()
		r.locksMu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(r.dayLocks, key)
		}
		r.locksMu.Unlock()
	}()
	return fn(r)
}
