package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studio_booking_backend/internal/models"
	"studio_booking_backend/internal/repositories"
	"studio_booking_backend/pkg/utils"
)

// --- Reservation DTOs ---

// CreateReservationRequest is the body of a booking request. ClientID accepts a number or a numeric string.
type CreateReservationRequest struct {
	ClientID utils.FlexibleID `json:"client_id"`
	Service  string           `json:"service"`
	Date     string           `json:"date"`
	Time     string           `json:"time"`
}

// UpdateReservationRequest carries a partial update. Absent fields are left unchanged.
type UpdateReservationRequest struct {
	ClientID *int64  `json:"client_id"`
	Service  *string `json:"service"`
	Date     *string `json:"date"`
	Time     *string `json:"time"`
	Status   *string `json:"status"`
}

// ListReservationsRequest filters the reservation listing. Date is YYYY-MM-DD.
type ListReservationsRequest struct {
	Status   string
	Date     string
	ClientID *int64
	Page     int
	PageSize int
}

// ReservationConfig holds the injected scheduling settings.
type ReservationConfig struct {
	Catalog  ServiceCatalog
	Location *time.Location
	// SerializeAdmissions runs the exclusivity, capacity and insert steps under a per-day lock.
	// When false, concurrent requests for the same slot can both be admitted.
	SerializeAdmissions bool
	DefaultStatus       models.ReservationStatus
}

// --- ReservationService Interface ---
type ReservationService interface {
	CreateReservation(ctx context.Context, req CreateReservationRequest) (*models.Reservation, error)
	GetReservations(ctx context.Context, req ListReservationsRequest) ([]models.Reservation, int, error)
	UpdateReservation(ctx context.Context, id int64, req UpdateReservationRequest) (*models.Reservation, error)
	DeleteReservation(ctx context.Context, id int64) error
	GetAvailability(ctx context.Context, date string) (*models.Availability, error)
}

type reservationService struct {
	repo  repositories.ReservationRepository
	cfg   ReservationConfig
	clock Clock
}

// NewReservationService creates a new instance of ReservationService.
func NewReservationService(repo repositories.ReservationRepository, cfg ReservationConfig, clock Clock) (ReservationService, error) {
	if repo == nil {
		return nil, errors.New("new reservation service: repository is nil")
	}
	if clock == nil {
		clock = RealClock{}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Catalog.group == nil {
		cfg.Catalog = NewServiceCatalog(DefaultGroupServices)
	}
	if cfg.DefaultStatus == "" {
		cfg.DefaultStatus = models.ReservationStatusConfirmed
	}
	return &reservationService{repo: repo, cfg: cfg, clock: clock}, nil
}

// admission is a create request after input validation.
type admission struct {
	clientID int64
	service  string
	date     time.Time
	slot     SlotTime
	isGroup  bool
}

func (s *reservationService) parseCreateRequest(req CreateReservationRequest) (admission, error) {
	if !req.ClientID.Set || utils.IsEmpty(req.Service) || utils.IsEmpty(req.Date) || utils.IsEmpty(req.Time) {
		return admission{}, ErrMissingField
	}
	clientID, err := req.ClientID.Int64()
	if err != nil || clientID <= 0 {
		return admission{}, ErrInvalidClientID.withDetail("%q", req.ClientID.Raw)
	}
	date, err := ParseDate(req.Date, s.cfg.Location)
	if err != nil {
		return admission{}, err
	}
	slot, err := ParseSlotTime(req.Time)
	if err != nil {
		return admission{}, err
	}
	return admission{clientID: clientID, service: req.Service, date: date, slot: slot}, nil
}

// CreateReservation validates the request, applies the scheduling rules in order and stores the reservation.
func (s *reservationService) CreateReservation(ctx context.Context, req CreateReservationRequest) (*models.Reservation, error) {
	a, err := s.parseCreateRequest(req)
	if err != nil {
		return nil, err
	}

	if a.date.Before(NextWeekStart(s.clock.Now().In(s.cfg.Location))) {
		return nil, s.reject(a, ErrTooSoon)
	}
	if !a.slot.InServiceHours() {
		return nil, s.reject(a, ErrOutOfHours)
	}
	a.isGroup = s.cfg.Catalog.IsGroup(a.service)

	var created *models.Reservation
	admit := func(repo repositories.ReservationRepository) error {
		var admitErr error
		created, admitErr = s.admit(ctx, repo, a)
		return admitErr
	}

	if s.cfg.SerializeAdmissions {
		err = s.repo.WithDayLock(ctx, a.date, admit)
	} else {
		err = admit(s.repo)
	}
	if err != nil {
		if _, ok := AsReservationError(err); ok {
			return nil, err
		}
		return nil, s.storeError(err, "admitting reservation")
	}

	utils.LogInfo("Reservation admitted", map[string]interface{}{
		"reservation_id": created.ID,
		"client_id":      created.ClientID,
		"service":        created.Service,
		"date":           created.Date.Format(DateLayout),
		"time":           created.Time,
		"is_group":       created.IsGroup,
	})
	return s.localize(created), nil
}

// admit runs the exclusivity, adjacency and capacity checks and inserts the reservation.
func (s *reservationService) admit(ctx context.Context, repo repositories.ReservationRepository, a admission) (*models.Reservation, error) {
	label := a.slot.Label()

	if !a.isGroup {
		notGroup := false
		taken, err := repo.FindFirstReservation(ctx, repositories.ReservationQuery{
			Date: &a.date, Time: label, IsGroup: &notGroup,
		})
		if err != nil {
			return nil, s.storeError(err, "checking slot exclusivity")
		}
		if taken != nil {
			return nil, s.reject(a, ErrSlotTaken)
		}

		adjacent := AdjacentSlotLabels(a.slot)
		neighbours, err := repo.FindReservations(ctx, repositories.ReservationQuery{
			Date: &a.date, Service: a.service, Times: adjacent[:],
		})
		if err != nil {
			return nil, s.storeError(err, "checking adjacent slots")
		}
		if len(neighbours) > 0 {
			return nil, s.reject(a, ErrAdjacentSlotTaken)
		}
	}

	day, err := repo.FindReservations(ctx, repositories.ReservationQuery{Date: &a.date})
	if err != nil {
		return nil, s.storeError(err, "loading day reservations")
	}
	if IsDayFull(day) {
		return nil, s.reject(a, ErrDayFull)
	}

	created, err := repo.CreateReservation(ctx, &models.Reservation{
		ClientID: a.clientID,
		Service:  a.service,
		Date:     a.date,
		Time:     label,
		IsGroup:  a.isGroup,
		Status:   string(s.cfg.DefaultStatus),
	})
	if err != nil {
		if errors.Is(err, repositories.ErrForeignKey) {
			return nil, ErrClientNotFound.withCause(err)
		}
		return nil, s.storeError(err, "creating reservation")
	}
	return created, nil
}

// GetReservations lists reservations filtered by status, date and client.
func (s *reservationService) GetReservations(ctx context.Context, req ListReservationsRequest) ([]models.Reservation, int, error) {
	filters := models.ReservationFilters{ClientID: req.ClientID, Page: req.Page, PageSize: req.PageSize}
	if status := strings.TrimSpace(req.Status); status != "" {
		if !models.IsValidReservationStatus(status) {
			return nil, 0, ErrInvalidStatus.withDetail("%q", status)
		}
		filters.Status = &status
	}
	if !utils.IsEmpty(req.Date) {
		date, err := ParseDate(req.Date, s.cfg.Location)
		if err != nil {
			return nil, 0, err
		}
		filters.Date = &date
	}

	reservations, total, err := s.repo.ListReservations(ctx, filters)
	if err != nil {
		return nil, 0, s.storeError(err, "listing reservations")
	}
	for i := range reservations {
		reservations[i].Date = reservations[i].Date.In(s.cfg.Location)
	}
	return reservations, total, nil
}

// UpdateReservation writes the given fields through. Booking rules are not re-applied.
func (s *reservationService) UpdateReservation(ctx context.Context, id int64, req UpdateReservationRequest) (*models.Reservation, error) {
	patch := models.ReservationPatch{ClientID: req.ClientID, Service: req.Service}
	if req.Date != nil {
		date, err := ParseDate(*req.Date, s.cfg.Location)
		if err != nil {
			return nil, err
		}
		patch.Date = &date
	}
	if req.Time != nil {
		slot, err := ParseSlotTime(*req.Time)
		if err != nil {
			return nil, err
		}
		label := slot.Label()
		patch.Time = &label
	}
	if req.Status != nil {
		if !models.IsValidReservationStatus(*req.Status) {
			return nil, ErrInvalidStatus.withDetail("%q", *req.Status)
		}
		patch.Status = req.Status
	}

	updated, err := s.repo.UpdateReservation(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrReservationNotFound.withDetail("ID %d", id)
		case errors.Is(err, repositories.ErrForeignKey):
			return nil, ErrClientNotFound.withCause(err)
		}
		return nil, s.storeError(err, fmt.Sprintf("updating reservation ID %d", id))
	}
	return s.localize(updated), nil
}

// DeleteReservation removes a reservation. A missing id is reported as ErrReservationNotFound.
func (s *reservationService) DeleteReservation(ctx context.Context, id int64) error {
	if _, err := s.repo.DeleteReservation(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrReservationNotFound.withDetail("ID %d", id)
		}
		return s.storeError(err, fmt.Sprintf("deleting reservation ID %d", id))
	}
	utils.LogInfo("Reservation deleted", map[string]interface{}{"reservation_id": id})
	return nil
}

// GetAvailability reports which canonical slots of date can still take an individual booking.
func (s *reservationService) GetAvailability(ctx context.Context, date string) (*models.Availability, error) {
	if utils.IsEmpty(date) {
		return nil, ErrMissingField.withDetail("date")
	}
	day, err := ParseDate(date, s.cfg.Location)
	if err != nil {
		return nil, err
	}

	reservations, err := s.repo.FindReservations(ctx, repositories.ReservationQuery{Date: &day})
	if err != nil {
		return nil, s.storeError(err, "loading day reservations")
	}
	return &models.Availability{
		Date:  day.Format(DateLayout),
		Slots: SlotAvailability(reservations),
		Order: ServiceSlots(),
	}, nil
}

func (s *reservationService) reject(a admission, ruleErr *ReservationError) error {
	utils.LogWarn("Reservation rejected", map[string]interface{}{
		"code":      ruleErr.Code,
		"client_id": a.clientID,
		"service":   a.service,
		"date":      a.date.Format(DateLayout),
		"time":      a.slot.Label(),
	})
	return ruleErr
}

func (s *reservationService) storeError(err error, action string) error {
	utils.LogError(err, "Reservation store failure", map[string]interface{}{"action": action})
	return ErrReservationStore.withCause(err)
}

func (s *reservationService) localize(r *models.Reservation) *models.Reservation {
	r.Date = r.Date.In(s.cfg.Location)
	return r
}
