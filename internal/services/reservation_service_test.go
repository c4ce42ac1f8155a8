package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"studio_booking_backend/internal/models"
	"studio_booking_backend/internal/repositories"
	"studio_booking_backend/pkg/utils"
)

// Wednesday; the next calendar week starts on Sunday 2025-06-15.
var testNow = time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, repo repositories.ReservationRepository, serialize bool) ReservationService {
	t.Helper()
	svc, err := NewReservationService(repo, ReservationConfig{
		Catalog:             NewServiceCatalog(DefaultGroupServices),
		Location:            time.UTC,
		SerializeAdmissions: serialize,
	}, fixedClock{now: testNow})
	if err != nil {
		t.Fatalf("NewReservationService: %v", err)
	}
	return svc
}

func booking(clientID int64, service, date, tm string) CreateReservationRequest {
	return CreateReservationRequest{
		ClientID: utils.FlexibleID{Raw: fmt.Sprint(clientID), Set: true},
		Service:  service,
		Date:     date,
		Time:     tm,
	}
}

func mustCreate(t *testing.T, svc ReservationService, req CreateReservationRequest) *models.Reservation {
	t.Helper()
	res, err := svc.CreateReservation(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateReservation(%+v): %v", req, err)
	}
	return res
}

func TestNewReservationServiceRequiresRepo(t *testing.T) {
	if _, err := NewReservationService(nil, ReservationConfig{}, nil); err == nil {
		t.Fatal("expected error for nil repository")
	}
}

func TestCreateReservationAccepted(t *testing.T) {
	repo := repositories.NewMemoryReservationRepository()
	svc := newTestService(t, repo, false)

	res := mustCreate(t, svc, booking(7, "Masaje", "2025-06-16", "14:00"))

	if res.ID == 0 {
		t.Fatal("expected an assigned ID")
	}
	if res.ClientID != 7 || res.Service != "Masaje" || res.Time != "14:00" {
		t.Fatalf("unexpected reservation %+v", res)
	}
	if res.IsGroup {
		t.Fatal("Masaje must not be a group booking")
	}
	if res.Status != string(models.ReservationStatusConfirmed) {
		t.Fatalf("Status = %q, want confirmed", res.Status)
	}
	if want := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC); !res.Date.Equal(want) {
		t.Fatalf("Date = %s, want %s", res.Date, want)
	}

	stored, _ := repo.FindReservations(context.Background(), repositories.ReservationQuery{})
	if len(stored) != 1 {
		t.Fatalf("stored %d reservations, want 1", len(stored))
	}
}

func TestCreateReservationDerivesGroupFlag(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)
	res := mustCreate(t, svc, booking(1, "Clase de Yoga", "2025-06-16", "14:00"))
	if !res.IsGroup {
		t.Fatal("Clase de Yoga must be stored as a group booking")
	}
}

func TestCreateReservationNormalizesTimeLabel(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)
	mustCreate(t, svc, booking(1, "Masaje", "2025-06-16", "14:00"))

	// "13:00" is written without padding; the adjacency lookup must still find 14:00.
	_, err := svc.CreateReservation(context.Background(), booking(2, "Masaje", "2025-06-16", "13:00"))
	if !errors.Is(err, ErrAdjacentSlotTaken) {
		t.Fatalf("err = %v, want ErrAdjacentSlotTaken", err)
	}
}

func TestCreateReservationValidation(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)

	var badID CreateReservationRequest
	if err := json.Unmarshal([]byte(`{"client_id":"abc","service":"Masaje","date":"2025-06-16","time":"14:00"}`), &badID); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var stringID CreateReservationRequest
	if err := json.Unmarshal([]byte(`{"client_id":"12","service":"Masaje","date":"2025-06-16","time":"14:00"}`), &stringID); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	tests := []struct {
		name string
		req  CreateReservationRequest
		want error
	}{
		{"missing client", CreateReservationRequest{Service: "Masaje", Date: "2025-06-16", Time: "14:00"}, ErrMissingField},
		{"missing service", booking(1, "", "2025-06-16", "14:00"), ErrMissingField},
		{"missing date", booking(1, "Masaje", "", "14:00"), ErrMissingField},
		{"missing time", booking(1, "Masaje", "2025-06-16", "  "), ErrMissingField},
		{"non-integer client", badID, ErrInvalidClientID},
		{"zero client", booking(0, "Masaje", "2025-06-16", "14:00"), ErrInvalidClientID},
		{"negative client", booking(-5, "Masaje", "2025-06-16", "14:00"), ErrInvalidClientID},
		{"bad date", booking(1, "Masaje", "16/06/2025", "14:00"), ErrInvalidDateFormat},
		{"bad time", booking(1, "Masaje", "2025-06-16", "2pm"), ErrInvalidTimeFormat},
		// Shape errors are reported before any rule, even for a date that is too soon.
		{"bad time on past date", booking(1, "Masaje", "2020-01-01", "25:00"), ErrInvalidTimeFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateReservation(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			re, ok := AsReservationError(err)
			if !ok || re.Kind != KindValidation {
				t.Fatalf("expected a validation error, got %#v", err)
			}
		})
	}

	res, err := svc.CreateReservation(context.Background(), stringID)
	if err != nil {
		t.Fatalf("numeric string client id rejected: %v", err)
	}
	if res.ClientID != 12 {
		t.Fatalf("ClientID = %d, want 12", res.ClientID)
	}
}

func TestCreateReservationTooSoon(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)

	for _, date := range []string{"2025-06-11", "2025-06-12", "2025-06-14"} {
		if _, err := svc.CreateReservation(context.Background(), booking(1, "Masaje", date, "14:00")); !errors.Is(err, ErrTooSoon) {
			t.Fatalf("%s: err = %v, want ErrTooSoon", date, err)
		}
	}
	// The first day of the next week is accepted.
	mustCreate(t, svc, booking(1, "Masaje", "2025-06-15", "14:00"))
}

func TestCreateReservationTooSoonOnSunday(t *testing.T) {
	sunday := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	svc, err := NewReservationService(repositories.NewMemoryReservationRepository(), ReservationConfig{
		Location: time.UTC,
	}, fixedClock{now: sunday})
	if err != nil {
		t.Fatal(err)
	}

	// On Sunday the booking window opens seven days later, not the next day.
	if _, err := svc.CreateReservation(context.Background(), booking(1, "Masaje", "2025-06-16", "14:00")); !errors.Is(err, ErrTooSoon) {
		t.Fatalf("err = %v, want ErrTooSoon", err)
	}
	mustCreate(t, svc, booking(1, "Masaje", "2025-06-22", "14:00"))
}

func TestCreateReservationOutOfHours(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)

	for _, tm := range []string{"11:00", "11:59", "22:00", "23:30", "0:00"} {
		_, err := svc.CreateReservation(context.Background(), booking(1, "Masaje", "2025-06-16", tm))
		if !errors.Is(err, ErrOutOfHours) {
			t.Fatalf("%s: err = %v, want ErrOutOfHours", tm, err)
		}
	}
	mustCreate(t, svc, booking(1, "Masaje", "2025-06-16", "12:00"))
	mustCreate(t, svc, booking(2, "Masaje", "2025-06-16", "21:00"))
}

func TestCreateReservationTooSoonCheckedBeforeHours(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)
	_, err := svc.CreateReservation(context.Background(), booking(1, "Masaje", "2025-06-12", "23:00"))
	if !errors.Is(err, ErrTooSoon) {
		t.Fatalf("err = %v, want ErrTooSoon", err)
	}
}

func TestCreateReservationSlotTaken(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)
	mustCreate(t, svc, booking(1, "Masaje", "2025-06-16", "14:00"))

	_, err := svc.CreateReservation(context.Background(), booking(2, "Reiki", "2025-06-16", "14:00"))
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("err = %v, want ErrSlotTaken", err)
	}
	re, _ := AsReservationError(err)
	if re.Kind != KindRule || re.Code != "slot-taken" {
		t.Fatalf("unexpected error %+v", re)
	}

	// Same slot on another day is free.
	mustCreate(t, svc, booking(2, "Reiki", "2025-06-17", "14:00"))
}

func TestCreateReservationGroupBookingsShareSlots(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)

	for client := int64(1); client <= 5; client++ {
		mustCreate(t, svc, booking(client, "Clase de Yoga", "2025-06-16", "14:00"))
	}
	// A group booking on the slot does not block an individual one.
	mustCreate(t, svc, booking(6, "Masaje", "2025-06-16", "14:00"))
	// A group booking is accepted next to an existing individual booking.
	mustCreate(t, svc, booking(7, "Pilates Grupal", "2025-06-16", "14:00"))
}

func TestCreateReservationAdjacentSlot(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)
	mustCreate(t, svc, booking(1, "Masaje", "2025-06-16", "14:00"))

	for _, tm := range []string{"13:00", "15:00"} {
		_, err := svc.CreateReservation(context.Background(), booking(2, "Masaje", "2025-06-16", tm))
		if !errors.Is(err, ErrAdjacentSlotTaken) {
			t.Fatalf("%s: err = %v, want ErrAdjacentSlotTaken", tm, err)
		}
	}

	// Two hours away, another service, or another day are all fine.
	mustCreate(t, svc, booking(2, "Masaje", "2025-06-16", "16:00"))
	mustCreate(t, svc, booking(3, "Reiki", "2025-06-16", "13:00"))
	mustCreate(t, svc, booking(4, "Masaje", "2025-06-17", "15:00"))
}

func TestCreateReservationDayFull(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)
	for i, slot := range ServiceSlots() {
		mustCreate(t, svc, booking(int64(i+1), "Clase de Yoga", "2025-06-16", slot))
	}

	_, err := svc.CreateReservation(context.Background(), booking(99, "Pilates Grupal", "2025-06-16", "12:00"))
	if !errors.Is(err, ErrDayFull) {
		t.Fatalf("group booking: err = %v, want ErrDayFull", err)
	}
	// Every slot only holds group bookings, so the individual booking reaches the capacity check.
	_, err = svc.CreateReservation(context.Background(), booking(99, "Masaje", "2025-06-16", "14:00"))
	if !errors.Is(err, ErrDayFull) {
		t.Fatalf("individual booking: err = %v, want ErrDayFull", err)
	}

	mustCreate(t, svc, booking(99, "Masaje", "2025-06-17", "14:00"))
}

func TestCreateReservationNineSlotsIsNotFull(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)
	for i, slot := range ServiceSlots()[:9] {
		mustCreate(t, svc, booking(int64(i+1), "Clase de Yoga", "2025-06-16", slot))
	}
	mustCreate(t, svc, booking(42, "Clase de Yoga", "2025-06-16", "12:00"))
}

func TestCreateReservationRuleOrder(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)
	mustCreate(t, svc, booking(1, "Masaje", "2025-06-16", "14:00"))
	mustCreate(t, svc, booking(2, "Reiki", "2025-06-16", "15:00"))

	// 15:00 is taken by Reiki and adjacent to Masaje at 14:00; exclusivity is reported first.
	_, err := svc.CreateReservation(context.Background(), booking(3, "Masaje", "2025-06-16", "15:00"))
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("err = %v, want ErrSlotTaken", err)
	}
}

func TestCreateReservationSerializedAdmissions(t *testing.T) {
	repo := repositories.NewMemoryReservationRepository()
	svc := newTestService(t, repo, true)

	const attempts = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		taken    int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.CreateReservation(context.Background(), booking(int64(i+1), fmt.Sprintf("Servicio %d", i), "2025-06-16", "14:00"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, ErrSlotTaken):
				taken++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if accepted != 1 || taken != attempts-1 {
		t.Fatalf("accepted=%d taken=%d, want 1 and %d", accepted, taken, attempts-1)
	}
	stored, _ := repo.FindReservations(context.Background(), repositories.ReservationQuery{})
	if len(stored) != 1 {
		t.Fatalf("stored %d reservations, want 1", len(stored))
	}
}

type failingRepo struct {
	*repositories.MemoryReservationRepository
	findErr   error
	createErr error
}

func (r *failingRepo) FindFirstReservation(ctx context.Context, q repositories.ReservationQuery) (*models.Reservation, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.MemoryReservationRepository.FindFirstReservation(ctx, q)
}

func (r *failingRepo) CreateReservation(ctx context.Context, res *models.Reservation) (*models.Reservation, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	return r.MemoryReservationRepository.CreateReservation(ctx, res)
}

func TestCreateReservationStoreFailure(t *testing.T) {
	repo := &failingRepo{
		MemoryReservationRepository: repositories.NewMemoryReservationRepository(),
		findErr:                     fmt.Errorf("%w: connection refused", repositories.ErrDatabaseError),
	}
	svc := newTestService(t, repo, false)

	_, err := svc.CreateReservation(context.Background(), booking(1, "Masaje", "2025-06-16", "14:00"))
	if !errors.Is(err, ErrReservationStore) {
		t.Fatalf("err = %v, want ErrReservationStore", err)
	}
	if !errors.Is(err, repositories.ErrDatabaseError) {
		t.Fatal("store error should keep its cause")
	}
}

func TestCreateReservationUnknownClient(t *testing.T) {
	repo := &failingRepo{
		MemoryReservationRepository: repositories.NewMemoryReservationRepository(),
		createErr:                   fmt.Errorf("%w: insert violates reservations_client_id_fkey", repositories.ErrForeignKey),
	}
	svc := newTestService(t, repo, false)

	_, err := svc.CreateReservation(context.Background(), booking(404, "Masaje", "2025-06-16", "14:00"))
	if !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("err = %v, want ErrClientNotFound", err)
	}
}

func TestUpdateReservationSkipsRules(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)
	first := mustCreate(t, svc, booking(1, "Masaje", "2025-06-16", "14:00"))
	second := mustCreate(t, svc, booking(2, "Reiki", "2025-06-16", "17:00"))

	// Moving onto a taken slot, outside service hours and into the past is written through.
	tm, date, status := "14:00", "2020-01-01", "pending"
	updated, err := svc.UpdateReservation(context.Background(), second.ID, UpdateReservationRequest{Time: &tm})
	if err != nil {
		t.Fatalf("UpdateReservation: %v", err)
	}
	if updated.Time != "14:00" {
		t.Fatalf("Time = %q, want 14:00", updated.Time)
	}

	late := "23:00"
	updated, err = svc.UpdateReservation(context.Background(), first.ID, UpdateReservationRequest{Time: &late, Date: &date, Status: &status})
	if err != nil {
		t.Fatalf("UpdateReservation: %v", err)
	}
	if updated.Time != "23:00" || updated.Status != "pending" || updated.Date.Year() != 2020 {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if updated.IsGroup {
		t.Fatal("is_group must not change on update")
	}
}

func TestUpdateReservationErrors(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)
	res := mustCreate(t, svc, booking(1, "Masaje", "2025-06-16", "14:00"))

	bad := "archived"
	if _, err := svc.UpdateReservation(context.Background(), res.ID, UpdateReservationRequest{Status: &bad}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
	badTime := "noon"
	if _, err := svc.UpdateReservation(context.Background(), res.ID, UpdateReservationRequest{Time: &badTime}); !errors.Is(err, ErrInvalidTimeFormat) {
		t.Fatalf("err = %v, want ErrInvalidTimeFormat", err)
	}
	badDate := "June 16"
	if _, err := svc.UpdateReservation(context.Background(), res.ID, UpdateReservationRequest{Date: &badDate}); !errors.Is(err, ErrInvalidDateFormat) {
		t.Fatalf("err = %v, want ErrInvalidDateFormat", err)
	}
	service := "Reiki"
	if _, err := svc.UpdateReservation(context.Background(), 999, UpdateReservationRequest{Service: &service}); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("err = %v, want ErrReservationNotFound", err)
	}
}

func TestDeleteReservation(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)
	res := mustCreate(t, svc, booking(1, "Masaje", "2025-06-16", "14:00"))

	if err := svc.DeleteReservation(context.Background(), res.ID); err != nil {
		t.Fatalf("DeleteReservation: %v", err)
	}
	if err := svc.DeleteReservation(context.Background(), res.ID); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("second delete err = %v, want ErrReservationNotFound", err)
	}

	// The freed slot can be booked again.
	mustCreate(t, svc, booking(2, "Reiki", "2025-06-16", "14:00"))
}

func TestGetAvailability(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)
	mustCreate(t, svc, booking(1, "Masaje", "2025-06-16", "14:00"))
	mustCreate(t, svc, booking(2, "Clase de Yoga", "2025-06-16", "15:00"))
	mustCreate(t, svc, booking(3, "Reiki", "2025-06-17", "16:00"))

	av, err := svc.GetAvailability(context.Background(), "2025-06-16")
	if err != nil {
		t.Fatalf("GetAvailability: %v", err)
	}
	if av.Date != "2025-06-16" {
		t.Fatalf("Date = %q", av.Date)
	}
	if len(av.Slots) != SlotsPerDay || len(av.Order) != SlotsPerDay {
		t.Fatalf("got %d slots / %d ordered, want %d", len(av.Slots), len(av.Order), SlotsPerDay)
	}
	for _, slot := range av.List() {
		want := slot.Time != "14:00"
		if slot.Available != want {
			t.Fatalf("slot %s available = %v, want %v", slot.Time, slot.Available, want)
		}
	}
}

func TestGetAvailabilityValidation(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)
	if _, err := svc.GetAvailability(context.Background(), ""); !errors.Is(err, ErrMissingField) {
		t.Fatalf("err = %v, want ErrMissingField", err)
	}
	if _, err := svc.GetAvailability(context.Background(), "16-06-2025"); !errors.Is(err, ErrInvalidDateFormat) {
		t.Fatalf("err = %v, want ErrInvalidDateFormat", err)
	}
}

func TestGetReservationsFilters(t *testing.T) {
	svc := newTestService(t, repositories.NewMemoryReservationRepository(), false)
	a := mustCreate(t, svc, booking(1, "Masaje", "2025-06-16", "14:00"))
	mustCreate(t, svc, booking(2, "Reiki", "2025-06-16", "12:00"))
	mustCreate(t, svc, booking(1, "Reiki", "2025-06-17", "12:00"))

	cancelled := "cancelled"
	if _, err := svc.UpdateReservation(context.Background(), a.ID, UpdateReservationRequest{Status: &cancelled}); err != nil {
		t.Fatal(err)
	}

	all, total, err := svc.GetReservations(context.Background(), ListReservationsRequest{})
	if err != nil || total != 3 || len(all) != 3 {
		t.Fatalf("all: len=%d total=%d err=%v", len(all), total, err)
	}

	day, total, err := svc.GetReservations(context.Background(), ListReservationsRequest{Date: "2025-06-16"})
	if err != nil || total != 2 {
		t.Fatalf("by date: total=%d err=%v", total, err)
	}
	if day[0].Time != "12:00" || day[1].Time != "14:00" {
		t.Fatalf("by date: unexpected order %s, %s", day[0].Time, day[1].Time)
	}

	byStatus, total, err := svc.GetReservations(context.Background(), ListReservationsRequest{Status: "cancelled"})
	if err != nil || total != 1 || byStatus[0].ID != a.ID {
		t.Fatalf("by status: total=%d err=%v", total, err)
	}

	client := int64(1)
	_, total, err = svc.GetReservations(context.Background(), ListReservationsRequest{ClientID: &client})
	if err != nil || total != 2 {
		t.Fatalf("by client: total=%d err=%v", total, err)
	}

	page, total, err := svc.GetReservations(context.Background(), ListReservationsRequest{Page: 2, PageSize: 2})
	if err != nil || total != 3 || len(page) != 1 {
		t.Fatalf("paged: len=%d total=%d err=%v", len(page), total, err)
	}

	if _, _, err := svc.GetReservations(context.Background(), ListReservationsRequest{Status: "archived"}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}
