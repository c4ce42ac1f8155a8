package models

import "time"

// ReservationStatus defines the type for reservation statuses.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusCompleted ReservationStatus = "completed"
)

// IsValidReservationStatus checks if the provided status string is a valid ReservationStatus.
func IsValidReservationStatus(status string) bool {
	switch ReservationStatus(status) {
	case ReservationStatusPending,
		ReservationStatusConfirmed,
		ReservationStatusCancelled,
		ReservationStatusCompleted:
		return true
	default:
		return false
	}
}

// Reservation is a booked hourly slot for one service.
// Date is midnight of the booked day; Time is the slot label ("14:00").
type Reservation struct {
	ID        int64          `json:"id" db:"id"`
	ClientID  int64          `json:"client_id" db:"client_id"`
	Service   string         `json:"service" db:"service"`
	Date      time.Time      `json:"date" db:"date"`
	Time      string         `json:"time" db:"time"`
	IsGroup   bool           `json:"is_group" db:"is_group"`
	Status    string         `json:"status" db:"status"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
	Client    *ClientSummary `json:"client,omitempty"`
}

// ReservationPatch carries the fields of a partial update. Nil fields are left untouched.
type ReservationPatch struct {
	ClientID *int64
	Service  *string
	Date     *time.Time
	Time     *string
	Status   *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ReservationPatch) IsEmpty() bool {
	return p.ClientID == nil && p.Service == nil && p.Date == nil && p.Time == nil && p.Status == nil
}

// ReservationFilters defines the available filters for listing reservations.
// Date matches the half-open range [Date, Date+1 day) over the stored timestamp.
type ReservationFilters struct {
	Status   *string
	Date     *time.Time
	ClientID *int64
	Page     int
	PageSize int
}

// SlotAvailability is one entry of an availability report.
type SlotAvailability struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// Availability reports, for a date, which canonical slots can still take an individual booking.
type Availability struct {
	Date  string          `json:"date"`
	Slots map[string]bool `json:"availability"`
	Order []string        `json:"slots"`
}

// List returns the slots in canonical order.
func (a Availability) List() []SlotAvailability {
	out := make([]SlotAvailability, 0, len(a.Order))
	for _, label := range a.Order {
		out = append(out, SlotAvailability{Time: label, Available: a.Slots[label]})
	}
	return out
}
