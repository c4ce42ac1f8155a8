package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"studio_booking_backend/internal/models"
)

// Service window: whole-hour slots starting at OpeningHour, the last one starting at ClosingHour-1.
const (
	OpeningHour = 12
	ClosingHour = 22
	SlotsPerDay = ClosingHour - OpeningHour
)

// DateLayout is the wire format of reservation dates.
const DateLayout = "2006-01-02"

// DefaultGroupServices is the catalog used when no catalog file is configured.
var DefaultGroupServices = []string{"Clase de Yoga", "Taller de Meditación", "Pilates Grupal"}

// ServiceCatalog knows which service labels are group services. Matching is case-sensitive.
type ServiceCatalog struct {
	group map[string]struct{}
}

// NewServiceCatalog builds a catalog from the group service labels.
func NewServiceCatalog(groupServices []string) ServiceCatalog {
	c := ServiceCatalog{group: make(map[string]struct{}, len(groupServices))}
	for _, s := range groupServices {
		c.group[s] = struct{}{}
	}
	return c
}

// IsGroup reports whether service admits any number of bookings per slot.
func (c ServiceCatalog) IsGroup(service string) bool {
	_, ok := c.group[service]
	return ok
}

// GroupServices returns the group labels, sorted.
func (c ServiceCatalog) GroupServices() []string {
	out := make([]string, 0, len(c.group))
	for s := range c.group {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// NextWeekStart returns midnight of now + (7 - weekday) days, weekday 0 being Sunday.
// On a Sunday this is seven days ahead rather than the following day.
func NextWeekStart(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+7-int(now.Weekday()), 0, 0, 0, 0, now.Location())
}

// SlotTime is a parsed "H:MM" time of day.
type SlotTime struct {
	Hour   int
	Minute int
}

// Label renders the slot the way it is stored: hour without zero padding, two-digit minutes.
func (t SlotTime) Label() string {
	return SlotLabel(t.Hour, t.Minute)
}

// InServiceHours reports whether the slot starts inside [OpeningHour, ClosingHour).
func (t SlotTime) InServiceHours() bool {
	return t.Hour >= OpeningHour && t.Hour < ClosingHour
}

// SlotLabel formats an hour and minute as a slot label, e.g. SlotLabel(9, 0) == "9:00".
func SlotLabel(hour, minute int) string {
	return fmt.Sprintf("%d:%02d", hour, minute)
}

// ParseSlotTime parses "H:MM" or "HH:MM" on a 24-hour clock.
func ParseSlotTime(value string) (SlotTime, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 || len(parts[0]) < 1 || len(parts[0]) > 2 || len(parts[1]) != 2 ||
		!isDigits(parts[0]) || !isDigits(parts[1]) {
		return SlotTime{}, ErrInvalidTimeFormat.withDetail("%q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour > 23 {
		return SlotTime{}, ErrInvalidTimeFormat.withDetail("%q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute > 59 {
		return SlotTime{}, ErrInvalidTimeFormat.withDetail("%q", value)
	}
	return SlotTime{Hour: hour, Minute: minute}, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// AdjacentSlotLabels returns the labels one hour before and one hour after t.
func AdjacentSlotLabels(t SlotTime) [2]string {
	return [2]string{SlotLabel(t.Hour-1, t.Minute), SlotLabel(t.Hour+1, t.Minute)}
}

// ServiceSlots lists the canonical slot labels of a day: "12:00" through "21:00".
func ServiceSlots() []string {
	slots := make([]string, 0, SlotsPerDay)
	for h := OpeningHour; h < ClosingHour; h++ {
		slots = append(slots, SlotLabel(h, 0))
	}
	return slots
}

// IsDayFull reports whether the reservations of one day occupy every slot: at least
// SlotsPerDay distinct times are booked and each distinct time has a booking.
func IsDayFull(dayReservations []models.Reservation) bool {
	perTime := make(map[string]int)
	for _, r := range dayReservations {
		perTime[r.Time]++
	}
	if len(perTime) < SlotsPerDay {
		return false
	}
	for _, count := range perTime {
		if count <= 0 {
			return false
		}
	}
	return true
}

// ParseDate parses a reservation date and returns midnight of that day in loc.
// RFC 3339 timestamps are accepted and truncated to their calendar day in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if d, err := time.ParseInLocation(DateLayout, value, loc); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat.withDetail("%q", value)
	}
	y, m, d := ts.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
}

// SlotAvailability marks each canonical slot available unless a non-group reservation holds it.
func SlotAvailability(dayReservations []models.Reservation) map[string]bool {
	taken := make(map[string]bool)
	for _, r := range dayReservations {
		if !r.IsGroup {
			taken[r.Time] = true
		}
	}
	availability := make(map[string]bool, SlotsPerDay)
	for _, label := range ServiceSlots() {
		availability[label] = !taken[label]
	}
	return availability
}
