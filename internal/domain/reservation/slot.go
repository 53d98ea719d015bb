package reservation

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	TimeLayout  = "15:04"
	MonthLayout = "2006-01"
)

// Slot is one (date, time) of an experience. Remaining is nil when nobody has booked it yet.
type Slot struct {
	Date      string
	Time      string
	Remaining *int
}

// SlotAvailability is what the calendar reports for one experience and date.
type SlotAvailability struct {
	Times           []string       `json:"times"`
	RemainingByTime map[string]int `json:"remaining_by_time"`
}

// Empty reports whether no times are bookable.
func (a SlotAvailability) Empty() bool { return len(a.Times) == 0 }

// Has reports whether t is one of the bookable times.
func (a SlotAvailability) Has(t string) bool {
	for _, candidate := range a.Times {
		if candidate == t {
			return true
		}
	}
	return false
}

// Slot builds the slot for date and t. Times without a remaining count are open.
func (a SlotAvailability) Slot(date, t string) Slot {
	s := Slot{Date: date, Time: t}
	if remaining, ok := a.RemainingByTime[t]; ok {
		r := remaining
		s.Remaining = &r
	}
	return s
}

// NormalizeTime truncates "HH:MM:SS" to "HH:MM" and validates the result.
func NormalizeTime(raw string) (string, error) {
	if len(raw) >= len("15:04:05") {
		raw = raw[:len(TimeLayout)]
	}
	if _, err := time.Parse(TimeLayout, raw); err != nil {
		return "", fmt.Errorf("invalid time %q", raw)
	}
	return raw, nil
}

// ValidDate reports whether date is a "YYYY-MM-DD" calendar date.
func ValidDate(date string) bool {
	_, err := time.Parse(DateLayout, date)
	return err == nil
}

// UnavailableDateSet holds the dates of a month that have no bookable slot at all.
// It is distinct from a slot whose remaining count is zero.
type UnavailableDateSet map[string]struct{}

// NewUnavailableDateSet builds a set from a list of dates.
func NewUnavailableDateSet(dates ...string) UnavailableDateSet {
	set := make(UnavailableDateSet, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}

// Contains reports whether date is unavailable.
func (s UnavailableDateSet) Contains(date string) bool {
	_, ok := s[date]
	return ok
}

// Sorted returns the dates in ascending order.
func (s UnavailableDateSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (s UnavailableDateSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *UnavailableDateSet) UnmarshalJSON(data []byte) error {
	var dates []string
	if err := json.Unmarshal(data, &dates); err != nil {
		return err
	}
	*s = NewUnavailableDateSet(dates...)
	return nil
}
