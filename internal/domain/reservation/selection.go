package reservation

import (
	"fmt"

	"github.com/sool-market/service-reservation/internal/platform/apperr"
)

// Form fields a validation error can point the customer at.
const (
	FieldSchedule   = "schedule"
	FieldExperience = "experience"
	FieldCustomer   = "customer"
	FieldCount      = "count"
)

// SlotView is one bookable time as the customer sees it. A time whose
// capacity is unknown is never reported as sold out.
type SlotView struct {
	Time          string `json:"time"`
	Remaining     *int   `json:"remaining,omitempty"`
	EffectiveMax  int    `json:"effective_max"`
	CapacityKnown bool   `json:"capacity_known"`
	SoldOut       bool   `json:"sold_out"`
}

// Selection is the date, time and head-count part of a booking, together with
// the availability data fetched for it. Changing an earlier field always resets
// the fields after it.
type Selection struct {
	Date        string             `json:"date,omitempty"`
	Time        string             `json:"time,omitempty"`
	HeadCount   int                `json:"head_count"`
	Month       string             `json:"month,omitempty"`
	Unavailable UnavailableDateSet `json:"unavailable"`
	Slots       SlotAvailability   `json:"slots"`
	SlotsDate   string             `json:"slots_date,omitempty"`
	// FetchSeq grows with every date selection and tags the slot fetch it starts.
	FetchSeq int64 `json:"fetch_seq"`
}

// NewSelection returns an empty selection with the default head-count.
func NewSelection() Selection {
	return Selection{HeadCount: 1, Unavailable: UnavailableDateSet{}}
}

// SetUnavailable records the unavailable dates of month ("YYYY-MM").
func (s *Selection) SetUnavailable(month string, dates UnavailableDateSet) {
	if dates == nil {
		dates = UnavailableDateSet{}
	}
	s.Month = month
	s.Unavailable = dates
}

// SelectDate picks a new date. Time and fetched slots are cleared and the
// head-count goes back to 1; the caller fetches slots for the new date.
func (s *Selection) SelectDate(date string) error {
	if !ValidDate(date) {
		return apperr.NewFieldError(FieldSchedule, fmt.Sprintf("invalid date %q", date))
	}
	if s.Unavailable.Contains(date) {
		return apperr.NewFieldError(FieldSchedule, fmt.Sprintf("%s has no bookable times", date))
	}
	s.Date = date
	s.Time = ""
	s.HeadCount = 1
	s.Slots = SlotAvailability{}
	s.SlotsDate = ""
	s.FetchSeq++
	return nil
}

// ApplySlots stores slots fetched for the selection tagged seq. Results of an
// older selection are dropped and false is returned, even for the same date.
func (s *Selection) ApplySlots(seq int64, date string, slots SlotAvailability) bool {
	if seq != s.FetchSeq || date != s.Date {
		return false
	}
	s.Slots = slots
	s.SlotsDate = date
	return true
}

// EffectiveMaxAt is the ceiling for slotTime on the selected date.
func (s *Selection) EffectiveMaxAt(slotTime string, experienceMax int, own *OwnBooking) int {
	return EffectiveMax(s.Slots.Slot(s.Date, slotTime), experienceMax, own)
}

// CurrentMax is the ceiling of the selected slot, or 0 when no time is selected.
func (s *Selection) CurrentMax(experienceMax int, own *OwnBooking) int {
	if s.Time == "" {
		return 0
	}
	return s.EffectiveMaxAt(s.Time, experienceMax, own)
}

// CapacityKnownAt reports whether slotTime on the selected date has a ceiling.
func (s *Selection) CapacityKnownAt(slotTime string, experienceMax int) bool {
	return CapacityKnown(s.Slots.Slot(s.Date, slotTime), experienceMax)
}

// SelectTime picks one of the fetched times and resets the head-count to 1.
func (s *Selection) SelectTime(raw string, experienceMax int, own *OwnBooking) error {
	if s.Date == "" {
		return apperr.NewFieldError(FieldSchedule, "select a date first")
	}
	slotTime, err := NormalizeTime(raw)
	if err != nil {
		return apperr.NewFieldError(FieldSchedule, err.Error())
	}
	if !s.Slots.Has(slotTime) {
		return apperr.NewFieldError(FieldSchedule, fmt.Sprintf("%s is not bookable on %s", slotTime, s.Date))
	}
	if err := checkSlot(s.Slots.Slot(s.Date, slotTime), experienceMax, own); err != nil {
		return err
	}
	s.Time = slotTime
	s.HeadCount = 1
	return nil
}

// SetHeadCount fits requested into the selected slot's ceiling. clamped is
// true when the request was lowered.
func (s *Selection) SetHeadCount(requested, experienceMax int, own *OwnBooking) (clamped bool, err error) {
	if s.Time == "" {
		return false, apperr.NewFieldError(FieldSchedule, "select a time first")
	}
	slot := s.Slots.Slot(s.Date, s.Time)
	if err := checkSlot(slot, experienceMax, own); err != nil {
		return false, err
	}
	count, clamped, err := ClampHeadCount(requested, EffectiveMax(slot, experienceMax, own))
	if err != nil {
		return false, err
	}
	s.HeadCount = count
	return clamped, nil
}

// SlotViews lists the fetched times with their ceilings, in the order received.
func (s *Selection) SlotViews(experienceMax int, own *OwnBooking) []SlotView {
	views := make([]SlotView, 0, len(s.Slots.Times))
	for _, t := range s.Slots.Times {
		slot := s.Slots.Slot(s.Date, t)
		ceiling := EffectiveMax(slot, experienceMax, own)
		known := CapacityKnown(slot, experienceMax)
		views = append(views, SlotView{
			Time:          t,
			Remaining:     slot.Remaining,
			EffectiveMax:  ceiling,
			CapacityKnown: known,
			SoldOut:       known && ceiling == 0,
		})
	}
	return views
}

func checkSlot(slot Slot, experienceMax int, own *OwnBooking) error {
	if !CapacityKnown(slot, experienceMax) {
		return ErrCapacityUnknown
	}
	if EffectiveMax(slot, experienceMax, own) == 0 {
		return apperr.NewFieldError(FieldSchedule, fmt.Sprintf("%s %s is sold out", slot.Date, slot.Time))
	}
	return nil
}
