package reservation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sool-market/service-reservation/internal/platform/apperr"
)

const (
	// ErrorTTL is how long a validation error stays visible if the customer does nothing.
	ErrorTTL = 5 * time.Second

	// MinPhoneDigits is the shortest acceptable payer phone number.
	MinPhoneDigits = 10
)

// FieldError is a validation error shown next to one form field.
type FieldError struct {
	Field     string    `json:"field"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Active reports whether the error is still visible at now.
func (e *FieldError) Active(now time.Time) bool {
	return e != nil && now.Before(e.ExpiresAt)
}

// Form is the draft of a new booking.
type Form struct {
	Experience *Experience `json:"experience,omitempty"`
	Selection
	PayerName  string      `json:"payer_name,omitempty"`
	PayerPhone string      `json:"payer_phone,omitempty"`
	Error      *FieldError `json:"error,omitempty"`
	Notice     string      `json:"notice,omitempty"`
}

// NewForm returns an empty draft.
func NewForm() *Form {
	return &Form{Selection: NewSelection()}
}

func (f *Form) experienceMax() int {
	if f.Experience == nil {
		return 0
	}
	return f.Experience.MaxCount
}

// SelectExperience switches the draft to exp. Date, time, head-count and all
// fetched availability are reset.
func (f *Form) SelectExperience(exp Experience) {
	f.Experience = &exp
	seq := f.FetchSeq
	f.Selection = NewSelection()
	f.FetchSeq = seq
	f.Notice = ""
	f.clearError(FieldExperience, FieldSchedule, FieldCount)
}

// SelectDate picks a new date for the selected experience.
func (f *Form) SelectDate(date string) error {
	if f.Experience == nil {
		return apperr.NewFieldError(FieldExperience, "select an experience first")
	}
	if err := f.Selection.SelectDate(date); err != nil {
		return err
	}
	f.Notice = ""
	f.clearError(FieldSchedule, FieldCount)
	return nil
}

// SelectTime picks a time among the slots fetched for the selected date.
func (f *Form) SelectTime(raw string) error {
	if f.Experience == nil {
		return apperr.NewFieldError(FieldExperience, "select an experience first")
	}
	if err := f.Selection.SelectTime(raw, f.experienceMax(), nil); err != nil {
		return err
	}
	f.Notice = ""
	f.clearError(FieldSchedule, FieldCount)
	return nil
}

// SetHeadCount sets the head-count, lowering it to the slot ceiling when needed.
func (f *Form) SetHeadCount(requested int) error {
	clamped, err := f.Selection.SetHeadCount(requested, f.experienceMax(), nil)
	if err != nil {
		return err
	}
	f.Notice = ""
	if clamped {
		f.Notice = clampNotice(f.HeadCount)
	}
	f.clearError(FieldCount)
	return nil
}

// SetContact records the payer.
func (f *Form) SetContact(name, phone string) {
	f.PayerName = strings.TrimSpace(name)
	f.PayerPhone = strings.TrimSpace(phone)
	f.clearError(FieldCustomer)
}

// CurrentMax is the ceiling of the selected slot.
func (f *Form) CurrentMax() int {
	return f.Selection.CurrentMax(f.experienceMax(), nil)
}

// MaxCountKnown reports whether the selected experience has a known maximum.
func (f *Form) MaxCountKnown() bool {
	return f.experienceMax() > 0
}

// CurrentCapacityKnown reports whether the selected time has a ceiling.
func (f *Form) CurrentCapacityKnown() bool {
	return f.Time != "" && f.Selection.CapacityKnownAt(f.Time, f.experienceMax())
}

// TimeOptions lists the fetched times with their ceilings.
func (f *Form) TimeOptions() []SlotView {
	return f.Selection.SlotViews(f.experienceMax(), nil)
}

// TotalAmount is price × head-count, or 0 before an experience is chosen.
func (f *Form) TotalAmount() int64 {
	if f.Experience == nil {
		return 0
	}
	return TotalAmount(f.Experience.Price, f.HeadCount)
}

// Validate checks the draft before submission. The first violation is
// returned and kept on the form until it expires.
func (f *Form) Validate(now time.Time) error {
	var err error
	switch {
	case f.Date == "" || f.Time == "":
		err = apperr.NewFieldError(FieldSchedule, "select a date and time")
	case f.Experience == nil:
		err = apperr.NewFieldError(FieldExperience, "select an experience")
	case f.PayerName == "":
		err = apperr.NewFieldError(FieldCustomer, "enter the payer name")
	case len(PhoneDigits(f.PayerPhone)) < MinPhoneDigits:
		err = apperr.NewFieldError(FieldCustomer, "enter a phone number with at least 10 digits")
	case f.HeadCount < 1:
		err = apperr.NewFieldError(FieldCount, "head-count must be at least 1")
	}
	if err != nil {
		f.RecordError(err, now)
	}
	return err
}

// RecordError shows err next to its field for ErrorTTL. Errors without a field are ignored.
func (f *Form) RecordError(err error, now time.Time) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Field == "" {
		return
	}
	f.Error = &FieldError{
		Field:     appErr.Field,
		Message:   appErr.Message,
		ExpiresAt: now.Add(ErrorTTL),
	}
}

// ActiveError returns the current field error, or nil once it has expired.
func (f *Form) ActiveError(now time.Time) *FieldError {
	if !f.Error.Active(now) {
		return nil
	}
	return f.Error
}

func (f *Form) clearError(fields ...string) {
	if f.Error == nil {
		return
	}
	for _, field := range fields {
		if f.Error.Field == field {
			f.Error = nil
			return
		}
	}
}

// PhoneDigits strips everything but digits from phone.
func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func clampNotice(ceiling int) string {
	return fmt.Sprintf("only %d seats are left for this time, head-count was lowered", ceiling)
}
