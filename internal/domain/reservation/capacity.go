package reservation

import "github.com/sool-market/service-reservation/internal/platform/apperr"

var (
	ErrSoldOut         = apperr.New(apperr.KindValidation, "the selected time is sold out")
	ErrCapacityUnknown = apperr.NewUnavailableError("capacity information is unavailable for this experience")
)

// OwnBooking is the caller's existing reservation, whose seats are already held.
type OwnBooking struct {
	Date      string
	Time      string
	HeadCount int
}

// CapacityKnown reports whether a ceiling can be determined for slot. A slot
// without a reported remaining count falls back to the experience maximum, and
// a zero maximum means the maximum could not be determined.
func CapacityKnown(slot Slot, experienceMax int) bool {
	return slot.Remaining != nil || experienceMax > 0
}

// EffectiveMax is the head-count ceiling the caller may request for slot.
// 0 means the slot is sold out for this caller.
func EffectiveMax(slot Slot, experienceMax int, own *OwnBooking) int {
	if !CapacityKnown(slot, experienceMax) {
		return 0
	}

	base := experienceMax
	if slot.Remaining != nil {
		base = *slot.Remaining
	}
	if own != nil && own.Date == slot.Date && own.Time == slot.Time {
		base += own.HeadCount
	}
	if base < 0 {
		return 0
	}
	return base
}

// ClampHeadCount fits requested into [1, ceiling]. clamped is true when the value
// had to be lowered to ceiling, so the caller can tell the customer.
func ClampHeadCount(requested, ceiling int) (count int, clamped bool, err error) {
	if ceiling <= 0 {
		return 0, false, ErrSoldOut
	}
	switch {
	case requested < 1:
		return 1, false, nil
	case requested > ceiling:
		return ceiling, true, nil
	}
	return requested, false, nil
}
