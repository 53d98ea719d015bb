package application

import (
	"time"

	"github.com/sool-market/service-reservation/internal/domain/reservation"
	"github.com/sool-market/service-reservation/internal/session"
)

// SelectExperienceRequest picks an experience of a brewery.
type SelectExperienceRequest struct {
	BreweryID    int64 `json:"brewery_id" binding:"required,gt=0"`
	ExperienceID int64 `json:"experience_id" binding:"required,gt=0"`
}

// ChangeMonthRequest opens another calendar month.
type ChangeMonthRequest struct {
	Year  int `json:"year" binding:"required,gte=2000,lte=2100"`
	Month int `json:"month" binding:"required,gte=1,lte=12"`
}

// SelectDateRequest picks a date.
type SelectDateRequest struct {
	Date string `json:"date" binding:"required"`
}

// SelectTimeRequest picks a time.
type SelectTimeRequest struct {
	Time string `json:"time" binding:"required"`
}

// SetHeadCountRequest sets the head-count.
type SetHeadCountRequest struct {
	HeadCount int `json:"head_count"`
}

// SetContactRequest sets the payer.
type SetContactRequest struct {
	PayerName  string `json:"payer_name"`
	PayerPhone string `json:"payer_phone"`
}

// ChangeReservationRequest moves an existing reservation.
type ChangeReservationRequest struct {
	Date      string `json:"date" binding:"required"`
	Time      string `json:"time" binding:"required"`
	HeadCount int    `json:"head_count" binding:"required"`
}

// FormView is the new-booking draft as the front-end renders it.
type FormView struct {
	SessionID        string                  `json:"session_id"`
	Version          int64                   `json:"version"`
	Experience       *reservation.Experience `json:"experience,omitempty"`
	Month            string                  `json:"month,omitempty"`
	UnavailableDates []string                `json:"unavailable_dates"`
	Date             string                  `json:"date,omitempty"`
	Times            []reservation.SlotView  `json:"times"`
	Time             string                  `json:"time,omitempty"`
	HeadCount        int                     `json:"head_count"`
	CurrentMax       int                     `json:"current_max"`
	CapacityKnown    bool                    `json:"capacity_known"`
	TotalAmount      int64                   `json:"total_amount"`
	PayerName        string                  `json:"payer_name,omitempty"`
	PayerPhone       string                  `json:"payer_phone,omitempty"`
	Error            *ErrorView              `json:"error,omitempty"`
	Notice           string                  `json:"notice,omitempty"`
}

// ErrorView is an active field error. ScrollTo names the field the front-end scrolls to.
type ErrorView struct {
	Field     string    `json:"field"`
	ScrollTo  string    `json:"scroll_to"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SubmitResult is a booking that passed prepare and confirm.
type SubmitResult struct {
	OrderID     string `json:"order_id"`
	PaymentKey  string `json:"payment_key"`
	TotalAmount int64  `json:"total_amount"`
	Status      string `json:"status"`
}

// ReservationDTO is the response representation of a confirmed reservation.
type ReservationDTO struct {
	ID             int64     `json:"id"`
	ExperienceID   int64     `json:"experience_id"`
	ExperienceName string    `json:"experience_name"`
	BreweryID      int64     `json:"brewery_id,omitempty"`
	BreweryName    string    `json:"brewery_name,omitempty"`
	Date           string    `json:"reservation_date"`
	Time           string    `json:"reservation_time"`
	HeadCount      int       `json:"head_count"`
	PayerName      string    `json:"payer_name"`
	PayerPhone     string    `json:"payer_phone"`
	TotalPrice     int64     `json:"total_price"`
	Status         string    `json:"status"`
	Cancellable    bool      `json:"cancellable"`
	Deletable      bool      `json:"deletable"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ReservationPage is one page of the caller's reservations.
type ReservationPage struct {
	Items   []ReservationDTO `json:"items"`
	Offset  int              `json:"offset"`
	HasNext bool             `json:"has_next"`
	// Cached is true when the platform was unreachable and the page came from the local copy.
	Cached bool `json:"cached"`
}

// EditView is the change-reservation screen for one candidate date.
type EditView struct {
	Reservation      ReservationDTO         `json:"reservation"`
	Date             string                 `json:"date"`
	Month            string                 `json:"month"`
	UnavailableDates []string               `json:"unavailable_dates"`
	Times            []reservation.SlotView `json:"times"`
	Time             string                 `json:"time,omitempty"`
	HeadCount        int                    `json:"head_count"`
	ExperienceMax    int                    `json:"experience_max"`
	CapacityKnown    bool                   `json:"capacity_known"`
}

func toFormView(sess *session.Session, now time.Time) *FormView {
	f := sess.Form
	view := &FormView{
		SessionID:        sess.ID,
		Version:          sess.Version,
		Experience:       f.Experience,
		Month:            f.Month,
		UnavailableDates: f.Unavailable.Sorted(),
		Date:             f.Date,
		Times:            f.TimeOptions(),
		Time:             f.Time,
		HeadCount:        f.HeadCount,
		CurrentMax:       f.CurrentMax(),
		CapacityKnown:    f.MaxCountKnown(),
		TotalAmount:      f.TotalAmount(),
		PayerName:        f.PayerName,
		PayerPhone:       f.PayerPhone,
		Notice:           f.Notice,
	}
	if active := f.ActiveError(now); active != nil {
		view.Error = &ErrorView{
			Field:     active.Field,
			ScrollTo:  active.Field,
			Message:   active.Message,
			ExpiresAt: active.ExpiresAt,
		}
	}
	return view
}

func toReservationDTO(r *reservation.Reservation) ReservationDTO {
	exp := r.Experience()
	return ReservationDTO{
		ID:             r.ID(),
		ExperienceID:   exp.ID,
		ExperienceName: exp.Name,
		BreweryID:      exp.BreweryID,
		BreweryName:    exp.BreweryName,
		Date:           r.Date(),
		Time:           r.Time(),
		HeadCount:      r.HeadCount(),
		PayerName:      r.PayerName(),
		PayerPhone:     r.PayerPhone(),
		TotalPrice:     r.TotalPrice(),
		Status:         string(r.Status()),
		Cancellable:    r.Status().CanBeCancelled(),
		Deletable:      r.CanDelete(),
		UpdatedAt:      r.UpdatedAt(),
	}
}

func toReservationDTOs(rs []*reservation.Reservation) []ReservationDTO {
	out := make([]ReservationDTO, len(rs))
	for i, r := range rs {
		out[i] = toReservationDTO(r)
	}
	return out
}
