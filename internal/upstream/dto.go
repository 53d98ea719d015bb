package upstream

// Wire shapes of the commerce platform API. Every field the service depends on
// carries a validate tag so that an unexpected payload fails the call instead
// of flowing through as zero values.

type timeInfoResponse struct {
	TimeInfo           []string         `json:"time_info" validate:"required,dive,required"`
	RemainingCountList []remainingCount `json:"remaining_count_list" validate:"dive"`
}

type remainingCount struct {
	Time      string `json:"joy_slot_reservation_time" validate:"required"`
	Remaining *int   `json:"joy_slot_remaining_count" validate:"required,min=0"`
}

type calendarResponse struct {
	UnavailableDates []string `json:"joy_unavailable_reservation_date" validate:"dive,datetime=2006-01-02"`
}

type prepareResponse struct {
	Content string `json:"content" validate:"required"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type reservationPage struct {
	Content []reservationRecord `json:"content" validate:"dive"`
	HasNext bool                `json:"has_next"`
}

type reservationRecord struct {
	ID          int64  `json:"reservation_id" validate:"required,gt=0"`
	JoyID       int64  `json:"joy_id" validate:"required,gt=0"`
	JoyName     string `json:"joy_name" validate:"required"`
	BreweryID   int64  `json:"brewery_id" validate:"gte=0"`
	BreweryName string `json:"brewery_name"`
	Date        string `json:"reservation_date" validate:"required,datetime=2006-01-02"`
	Time        string `json:"reservation_time" validate:"required"`
	Count       int    `json:"count" validate:"required,gt=0"`
	PayerName   string `json:"payer_name"`
	PayerPhone  string `json:"payer_phone"`
	TotalAmount *int64 `json:"total_amount" validate:"required,gte=0"`
	Status      string `json:"status" validate:"required,oneof=PENDING CONFIRMED PAID COMPLETED CANCELLED"`
}

type breweryResponse struct {
	ID      int64       `json:"brewery_id" validate:"required,gt=0"`
	Name    string      `json:"brewery_name" validate:"required"`
	JoyList []joyRecord `json:"joy_list" validate:"dive"`
}

type joyRecord struct {
	ID       int64  `json:"joy_id" validate:"required,gt=0"`
	Name     string `json:"joy_name" validate:"required"`
	Price    *int64 `json:"joy_price" validate:"required,gte=0"`
	Place    string `json:"joy_place"`
	Detail   string `json:"joy_detail"`
	MaxCount int    `json:"joy_max_count" validate:"gte=0"`
}

type brewerySearchResponse struct {
	Content []brewerySummary `json:"content" validate:"dive"`
}

type brewerySummary struct {
	ID   int64  `json:"brewery_id" validate:"required,gt=0"`
	Name string `json:"brewery_name" validate:"required"`
}
