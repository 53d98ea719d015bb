package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sool-market/service-reservation/internal/domain/reservation"
)

// TimeInfo returns the bookable times of an experience on date, with the
// remaining count of every time that already has bookings.
func (c *Client) TimeInfo(ctx context.Context, experienceID int64, date string) (reservation.SlotAvailability, error) {
	query := url.Values{}
	query.Set("joyId", formatID(experienceID))
	query.Set("date", date)

	var reply timeInfoResponse
	if err := c.get(ctx, OpTimeInfo, "calendar/time-info", query, &reply); err != nil {
		return reservation.SlotAvailability{}, err
	}
	return normalizeTimeInfo(reply)
}

func normalizeTimeInfo(reply timeInfoResponse) (reservation.SlotAvailability, error) {
	out := reservation.SlotAvailability{
		Times:           make([]string, 0, len(reply.TimeInfo)),
		RemainingByTime: make(map[string]int, len(reply.RemainingCountList)),
	}
	seen := make(map[string]bool, len(reply.TimeInfo))
	for _, raw := range reply.TimeInfo {
		t, err := reservation.NormalizeTime(raw)
		if err != nil {
			return reservation.SlotAvailability{}, fmt.Errorf("%s: %w: %v", OpTimeInfo, ErrUnexpectedShape, err)
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out.Times = append(out.Times, t)
	}
	for _, rc := range reply.RemainingCountList {
		t, err := reservation.NormalizeTime(rc.Time)
		if err != nil {
			return reservation.SlotAvailability{}, fmt.Errorf("%s: %w: %v", OpTimeInfo, ErrUnexpectedShape, err)
		}
		out.RemainingByTime[t] = *rc.Remaining
	}
	return out, nil
}

// UnavailableDates returns the dates of year/month on which the experience has no bookable time.
func (c *Client) UnavailableDates(ctx context.Context, experienceID int64, year, month int) (reservation.UnavailableDateSet, error) {
	query := url.Values{}
	query.Set("joyId", formatID(experienceID))
	query.Set("year", strconv.Itoa(year))
	query.Set("month", strconv.Itoa(month))

	var reply calendarResponse
	if err := c.get(ctx, OpCalendar, "calendar", query, &reply); err != nil {
		return nil, err
	}
	return reservation.NewUnavailableDateSet(reply.UnavailableDates...), nil
}
