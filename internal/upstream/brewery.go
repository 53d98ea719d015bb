package upstream

import (
	"context"
	"net/url"

	"github.com/sool-market/service-reservation/internal/domain/reservation"
)

// Brewery returns a brewery with its experiences, including their configured maximum head-count.
func (c *Client) Brewery(ctx context.Context, breweryID int64) (reservation.Brewery, error) {
	var reply breweryResponse
	if err := c.get(ctx, OpBrewery, "brewery/"+formatID(breweryID), nil, &reply); err != nil {
		return reservation.Brewery{}, err
	}

	b := reservation.Brewery{
		ID:          reply.ID,
		Name:        reply.Name,
		Experiences: make([]reservation.Experience, 0, len(reply.JoyList)),
	}
	for _, joy := range reply.JoyList {
		b.Experiences = append(b.Experiences, reservation.Experience{
			ID:          joy.ID,
			Name:        joy.Name,
			Price:       *joy.Price,
			Place:       joy.Place,
			Detail:      joy.Detail,
			MaxCount:    joy.MaxCount,
			BreweryID:   reply.ID,
			BreweryName: reply.Name,
		})
	}
	return b, nil
}

// SearchBreweries finds breweries whose name matches keyword, in platform ranking order.
func (c *Client) SearchBreweries(ctx context.Context, keyword string) ([]reservation.BrewerySummary, error) {
	query := url.Values{}
	query.Set("keyword", keyword)

	var reply brewerySearchResponse
	if err := c.get(ctx, OpSearchBreweries, "brewery/search", query, &reply); err != nil {
		return nil, err
	}

	out := make([]reservation.BrewerySummary, 0, len(reply.Content))
	for _, b := range reply.Content {
		out = append(out, reservation.BrewerySummary{ID: b.ID, Name: b.Name})
	}
	return out, nil
}
