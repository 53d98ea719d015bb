package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sool-market/service-reservation/internal/domain/reservation"
)

// ErrExperienceNotFound is returned when no brewery lists the reservation's experience.
var ErrExperienceNotFound = errors.New("experience not found on any matching brewery")

// ExperienceLookup finds the current platform record of a reserved experience.
type ExperienceLookup struct {
	platform Platform
}

// NewExperienceLookup creates a new ExperienceLookup.
func NewExperienceLookup(platform Platform) *ExperienceLookup {
	return &ExperienceLookup{platform: platform}
}

// Find loads the experience through its brewery. Without a brewery id the
// breweries are searched by name and the first hit is used. Within the brewery
// the experience is matched by id, then by name.
func (l *ExperienceLookup) Find(ctx context.Context, ref reservation.ExperienceRef) (reservation.Experience, error) {
	breweryID := ref.BreweryID
	if breweryID == 0 {
		keyword := ref.BreweryName
		if keyword == "" {
			keyword = ref.Name
		}
		if keyword == "" {
			return reservation.Experience{}, ErrExperienceNotFound
		}
		hits, err := l.platform.SearchBreweries(ctx, keyword)
		if err != nil {
			return reservation.Experience{}, fmt.Errorf("search breweries for %q: %w", keyword, err)
		}
		if len(hits) == 0 {
			return reservation.Experience{}, ErrExperienceNotFound
		}
		breweryID = hits[0].ID
	}

	brewery, err := l.platform.Brewery(ctx, breweryID)
	if err != nil {
		return reservation.Experience{}, fmt.Errorf("load brewery %d: %w", breweryID, err)
	}
	exp, ok := brewery.FindExperience(ref.ID, ref.Name)
	if !ok {
		return reservation.Experience{}, ErrExperienceNotFound
	}
	return exp, nil
}
