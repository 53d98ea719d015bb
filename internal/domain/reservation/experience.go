package reservation

import "strings"

// Experience is a bookable brewery activity ("joy"). Immutable from the booking flow's perspective.
type Experience struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Place       string `json:"place,omitempty"`
	Detail      string `json:"detail,omitempty"`
	MaxCount    int    `json:"max_count"`
	BreweryID   int64  `json:"brewery_id"`
	BreweryName string `json:"brewery_name"`
}

// Brewery owns a list of experiences.
type Brewery struct {
	ID          int64
	Name        string
	Experiences []Experience
}

// BrewerySummary is a brewery search hit.
type BrewerySummary struct {
	ID   int64
	Name string
}

// FindExperience looks an experience up by id, falling back to an exact name match.
func (b Brewery) FindExperience(id int64, name string) (Experience, bool) {
	if id != 0 {
		for _, e := range b.Experiences {
			if e.ID == id {
				return e, true
			}
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Experience{}, false
	}
	for _, e := range b.Experiences {
		if strings.EqualFold(strings.TrimSpace(e.Name), name) {
			return e, true
		}
	}
	return Experience{}, false
}
