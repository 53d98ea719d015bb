package availability

import (
	"context"
	"errors"
	"sync"

	"github.com/sool-market/service-reservation/internal/domain/reservation"
	"github.com/sool-market/service-reservation/internal/platform/metrics"
)

// ErrSuperseded is returned by a fetch that a newer fetch for the same key replaced.
var ErrSuperseded = errors.New("slot fetch superseded by a newer request")

// SlotResolver resolves the slots of one date.
type SlotResolver interface {
	SlotsForDate(ctx context.Context, experienceID int64, date string) reservation.SlotAvailability
}

type inflightFetch struct {
	seq    int64
	cancel context.CancelFunc
}

// Feed runs slot fetches keyed by caller. seq orders the fetches of one key by
// the selection that started them: a fetch cancels an in-flight fetch with a
// lower or equal seq, and gives way to one with a higher seq. Only the fetch
// still registered when it completes delivers a result.
type Feed struct {
	resolver SlotResolver

	mu       sync.Mutex
	inflight map[string]*inflightFetch
}

// NewFeed creates a new Feed.
func NewFeed(resolver SlotResolver) *Feed {
	return &Feed{
		resolver: resolver,
		inflight: make(map[string]*inflightFetch),
	}
}

// Fetch resolves the slots of experienceID on date for key.
func (f *Feed) Fetch(ctx context.Context, key string, seq, experienceID int64, date string) (reservation.SlotAvailability, error) {
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	own := &inflightFetch{seq: seq, cancel: cancel}
	f.mu.Lock()
	if prev, ok := f.inflight[key]; ok {
		if prev.seq > seq {
			f.mu.Unlock()
			metrics.SupersededFetch()
			return reservation.SlotAvailability{}, ErrSuperseded
		}
		prev.cancel()
	}
	f.inflight[key] = own
	f.mu.Unlock()

	slots := f.resolver.SlotsForDate(fetchCtx, experienceID, date)

	f.mu.Lock()
	latest := f.inflight[key] == own
	if latest {
		delete(f.inflight, key)
	}
	f.mu.Unlock()

	if !latest {
		metrics.SupersededFetch()
		return reservation.SlotAvailability{}, ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return reservation.SlotAvailability{}, err
	}
	return slots, nil
}

// InFlight reports how many keys have a fetch running.
func (f *Feed) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inflight)
}
