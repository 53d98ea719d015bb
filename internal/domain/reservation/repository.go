package reservation

import "context"

// ReservationRepository defines the persistence contract for the local copy of confirmed reservations.
type ReservationRepository interface {
	// FindByID retrieves a cached reservation by its platform identifier.
	FindByID(ctx context.Context, id int64) (*Reservation, error)

	// FindByOwnerID retrieves an owner's cached reservations with pagination, newest schedule first.
	FindByOwnerID(ctx context.Context, ownerID string, offset, limit int) ([]*Reservation, int64, error)

	// Upsert inserts a reservation or overwrites the cached copy with fresher platform data.
	Upsert(ctx context.Context, r *Reservation) error

	// Update persists changes to a cached reservation with optimistic locking.
	Update(ctx context.Context, r *Reservation) error

	// Delete removes a reservation from the cache.
	Delete(ctx context.Context, id int64) error
}
