// Package session keeps the per-caller booking state between requests.
package session

import (
	"errors"
	"time"

	"github.com/sool-market/service-reservation/internal/domain/reservation"
)

var (
	ErrSessionNotFound = errors.New("booking session not found or expired")
	ErrStaleSession    = errors.New("booking session was modified by another request")
)

// Session is the booking state of one caller on one device.
type Session struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Nickname  string            `json:"nickname,omitempty"`
	Form      *reservation.Form `json:"form"`
	Version   int64             `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// New creates an unsaved session with an empty draft.
func New(id, userID, nickname string, now time.Time) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		Nickname:  nickname,
		Form:      reservation.NewForm(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OwnedBy reports whether the session belongs to userID.
func (s *Session) OwnedBy(userID string) bool {
	return s.UserID == userID
}

// ResetForm discards the draft. The fetch sequence carries over so slot
// fetches started before the reset stay older than any after it.
func (s *Session) ResetForm() {
	var seq int64
	if s.Form != nil {
		seq = s.Form.FetchSeq
	}
	s.Form = reservation.NewForm()
	s.Form.FetchSeq = seq
}
