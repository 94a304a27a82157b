// Package core defines the fundamental types for Meridian.
// Everything else in the system is built around the TowerItem.
package core

import (
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// TOWER ITEM - The unit of attention
// -----------------------------------------------------------------------------

// ItemID is a type-safe identifier for tower items
type ItemID string

// NewItemID generates a fresh item identifier
func NewItemID() ItemID {
	return ItemID(uuid.NewString())
}

// Status is the coarse lifecycle state of an item.
// States are mutually exclusive; only active items are ranked.
type Status string

const (
	StatusActive  Status = "active"  // In the working set, competes for attention
	StatusWaiting Status = "waiting" // Blocked on someone/something, lives in follow-up
	StatusSomeday Status = "someday" // Deliberately deferred, flat list
	StatusDone    Status = "done"    // Terminal
)

// ValidStatus reports whether s is a known lifecycle state
func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusWaiting, StatusSomeday, StatusDone:
		return true
	}
	return false
}

// Effort is an advisory size hint. It never affects ranking.
type Effort string

const (
	EffortQuick  Effort = "quick"
	EffortMedium Effort = "medium"
	EffortDeep   Effort = "deep"
)

// ValidEffort reports whether e is a known effort level (empty means unset)
func ValidEffort(e Effort) bool {
	switch e {
	case "", EffortQuick, EffortMedium, EffortDeep:
		return true
	}
	return false
}

// TowerItem is a loosely-structured intention the user captured.
// IsEvent splits the world in two: false means "something you DO"
// (ExpectsBy is a deadline), true means "something you SHOW UP to"
// (ExpectsBy is the occurrence date).
type TowerItem struct {
	ID     ItemID `json:"id"`
	Text   string `json:"text"`
	Status Status `json:"status"`

	IsEvent   bool       `json:"is_event"`
	ExpectsBy *time.Time `json:"expects_by,omitempty"` // Date-only, midnight UTC

	WaitingOn string `json:"waiting_on,omitempty"` // Meaningful only when waiting
	Effort    Effort `json:"effort,omitempty"`

	LastTouched time.Time  `json:"last_touched"` // Updated on every mutation
	CreatedAt   time.Time  `json:"created_at"`
	DoneAt      *time.Time `json:"done_at,omitempty"` // Non-nil iff status is done
}

// IsActive reports whether the item belongs in the urgency pipeline
func (t *TowerItem) IsActive() bool {
	return t.Status == StatusActive
}

// HasDate reports whether the item carries an ExpectsBy date
func (t *TowerItem) HasDate() bool {
	return t.ExpectsBy != nil
}

// DateLayout is the wire format for ExpectsBy dates
const DateLayout = "2006-01-02"

// Date normalizes a timestamp to its calendar date at midnight UTC.
// ExpectsBy values are always stored in this form.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
