// Package testutil provides shared fixtures for Meridian tests.
package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/spiffler33/meridian/internal/core"
)

// RandomID generates a random ID for testing.
func RandomID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// MustDate parses a YYYY-MM-DD date or panics. Test-only.
func MustDate(s string) time.Time {
	t, err := time.Parse(core.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// DatePtr parses a YYYY-MM-DD date and returns a pointer to it.
func DatePtr(s string) *time.Time {
	t := MustDate(s)
	return &t
}

// Item returns an active action with sensible defaults, created and touched
// one hour before ref.
func Item(ref time.Time) *core.TowerItem {
	return &core.TowerItem{
		ID:          core.ItemID("item-" + RandomID()),
		Text:        "write the quarterly report",
		Status:      core.StatusActive,
		LastTouched: ref.Add(-time.Hour),
		CreatedAt:   ref.Add(-time.Hour),
	}
}

// Action returns an active action with the given deadline (empty for none).
func Action(ref time.Time, expectsBy string) *core.TowerItem {
	it := Item(ref)
	if expectsBy != "" {
		it.ExpectsBy = DatePtr(expectsBy)
	}
	return it
}

// Event returns an active event occurring on the given date.
func Event(ref time.Time, expectsBy string) *core.TowerItem {
	it := Action(ref, expectsBy)
	it.IsEvent = true
	it.Text = "team offsite"
	return it
}

// Stale returns an undated active action untouched for the given number of
// whole days before ref.
func Stale(ref time.Time, daysAgo int) *core.TowerItem {
	it := Item(ref)
	it.LastTouched = ref.Add(-time.Duration(daysAgo) * 24 * time.Hour)
	it.CreatedAt = it.LastTouched
	return it
}
