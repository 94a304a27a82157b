package surface

import (
	"sort"
	"time"

	"github.com/spiffler33/meridian/internal/core"
)

// Rank orders the active items into a strict attention queue.
//
// Primary key: bucket ascending. Secondary key within a bucket:
//   - both dated: DaysUntil ascending, soonest first
//   - both undated: staleness descending, untouched longest first
//   - mixed (only possible in the open-call bucket): dated item first,
//     a known check-in point beats a pure no-date item
//
// The sort is stable, so remaining ties keep their input order. Items that
// are not active are silently excluded; the caller should pre-filter, and
// the engine tolerates it when they do not.
func Rank(items []*core.TowerItem, now time.Time) []*core.TowerItem {
	ranked := make([]*core.TowerItem, 0, len(items))
	for _, it := range items {
		if it != nil && it.IsActive() {
			ranked = append(ranked, it)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return Less(ranked[i], ranked[j], now)
	})

	return ranked
}

// Less reports whether a ranks strictly before b. It never panics for any
// pair of items and forms a valid strict weak ordering.
func Less(a, b *core.TowerItem, now time.Time) bool {
	ba, bb := Classify(a, now), Classify(b, now)
	if ba != bb {
		return ba < bb
	}

	switch {
	case a.HasDate() && b.HasDate():
		return DaysUntil(*a.ExpectsBy, now) < DaysUntil(*b.ExpectsBy, now)
	case !a.HasDate() && !b.HasDate():
		return StalenessDays(a.LastTouched, now) > StalenessDays(b.LastTouched, now)
	default:
		return a.HasDate()
	}
}
