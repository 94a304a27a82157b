// Package surface implements the urgency-ranking engine.
//
// The engine decides which single item deserves attention right now, which
// few are queued next, and which stay hidden. It is deterministic, has no
// side effects, and never reads the wall clock: "now" is always injected.
//
// The policy is deliberately asymmetric. Actions are pull-forward (you can
// act early, so they escalate as the deadline nears and harder once missed);
// events are wait-until (you cannot attend early, so only imminent events
// matter). An action with no date at all is treated as maximally actionable
// right now, competing with "due today" rather than "far future".
package surface

import (
	"time"

	"github.com/spiffler33/meridian/internal/core"
)

// Bucket is an urgency class. Lower is more urgent.
type Bucket int

const (
	BucketOverdueAction Bucket = iota // action past its deadline
	BucketDueToday                    // action due today
	BucketOpenCall                    // no date: actionable right now
	BucketEventNow                    // event today or already passed
	BucketDueSoon                     // action due in 1-3 days
	BucketEventTomorrow               // event tomorrow
	BucketDueThisWeek                 // action due in 4-7 days
	BucketFarFuture                   // everything else
)

func (b Bucket) String() string {
	switch b {
	case BucketOverdueAction:
		return "overdue"
	case BucketDueToday:
		return "due-today"
	case BucketOpenCall:
		return "open-call"
	case BucketEventNow:
		return "event-now"
	case BucketDueSoon:
		return "due-soon"
	case BucketEventTomorrow:
		return "event-tomorrow"
	case BucketDueThisWeek:
		return "due-this-week"
	case BucketFarFuture:
		return "far-future"
	default:
		return "unknown"
	}
}

const day = 24 * time.Hour

// DaysUntil returns the whole days between now and a date, rounded up:
// a deadline 36 hours out reads as 2 days, 3.2 days away reads as 4.
// Negative values mean the date has passed.
func DaysUntil(date, now time.Time) int {
	d := date.Sub(now)
	n := int(d / day)
	if d%day > 0 {
		n++
	}
	return n
}

// StalenessDays returns the whole days since the item was last touched,
// rounded down: 25 hours of silence reads as 1 day. Clock skew that would
// make the delta negative is clamped to zero.
func StalenessDays(lastTouched, now time.Time) int {
	d := now.Sub(lastTouched)
	if d < 0 {
		return 0
	}
	return int(d / day)
}

// AgeDays returns the whole days since the item was created, rounded down
// and clamped at zero like StalenessDays.
func AgeDays(createdAt, now time.Time) int {
	return StalenessDays(createdAt, now)
}

// Classify assigns an active item to its urgency bucket.
// Pure function of the item's IsEvent flag, its ExpectsBy date, and now.
// A malformed or absent date always takes the no-date path; it is never
// an error.
func Classify(item *core.TowerItem, now time.Time) Bucket {
	if !item.HasDate() {
		// Open call for actions, and the rare undated event.
		return BucketOpenCall
	}

	du := DaysUntil(*item.ExpectsBy, now)

	if item.IsEvent {
		switch {
		case du <= 0:
			return BucketEventNow
		case du == 1:
			return BucketEventTomorrow
		default:
			return BucketFarFuture
		}
	}

	switch {
	case du < 0:
		return BucketOverdueAction
	case du == 0:
		return BucketDueToday
	case du <= 3:
		return BucketDueSoon
	case du <= 7:
		return BucketDueThisWeek
	default:
		return BucketFarFuture
	}
}
