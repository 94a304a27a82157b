package surface

import (
	"fmt"
	"time"

	"github.com/spiffler33/meridian/internal/core"
)

// limboThresholdDays is how many days of silence an undated item gets
// before the explanation starts pushing for a decision.
const limboThresholdDays = 3

// Explain produces a short deterministic justification for why an item
// surfaced at the given rank (0 = hero). It is the zero-dependency fallback:
// an external text generator may replace it, but this one always works.
func Explain(item *core.TowerItem, rank int, now time.Time) string {
	if item.HasDate() {
		du := DaysUntil(*item.ExpectsBy, now)
		if item.IsEvent {
			return explainEvent(du)
		}
		return explainDeadline(du)
	}
	return explainUndated(item, rank, now)
}

func explainEvent(du int) string {
	switch {
	case du < 0:
		return fmt.Sprintf("Was scheduled %s ago. Missed, or safe to clear?", days(-du))
	case du == 0:
		return "Happening today."
	case du == 1:
		return "Happening tomorrow."
	default:
		return fmt.Sprintf("Happening in %s.", days(du))
	}
}

func explainDeadline(du int) string {
	switch {
	case du <= -7:
		return fmt.Sprintf("Expected %s ago. This has been overdue for a while now.", days(-du))
	case du < 0:
		return fmt.Sprintf("Expected %s ago. Overdue.", days(-du))
	case du == 0:
		return "Due today."
	case du == 1:
		return "Due tomorrow."
	default:
		return fmt.Sprintf("Due in %s.", days(du))
	}
}

func explainUndated(item *core.TowerItem, rank int, now time.Time) string {
	age := AgeDays(item.CreatedAt, now)
	if age == 0 && rank == 0 {
		return "Fresh capture, surfaced while it is still warm."
	}

	stale := StalenessDays(item.LastTouched, now)
	if stale >= limboThresholdDays {
		return fmt.Sprintf("%s in limbo. Do it, delegate it, or delete it.", days(stale))
	}
	return fmt.Sprintf("Open call, captured %s ago.", days(age))
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
