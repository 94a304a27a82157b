package surface

import (
	"testing"

	"github.com/spiffler33/meridian/internal/core"
	"github.com/spiffler33/meridian/internal/testutil"
)

// ============================================================================
// Rank Tests
// ============================================================================

func TestRank_OverdueDominance(t *testing.T) {
	overdue := testutil.Action(today, "2026-01-18")
	dueToday := testutil.Action(today, "2026-01-20")
	veryStale := testutil.Stale(today, 400)

	ranked := Rank([]*core.TowerItem{veryStale, dueToday, overdue}, today)

	if len(ranked) != 3 {
		t.Fatalf("ranked %d items, want 3", len(ranked))
	}
	if ranked[0] != overdue {
		t.Errorf("overdue action must rank first, got %q", ranked[0].Text)
	}
}

func TestRank_ActionsBeatFutureEvents(t *testing.T) {
	// An event 5 days away sits in the far-future bucket, strictly after an
	// undated action surfaced today.
	event := testutil.Event(today, "2026-01-25")
	openCall := testutil.Stale(today, 0)

	ranked := Rank([]*core.TowerItem{event, openCall}, today)

	if ranked[0] != openCall {
		t.Errorf("undated action must rank before a far-future event")
	}
	if got := Classify(event, today); got != BucketFarFuture {
		t.Errorf("event bucket = %v, want %v", got, BucketFarFuture)
	}
}

func TestRank_StalenessOrdering(t *testing.T) {
	// Silence is a priority signal: the item untouched longest surfaces
	// first among undated actions.
	a := testutil.Stale(today, 10)
	b := testutil.Stale(today, 1)

	ranked := Rank([]*core.TowerItem{b, a}, today)

	if ranked[0] != a || ranked[1] != b {
		t.Errorf("10-day stale item must rank above 1-day stale item")
	}
}

func TestRank_ComparatorNeverPanicsOnMixedDates(t *testing.T) {
	// A dated and an undated item must always compare cleanly; when they
	// tie on bucket the known check-in point wins.
	dated := testutil.Action(today, "2026-01-20")
	undated := testutil.Stale(today, 5)

	if !Less(dated, undated, today) {
		t.Errorf("dated item must compare before undated item")
	}
	if Less(undated, dated, today) {
		t.Errorf("comparator is not antisymmetric on the mixed pair")
	}
}

func TestRank_DateOrderWithinBucket(t *testing.T) {
	in3 := testutil.Action(today, "2026-01-23")
	in2 := testutil.Action(today, "2026-01-22")

	ranked := Rank([]*core.TowerItem{in3, in2}, today)

	if ranked[0] != in2 {
		t.Errorf("sooner deadline must rank first within a bucket")
	}
}

func TestRank_StableOnTies(t *testing.T) {
	a := testutil.Stale(today, 4)
	b := testutil.Stale(today, 4)
	a.Text = "first in"
	b.Text = "second in"

	ranked := Rank([]*core.TowerItem{a, b}, today)

	if ranked[0] != a || ranked[1] != b {
		t.Errorf("equal staleness must preserve input order")
	}

	// And repeatedly: same snapshot, same order.
	again := Rank([]*core.TowerItem{a, b}, today)
	if again[0] != a {
		t.Errorf("ranking is not deterministic across calls")
	}
}

func TestRank_ExcludesNonActive(t *testing.T) {
	active := testutil.Item(today)
	waiting := testutil.Item(today)
	waiting.Status = core.StatusWaiting
	someday := testutil.Item(today)
	someday.Status = core.StatusSomeday
	done := testutil.Item(today)
	done.Status = core.StatusDone

	ranked := Rank([]*core.TowerItem{done, waiting, active, someday, nil}, today)

	if len(ranked) != 1 || ranked[0] != active {
		t.Errorf("only the active item should survive ranking, got %d", len(ranked))
	}
}

func TestRank_FullScenario(t *testing.T) {
	// The worked example: [bucket0, bucket2(10d), bucket2(1d), bucket7] in
	// scrambled input order.
	overdue := testutil.Action(today, "2026-01-18")
	stale10 := testutil.Stale(today, 10)
	stale1 := testutil.Stale(today, 1)
	far := testutil.Action(today, "2026-02-10")

	ranked := Rank([]*core.TowerItem{far, stale1, overdue, stale10}, today)

	want := []*core.TowerItem{overdue, stale10, stale1, far}
	for i := range want {
		if ranked[i] != want[i] {
			t.Fatalf("rank %d: got %q", i, ranked[i].Text)
		}
	}
}
