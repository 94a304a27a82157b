package tower

import (
	"errors"
	"testing"
	"time"

	"github.com/spiffler33/meridian/internal/core"
	"github.com/spiffler33/meridian/internal/storage"
	"github.com/spiffler33/meridian/internal/surface"
	"github.com/spiffler33/meridian/internal/testutil"
)

// testService wires a service over an in-memory database with a frozen clock
func testService(t *testing.T) (*Service, *frozenClock) {
	t.Helper()
	db, err := storage.Open(storage.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clock := &frozenClock{t: time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)}
	svc := New(storage.NewItemStore(db), surface.DefaultConfig(), clock.Now)
	return svc, clock
}

type frozenClock struct{ t time.Time }

func (c *frozenClock) Now() time.Time          { return c.t }
func (c *frozenClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// =============================================================================
// Create Tests
// =============================================================================

func TestService_Create(t *testing.T) {
	svc, clock := testService(t)

	item, err := svc.Create(CreateInput{
		Text:      "  renew passport  ",
		ExpectsBy: testutil.DatePtr("2026-02-15"),
		Effort:    core.EffortMedium,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if item.Text != "renew passport" {
		t.Errorf("Text = %q, want trimmed", item.Text)
	}
	if item.Status != core.StatusActive {
		t.Errorf("Status = %q, want active (defaulted)", item.Status)
	}
	if item.IsEvent {
		t.Error("IsEvent should default to false")
	}
	if !item.LastTouched.Equal(clock.Now()) || !item.CreatedAt.Equal(clock.Now()) {
		t.Error("timestamps should come from the injected clock")
	}
	if item.ExpectsBy.Format(core.DateLayout) != "2026-02-15" {
		t.Errorf("ExpectsBy = %v", item.ExpectsBy)
	}
}

func TestService_Create_Invalid(t *testing.T) {
	svc, _ := testService(t)

	if _, err := svc.Create(CreateInput{Text: "   "}); !errors.Is(err, core.ErrEmptyText) {
		t.Errorf("empty text: err = %v", err)
	}
	if _, err := svc.Create(CreateInput{Text: "x", Status: "done"}); !errors.Is(err, core.ErrInvalidStatus) {
		t.Errorf("creating directly as done must fail, err = %v", err)
	}
	if _, err := svc.Create(CreateInput{Text: "x", Status: "archived"}); !errors.Is(err, core.ErrInvalidStatus) {
		t.Errorf("unknown status: err = %v", err)
	}
	if _, err := svc.Create(CreateInput{Text: "x", Effort: "huge"}); !errors.Is(err, core.ErrInvalidEffort) {
		t.Errorf("unknown effort: err = %v", err)
	}
}

func TestService_Create_WaitingDefaultsWaitingOn(t *testing.T) {
	svc, _ := testService(t)

	item, err := svc.Create(CreateInput{Text: "contract review", Status: core.StatusWaiting})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if item.WaitingOn != "someone" {
		t.Errorf("WaitingOn = %q, want the default", item.WaitingOn)
	}
}

// =============================================================================
// Transition Tests
// =============================================================================

func TestService_MarkDone(t *testing.T) {
	svc, clock := testService(t)
	item, _ := svc.Create(CreateInput{Text: "ship it"})

	clock.Advance(2 * time.Hour)
	done, err := svc.MarkDone(item.ID)
	if err != nil {
		t.Fatalf("MarkDone() error = %v", err)
	}

	if done.Status != core.StatusDone {
		t.Errorf("Status = %q, want done", done.Status)
	}
	if done.DoneAt == nil || !done.DoneAt.Equal(clock.Now()) {
		t.Error("DoneAt should be set from the clock")
	}
	if !done.LastTouched.Equal(clock.Now()) {
		t.Error("MarkDone should touch the item")
	}

	// DoneAt is set exactly once
	if _, err := svc.MarkDone(item.ID); !errors.Is(err, core.ErrAlreadyDone) {
		t.Errorf("second MarkDone err = %v, want ErrAlreadyDone", err)
	}
}

func TestService_HoldAndReactivate(t *testing.T) {
	svc, clock := testService(t)
	item, _ := svc.Create(CreateInput{Text: "waiting game"})

	held, err := svc.Hold(item.ID, "Dana's sign-off")
	if err != nil {
		t.Fatalf("Hold() error = %v", err)
	}
	if held.Status != core.StatusWaiting || held.WaitingOn != "Dana's sign-off" {
		t.Errorf("hold not applied: %q / %q", held.Status, held.WaitingOn)
	}

	clock.Advance(time.Hour)
	back, err := svc.Reactivate(item.ID)
	if err != nil {
		t.Fatalf("Reactivate() error = %v", err)
	}
	if back.Status != core.StatusActive {
		t.Errorf("Status = %q, want active", back.Status)
	}
	if back.WaitingOn != "" {
		t.Error("Reactivate must clear WaitingOn")
	}
	if !back.LastTouched.Equal(clock.Now()) {
		t.Error("Reactivate should touch the item")
	}
}

func TestService_Hold_DefaultsWaitingOn(t *testing.T) {
	svc, _ := testService(t)
	item, _ := svc.Create(CreateInput{Text: "x"})

	held, err := svc.Hold(item.ID, "  ")
	if err != nil {
		t.Fatalf("Hold() error = %v", err)
	}
	if held.WaitingOn != "someone" {
		t.Errorf("WaitingOn = %q, want default", held.WaitingOn)
	}
}

func TestService_Defer(t *testing.T) {
	svc, _ := testService(t)
	item, _ := svc.Create(CreateInput{Text: "learn the theremin"})

	deferred, err := svc.Defer(item.ID)
	if err != nil {
		t.Fatalf("Defer() error = %v", err)
	}
	if deferred.Status != core.StatusSomeday {
		t.Errorf("Status = %q, want someday", deferred.Status)
	}
}

func TestService_Reactivate_OnlyFromParkedStates(t *testing.T) {
	svc, _ := testService(t)
	item, _ := svc.Create(CreateInput{Text: "x"})

	if _, err := svc.Reactivate(item.ID); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("reactivating an active item: err = %v", err)
	}
}

func TestService_TransitionsOnDoneItems(t *testing.T) {
	svc, _ := testService(t)
	item, _ := svc.Create(CreateInput{Text: "x"})
	svc.MarkDone(item.ID)

	if _, err := svc.Hold(item.ID, ""); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("holding a done item: err = %v", err)
	}
	if _, err := svc.Defer(item.ID); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("deferring a done item: err = %v", err)
	}
}

// =============================================================================
// Edit Tests
// =============================================================================

func TestService_EditText_TouchesItem(t *testing.T) {
	svc, clock := testService(t)
	item, _ := svc.Create(CreateInput{Text: "old text"})

	clock.Advance(30 * time.Minute)
	edited, err := svc.EditText(item.ID, "new text")
	if err != nil {
		t.Fatalf("EditText() error = %v", err)
	}
	if edited.Text != "new text" {
		t.Errorf("Text = %q", edited.Text)
	}
	if edited.Status != core.StatusActive {
		t.Error("EditText must not change status")
	}
	if !edited.LastTouched.Equal(clock.Now()) {
		t.Error("EditText must update LastTouched")
	}
}

func TestService_Reschedule_ReclassifiesOnNextView(t *testing.T) {
	svc, clock := testService(t)
	item, _ := svc.Create(CreateInput{Text: "board game night", ExpectsBy: testutil.DatePtr("2026-01-20")})

	v, err := svc.View(time.Time{})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if v.Hero == nil || v.Hero.ID != item.ID {
		t.Fatal("item should surface as hero while an action due today")
	}

	// Flip to an event on the same date; next render reclassifies with no
	// stored bucket to invalidate.
	if _, err := svc.Reschedule(item.ID, true, testutil.DatePtr("2026-01-20")); err != nil {
		t.Fatalf("Reschedule() error = %v", err)
	}

	got, _ := svc.Get(item.ID)
	if b := surface.Classify(got, clock.Now()); b != surface.BucketEventNow {
		t.Errorf("bucket after reschedule = %v, want %v", b, surface.BucketEventNow)
	}
}

func TestService_Reschedule_ClearsDate(t *testing.T) {
	svc, _ := testService(t)
	item, _ := svc.Create(CreateInput{Text: "x", ExpectsBy: testutil.DatePtr("2026-01-25")})

	got, err := svc.Reschedule(item.ID, false, nil)
	if err != nil {
		t.Fatalf("Reschedule() error = %v", err)
	}
	if got.ExpectsBy != nil {
		t.Error("nil expectsBy should clear the date")
	}
}

// =============================================================================
// View Tests
// =============================================================================

func TestService_View_PartitionsByStatus(t *testing.T) {
	svc, _ := testService(t)

	hero, _ := svc.Create(CreateInput{Text: "overdue thing", ExpectsBy: testutil.DatePtr("2026-01-18")})
	waiting, _ := svc.Create(CreateInput{Text: "blocked thing", Status: core.StatusWaiting, WaitingOn: "IT"})
	someday, _ := svc.Create(CreateInput{Text: "someday thing", Status: core.StatusSomeday})

	v, err := svc.View(time.Time{})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}

	if v.Hero == nil || v.Hero.ID != hero.ID {
		t.Error("overdue action should be hero")
	}
	if len(v.FollowUp) != 1 || v.FollowUp[0].ID != waiting.ID {
		t.Error("waiting item should be in follow-up")
	}
	if len(v.Someday) != 1 || v.Someday[0].ID != someday.ID {
		t.Error("someday item should be in someday")
	}
}

func TestService_View_Idempotent(t *testing.T) {
	svc, clock := testService(t)
	svc.Create(CreateInput{Text: "a", ExpectsBy: testutil.DatePtr("2026-01-18")})
	svc.Create(CreateInput{Text: "b"})

	first, err := svc.View(clock.Now())
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	second, err := svc.View(clock.Now())
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}

	if first.Hero.ID != second.Hero.ID || len(first.Queue) != len(second.Queue) {
		t.Error("re-rendering the same snapshot must give the same view")
	}
}
