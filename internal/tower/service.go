// Package tower implements the item lifecycle around the surfacing engine.
//
// The engine itself is pure; this service owns the mutations the partitioned
// views expose (done, hold, defer, reactivate, edits) and feeds the engine a
// fresh snapshot on every render. Buckets are never stored: a view is always
// recomputed from the latest snapshot and an injected clock.
package tower

import (
	"fmt"
	"strings"
	"time"

	"github.com/spiffler33/meridian/internal/core"
	"github.com/spiffler33/meridian/internal/logging"
	"github.com/spiffler33/meridian/internal/surface"
)

// Store is the persistence collaborator the service drives.
// *storage.ItemStore satisfies it.
type Store interface {
	Create(*core.TowerItem) error
	GetByID(core.ItemID) (*core.TowerItem, error)
	Update(*core.TowerItem) error
	Delete(core.ItemID) error
	GetAll() ([]*core.TowerItem, error)
}

// Service manages tower items
type Service struct {
	store Store
	cfg   surface.Config
	now   func() time.Time
	log   *logging.Logger
}

// New creates a tower service. A nil clock defaults to UTC wall time.
func New(store Store, cfg surface.Config, now func() time.Time) *Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.QueueSize <= 0 {
		cfg = surface.DefaultConfig()
	}
	return &Service{
		store: store,
		cfg:   cfg,
		now:   now,
		log:   logging.WithField("component", "tower"),
	}
}

// CreateInput carries the fields a capture (or the user) can set
type CreateInput struct {
	Text      string
	Status    core.Status
	IsEvent   bool
	ExpectsBy *time.Time
	WaitingOn string
	Effort    core.Effort
}

// Create validates the input and persists a new item
func (s *Service) Create(in CreateInput) (*core.TowerItem, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, core.ErrEmptyText
	}
	status := in.Status
	if status == "" {
		status = core.StatusActive
	}
	if !core.ValidStatus(status) || status == core.StatusDone {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidStatus, in.Status)
	}
	if !core.ValidEffort(in.Effort) {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidEffort, in.Effort)
	}

	now := s.now()
	item := &core.TowerItem{
		ID:          core.NewItemID(),
		Text:        text,
		Status:      status,
		IsEvent:     in.IsEvent,
		Effort:      in.Effort,
		LastTouched: now,
		CreatedAt:   now,
	}
	if in.ExpectsBy != nil {
		d := core.Date(*in.ExpectsBy)
		item.ExpectsBy = &d
	}
	if status == core.StatusWaiting {
		item.WaitingOn = defaultWaitingOn(in.WaitingOn)
	}

	if err := s.store.Create(item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	s.log.Debug("created item %s", item.ID)
	return item, nil
}

// Get returns one item
func (s *Service) Get(id core.ItemID) (*core.TowerItem, error) {
	return s.store.GetByID(id)
}

// List returns the full snapshot
func (s *Service) List() ([]*core.TowerItem, error) {
	return s.store.GetAll()
}

// View loads the latest snapshot and partitions it for the given instant.
// Zero time means "now". Idempotent and safe to call on any snapshot.
func (s *Service) View(at time.Time) (*surface.View, error) {
	items, err := s.store.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if at.IsZero() {
		at = s.now()
	}
	return surface.Partition(items, at, s.cfg), nil
}

// EditText updates the description without changing lifecycle state
func (s *Service) EditText(id core.ItemID, text string) (*core.TowerItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, core.ErrEmptyText
	}
	return s.mutate(id, func(item *core.TowerItem) error {
		item.Text = text
		return nil
	})
}

// Reschedule edits the classification inputs. The new bucket takes effect on
// the next render; nothing is cached.
func (s *Service) Reschedule(id core.ItemID, isEvent bool, expectsBy *time.Time) (*core.TowerItem, error) {
	return s.mutate(id, func(item *core.TowerItem) error {
		item.IsEvent = isEvent
		if expectsBy != nil {
			d := core.Date(*expectsBy)
			item.ExpectsBy = &d
		} else {
			item.ExpectsBy = nil
		}
		return nil
	})
}

// MarkDone terminally completes an item, setting DoneAt exactly once
func (s *Service) MarkDone(id core.ItemID) (*core.TowerItem, error) {
	return s.mutate(id, func(item *core.TowerItem) error {
		if item.Status == core.StatusDone {
			return core.ErrAlreadyDone
		}
		done := s.now()
		item.Status = core.StatusDone
		item.DoneAt = &done
		return nil
	})
}

// Hold parks an item in the follow-up list
func (s *Service) Hold(id core.ItemID, waitingOn string) (*core.TowerItem, error) {
	return s.mutate(id, func(item *core.TowerItem) error {
		if item.Status == core.StatusDone {
			return fmt.Errorf("%w: done items cannot be held", core.ErrInvalidTransition)
		}
		item.Status = core.StatusWaiting
		item.WaitingOn = defaultWaitingOn(waitingOn)
		return nil
	})
}

// Defer moves an item to the someday list
func (s *Service) Defer(id core.ItemID) (*core.TowerItem, error) {
	return s.mutate(id, func(item *core.TowerItem) error {
		if item.Status == core.StatusDone {
			return fmt.Errorf("%w: done items cannot be deferred", core.ErrInvalidTransition)
		}
		item.Status = core.StatusSomeday
		item.WaitingOn = ""
		return nil
	})
}

// Reactivate pulls a waiting or someday item back into the working set,
// clearing WaitingOn
func (s *Service) Reactivate(id core.ItemID) (*core.TowerItem, error) {
	return s.mutate(id, func(item *core.TowerItem) error {
		if item.Status != core.StatusWaiting && item.Status != core.StatusSomeday {
			return fmt.Errorf("%w: only waiting or someday items reactivate", core.ErrInvalidTransition)
		}
		item.Status = core.StatusActive
		item.WaitingOn = ""
		return nil
	})
}

// Touch bumps LastTouched without any other change
func (s *Service) Touch(id core.ItemID) (*core.TowerItem, error) {
	return s.mutate(id, func(item *core.TowerItem) error { return nil })
}

// Delete removes an item entirely
func (s *Service) Delete(id core.ItemID) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.log.Debug("deleted item %s", id)
	return nil
}

// mutate loads, applies, stamps LastTouched and persists.
// Every user-visible mutation funnels through here so staleness tracking
// cannot be forgotten.
func (s *Service) mutate(id core.ItemID, fn func(*core.TowerItem) error) (*core.TowerItem, error) {
	item, err := s.store.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := fn(item); err != nil {
		return nil, err
	}
	item.LastTouched = s.now()
	if err := s.store.Update(item); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return item, nil
}

func defaultWaitingOn(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "someone"
	}
	return s
}
