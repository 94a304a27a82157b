package surface

import (
	"sort"
	"time"

	"github.com/spiffler33/meridian/internal/core"
)

// Config tunes the presentation slicing
type Config struct {
	QueueSize int // Items shown after the hero, default 2
}

// DefaultConfig returns the standard tower layout
func DefaultConfig() Config {
	return Config{QueueSize: 2}
}

// View is the partitioned output consumed by the presentation layer.
// Hero, Queue and Overflow hold only active items in rank order; FollowUp
// and Someday are the separately-kept side lists.
type View struct {
	Hero          *core.TowerItem   `json:"hero"`
	Queue         []*core.TowerItem `json:"queue"`
	Overflow      []*core.TowerItem `json:"overflow"`
	OverflowCount int               `json:"overflow_count"`
	FollowUp      []*core.TowerItem `json:"follow_up"`
	Someday       []*core.TowerItem `json:"someday"`
}

// Partition ranks the snapshot and slices it into presentation tiers.
// Safe to call repeatedly on any snapshot; the bucket is always recomputed,
// never stored.
func Partition(items []*core.TowerItem, now time.Time, cfg Config) *View {
	if cfg.QueueSize <= 0 {
		cfg = DefaultConfig()
	}

	ranked := Rank(items, now)

	v := &View{
		Queue:    []*core.TowerItem{},
		Overflow: []*core.TowerItem{},
		FollowUp: []*core.TowerItem{},
		Someday:  []*core.TowerItem{},
	}

	if len(ranked) > 0 {
		v.Hero = ranked[0]
	}
	if len(ranked) > 1 {
		end := 1 + cfg.QueueSize
		if end > len(ranked) {
			end = len(ranked)
		}
		v.Queue = ranked[1:end]
		v.Overflow = ranked[end:]
	}
	v.OverflowCount = len(v.Overflow)

	for _, it := range items {
		if it == nil {
			continue
		}
		switch it.Status {
		case core.StatusWaiting:
			v.FollowUp = append(v.FollowUp, it)
		case core.StatusSomeday:
			v.Someday = append(v.Someday, it)
		}
	}

	// Follow-up is ordered for reactivation convenience, not urgency.
	sort.SliceStable(v.FollowUp, func(i, j int) bool {
		return v.FollowUp[i].LastTouched.Before(v.FollowUp[j].LastTouched)
	})

	return v
}
