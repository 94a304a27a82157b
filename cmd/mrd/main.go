// Meridian CLI - capture, surface, and clear the things on your mind.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spiffler33/meridian/internal/capture"
	"github.com/spiffler33/meridian/internal/config"
	"github.com/spiffler33/meridian/internal/core"
	"github.com/spiffler33/meridian/internal/llm"
	"github.com/spiffler33/meridian/internal/storage"
	"github.com/spiffler33/meridian/internal/surface"
	"github.com/spiffler33/meridian/internal/tower"
)

var (
	configPath string
	dataDir    string

	version = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mrd",
		Short: "Meridian - the one thing that matters right now",
		Long: `Meridian keeps everything you have promised, and keeps showing
you only the one thing that matters right now.

Capture in plain words; Meridian sorts out what is an appointment,
what is a deadline, and what is just an open loop.`,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (overrides config)")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(nextCmd())
	rootCmd.AddCommand(lsCmd())
	rootCmd.AddCommand(doneCmd())
	rootCmd.AddCommand(holdCmd())
	rootCmd.AddCommand(deferCmd())
	rootCmd.AddCommand(wakeCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openService wires storage and the service for a CLI invocation
func openService() (*tower.Service, *storage.ItemStore, *config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	db, err := storage.Open(storage.Config{Path: cfg.DatabasePath()})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, nil, nil, fmt.Errorf("migration failed: %w", err)
	}

	items := storage.NewItemStore(db)
	svc := tower.New(items, surface.Config{QueueSize: cfg.Surface.QueueSize}, nil)
	return svc, items, cfg, func() { db.Close() }, nil
}

// resolveID matches a full item ID or a unique prefix
func resolveID(items *storage.ItemStore, ref string) (core.ItemID, error) {
	all, err := items.GetAll()
	if err != nil {
		return "", err
	}

	var matches []core.ItemID
	for _, it := range all {
		if string(it.ID) == ref {
			return it.ID, nil
		}
		if strings.HasPrefix(string(it.ID), ref) {
			matches = append(matches, it.ID)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", core.ErrItemNotFound
	default:
		return "", fmt.Errorf("id prefix %q is ambiguous (%d matches)", ref, len(matches))
	}
}

func shortID(id core.ItemID) string {
	s := string(id)
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <text>",
		Short: "Capture something onto the tower",
		Long: `Captures free text. With ANTHROPIC_API_KEY set the text is split
into structured items (deadlines, appointments, waiting-on); without
it the raw text lands as a single open item.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, cfg, closeDB, err := openService()
			if err != nil {
				return err
			}
			defer closeDB()

			parser := capture.NewParser(llm.New(llm.Config{
				APIKey: cfg.Claude.APIKey,
				Model:  cfg.Claude.Model,
			}))

			protos, err := parser.Parse(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			for _, p := range protos {
				item, cerr := svc.Create(tower.CreateInput{
					Text:      p.Text,
					Status:    p.Status,
					IsEvent:   p.IsEvent,
					ExpectsBy: p.ExpectsBy,
					WaitingOn: p.WaitingOn,
					Effort:    p.Effort,
				})
				if cerr != nil {
					return cerr
				}
				fmt.Printf("✅ [%s] %s\n", shortID(item.ID), item.Text)
				if p.Fallback {
					fmt.Println("   (captured as raw text; no model available)")
				}
			}
			return nil
		},
	}
}

func nextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show the one thing that matters right now",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, _, closeDB, err := openService()
			if err != nil {
				return err
			}
			defer closeDB()

			now := time.Now().UTC()
			v, err := svc.View(now)
			if err != nil {
				return err
			}

			if v.Hero == nil {
				fmt.Println("🏝️  Nothing on the tower. Enjoy the quiet.")
				return nil
			}

			fmt.Printf("▶ [%s] %s\n", shortID(v.Hero.ID), v.Hero.Text)
			fmt.Printf("  %s\n", surface.Explain(v.Hero, 0, now))

			for i, it := range v.Queue {
				fmt.Printf("\n  then: [%s] %s\n", shortID(it.ID), it.Text)
				fmt.Printf("        %s\n", surface.Explain(it, i+1, now))
			}

			if v.OverflowCount > 0 {
				fmt.Printf("\n  …and %d more below the fold (mrd ls)\n", v.OverflowCount)
			}
			if len(v.FollowUp) > 0 {
				fmt.Printf("  ⏳ waiting on others: %d (mrd ls --status waiting)\n", len(v.FollowUp))
			}
			return nil
		},
	}
}

func lsCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List items on the tower",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, items, _, closeDB, err := openService()
			if err != nil {
				return err
			}
			defer closeDB()

			var list []*core.TowerItem
			if status != "" {
				if !core.ValidStatus(core.Status(status)) {
					return core.ErrInvalidStatus
				}
				list, err = items.GetByStatus(core.Status(status))
			} else {
				list, err = svc.List()
			}
			if err != nil {
				return err
			}

			if len(list) == 0 {
				fmt.Println("Nothing here.")
				return nil
			}

			now := time.Now().UTC()
			ranked := surface.Rank(list, now)
			for _, it := range ranked {
				printItem(it, now)
			}
			// Non-active items carry no urgency; list them after, oldest first
			for _, it := range list {
				if !it.IsActive() {
					printItem(it, now)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (active, waiting, someday, done)")
	return cmd
}

func printItem(it *core.TowerItem, now time.Time) {
	marker := " "
	switch it.Status {
	case core.StatusWaiting:
		marker = "⏳"
	case core.StatusSomeday:
		marker = "💤"
	case core.StatusDone:
		marker = "✔"
	}

	line := fmt.Sprintf("%s [%s] %s", marker, shortID(it.ID), it.Text)
	if it.HasDate() {
		kind := "due"
		if it.IsEvent {
			kind = "on"
		}
		line += fmt.Sprintf(" (%s %s)", kind, it.ExpectsBy.Format(core.DateLayout))
	}
	if it.Status == core.StatusWaiting && it.WaitingOn != "" {
		line += fmt.Sprintf(" — waiting on %s", it.WaitingOn)
	}
	fmt.Println(line)
}

func doneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark an item done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, items, _, closeDB, err := openService()
			if err != nil {
				return err
			}
			defer closeDB()

			id, err := resolveID(items, args[0])
			if err != nil {
				return err
			}
			item, err := svc.MarkDone(id)
			if err != nil {
				return err
			}
			fmt.Printf("✔ Done: %s\n", item.Text)
			return nil
		},
	}
}

func holdCmd() *cobra.Command {
	var waitingOn string

	cmd := &cobra.Command{
		Use:   "hold <id>",
		Short: "Park an item while you wait on someone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, items, _, closeDB, err := openService()
			if err != nil {
				return err
			}
			defer closeDB()

			id, err := resolveID(items, args[0])
			if err != nil {
				return err
			}
			item, err := svc.Hold(id, waitingOn)
			if err != nil {
				return err
			}
			fmt.Printf("⏳ On hold, waiting on %s: %s\n", item.WaitingOn, item.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&waitingOn, "on", "", "who or what you are waiting on")
	return cmd
}

func deferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "defer <id>",
		Short: "Push an item to someday",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, items, _, closeDB, err := openService()
			if err != nil {
				return err
			}
			defer closeDB()

			id, err := resolveID(items, args[0])
			if err != nil {
				return err
			}
			item, err := svc.Defer(id)
			if err != nil {
				return err
			}
			fmt.Printf("💤 Someday: %s\n", item.Text)
			return nil
		},
	}
}

func wakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wake <id>",
		Short: "Bring a parked item back to active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, items, _, closeDB, err := openService()
			if err != nil {
				return err
			}
			defer closeDB()

			id, err := resolveID(items, args[0])
			if err != nil {
				return err
			}
			item, err := svc.Reactivate(id)
			if err != nil {
				return err
			}
			fmt.Printf("▶ Back in play: %s\n", item.Text)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mrd %s\n", version)
		},
	}
}
