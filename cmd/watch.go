package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/w3ico/internal/app"
	"github.com/Mohsinsiddi/w3ico/internal/chain"
	"github.com/Mohsinsiddi/w3ico/internal/statesync"
	"github.com/Mohsinsiddi/w3ico/internal/ui"
	"github.com/spf13/cobra"
)

var (
	watchInterval int
	watchPlain    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the sale live",
	Long: `Refresh the sale and your balance on a fixed interval.

The interval defaults to watch_interval from the config (10 seconds).

Keyboard controls:
  r   refresh now
  q   quit

Examples:
  w3ico watch
  w3ico watch --interval 30
  w3ico watch --plain        # one line per refresh, no TUI`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval := time.Duration(watchInterval) * time.Second
		if watchInterval <= 0 {
			interval = time.Duration(cfg.WatchInterval) * time.Second
		}
		if interval <= 0 {
			interval = 10 * time.Second
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if watchPlain {
				return watchLines(ctx, a, interval)
			}
			fetch := func() (chain.Session, statesync.Snapshot, error) {
				snap, err := a.Refresh(ctx)
				return a.Session(), snap, err
			}
			// The notifier would draw over the TUI; errors show inside it.
			a.SetNotifier(nil)
			_, err := ui.NewDashboard(interval, fetch).Run()
			return err
		})
	},
}

// watchLines prints one summary line per refresh until ctx is cancelled.
func watchLines(ctx context.Context, a *app.App, interval time.Duration) error {
	snap, _ := a.Snapshot()
	fmt.Println(ui.SnapshotBlock(a.Session(), snap))
	a.Watch(ctx, interval, func(snap statesync.Snapshot, err error) {
		if err != nil {
			return
		}
		fmt.Println(ui.Meta(snap.RefreshedAt.Format("15:04:05")) + "  " + summaryLine(snap))
	})
	return nil
}

func summaryLine(snap statesync.Snapshot) string {
	pairs := ui.SnapshotPairs(chain.Session{}, snap)
	line := ""
	for _, p := range pairs {
		switch p[0] {
		case "Sold", "Remaining", "Your balance":
			line += fmt.Sprintf("%s %s  ", p[0], ui.Val(p[1]))
		}
	}
	return line
}

func init() {
	watchCmd.Flags().IntVar(&watchInterval, "interval", 0, "refresh interval in seconds")
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "print lines instead of the live dashboard")
}
