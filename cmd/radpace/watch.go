package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/calebmd/radpace/internal/cli"
	"github.com/calebmd/radpace/internal/common"
	"github.com/calebmd/radpace/internal/config"
	"github.com/calebmd/radpace/internal/model"
	"github.com/calebmd/radpace/internal/poller"
	"github.com/calebmd/radpace/internal/storage"
	"github.com/calebmd/radpace/internal/tracker"
)

func watchCmd() *cobra.Command {
	var spool string
	var statusEvery time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the capture worker",
		Long: `Poll the capture spool written by the reporting-software scraper and
record every study it observes into the active shift. Rules are hot-reloaded
when the rules file changes. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ruleStore, err := initRules()
			if err != nil {
				return err
			}
			ruleStore.Watch()

			tr, err := initTracker(ctx, store, ruleStore)
			if err != nil {
				return err
			}
			if tr.ActiveShift() == nil {
				fmt.Println(cli.WarningStyle.Render(
					"No active shift; captures will be dropped until 'radpace shift start'."))
			}

			polling := config.PollingConfig()
			if spool != "" {
				polling.Spool = config.ExpandPath(spool)
			}
			if polling.Spool == "" {
				return common.NewUserError(
					"No capture spool configured; set polling.spool or pass --spool", nil)
			}

			worker := poller.NewWorker(poller.NewFileSource(polling.Spool), tr, poller.Config{
				Interval: polling.Interval,
				Timeout:  polling.Timeout,
			})

			go reportStatus(ctx, store, tr, statusEvery)

			err = worker.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&spool, "spool", "", "capture spool file to poll (overrides config)")
	cmd.Flags().DurationVar(&statusEvery, "status-every", 30*time.Second, "how often to print a status line")
	return cmd
}

// reportStatus periodically prints shift progress and pace versus the
// previous shift.
func reportStatus(ctx context.Context, store *storage.SQLiteStorage, tr *tracker.Tracker, every time.Duration) {
	if every <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			shift := tr.ActiveShift()
			if shift == nil {
				continue
			}

			now := time.Now()
			reference := paceReference(ctx, store, shift)
			pace := tr.Pace(reference, now)

			line := fmt.Sprintf("%s  %d studies  %s RVU",
				now.Format("15:04"),
				shift.StudyCount(),
				cli.FormatRVU(shift.TotalRVU()))
			if reference != nil {
				line += "  pace " + cli.FormatPace(pace)
			}
			fmt.Println(line)
		}
	}
}

// paceReference picks the most recent ended shift as the comparison shift.
func paceReference(ctx context.Context, store *storage.SQLiteStorage, current *model.Shift) *model.Shift {
	reference, err := store.GetPreviousShift(ctx, current.StartTime)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			common.LogError(err, "Failed to load pace reference shift", nil)
		}
		return nil
	}
	return reference
}
