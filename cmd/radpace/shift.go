package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/calebmd/radpace/internal/cli"
	"github.com/calebmd/radpace/internal/common"
	"github.com/calebmd/radpace/internal/model"
)

func shiftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shift",
		Short: "Manage work shifts",
		Long:  `Start, end, and list the work shifts that studies are recorded against.`,
	}

	cmd.AddCommand(startShiftCmd())
	cmd.AddCommand(endShiftCmd())
	cmd.AddCommand(listShiftsCmd())

	return cmd
}

func startShiftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a new shift",
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
			tr, err := initTracker(ctx, store, ruleStore)
			if err != nil {
				return err
			}

			shift, err := tr.StartShift(ctx)
			if errors.Is(err, common.ErrShiftAlreadyActive) {
				return common.NewUserError("A shift is already active; end it first with 'radpace shift end'", err)
			}
			if err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Shift started at %s",
				shift.StartTime.Format("15:04:05"))))
			fmt.Println(cli.SubtleStyle.Render("Shift ID: " + shift.ID))
			return nil
		},
	}
}

func endShiftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the active shift",
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
			tr, err := initTracker(ctx, store, ruleStore)
			if err != nil {
				return err
			}

			shift, changed, err := tr.EndShift(ctx)
			if errors.Is(err, common.ErrNoActiveShift) {
				return common.NewUserError("No shift to end", err)
			}
			if err != nil {
				return err
			}
			if !changed {
				fmt.Println(cli.InfoStyle.Render("Shift was already ended."))
				return nil
			}

			duration := shift.EndTime.Sub(shift.StartTime).Round(time.Minute)
			fmt.Println(cli.SuccessStyle.Render("Shift ended."))
			fmt.Printf("  Duration: %s\n", duration)
			fmt.Printf("  Studies:  %d\n", shift.StudyCount())
			fmt.Printf("  Total RVU: %s\n", cli.FormatRVU(shift.TotalRVU()))
			return nil
		},
	}
}

func listShiftsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent shifts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			shifts, err := store.ListShifts(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to list shifts: %w", err)
			}
			if len(shifts) == 0 {
				fmt.Println(cli.InfoStyle.Render("No shifts recorded. Use 'radpace shift start' to begin one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintln(w, "START\tEND\tSTATUS\tSTUDIES\tRVU")
			for i := range shifts {
				shift := &shifts[i]
				end := "-"
				if shift.EndTime != nil {
					end = shift.EndTime.Format("Jan 02 15:04")
				}
				status := string(shift.Status)
				if shift.Status == model.ShiftActive {
					status = cli.SuccessStyle.Render(status)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\n",
					shift.StartTime.Format("Jan 02 15:04"),
					end,
					status,
					shift.StudyCount(),
					shift.TotalRVU())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum shifts to show")
	return cmd
}
