package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/calebmd/radpace/internal/cli"
	"github.com/calebmd/radpace/internal/common"
	"github.com/calebmd/radpace/internal/model"
)

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report [shift-id]",
		Short: "Show a shift report",
		Long: `Print a shift's studies and totals. Without an argument the active shift
is reported, falling back to the most recent one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var shift *model.Shift
			if len(args) == 1 {
				shift, err = store.GetShift(ctx, args[0])
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("Shift %s not found", args[0]), err)
				}
				if err != nil {
					return err
				}
			} else {
				shift, err = store.GetActiveShift(ctx)
				if errors.Is(err, common.ErrNotFound) {
					shifts, listErr := store.ListShifts(ctx, 1)
					if listErr != nil {
						return listErr
					}
					if len(shifts) == 0 {
						fmt.Println(cli.InfoStyle.Render("No shifts recorded."))
						return nil
					}
					shift = &shifts[0]
				} else if err != nil {
					return err
				}
			}

			printShiftReport(shift)

			// Pace vs the previous shift, when there is one to compare to.
			reference, err := store.GetPreviousShift(ctx, shift.StartTime)
			if err == nil {
				now := time.Now()
				pace := shift.TotalRVU() - reference.RVUAt(shift.Elapsed(now))
				fmt.Printf("\nPace vs %s: %s RVU\n",
					reference.StartTime.Format("Jan 02"),
					cli.FormatPace(pace))
			} else if !errors.Is(err, common.ErrNotFound) {
				return err
			}
			return nil
		},
	}
}

func printShiftReport(shift *model.Shift) {
	id := shift.ID
	if len(id) > 8 {
		id = id[:8]
	}
	header := fmt.Sprintf("Shift %s  %s", id, shift.StartTime.Format("Mon Jan 02 15:04"))
	if shift.EndTime != nil {
		header += " to " + shift.EndTime.Format("15:04")
	} else {
		header += " (active)"
	}
	fmt.Println(cli.TitleStyle.Render(header))

	printStudies(os.Stdout, shift)

	unknown := 0
	for i := range shift.Studies {
		if shift.Studies[i].StudyType == model.StudyTypeUnknown {
			unknown++
		}
	}
	if unknown > 0 {
		fmt.Println(cli.UnknownStyle.Render(
			fmt.Sprintf("%d studies unmatched; add rules and run 'radpace reclassify'", unknown)))
	}
}
