package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/calebmd/radpace/internal/cli"
	"github.com/calebmd/radpace/internal/common"
	"github.com/calebmd/radpace/internal/model"
)

func studyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "study",
		Short: "Record and correct studies",
		Long: `Record a study manually, list the active shift's studies, and correct
the most recent capture with undo/redo.`,
	}

	cmd.AddCommand(addStudyCmd())
	cmd.AddCommand(undoStudyCmd())
	cmd.AddCommand(redoStudyCmd())
	cmd.AddCommand(listStudiesCmd())

	return cmd
}

func addStudyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <accession> <procedure text...>",
		Short: "Record a study in the active shift",
		Long: `Classify procedure text and append the study to the active shift. The
accession argument may contain several comma-separated accession numbers;
the capture is then split into one study per accession.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			added, err := tr.AddStudy(ctx, model.RawCapture{
				AccessionText: args[0],
				ProcedureText: strings.Join(args[1:], " "),
				CaptureTime:   time.Now(),
			})
			switch {
			case errors.Is(err, common.ErrNoActiveShift):
				return common.NewUserError("No active shift; start one with 'radpace shift start'", err)
			case errors.Is(err, common.ErrMalformedAccession):
				return common.NewUserError("Could not parse accession numbers", err)
			case errors.Is(err, common.ErrStudyTooShort):
				return common.NewUserError("Capture rejected: too soon after the previous study", err)
			case err != nil:
				return err
			}

			if len(added) == 0 {
				fmt.Println(cli.WarningStyle.Render("Duplicate accession; nothing recorded."))
				return nil
			}
			for _, record := range added {
				line := fmt.Sprintf("%s  %s  %s RVU",
					record.AccessionNumber, record.StudyType, cli.FormatRVU(record.RVU))
				if record.StudyType == model.StudyTypeUnknown {
					line += "  " + cli.UnknownStyle.Render("(no rule matched)")
				}
				fmt.Println(cli.SuccessStyle.Render("Recorded: ") + line)
			}
			return nil
		},
	}
}

func undoStudyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Remove the most recent study",
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

			record, err := tr.Undo(ctx)
			switch {
			case errors.Is(err, common.ErrNoActiveShift):
				return common.NewUserError("No active shift", err)
			case errors.Is(err, common.ErrNothingToUndo):
				return common.NewUserError("Nothing to undo", err)
			case err != nil:
				return err
			}

			fmt.Println(cli.SuccessStyle.Render("Removed: ") +
				fmt.Sprintf("%s  %s  %s RVU",
					record.AccessionNumber, record.StudyType, cli.FormatRVU(record.RVU)))
			return nil
		},
	}
}

func redoStudyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redo",
		Short: "Restore the study removed by the last undo",
		Long: `Reinsert the study removed by the previous undo. The undo buffer lives in
the running process: redo pairs with an undo from the same 'radpace watch'
session, and any newly recorded study discards the pending redo.`,
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

			record, err := tr.Redo(ctx)
			switch {
			case errors.Is(err, common.ErrNoActiveShift):
				return common.NewUserError("No active shift", err)
			case errors.Is(err, common.ErrNothingToRedo):
				return common.NewUserError("Nothing to redo", err)
			case err != nil:
				return err
			}

			fmt.Println(cli.SuccessStyle.Render("Restored: ") +
				fmt.Sprintf("%s  %s  %s RVU",
					record.AccessionNumber, record.StudyType, cli.FormatRVU(record.RVU)))
			return nil
		},
	}
}

func listStudiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the active shift's studies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			shift, err := store.GetActiveShift(ctx)
			if errors.Is(err, common.ErrNotFound) {
				fmt.Println(cli.InfoStyle.Render("No active shift."))
				return nil
			}
			if err != nil {
				return err
			}

			printStudies(os.Stdout, shift)
			return nil
		},
	}
}

func printStudies(out *os.File, shift *model.Shift) {
	if shift.StudyCount() == 0 {
		fmt.Fprintln(out, cli.InfoStyle.Render("No studies recorded yet."))
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintln(w, "TIME\tACCESSION\tTYPE\tRVU")
	for i := range shift.Studies {
		record := &shift.Studies[i]
		studyType := record.StudyType
		if studyType == model.StudyTypeUnknown {
			studyType = cli.UnknownStyle.Render(studyType)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n",
			record.EndTime.Format("15:04"),
			record.AccessionNumber,
			studyType,
			record.RVU)
	}
	fmt.Fprintf(w, "\t\tTOTAL\t%.2f\n", shift.TotalRVU())
}
