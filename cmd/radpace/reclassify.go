package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calebmd/radpace/internal/classify"
	"github.com/calebmd/radpace/internal/cli"
	"github.com/calebmd/radpace/internal/common"
)

func reclassifyCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reclassify <shift-id>",
		Short: "Re-run classification over a shift's studies",
		Long: `Re-classify every study in a shift against the current rules file and
rewrite type and RVU where the outcome changed. Classification is never
redone automatically; this explicit pass is the only way recorded studies
pick up rule changes. Typically used after authoring rules for studies
that were recorded as Unknown.`,
		Args: cobra.ExactArgs(1),
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
			rs := ruleStore.Current()

			shift, err := store.GetShift(ctx, args[0])
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError(fmt.Sprintf("Shift %s not found", args[0]), err)
			}
			if err != nil {
				return err
			}

			changed := 0
			for i := range shift.Studies {
				record := &shift.Studies[i]
				result := classify.Classify(record.ProcedureText, rs)
				if result.StudyType == record.StudyType && result.RVU == record.RVU {
					continue
				}

				fmt.Printf("%s: %s (%.2f) -> %s (%.2f)\n",
					record.AccessionNumber,
					record.StudyType, record.RVU,
					result.StudyType, result.RVU)

				if !dryRun {
					if err := store.UpdateStudyClassification(ctx, record.ID, result.StudyType, result.RVU); err != nil {
						return fmt.Errorf("failed to update study %s: %w", record.AccessionNumber, err)
					}
				}
				changed++
			}

			switch {
			case changed == 0:
				fmt.Println(cli.InfoStyle.Render("No classifications changed."))
			case dryRun:
				fmt.Println(cli.WarningStyle.Render(
					fmt.Sprintf("%d studies would change (dry run, generation %d).", changed, rs.Generation())))
			default:
				fmt.Println(cli.SuccessStyle.Render(
					fmt.Sprintf("%d studies reclassified against generation %d.", changed, rs.Generation())))
			}

			if !dryRun && changed > 0 {
				// Totals are derived from the records, so no further fixup is needed.
				updated, err := store.GetShift(ctx, shift.ID)
				if err != nil {
					return err
				}
				fmt.Printf("Shift total is now %s RVU\n", cli.FormatRVU(updated.TotalRVU()))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show changes without writing them")
	return cmd
}
