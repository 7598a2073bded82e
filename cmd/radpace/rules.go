package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/calebmd/radpace/internal/classify"
	"github.com/calebmd/radpace/internal/cli"
	"github.com/calebmd/radpace/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect classification rules",
		Long: `List the loaded classification rules and test procedure text against
them. Rules are defined in the rules file and hot-reloaded by 'radpace
watch' whenever the file changes.`,
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(testRulesCmd())
	cmd.AddCommand(reloadRulesCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded rules",
		RunE: func(_ *cobra.Command, _ []string) error {
			ruleStore, err := initRules()
			if err != nil {
				return err
			}

			rs := ruleStore.Current()
			fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("%d rules (generation %d)", rs.Len(), rs.Generation())))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintln(w, "TYPE\tMODALITY\tRVU\tPRIORITY\tREQUIRES\tEXCLUDES")
			for _, rule := range rs.Rules() {
				groups := make([]string, len(rule.RequiredGroups))
				for i, group := range rule.RequiredGroups {
					groups[i] = strings.Join(group, "|")
				}
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%s\t%s\n",
					rule.TypeName,
					rule.Modality,
					rule.RVU,
					rule.Priority,
					strings.Join(groups, " + "),
					strings.Join(rule.ExcludedKeywords, ", "))
			}
			return nil
		},
	}
}

func reloadRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Validate the rules file",
		Long: `Load the rules file and report whether it is valid. A running 'radpace
watch' session reloads the file automatically when it changes; a broken
file never replaces the rules it is already using, so this command is the
quickest way to check an edit before saving over a good file.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ruleStore, err := initRules()
			if err != nil {
				return err
			}

			rs := ruleStore.Current()
			fmt.Println(cli.SuccessStyle.Render(
				fmt.Sprintf("Rules file is valid: %d rules.", rs.Len())))
			return nil
		},
	}
}

func testRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <procedure text...>",
		Short: "Classify procedure text against the loaded rules",
		Long: `Run the classifier on the given text and show which rule wins. Useful
when authoring rules for studies that currently come back Unknown.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ruleStore, err := initRules()
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			result := classify.Classify(text, ruleStore.Current())

			if !result.Matched() {
				fmt.Println(cli.UnknownStyle.Render("No rule matched."))
				fmt.Println(cli.SubtleStyle.Render("The study would be recorded as " +
					model.StudyTypeUnknown + " with 0.00 RVU."))
				return nil
			}

			fmt.Println(cli.SuccessStyle.Render("Matched: ") + result.StudyType)
			fmt.Printf("  RVU:      %s\n", cli.FormatRVU(result.RVU))
			if result.Modality != "" {
				fmt.Printf("  Modality: %s\n", result.Modality)
			}
			if result.BodyPart != "" {
				fmt.Printf("  Body:     %s\n", result.BodyPart)
			}
			return nil
		},
	}
}
