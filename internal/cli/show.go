package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/appmigrate/internal/planner"
)

var showPlanFile string

var showPlanCmd = &cobra.Command{
	Use:   "show-plan",
	Short: "Validate a plan file and summarize it",
	Long: `Load a plan file, verify its structure and checksum, and print what executing
it would do in execution order.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := newDocuments().LoadPlan(showPlanFile)
		if err != nil {
			return err
		}

		printPlanSummary(plan)

		fmt.Fprintln(out)
		rows := make([][]string, 0, len(plan.ExecutionOrder))
		for _, doctype := range plan.ExecutionOrder {
			m, _ := plan.Mapping(doctype)
			rule := plan.DataRules[doctype]
			kind := "doctype"
			if m.IsTable {
				kind = "table"
			}
			note := ""
			if m.Conflict {
				note = "from " + strings.Join(m.Sources, ", ")
			}
			rows = append(rows, []string{
				doctype, kind, m.SourceApp, string(m.Action),
				fmt.Sprintf("%d", rule.RecordCount), note,
			})
		}
		PrintTable([]string{"DOCTYPE", "KIND", "FROM", "ACTION", "RECORDS", "NOTE"}, rows)

		fmt.Fprintln(out)
		PrintSubsection("Checks:")
		PrintList(checkNames(plan.PreMigrationChecks, "pre"), 2)
		PrintList(checkNames(plan.PostMigrationChecks, "post"), 2)

		fmt.Fprintln(out)
		PrintSuccess("Plan is valid")
		return nil
	},
}

func checkNames(checks []planner.Check, phase string) []string {
	names := make([]string, 0, len(checks))
	for _, c := range checks {
		names = append(names, fmt.Sprintf("%s: %s", phase, c.Name))
	}
	return names
}

func init() {
	showPlanCmd.Flags().StringVarP(&showPlanFile, "plan", "p", "", "Plan file to show")
	_ = showPlanCmd.MarkFlagRequired("plan")
}
