package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/appmigrate/internal/apperrors"
	"github.com/danieljhkim/appmigrate/internal/engine"
	"github.com/danieljhkim/appmigrate/internal/persist"
	"github.com/danieljhkim/appmigrate/internal/planner"
)

var (
	detectSite      string
	detectApps      []string
	detectOutput    string
	detectFormat    string
	detectThreshold float64
)

var detectConflictsCmd = &cobra.Command{
	Use:   "detect-conflicts",
	Short: "Report conflicts between the apps to consolidate",
	Long: `Detect duplicate DocTypes, field type clashes, orphaned DocTypes and
near-identical DocType names among the given apps.

Finding conflicts is not a failure; the report feeds generate-plan.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if detectThreshold < 0 || detectThreshold > 1 {
			return fmt.Errorf("%w: --threshold must be in (0, 1], got %v", apperrors.ErrValidation, detectThreshold)
		}

		ctx := context.Background()
		client, err := openSite(ctx, detectSite)
		if err != nil {
			return err
		}
		defer closeSite(client)

		report, err := newEngine(client).DetectConflicts(ctx, &engine.DetectRequest{
			Site:      detectSite,
			Apps:      detectApps,
			Threshold: detectThreshold,
		})
		if err != nil {
			return err
		}

		docs := newDocuments()
		return writeDocument(detectOutput, detectFormat, report,
			func(path string, f persist.Format) error {
				return docs.SaveConflicts(path, report, f)
			},
			func() { printConflicts(report) },
		)
	},
}

func printConflicts(report *planner.ConflictReport) {
	PrintSection(fmt.Sprintf("Conflicts among %s", strings.Join(report.Apps, ", ")))
	PrintLabelValue("Total", strconv.Itoa(report.Total))
	PrintLabelValueWithColor("Severity", string(report.Severity), severityColor(string(report.Severity)))

	if !report.HasConflicts() {
		fmt.Fprintln(out)
		PrintSuccess("No conflicts detected")
		return
	}

	for _, t := range planner.ConflictTypes {
		conflicts := report.OfType(t)
		if len(conflicts) == 0 {
			continue
		}
		fmt.Fprintln(out)
		PrintSubsection(fmt.Sprintf("%s (%d)", t, len(conflicts)))
		items := make([]string, 0, len(conflicts))
		for _, c := range conflicts {
			items = append(items, fmt.Sprintf("%s: %s", conflictSubject(c), c.Resolution))
		}
		PrintList(items, 2)
	}
}

func conflictSubject(c planner.Conflict) string {
	switch c.Type {
	case planner.ConflictFieldType:
		return c.Field
	case planner.ConflictNaming:
		return fmt.Sprintf("%s ~ %s (%d%%)", c.DocType, c.Similar, c.Similarity)
	case planner.ConflictDuplicate:
		return fmt.Sprintf("%s [%s]", c.DocType, strings.Join(c.Apps, ", "))
	default:
		return c.DocType
	}
}

func init() {
	detectConflictsCmd.Flags().StringVarP(&detectSite, "site", "s", "", "Site name or snapshot file")
	detectConflictsCmd.Flags().StringSliceVarP(&detectApps, "apps", "a", nil, "Apps to compare, in priority order")
	detectConflictsCmd.Flags().StringVarP(&detectOutput, "output", "o", "", "Write the conflict report to this file")
	detectConflictsCmd.Flags().StringVarP(&detectFormat, "format", "f", "", "Output format: json, yaml or text")
	detectConflictsCmd.Flags().Float64Var(&detectThreshold, "threshold", 0, "Naming similarity threshold in (0, 1] (default from config)")
	_ = detectConflictsCmd.MarkFlagRequired("site")
	_ = detectConflictsCmd.MarkFlagRequired("apps")
}
