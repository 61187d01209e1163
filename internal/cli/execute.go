package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danieljhkim/appmigrate/internal/apperrors"
	"github.com/danieljhkim/appmigrate/internal/config"
	"github.com/danieljhkim/appmigrate/internal/engine"
)

var (
	executeSite      string
	executePlanFile  string
	executeDryRun    bool
	executeApply     bool
	executeBatchSize int
	executeOutput    string
)

var executePlanCmd = &cobra.Command{
	Use:   "execute-plan",
	Short: "Execute a migration plan as a dry run or for real",
	Long: `Execute a migration plan against a site.

Without --apply the run is a dry run: every change is computed and reported
but nothing is written. With --apply the changes are made in one transaction
that is committed only if every step succeeds and rolled back otherwise.

The execution report is written to --output, or under ~/.appmigrate/reports.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if executeDryRun && executeApply {
			return fmt.Errorf("%w: --dry-run and --apply are mutually exclusive", apperrors.ErrValidation)
		}
		if executeBatchSize < 0 {
			return fmt.Errorf("%w: --batch-size must be positive", apperrors.ErrValidation)
		}
		dryRun := !executeApply

		docs := newDocuments()
		plan, err := docs.LoadPlan(executePlanFile)
		if err != nil {
			return err
		}

		ctx := context.Background()
		client, err := openSite(ctx, executeSite)
		if err != nil {
			return err
		}
		defer closeSite(client)

		report, runErr := newEngine(client).ExecutePlan(ctx, &engine.ExecuteRequest{
			Plan:      plan,
			PlanFile:  executePlanFile,
			DryRun:    dryRun,
			BatchSize: executeBatchSize,
		})
		if report == nil {
			return runErr
		}

		path, err := reportPath(report)
		if err != nil {
			return err
		}
		if err := docs.SaveReport(path, report, ""); err != nil {
			return err
		}

		printReport(report)
		fmt.Fprintln(out)
		PrintInfo(fmt.Sprintf("Report written to %s", path))
		return runErr
	},
}

// reportPath returns --output, or a per-execution file in the reports directory.
func reportPath(report *engine.ExecutionReport) (string, error) {
	if executeOutput != "" {
		return executeOutput, nil
	}
	paths, err := config.DefaultPaths()
	if err != nil {
		return "", err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return "", err
	}
	name := fmt.Sprintf("execution-%s.json", report.ExecutionID)
	logger.Debug("writing report to reports directory", zap.String("dir", paths.Reports))
	return filepath.Join(paths.Reports, name), nil
}

func printReport(report *engine.ExecutionReport) {
	mode := "Apply"
	if report.DryRun {
		mode = "Dry Run"
	}
	PrintSection(fmt.Sprintf("%s of plan %s", mode, report.PlanID))

	s := report.Summary
	PrintLabelValue("Steps", fmt.Sprintf("%d total, %d completed, %d failed, %d skipped",
		s.TotalSteps, s.Completed, s.Failed, s.Skipped))
	PrintLabelValue("Schema changes", strconv.Itoa(s.SchemaChanges))
	PrintLabelValue("Records", fmt.Sprintf("%d in %s", s.Records, PrintCount(s.Batches, "batch", "batches")))
	if report.Backup != "" {
		PrintLabelValue("Backup", report.Backup)
	}

	if len(report.SchemaChanges) > 0 {
		fmt.Fprintln(out)
		rows := make([][]string, 0, len(report.SchemaChanges))
		for _, c := range report.SchemaChanges {
			applied := "no"
			if c.Applied {
				applied = "yes"
			}
			rows = append(rows, []string{c.DocType, string(c.Kind), c.ID, c.From, c.To, applied})
		}
		PrintTable([]string{"DOCTYPE", "KIND", "ID", "FROM", "TO", "APPLIED"}, rows)
	}

	if len(report.Warnings) > 0 {
		fmt.Fprintln(out)
		for _, w := range report.Warnings {
			PrintWarning(w)
		}
	}
	for _, e := range report.Errors {
		PrintError(e)
	}

	fmt.Fprintln(out)
	switch {
	case report.Success && report.DryRun:
		PrintSuccess("Dry run completed; nothing was written")
	case report.Success:
		PrintSuccess(fmt.Sprintf("Applied %s", PrintCount(s.Completed, "step", "steps")))
	default:
		PrintWarning(fmt.Sprintf("Run %s", report.Status))
	}
}

func init() {
	executePlanCmd.Flags().StringVarP(&executeSite, "site", "s", "", "Site name or snapshot file")
	executePlanCmd.Flags().StringVarP(&executePlanFile, "plan", "p", "", "Plan file from generate-plan")
	executePlanCmd.Flags().BoolVar(&executeDryRun, "dry-run", false, "Report changes without writing (default)")
	executePlanCmd.Flags().BoolVar(&executeApply, "apply", false, "Write the changes in one transaction")
	executePlanCmd.Flags().IntVar(&executeBatchSize, "batch-size", 0, "Override the batch size of every data rule")
	executePlanCmd.Flags().StringVarP(&executeOutput, "output", "o", "", "Write the execution report to this file")
	_ = executePlanCmd.MarkFlagRequired("site")
	_ = executePlanCmd.MarkFlagRequired("plan")
}
