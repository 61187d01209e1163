package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/appmigrate/internal/apperrors"
	"github.com/danieljhkim/appmigrate/internal/config"
	"github.com/danieljhkim/appmigrate/internal/engine"
	"github.com/danieljhkim/appmigrate/internal/fsops"
	"github.com/danieljhkim/appmigrate/internal/persist"
	"github.com/danieljhkim/appmigrate/internal/planner"
)

var (
	generateSite         string
	generateApps         []string
	generateTarget       string
	generateTargetModule string
	generateConfig       string
	generateOutput       string
	generateFormat       string
)

var generatePlanCmd = &cobra.Command{
	Use:   "generate-plan",
	Short: "Write a migration plan moving the source apps' DocTypes to a target app",
	Long: `Generate a checksummed migration plan consolidating the DocTypes of the source
apps into the target app.

DocTypes owned by several source apps are resolved by the resolution policy
(first-match or last-match over --apps order) unless the plan config pins the
winning app under overrides. The plan config may also ignore DocTypes and set
target_module, resolution_policy and batch_size.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if generateOutput == "" {
			return fmt.Errorf("%w: --output is required", apperrors.ErrValidation)
		}
		if generateFormat == formatText {
			return fmt.Errorf("%w: plans are written as json or yaml", apperrors.ErrValidation)
		}

		req := &engine.GeneratePlanRequest{
			Site:       generateSite,
			SourceApps: generateApps,
			TargetApp:  generateTarget,
		}
		if generateConfig != "" {
			pc, err := config.LoadPlanConfig(fsops.NewRealFS(), generateConfig)
			if err != nil {
				return err
			}
			applyPlanConfig(req, pc)
		}
		if generateTargetModule != "" {
			req.TargetModule = generateTargetModule
		}

		ctx := context.Background()
		client, err := openSite(ctx, generateSite)
		if err != nil {
			return err
		}
		defer closeSite(client)

		plan, err := newEngine(client).GeneratePlan(ctx, req)
		if err != nil {
			return err
		}

		f, err := persist.ParseFormat(generateFormat)
		if err != nil {
			return err
		}
		if err := newDocuments().SavePlan(generateOutput, plan, f); err != nil {
			return err
		}

		printPlanSummary(plan)
		fmt.Fprintln(out)
		PrintSuccess(fmt.Sprintf("Wrote plan to %s", generateOutput))
		return nil
	},
}

func applyPlanConfig(req *engine.GeneratePlanRequest, pc *config.PlanConfig) {
	req.TargetModule = pc.TargetModule
	req.Policy = planner.Policy(pc.ResolutionPolicy)
	req.BatchSize = pc.BatchSize
	req.Overrides = pc.Overrides
	req.Ignore = pc.Ignore
}

func printPlanSummary(plan *planner.MigrationPlan) {
	md := plan.Metadata
	PrintSection(fmt.Sprintf("Plan %s", md.PlanID))
	PrintLabelValue("Source apps", strings.Join(plan.SourceApps, ", "))
	PrintLabelValue("Target", fmt.Sprintf("%s (module %s)", plan.TargetApp, md.TargetModule))
	PrintLabelValue("Policy", string(md.ResolutionPolicy))
	PrintLabelValue("DocTypes", fmt.Sprintf("%d (%d child tables)", md.TotalDocTypes, md.TotalTables))
	PrintLabelValue("Records", strconv.Itoa(md.TotalRecords))
	PrintLabelValue("Conflicts", strconv.Itoa(md.ConflictCount))
	PrintLabelValueWithColor("Effort", string(md.Effort), severityColor(string(md.Effort)))
	PrintLabelValueWithColor("Risk", string(md.Risk), severityColor(string(md.Risk)))
	for _, w := range md.Warnings {
		PrintWarning(w)
	}
}

func init() {
	generatePlanCmd.Flags().StringVarP(&generateSite, "site", "s", "", "Site name or snapshot file")
	generatePlanCmd.Flags().StringSliceVarP(&generateApps, "apps", "a", nil, "Source apps, in priority order")
	generatePlanCmd.Flags().StringVarP(&generateTarget, "target", "t", "", "Target app receiving every DocType")
	generatePlanCmd.Flags().StringVar(&generateTargetModule, "target-module", "", "Target module (default derived from the target app)")
	generatePlanCmd.Flags().StringVarP(&generateConfig, "config", "c", "", "Plan config file (overrides, ignore, target_module, ...)")
	generatePlanCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Write the plan to this file")
	generatePlanCmd.Flags().StringVarP(&generateFormat, "format", "f", "", "Plan format: json or yaml (default from extension)")
	_ = generatePlanCmd.MarkFlagRequired("site")
	_ = generatePlanCmd.MarkFlagRequired("apps")
	_ = generatePlanCmd.MarkFlagRequired("target")
	_ = generatePlanCmd.MarkFlagRequired("output")
}
