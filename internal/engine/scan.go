package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danieljhkim/appmigrate/internal/catalog"
	"github.com/danieljhkim/appmigrate/internal/planner"
)

// Scan reads the inventory of a site.
func (e *Engine) Scan(ctx context.Context, req *ScanRequest) (*ScanResult, error) {
	inv, err := e.scanner().Scan(ctx, req.Site, req.Apps)
	if err != nil {
		return nil, fmt.Errorf("failed to scan site: %w", err)
	}
	if err := requireApps(inv, req.Apps); err != nil {
		return nil, err
	}

	return &ScanResult{
		Inventory: inv,
		Stats:     inv.Stats(),
	}, nil
}

// Algorithm steps:
// 1. Scan the requested apps
// 2. Detect conflicts among them in the caller's order
// 3. Stamp the report
func (e *Engine) DetectConflicts(ctx context.Context, req *DetectRequest) (*planner.ConflictReport, error) {
	if len(req.Apps) == 0 {
		return nil, fmt.Errorf("%w: at least one app is required", ErrValidation)
	}

	result, err := e.Scan(ctx, &ScanRequest{Site: req.Site, Apps: req.Apps})
	if err != nil {
		return nil, err
	}

	report := e.detector(req.Threshold).Detect(result.Inventory, req.Apps)
	report.GeneratedAt = e.clock.Now()
	return report, nil
}

// Algorithm steps:
// 1. Scan the source apps
// 2. Detect conflicts (recorded in the plan metadata)
// 3. Generate the plan, counting records per DocType
func (e *Engine) GeneratePlan(ctx context.Context, req *GeneratePlanRequest) (*planner.MigrationPlan, error) {
	if len(req.SourceApps) == 0 {
		return nil, fmt.Errorf("%w: at least one source app is required", ErrValidation)
	}

	result, err := e.Scan(ctx, &ScanRequest{Site: req.Site, Apps: req.SourceApps})
	if err != nil {
		return nil, err
	}
	for _, se := range result.Inventory.Errors {
		e.logger.Warn("doctype skipped during scan",
			zap.String("doctype", se.Entity),
			zap.String("error", se.Error))
	}

	conflicts := e.detector(0).Detect(result.Inventory, req.SourceApps)

	policy := req.Policy
	if policy == "" {
		policy = e.opts.Policy
	}
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = e.opts.BatchSize
	}

	plan, err := e.generator().Generate(ctx, result.Inventory, conflicts, planner.PlanRequest{
		Site:                req.Site,
		SourceApps:          req.SourceApps,
		TargetApp:           req.TargetApp,
		TargetModule:        req.TargetModule,
		Overrides:           req.Overrides,
		Ignore:              req.Ignore,
		Policy:              policy,
		BatchSize:           batchSize,
		SimilarityThreshold: e.opts.SimilarityThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate plan: %w", err)
	}
	return plan, nil
}

// requireApps reports the first requested app the scan found nothing for.
func requireApps(inv *catalog.Inventory, apps []string) error {
	for _, app := range apps {
		if !inv.HasGroup(app) {
			return fmt.Errorf("app %q: %w (no Module Def records)", app, ErrNotFound)
		}
	}
	return nil
}
