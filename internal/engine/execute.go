package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danieljhkim/appmigrate/internal/planner"
	"github.com/danieljhkim/appmigrate/internal/store"
)

// Algorithm steps:
// 1. Validate the plan (malformed plans are rejected before anything runs)
// 2. Run pre-migration checks (apply: failures abort; dry-run: warnings)
// 3. Execute each step in plan order, recording failures and continuing
// 4. Apply: commit once if no step failed, otherwise roll back
// 5. Apply: run post-migration checks after a successful commit
// 6. Return the report; a run with failures also returns ErrPartialFailure
//
// Dry-run never calls SetField, Commit or Rollback.
func (e *Engine) ExecutePlan(ctx context.Context, req *ExecuteRequest) (*ExecutionReport, error) {
	plan := req.Plan
	if plan == nil {
		return nil, fmt.Errorf("%w: no plan given", ErrValidation)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	logger := e.logger.Named("executor").With(
		zap.String("plan_id", plan.Metadata.PlanID),
		zap.Bool("dry_run", req.DryRun))

	report := newExecutionReport()
	report.ExecutionID = uuid.NewString()
	report.PlanFile = req.PlanFile
	report.PlanID = plan.Metadata.PlanID
	report.DryRun = req.DryRun
	report.ExecutionStart = e.clock.Now()
	report.Summary.TotalSteps = len(plan.ExecutionOrder)

	if plan.Metadata.Checksum != "" {
		if err := plan.VerifyChecksum(e.hasher); err != nil {
			return nil, err
		}
	} else {
		report.Warnings = append(report.Warnings, "plan has no checksum; content cannot be verified")
	}

	report.Status = StatusRunning
	logger.Info("execution started", zap.Int("steps", report.Summary.TotalSteps))

	if err := e.runPreChecks(ctx, plan, req.DryRun, report); err != nil {
		report.Errors = append(report.Errors, err.Error())
		report.StepsSkipped = append(report.StepsSkipped, plan.ExecutionOrder...)
		report.Summary.Skipped = len(report.StepsSkipped)
		e.finish(report, false)
		logger.Error("pre-migration checks failed", zap.Error(err))
		return report, fmt.Errorf("%w: pre-migration check failed: %w", ErrPartialFailure, err)
	}

	for i, doctype := range plan.ExecutionOrder {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("execution interrupted: %v", err))
			report.StepsSkipped = append(report.StepsSkipped, plan.ExecutionOrder[i:]...)
			break
		}

		if err := e.runStep(ctx, plan, doctype, req, report); err != nil {
			logger.Warn("step failed", zap.String("doctype", doctype), zap.Error(err))
			report.StepsFailed = append(report.StepsFailed, doctype)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", doctype, err))
			continue
		}
		report.StepsCompleted = append(report.StepsCompleted, doctype)
	}

	report.Summary.Completed = len(report.StepsCompleted)
	report.Summary.Failed = len(report.StepsFailed)
	report.Summary.Skipped = len(report.StepsSkipped)
	ok := report.Summary.Failed == 0 && report.Summary.Skipped == 0

	if !req.DryRun {
		ok = e.settle(ctx, ok, report, logger)
		if ok {
			e.runPostChecks(ctx, plan, report)
		}
	}

	e.finish(report, ok)
	logger.Info("execution finished",
		zap.String("status", string(report.Status)),
		zap.Int("completed", report.Summary.Completed),
		zap.Int("failed", report.Summary.Failed),
		zap.Int("skipped", report.Summary.Skipped))

	if !ok {
		return report, fmt.Errorf("%w: %d of %d steps failed, %d skipped",
			ErrPartialFailure, report.Summary.Failed, report.Summary.TotalSteps, report.Summary.Skipped)
	}
	return report, nil
}

// settle commits when ok and rolls back otherwise. It reports whether the
// writes were committed.
func (e *Engine) settle(ctx context.Context, ok bool, report *ExecutionReport, logger *zap.Logger) bool {
	// Commit and rollback must run even if ctx was canceled mid-loop.
	ctx = context.WithoutCancel(ctx)

	if ok {
		if err := e.client.Commit(ctx); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("commit failed: %v", err))
			logger.Error("commit failed", zap.Error(err))
			if rbErr := e.client.Rollback(ctx); rbErr != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("rollback failed: %v", rbErr))
			}
			markUnapplied(report)
			return false
		}
		return true
	}

	if err := e.client.Rollback(ctx); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("rollback failed: %v", err))
		logger.Error("rollback failed", zap.Error(err))
	} else {
		report.Warnings = append(report.Warnings, "all changes were rolled back")
	}
	markUnapplied(report)
	return false
}

func (e *Engine) finish(report *ExecutionReport, ok bool) {
	report.Success = ok
	if ok {
		report.Status = StatusCompleted
	} else {
		report.Status = StatusPartiallyFailed
	}
	report.ExecutionEnd = e.clock.Now()
}

// markUnapplied clears the applied flag of changes that were rolled back.
func markUnapplied(report *ExecutionReport) {
	for i := range report.SchemaChanges {
		report.SchemaChanges[i].Applied = false
	}
}

// runStep executes one DocType: the schema reassignment followed by the data
// summary entry.
func (e *Engine) runStep(ctx context.Context, plan *planner.MigrationPlan, doctype string, req *ExecuteRequest, report *ExecutionReport) error {
	mapping, _ := plan.Mapping(doctype)
	rule := plan.DataRules[doctype]

	if mapping.Action == planner.ActionMove {
		changes := stepChanges(plan, mapping)
		for i := range changes {
			if err := e.applyChange(ctx, &changes[i], req.DryRun, report); err != nil {
				return err
			}
		}
		report.SchemaChanges = append(report.SchemaChanges, changes...)
		report.Summary.SchemaChanges += len(changes)
	}

	batchSize := rule.BatchSize
	if req.BatchSize > 0 {
		batchSize = req.BatchSize
	}
	dc := DataChange{
		DocType:     doctype,
		Action:      rule.Action,
		RecordCount: rule.RecordCount,
		BatchSize:   batchSize,
		Batches:     rule.Batches(batchSize),
	}
	report.DataChanges = append(report.DataChanges, dc)
	report.Summary.Records += dc.RecordCount
	report.Summary.Batches += dc.Batches
	return nil
}

// stepChanges lists the module reassignments of one moved DocType.
func stepChanges(plan *planner.MigrationPlan, mapping *planner.DocTypeMapping) []SchemaChange {
	target := plan.TargetModule()
	changes := []SchemaChange{{
		DocType: mapping.DocType,
		Kind:    ChangeDocType,
		ID:      mapping.DocType,
		Field:   "module",
		To:      target,
	}}

	fm := plan.FieldMappings[mapping.DocType]
	for _, id := range fm.CustomFields {
		changes = append(changes, SchemaChange{DocType: mapping.DocType, Kind: ChangeCustomField, ID: id, Field: "module", To: target})
	}
	for _, id := range fm.PropertySetters {
		changes = append(changes, SchemaChange{DocType: mapping.DocType, Kind: ChangePropertySetter, ID: id, Field: "module", To: target})
	}
	return changes
}

func (c *SchemaChange) storeKind() string {
	switch c.Kind {
	case ChangeCustomField:
		return store.KindCustomField
	case ChangePropertySetter:
		return store.KindPropertySetter
	default:
		return store.KindDocType
	}
}

// applyChange reads the current value of a change and, unless dryRun, writes
// the new one. In dry-run a failed read is a warning. A change already at its
// target value is marked applied without a write.
func (e *Engine) applyChange(ctx context.Context, c *SchemaChange, dryRun bool, report *ExecutionReport) error {
	rec, err := e.client.Get(ctx, c.storeKind(), c.ID)
	if err != nil {
		if dryRun {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s %q: %v", c.Kind, c.ID, err))
			return nil
		}
		return fmt.Errorf("failed to read %s %q: %w", c.Kind, c.ID, err)
	}
	c.From = rec.String(c.Field)

	if dryRun {
		return nil
	}
	if c.From == c.To {
		c.Applied = true
		return nil
	}
	if err := e.client.SetField(ctx, c.storeKind(), c.ID, c.Field, c.To); err != nil {
		return fmt.Errorf("failed to reassign %s %q: %w", c.Kind, c.ID, err)
	}
	c.Applied = true
	return nil
}

// isNotFound reports whether err is a missing-record error.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
