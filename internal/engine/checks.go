package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/danieljhkim/appmigrate/internal/planner"
	"github.com/danieljhkim/appmigrate/internal/store"
)

// runPreChecks runs the plan's pre-migration checks. In apply mode the first
// failing check is returned; in dry-run failures are recorded as warnings and
// the backup is not taken.
func (e *Engine) runPreChecks(ctx context.Context, plan *planner.MigrationPlan, dryRun bool, report *ExecutionReport) error {
	for _, check := range plan.PreMigrationChecks {
		err := e.runPreCheck(ctx, plan, check.Name, dryRun, report)
		if err == nil {
			continue
		}
		if dryRun {
			report.Warnings = append(report.Warnings, fmt.Sprintf("pre-migration check %s: %v", check.Name, err))
			continue
		}
		return fmt.Errorf("%s: %w", check.Name, err)
	}
	return nil
}

func (e *Engine) runPreCheck(ctx context.Context, plan *planner.MigrationPlan, name string, dryRun bool, report *ExecutionReport) error {
	switch name {
	case planner.CheckTargetModuleExists:
		if _, err := e.client.Get(ctx, store.KindModuleDef, plan.TargetModule()); err != nil {
			if isNotFound(err) {
				return fmt.Errorf("target module %q does not exist: %w", plan.TargetModule(), err)
			}
			return err
		}
		return nil

	case planner.CheckDocTypesExist:
		var missing []string
		for _, doctype := range plan.ExecutionOrder {
			if _, err := e.client.Get(ctx, store.KindDocType, doctype); err != nil {
				if !isNotFound(err) {
					return err
				}
				missing = append(missing, doctype)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: doctypes %s", ErrNotFound, strings.Join(missing, ", "))
		}
		return nil

	case planner.CheckBackupSnapshot:
		if dryRun {
			return nil
		}
		b, ok := e.client.(store.Backuper)
		if !ok {
			report.Warnings = append(report.Warnings, "store does not support backups; take a database backup before relying on this run")
			return nil
		}
		path, err := b.Backup(ctx)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		report.Backup = path
		return nil

	default:
		report.Warnings = append(report.Warnings, fmt.Sprintf("unknown pre-migration check %q ignored", name))
		return nil
	}
}

// runPostChecks runs the plan's post-migration checks after a commit.
// Failures are warnings; the changes are already durable.
func (e *Engine) runPostChecks(ctx context.Context, plan *planner.MigrationPlan, report *ExecutionReport) {
	for _, check := range plan.PostMigrationChecks {
		switch check.Name {
		case planner.CheckModulesReassigned:
			for _, m := range plan.DocTypeMappings {
				if m.Action != planner.ActionMove {
					continue
				}
				rec, err := e.client.Get(ctx, store.KindDocType, m.DocType)
				if err != nil {
					report.Warnings = append(report.Warnings, fmt.Sprintf("post-migration check %s: %s: %v", check.Name, m.DocType, err))
					continue
				}
				if got := rec.String("module"); got != plan.TargetModule() {
					report.Warnings = append(report.Warnings,
						fmt.Sprintf("post-migration check %s: %s is in module %q, want %q", check.Name, m.DocType, got, plan.TargetModule()))
				}
			}
		default:
			report.Warnings = append(report.Warnings, fmt.Sprintf("unknown post-migration check %q ignored", check.Name))
		}
	}
}
