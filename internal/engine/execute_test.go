package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/appmigrate/internal/hash"
	"github.com/danieljhkim/appmigrate/internal/store"
)

func TestExecutePlan_DryRunNeverWrites(t *testing.T) {
	site := newSiteStore()
	plan := generateExamplePlan(t, site)
	spy := newSpyStore(site)
	before := site.Snapshot()

	report, err := newTestEngine(spy).ExecutePlan(context.Background(), &ExecuteRequest{
		Plan:     plan,
		PlanFile: "plan.json",
		DryRun:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, spy.writes(), "dry-run must not call SetField, Commit or Rollback")
	assert.Equal(t, before, site.Snapshot())

	assert.True(t, report.Success)
	assert.True(t, report.DryRun)
	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, "plan.json", report.PlanFile)
	assert.Equal(t, plan.Metadata.PlanID, report.PlanID)
	assert.NotEmpty(t, report.ExecutionID)
	assert.True(t, report.ExecutionEnd.After(report.ExecutionStart))
	assert.Equal(t, []string{"X", "Y", "Z"}, report.StepsCompleted)
	assert.Empty(t, report.StepsFailed)
	assert.Empty(t, report.Backup)

	require.Len(t, report.SchemaChanges, 5)
	first := report.SchemaChanges[0]
	assert.Equal(t, SchemaChange{DocType: "X", Kind: ChangeDocType, ID: "X", Field: "module", From: "Mod A", To: "C"}, first)
	assert.Equal(t, ChangeCustomField, report.SchemaChanges[1].Kind)
	assert.Equal(t, "Mod B", report.SchemaChanges[1].From)
	for _, c := range report.SchemaChanges {
		assert.False(t, c.Applied)
	}

	require.Len(t, report.DataChanges, 3)
	assert.Equal(t, DataChange{DocType: "X", Action: "copy", RecordCount: 1500, BatchSize: 1000, Batches: 2}, report.DataChanges[0])
	assert.Equal(t, 1500, report.Summary.Records)
	assert.Equal(t, 3, report.Summary.TotalSteps)
	assert.Equal(t, 5, report.Summary.SchemaChanges)
}

func TestExecutePlan_DryRunReadFailuresAreWarnings(t *testing.T) {
	site := newSiteStore()
	plan := generateExamplePlan(t, site)
	plan.Metadata.TargetModule = "Nowhere"
	plan.Metadata.Checksum = plan.Checksum(hash.NewSHA256Hasher())

	report, err := newTestEngine(newSpyStore(site)).ExecutePlan(context.Background(), &ExecuteRequest{Plan: plan, DryRun: true})
	require.NoError(t, err)

	assert.True(t, report.Success)
	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, report.Warnings[0], "target_module_exists")
}

func TestExecutePlan_Apply(t *testing.T) {
	site := newSiteStore()
	plan := generateExamplePlan(t, site)
	spy := newSpyStore(site)

	report, err := newTestEngine(spy).ExecutePlan(context.Background(), &ExecuteRequest{Plan: plan, BatchSize: 500})
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, 1, spy.commitCalls)
	assert.Equal(t, 0, spy.rollbackCalls)
	assert.Equal(t, 5, spy.setFieldCalls)
	assert.False(t, site.Dirty())
	// Post-migration checks pass; the only warning is the missing backup support.
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "does not support backups")

	for _, c := range report.SchemaChanges {
		assert.True(t, c.Applied, "%s %s", c.Kind, c.ID)
	}
	assert.Equal(t, 3, report.DataChanges[0].Batches, "batch size override")

	ctx := context.Background()
	for _, doctype := range []string{"X", "Y", "Z"} {
		rec, err := site.Get(ctx, store.KindDocType, doctype)
		require.NoError(t, err)
		assert.Equal(t, "C", rec.String("module"), doctype)
	}
	cf, err := site.Get(ctx, store.KindCustomField, "X-region")
	require.NoError(t, err)
	assert.Equal(t, "C", cf.String("module"))
	ps, err := site.Get(ctx, store.KindPropertySetter, "Z-title-bold")
	require.NoError(t, err)
	assert.Equal(t, "C", ps.String("module"))
}

func TestExecutePlan_StepFailureRollsBack(t *testing.T) {
	site := newSiteStore()
	plan := generateExamplePlan(t, site)
	spy := newSpyStore(site)
	spy.failSetFor["Z-title-bold"] = true
	before := site.Snapshot()

	report, err := newTestEngine(spy).ExecutePlan(context.Background(), &ExecuteRequest{Plan: plan})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPartialFailure))
	require.NotNil(t, report)

	assert.False(t, report.Success)
	assert.Equal(t, StatusPartiallyFailed, report.Status)
	assert.Equal(t, []string{"X", "Y"}, report.StepsCompleted)
	assert.Equal(t, []string{"Z"}, report.StepsFailed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "Z-title-bold")

	assert.Equal(t, 0, spy.commitCalls)
	assert.Equal(t, 1, spy.rollbackCalls)
	assert.Equal(t, before, site.Snapshot(), "rollback restores the site")
	for _, c := range report.SchemaChanges {
		assert.False(t, c.Applied)
	}
}

func TestExecutePlan_SkipsChangesAlreadyInPlace(t *testing.T) {
	site := newSiteStore()
	plan, err := newTestEngine(site).GeneratePlan(context.Background(), &GeneratePlanRequest{
		Site:         "erp.local",
		SourceApps:   []string{"A", "B"},
		TargetApp:    "B",
		TargetModule: "Mod B",
	})
	require.NoError(t, err)

	// X-region already lives in Mod B; writing it again would fail.
	spy := newSpyStore(site)
	spy.failSetFor["X-region"] = true

	report, err := newTestEngine(spy).ExecutePlan(context.Background(), &ExecuteRequest{Plan: plan})
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, 2, spy.setFieldCalls, "only X and Y are written")
	var region *SchemaChange
	for i := range report.SchemaChanges {
		if report.SchemaChanges[i].ID == "X-region" {
			region = &report.SchemaChanges[i]
		}
	}
	require.NotNil(t, region)
	assert.Equal(t, "Mod B", region.From)
	assert.True(t, region.Applied)
}

func TestExecutePlan_CommitFailure(t *testing.T) {
	site := newSiteStore()
	plan := generateExamplePlan(t, site)
	spy := newSpyStore(site)
	spy.commitErr = errors.New("deadlock")

	report, err := newTestEngine(spy).ExecutePlan(context.Background(), &ExecuteRequest{Plan: plan})
	require.ErrorIs(t, err, ErrPartialFailure)

	assert.Equal(t, StatusPartiallyFailed, report.Status)
	assert.Equal(t, 1, spy.rollbackCalls)
	assert.Contains(t, report.Errors[0], "commit failed")
}

func TestExecutePlan_PreCheckFailureAborts(t *testing.T) {
	site := newSiteStore()
	plan := generateExamplePlan(t, site)
	plan.Metadata.TargetModule = "Nowhere"
	plan.Metadata.Checksum = plan.Checksum(hash.NewSHA256Hasher())
	spy := newSpyStore(site)

	report, err := newTestEngine(spy).ExecutePlan(context.Background(), &ExecuteRequest{Plan: plan})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPartialFailure))
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Equal(t, 0, spy.writes())
	assert.Equal(t, []string{"X", "Y", "Z"}, report.StepsSkipped)
	assert.Equal(t, StatusPartiallyFailed, report.Status)
}

func TestExecutePlan_KeepStepsChangeNothing(t *testing.T) {
	site := newSiteStore()
	plan, err := newTestEngine(site).GeneratePlan(context.Background(), &GeneratePlanRequest{
		SourceApps:   []string{"A", "B"},
		TargetApp:    "A",
		TargetModule: "Mod A",
	})
	require.NoError(t, err)

	spy := newSpyStore(site)
	report, err := newTestEngine(spy).ExecutePlan(context.Background(), &ExecuteRequest{Plan: plan})
	require.NoError(t, err)

	assert.Equal(t, []string{"X", "Y", "Z"}, report.StepsCompleted)
	// X and Y are kept; only Z and its property setter move.
	assert.Equal(t, 2, spy.setFieldCalls)
	assert.Len(t, report.DataChanges, 3)
}

func TestExecutePlan_MalformedPlan(t *testing.T) {
	site := newSiteStore()
	plan := generateExamplePlan(t, site)
	plan.TargetApp = ""

	report, err := newTestEngine(newSpyStore(site)).ExecutePlan(context.Background(), &ExecuteRequest{Plan: plan, DryRun: true})
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = newTestEngine(site).ExecutePlan(context.Background(), &ExecuteRequest{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExecutePlan_TamperedPlan(t *testing.T) {
	site := newSiteStore()
	plan := generateExamplePlan(t, site)
	plan.ExecutionOrder = []string{"Z", "Y", "X"}

	_, err := newTestEngine(site).ExecutePlan(context.Background(), &ExecuteRequest{Plan: plan, DryRun: true})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExecutePlan_CanceledContextSkipsSteps(t *testing.T) {
	site := newSiteStore()
	plan := generateExamplePlan(t, site)
	spy := newSpyStore(site)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestEngine(spy).ExecutePlan(ctx, &ExecuteRequest{Plan: plan, DryRun: true})
	require.ErrorIs(t, err, ErrPartialFailure)
	assert.Equal(t, []string{"X", "Y", "Z"}, report.StepsSkipped)
	assert.Equal(t, 0, spy.writes())
}
