package engine

import "github.com/danieljhkim/appmigrate/internal/planner"

// ScanRequest represents a request to scan a site.
type ScanRequest struct {
	// Site is the site name recorded in the inventory
	Site string

	// Apps limits the scan to these apps (empty scans every app)
	Apps []string
}

// DetectRequest represents a request to detect conflicts among apps.
type DetectRequest struct {
	// Site is the site name recorded in the report
	Site string

	// Apps are the apps under consideration, in priority order
	Apps []string

	// Threshold overrides the naming-similarity threshold when > 0
	Threshold float64
}

// GeneratePlanRequest represents a request to generate a migration plan.
type GeneratePlanRequest struct {
	// Site is the site name recorded in the plan
	Site string

	// SourceApps are the apps being consolidated, in priority order
	SourceApps []string

	// TargetApp receives every DocType
	TargetApp string

	// TargetModule overrides the module derived from TargetApp
	TargetModule string

	// Overrides pins the winning app of a DocType
	Overrides map[string]string

	// Ignore lists DocTypes left out of the plan
	Ignore []string

	// Policy overrides the engine's resolution policy when set
	Policy planner.Policy

	// BatchSize overrides the engine's batch size when > 0
	BatchSize int
}

// ExecuteRequest represents a request to execute a plan.
type ExecuteRequest struct {
	// Plan is the plan to execute
	Plan *planner.MigrationPlan

	// PlanFile is where the plan was loaded from, for the report
	PlanFile string

	// DryRun computes and reports effects without writing
	DryRun bool

	// BatchSize overrides the batch size of every data rule when > 0
	BatchSize int
}
