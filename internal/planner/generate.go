package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danieljhkim/appmigrate/internal/apperrors"
	"github.com/danieljhkim/appmigrate/internal/catalog"
	"github.com/danieljhkim/appmigrate/internal/clock"
	"github.com/danieljhkim/appmigrate/internal/hash"
	"github.com/danieljhkim/appmigrate/internal/store"
)

// PlanRequest describes the consolidation to plan.
type PlanRequest struct {
	Site string

	// SourceApps are the apps being consolidated, in priority order.
	SourceApps []string

	// TargetApp receives every DocType.
	TargetApp string

	// TargetModule is the module DocTypes are reassigned to.
	// Defaults to TitleModule(TargetApp).
	TargetModule string

	// Overrides pins the winning app of a DocType.
	Overrides map[string]string

	// Ignore lists DocTypes left out of the plan.
	Ignore []string

	// Policy picks the winner among several owners. Defaults to first-match.
	Policy Policy

	// BatchSize is recorded in every data rule. Defaults to DefaultBatchSize.
	BatchSize int

	// SimilarityThreshold is used when conflicts must be detected first.
	SimilarityThreshold float64
}

// TitleModule derives a module name from an app name: custom_app becomes
// "Custom App".
func TitleModule(app string) string {
	words := strings.FieldsFunc(app, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// Generator builds migration plans from an inventory.
type Generator struct {
	client store.Client
	hasher hash.Hasher
	clock  clock.Clock
	logger *zap.Logger
}

// NewGenerator creates a Generator. The client is only used to count records.
func NewGenerator(client store.Client, hasher hash.Hasher, clk clock.Clock, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		client: client,
		hasher: hasher,
		clock:  clk,
		logger: logger.Named("planner"),
	}
}

// Generate builds a plan assigning every DocType of the source apps to one
// winning app. If conflicts is nil, conflict detection runs first.
//
// Returns an error wrapping ErrValidation for an invalid request or one that
// leaves nothing to migrate. Record counts are best effort: a DocType whose
// count cannot be read is planned as skip and noted in Metadata.Warnings.
func (g *Generator) Generate(ctx context.Context, inv *catalog.Inventory, conflicts *ConflictReport, req PlanRequest) (*MigrationPlan, error) {
	policy, err := g.normalize(inv, &req)
	if err != nil {
		return nil, err
	}

	if conflicts == nil {
		conflicts = NewConflictDetector(req.SimilarityThreshold, g.logger).Detect(inv, req.SourceApps)
	}

	ignored := make(map[string]bool, len(req.Ignore))
	for _, name := range req.Ignore {
		ignored[name] = true
	}

	order, owners := visibleEntities(inv, req.SourceApps, ignored)
	for _, name := range req.Ignore {
		if _, ok := owners[name]; !ok {
			g.logger.Warn("ignored doctype is not owned by any source app", zap.String("doctype", name))
		}
	}
	if err := validateOverrides(req.Overrides, req.SourceApps, owners, ignored); err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: source apps %s own no DocTypes to migrate", ErrValidation, strings.Join(req.SourceApps, ", "))
	}

	sourceApps := make(map[string]bool, len(req.SourceApps))
	for _, a := range req.SourceApps {
		sourceApps[a] = true
	}

	plan := &MigrationPlan{
		PlanVersion:     PlanVersion,
		CreatedAt:       g.clock.Now(),
		Site:            req.Site,
		SourceApps:      append([]string(nil), req.SourceApps...),
		TargetApp:       req.TargetApp,
		DocTypeMappings: make([]DocTypeMapping, 0, len(order)),
		FieldMappings:   make(map[string]FieldMapping, len(order)),
		DataRules:       make(map[string]DataRule, len(order)),
		ExecutionOrder:  make([]string, 0, len(order)),
	}

	var tables, warnings []string
	totalRecords := 0
	for _, name := range order {
		sources := owners[name]
		winner := pickWinner(name, sources, req.Overrides, policy)
		entity := findEntity(inv, name, winner)

		m := DocTypeMapping{
			DocType:   name,
			SourceApp: winner,
			TargetApp: req.TargetApp,
			Action:    ActionMove,
			IsTable:   entity.IsTable,
			Sources:   append([]string(nil), sources...),
			Conflict:  len(sources) > 1,
		}
		if winner == req.TargetApp {
			m.Action = ActionKeep
		}
		plan.DocTypeMappings = append(plan.DocTypeMappings, m)
		plan.FieldMappings[name] = fieldMapping(inv, entity, sourceApps)

		rule, err := g.dataRule(ctx, entity, req.BatchSize)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			g.logger.Warn("record count unavailable",
				zap.String("doctype", name),
				zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("record count of %q unavailable: %v", name, err))
		}
		plan.DataRules[name] = rule
		totalRecords += rule.RecordCount

		if m.IsTable {
			tables = append(tables, name)
		} else {
			plan.ExecutionOrder = append(plan.ExecutionOrder, name)
		}
	}
	plan.ExecutionOrder = append(plan.ExecutionOrder, tables...)

	plan.PreMigrationChecks = []Check{
		{Name: CheckTargetModuleExists, Description: fmt.Sprintf("Module Def %q exists for app %q", req.TargetModule, req.TargetApp)},
		{Name: CheckDocTypesExist, Description: "Every mapped DocType still exists"},
		{Name: CheckBackupSnapshot, Description: "Site data is backed up before changes are applied"},
	}
	plan.PostMigrationChecks = []Check{
		{Name: CheckModulesReassigned, Description: fmt.Sprintf("Every moved DocType belongs to module %q", req.TargetModule)},
	}

	plan.Metadata = PlanMetadata{
		PlanID:           uuid.NewString(),
		TargetModule:     req.TargetModule,
		ResolutionPolicy: policy,
		Effort:           EffortFor(totalRecords, conflicts.Total),
		Risk:             RiskFor(conflicts.Total),
		Severity:         conflicts.Severity,
		TotalDocTypes:    len(plan.DocTypeMappings),
		TotalTables:      len(tables),
		TotalRecords:     totalRecords,
		ConflictCount:    conflicts.Total,
		Warnings:         warnings,
	}
	plan.Metadata.Checksum = plan.Checksum(g.hasher)

	g.logger.Info("plan generated",
		zap.String("plan_id", plan.Metadata.PlanID),
		zap.Strings("source_apps", plan.SourceApps),
		zap.String("target_app", plan.TargetApp),
		zap.Int("doctypes", plan.Metadata.TotalDocTypes),
		zap.Int("records", totalRecords))

	return plan, nil
}

// dataRule counts the records of e. Single and virtual DocTypes have no table
// and are not counted. On error the rule is a skip with no records.
func (g *Generator) dataRule(ctx context.Context, e *catalog.Entity, batchSize int) (DataRule, error) {
	rule := DataRule{BatchSize: batchSize, Action: DataSkip}
	if e.IsSingle || e.IsVirtual {
		return rule, nil
	}
	count, err := g.client.Count(ctx, e.Name)
	if err != nil {
		return rule, err
	}
	rule.RecordCount = count
	if count > 0 {
		rule.Action = DataCopy
	}
	return rule, nil
}

// normalize validates req and fills in defaults.
func (g *Generator) normalize(inv *catalog.Inventory, req *PlanRequest) (Policy, error) {
	if len(req.SourceApps) == 0 {
		return "", fmt.Errorf("%w: at least one source app is required", ErrValidation)
	}
	if strings.TrimSpace(req.TargetApp) == "" {
		return "", fmt.Errorf("%w: target app is required", ErrValidation)
	}

	seen := make(map[string]bool, len(req.SourceApps))
	for _, app := range req.SourceApps {
		if app == "" {
			return "", fmt.Errorf("%w: empty source app name", ErrValidation)
		}
		if seen[app] {
			return "", fmt.Errorf("%w: source app %q listed twice", ErrValidation, app)
		}
		seen[app] = true
		if !inv.HasGroup(app) {
			return "", fmt.Errorf("app %q: %w in scanned inventory", app, apperrors.ErrNotFound)
		}
	}

	policy, err := ParsePolicy(string(req.Policy))
	if err != nil {
		return "", err
	}
	if req.TargetModule == "" {
		req.TargetModule = TitleModule(req.TargetApp)
	}
	if req.BatchSize <= 0 {
		req.BatchSize = DefaultBatchSize
	}
	return policy, nil
}

// visibleEntities returns the DocType names owned by apps in first-appearance
// order, scanning apps in caller order, and each name's owners in that order.
func visibleEntities(inv *catalog.Inventory, apps []string, ignored map[string]bool) ([]string, map[string][]string) {
	var order []string
	owners := make(map[string][]string)
	for _, app := range apps {
		for _, e := range inv.EntitiesOf(app) {
			if ignored[e.Name] {
				continue
			}
			if _, seen := owners[e.Name]; !seen {
				order = append(order, e.Name)
			}
			if !contains(owners[e.Name], app) {
				owners[e.Name] = append(owners[e.Name], app)
			}
		}
	}
	return order, owners
}

func validateOverrides(overrides map[string]string, apps []string, owners map[string][]string, ignored map[string]bool) error {
	var problems []string
	for _, doctype := range sortedKeys(overrides) {
		app := overrides[doctype]
		switch {
		case !contains(apps, app):
			problems = append(problems, fmt.Sprintf("override for %q names %q which is not a source app", doctype, app))
		case ignored[doctype]:
			problems = append(problems, fmt.Sprintf("override for %q conflicts with the ignore list", doctype))
		case owners[doctype] == nil:
			problems = append(problems, fmt.Sprintf("override for %q: no source app owns this DocType", doctype))
		case !contains(owners[doctype], app):
			problems = append(problems, fmt.Sprintf("override for %q: app %q does not own this DocType", doctype, app))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

func pickWinner(doctype string, sources []string, overrides map[string]string, policy Policy) string {
	if app, ok := overrides[doctype]; ok {
		return app
	}
	if policy == PolicyLastMatch {
		return sources[len(sources)-1]
	}
	return sources[0]
}

func findEntity(inv *catalog.Inventory, name, app string) *catalog.Entity {
	for i := range inv.Entities {
		if inv.Entities[i].Name == name && inv.Entities[i].Group == app {
			return &inv.Entities[i]
		}
	}
	return &catalog.Entity{Name: name, Group: app}
}

// fieldMapping lists the fields of e. Custom fields and property setters are
// carried only when their module belongs to one of the source apps.
func fieldMapping(inv *catalog.Inventory, e *catalog.Entity, sourceApps map[string]bool) FieldMapping {
	fm := FieldMapping{
		StandardFields:  []string{},
		CustomFields:    []string{},
		PropertySetters: []string{},
	}
	for _, f := range e.Fields {
		if !f.Custom {
			fm.StandardFields = append(fm.StandardFields, f.Name)
			continue
		}
		if f.ID != "" && sourceApps[inv.ModuleApp(f.Module)] {
			fm.CustomFields = append(fm.CustomFields, f.ID)
		}
	}
	for _, ps := range e.PropertySetters {
		if ps.ID != "" && sourceApps[inv.ModuleApp(ps.Module)] {
			fm.PropertySetters = append(fm.PropertySetters, ps.ID)
		}
	}
	sort.Strings(fm.CustomFields)
	sort.Strings(fm.PropertySetters)
	return fm
}
