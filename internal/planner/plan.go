package planner

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/danieljhkim/appmigrate/internal/hash"
)

// PlanVersion is the plan document format version.
const PlanVersion = "1.0"

// MappingAction says what happens to a DocType's ownership.
type MappingAction string

const (
	// ActionMove reassigns the DocType to the target app's module.
	ActionMove MappingAction = "move"
	// ActionKeep leaves a DocType already owned by the target app alone.
	ActionKeep MappingAction = "keep"
)

// DataAction says whether a DocType has data to carry along.
type DataAction string

const (
	DataCopy DataAction = "copy"
	DataSkip DataAction = "skip"
)

// Policy decides the winner among several apps defining the same DocType.
type Policy string

const (
	// PolicyFirstMatch picks the first app in the caller's order.
	PolicyFirstMatch Policy = "first-match"
	// PolicyLastMatch picks the last app in the caller's order.
	PolicyLastMatch Policy = "last-match"
)

// ParsePolicy validates a policy name. Empty selects PolicyFirstMatch.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.TrimSpace(s)) {
	case "", PolicyFirstMatch:
		return PolicyFirstMatch, nil
	case PolicyLastMatch:
		return PolicyLastMatch, nil
	default:
		return "", fmt.Errorf("%w: unknown resolution policy %q (want %s or %s)", ErrValidation, s, PolicyFirstMatch, PolicyLastMatch)
	}
}

// DefaultBatchSize is the data batch size when none is configured.
const DefaultBatchSize = 1000

// MigrationPlan is the deterministic mapping of every DocType to one winning
// app plus the order in which to process them. A plan is immutable once
// written; execution never modifies it.
type MigrationPlan struct {
	PlanVersion         string                  `json:"plan_version" yaml:"plan_version"`
	CreatedAt           time.Time               `json:"created_at" yaml:"created_at"`
	Site                string                  `json:"site,omitempty" yaml:"site,omitempty"`
	SourceApps          []string                `json:"source_apps" yaml:"source_apps"`
	TargetApp           string                  `json:"target_app" yaml:"target_app"`
	Metadata            PlanMetadata            `json:"metadata" yaml:"metadata"`
	DocTypeMappings     []DocTypeMapping        `json:"doctype_mappings" yaml:"doctype_mappings"`
	FieldMappings       map[string]FieldMapping `json:"field_mappings" yaml:"field_mappings"`
	DataRules           map[string]DataRule     `json:"data_rules" yaml:"data_rules"`
	ExecutionOrder      []string                `json:"execution_order" yaml:"execution_order"`
	PreMigrationChecks  []Check                 `json:"pre_migration_checks" yaml:"pre_migration_checks"`
	PostMigrationChecks []Check                 `json:"post_migration_checks" yaml:"post_migration_checks"`
}

// PlanMetadata summarizes a plan.
type PlanMetadata struct {
	PlanID           string   `json:"plan_id" yaml:"plan_id"`
	TargetModule     string   `json:"target_module" yaml:"target_module"`
	ResolutionPolicy Policy   `json:"resolution_policy" yaml:"resolution_policy"`
	Effort           Level    `json:"effort" yaml:"effort"`
	Risk             Level    `json:"risk" yaml:"risk"`
	Severity         Severity `json:"severity" yaml:"severity"`
	TotalDocTypes    int      `json:"total_doctypes" yaml:"total_doctypes"`
	TotalTables      int      `json:"total_tables" yaml:"total_tables"`
	TotalRecords     int      `json:"total_records" yaml:"total_records"`
	ConflictCount    int      `json:"conflict_count" yaml:"conflict_count"`
	Checksum         string   `json:"checksum" yaml:"checksum"`

	// Warnings lists analysis steps that degraded without failing the plan.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// DocTypeMapping assigns one DocType to its winning source app.
type DocTypeMapping struct {
	DocType   string        `json:"doctype" yaml:"doctype"`
	SourceApp string        `json:"source_app" yaml:"source_app"`
	TargetApp string        `json:"target_app" yaml:"target_app"`
	Action    MappingAction `json:"action" yaml:"action"`
	IsTable   bool          `json:"is_table" yaml:"is_table"`
	Sources   []string      `json:"sources" yaml:"sources"`
	Conflict  bool          `json:"conflict" yaml:"conflict"`
}

// FieldMapping lists the fields travelling with a DocType.
type FieldMapping struct {
	StandardFields  []string `json:"standard_fields" yaml:"standard_fields"`
	CustomFields    []string `json:"custom_fields" yaml:"custom_fields"`
	PropertySetters []string `json:"property_setters" yaml:"property_setters"`
}

// DataRule describes the data of a DocType.
type DataRule struct {
	RecordCount int        `json:"record_count" yaml:"record_count"`
	BatchSize   int        `json:"batch_size" yaml:"batch_size"`
	Action      DataAction `json:"action" yaml:"action"`
}

// Batches returns how many batches of size batchSize cover the records.
func (r DataRule) Batches(batchSize int) int {
	if batchSize <= 0 {
		batchSize = r.BatchSize
	}
	if batchSize <= 0 || r.RecordCount <= 0 {
		return 0
	}
	return (r.RecordCount + batchSize - 1) / batchSize
}

// Check is a named pre- or post-migration check.
type Check struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Check names understood by the executor.
const (
	CheckTargetModuleExists = "target_module_exists"
	CheckDocTypesExist      = "doctypes_exist"
	CheckBackupSnapshot     = "backup_snapshot"
	CheckModulesReassigned  = "modules_reassigned"
)

// TargetModule returns the module DocTypes are reassigned to.
func (p *MigrationPlan) TargetModule() string {
	return p.Metadata.TargetModule
}

// Mapping returns the mapping of doctype.
func (p *MigrationPlan) Mapping(doctype string) (*DocTypeMapping, bool) {
	for i := range p.DocTypeMappings {
		if p.DocTypeMappings[i].DocType == doctype {
			return &p.DocTypeMappings[i], true
		}
	}
	return nil, false
}

// Validate checks that the plan has everything execution needs.
func (p *MigrationPlan) Validate() error {
	var problems []string
	if p.PlanVersion == "" {
		problems = append(problems, "missing plan_version")
	}
	if p.TargetApp == "" {
		problems = append(problems, "missing target_app")
	}
	if p.Metadata.TargetModule == "" {
		problems = append(problems, "missing metadata.target_module")
	}
	if len(p.DocTypeMappings) == 0 {
		problems = append(problems, "missing doctype_mappings")
	}
	if len(p.ExecutionOrder) == 0 {
		problems = append(problems, "missing execution_order")
	}

	seen := make(map[string]bool, len(p.ExecutionOrder))
	for _, doctype := range p.ExecutionOrder {
		if seen[doctype] {
			problems = append(problems, fmt.Sprintf("execution_order lists %q twice", doctype))
			continue
		}
		seen[doctype] = true
		if _, ok := p.Mapping(doctype); !ok {
			problems = append(problems, fmt.Sprintf("execution_order entry %q has no doctype mapping", doctype))
		}
		if _, ok := p.DataRules[doctype]; !ok {
			problems = append(problems, fmt.Sprintf("execution_order entry %q has no data rule", doctype))
		}
	}
	for _, m := range p.DocTypeMappings {
		if !seen[m.DocType] {
			problems = append(problems, fmt.Sprintf("doctype mapping %q is missing from execution_order", m.DocType))
		}
		if m.Action != ActionMove && m.Action != ActionKeep {
			problems = append(problems, fmt.Sprintf("doctype mapping %q has unknown action %q", m.DocType, m.Action))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// Checksum returns the checksum of the plan's canonical content: apps,
// mappings, field mappings, data rules and execution order. Timestamps and
// the plan ID are excluded.
func (p *MigrationPlan) Checksum(h hash.Hasher) string {
	return h.HashBytes([]byte(p.canonical()))
}

// VerifyChecksum reports an ErrValidation if the content no longer matches
// the recorded checksum.
func (p *MigrationPlan) VerifyChecksum(h hash.Hasher) error {
	if p.Metadata.Checksum == "" {
		return fmt.Errorf("%w: plan has no checksum", ErrValidation)
	}
	if got := p.Checksum(h); got != p.Metadata.Checksum {
		return fmt.Errorf("%w: plan checksum mismatch (plan was modified after generation)", ErrValidation)
	}
	return nil
}

const (
	unitSep   = "\x1f"
	listSep   = "\x1e"
	recordSep = "\n"
)

func (p *MigrationPlan) canonical() string {
	var b strings.Builder
	line := func(parts ...string) {
		b.WriteString(strings.Join(parts, unitSep))
		b.WriteString(recordSep)
	}
	list := func(vs []string) string {
		return strings.Join(vs, listSep)
	}

	line("plan", p.PlanVersion, list(p.SourceApps), p.TargetApp, p.Metadata.TargetModule)
	for _, m := range p.DocTypeMappings {
		line("map", m.DocType, m.SourceApp, m.TargetApp, string(m.Action),
			strconv.FormatBool(m.IsTable), list(m.Sources), strconv.FormatBool(m.Conflict))
	}
	for _, doctype := range sortedKeys(p.FieldMappings) {
		fm := p.FieldMappings[doctype]
		line("fields", doctype, list(fm.StandardFields), list(fm.CustomFields), list(fm.PropertySetters))
	}
	for _, doctype := range sortedKeys(p.DataRules) {
		r := p.DataRules[doctype]
		line("data", doctype, strconv.Itoa(r.RecordCount), strconv.Itoa(r.BatchSize), string(r.Action))
	}
	line("order", list(p.ExecutionOrder))
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
