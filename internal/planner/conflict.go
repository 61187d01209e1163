package planner

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/danieljhkim/appmigrate/internal/catalog"
)

// ConflictType identifies the kind of a Conflict.
type ConflictType string

const (
	ConflictDuplicate ConflictType = "duplicate_doctype"
	ConflictFieldType ConflictType = "field_type_clash"
	ConflictOrphan    ConflictType = "orphan_doctype"
	ConflictNaming    ConflictType = "naming_similarity"
)

// ConflictTypes lists every conflict type in report order.
var ConflictTypes = []ConflictType{ConflictDuplicate, ConflictFieldType, ConflictOrphan, ConflictNaming}

// FieldDefinition is one definition of a field name taking part in a clash.
type FieldDefinition struct {
	DocType string `json:"doctype" yaml:"doctype"`
	App     string `json:"app" yaml:"app"`
	Type    string `json:"fieldtype" yaml:"fieldtype"`
}

// Conflict represents an inconsistency between the apps being consolidated.
// Which fields are set depends on Type.
type Conflict struct {
	Type ConflictType `json:"type" yaml:"type"`

	// DocType is the offending DocType (all types but field_type_clash).
	DocType string `json:"doctype,omitempty" yaml:"doctype,omitempty"`

	// Field is the clashing fieldname (field_type_clash).
	Field string `json:"field,omitempty" yaml:"field,omitempty"`

	// Apps lists the owning apps in caller order (duplicate_doctype).
	Apps []string `json:"apps,omitempty" yaml:"apps,omitempty"`

	// Definitions lists each distinct definition (field_type_clash).
	Definitions []FieldDefinition `json:"definitions,omitempty" yaml:"definitions,omitempty"`

	// Module is the module with no owning app (orphan_doctype).
	Module string `json:"module,omitempty" yaml:"module,omitempty"`

	// Similar and Similarity describe the other name (naming_similarity).
	Similar    string `json:"similar_to,omitempty" yaml:"similar_to,omitempty"`
	Similarity int    `json:"similarity,omitempty" yaml:"similarity,omitempty"`

	// Reason is a human-readable explanation of the conflict.
	Reason string `json:"reason" yaml:"reason"`

	// Resolution is a hint on how to resolve it.
	Resolution string `json:"resolution" yaml:"resolution"`
}

// ConflictReport is the output of conflict detection.
type ConflictReport struct {
	Site        string               `json:"site,omitempty" yaml:"site,omitempty"`
	Apps        []string             `json:"apps" yaml:"apps"`
	GeneratedAt time.Time            `json:"generated_at" yaml:"generated_at"`
	Total       int                  `json:"total_conflicts" yaml:"total_conflicts"`
	Severity    Severity             `json:"severity" yaml:"severity"`
	Counts      map[ConflictType]int `json:"counts" yaml:"counts"`
	Conflicts   []Conflict           `json:"conflicts" yaml:"conflicts"`
}

// HasConflicts returns true if the report has any conflicts.
func (r *ConflictReport) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// OfType returns the conflicts of type t in report order.
func (r *ConflictReport) OfType(t ConflictType) []Conflict {
	var out []Conflict
	for _, c := range r.Conflicts {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// AddConflict adds a conflict and keeps the totals current.
func (r *ConflictReport) AddConflict(c Conflict) {
	r.Conflicts = append(r.Conflicts, c)
	r.Counts[c.Type]++
	r.Total = len(r.Conflicts)
	r.Severity = SeverityFor(r.Total)
}

func newConflictReport(apps []string) *ConflictReport {
	counts := make(map[ConflictType]int, len(ConflictTypes))
	for _, t := range ConflictTypes {
		counts[t] = 0
	}
	return &ConflictReport{
		Apps:      append([]string(nil), apps...),
		Severity:  SeverityNone,
		Counts:    counts,
		Conflicts: []Conflict{},
	}
}

// ConflictDetector finds conflicts among the DocTypes of a set of apps.
type ConflictDetector struct {
	threshold float64
	logger    *zap.Logger
}

// NewConflictDetector creates a ConflictDetector. A threshold <= 0 selects
// DefaultSimilarityThreshold. If logger is nil, a no-op logger is used.
func NewConflictDetector(threshold float64, logger *zap.Logger) *ConflictDetector {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictDetector{
		threshold: threshold,
		logger:    logger.Named("conflicts"),
	}
}

// Detect reports conflicts among the entities of apps, in the order
// duplicates, field clashes, orphans, similar names. Output is deterministic
// for a given inventory and app order.
func (d *ConflictDetector) Detect(inv *catalog.Inventory, apps []string) *ConflictReport {
	scoped := inv.Restrict(apps)
	report := newConflictReport(apps)
	report.Site = inv.Site

	d.detectDuplicates(scoped, apps, report)
	d.detectFieldClashes(scoped, report)
	d.detectOrphans(scoped, report)
	d.detectSimilarNames(scoped, report)

	d.logger.Info("conflict detection complete",
		zap.Strings("apps", apps),
		zap.Int("total", report.Total),
		zap.String("severity", string(report.Severity)))

	return report
}

func (d *ConflictDetector) detectDuplicates(inv *catalog.Inventory, apps []string, report *ConflictReport) {
	rank := make(map[string]int, len(apps))
	for i, a := range apps {
		rank[a] = i
	}

	var order []string
	owners := make(map[string][]string)
	for _, e := range inv.Entities {
		if inv.IsOrphan(&e) {
			continue
		}
		if _, seen := owners[e.Name]; !seen {
			order = append(order, e.Name)
		}
		if !contains(owners[e.Name], e.Group) {
			owners[e.Name] = append(owners[e.Name], e.Group)
		}
	}

	for _, name := range order {
		groups := owners[name]
		if len(groups) < 2 {
			continue
		}
		sort.SliceStable(groups, func(i, j int) bool {
			return rank[groups[i]] < rank[groups[j]]
		})
		report.AddConflict(Conflict{
			Type:       ConflictDuplicate,
			DocType:    name,
			Apps:       groups,
			Reason:     fmt.Sprintf("DocType %q is defined by %d apps", name, len(groups)),
			Resolution: fmt.Sprintf("Add an override choosing the owning app; by default the first app in order (%s) wins", groups[0]),
		})
	}
}

func (d *ConflictDetector) detectFieldClashes(inv *catalog.Inventory, report *ConflictReport) {
	defs := make(map[string][]FieldDefinition)
	for _, e := range inv.Entities {
		for _, f := range e.Fields {
			if f.Name == "" {
				continue
			}
			def := FieldDefinition{DocType: e.Name, App: e.Group, Type: f.Type}
			if !containsDef(defs[f.Name], def) {
				defs[f.Name] = append(defs[f.Name], def)
			}
		}
	}

	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		list := defs[name]
		types := make(map[string]bool)
		for _, def := range list {
			types[def.Type] = true
		}
		if len(types) < 2 {
			continue
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].DocType != list[j].DocType {
				return list[i].DocType < list[j].DocType
			}
			if list[i].App != list[j].App {
				return list[i].App < list[j].App
			}
			return list[i].Type < list[j].Type
		})
		report.AddConflict(Conflict{
			Type:        ConflictFieldType,
			Field:       name,
			Definitions: list,
			Reason:      fmt.Sprintf("Field %q has %d different fieldtypes", name, len(types)),
			Resolution:  fmt.Sprintf("Align the fieldtype of %q across DocTypes or rename one of the fields", name),
		})
	}
}

func (d *ConflictDetector) detectOrphans(inv *catalog.Inventory, report *ConflictReport) {
	for _, e := range inv.Entities {
		if !inv.IsOrphan(&e) {
			continue
		}
		report.AddConflict(Conflict{
			Type:       ConflictOrphan,
			DocType:    e.Name,
			Module:     e.Module,
			Reason:     fmt.Sprintf("DocType %q belongs to module %q which no scanned app owns", e.Name, e.Module),
			Resolution: fmt.Sprintf("Assign module %q to an app or add %q to the ignore list", e.Module, e.Name),
		})
	}
}

func (d *ConflictDetector) detectSimilarNames(inv *catalog.Inventory, report *ConflictReport) {
	seen := make(map[string]bool)
	var names []string
	for _, e := range inv.Entities {
		if !seen[e.Name] {
			seen[e.Name] = true
			names = append(names, e.Name)
		}
	}
	sort.Strings(names)

	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			ratio := SimilarityRatio(names[i], names[j])
			if ratio <= d.threshold {
				continue
			}
			pct := SimilarityPercent(ratio)
			report.AddConflict(Conflict{
				Type:       ConflictNaming,
				DocType:    names[i],
				Similar:    names[j],
				Similarity: pct,
				Reason:     fmt.Sprintf("DocTypes %q and %q are %d%% similar", names[i], names[j], pct),
				Resolution: "Confirm these are distinct DocTypes; merge or rename one if they model the same thing",
			})
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsDef(list []FieldDefinition, def FieldDefinition) bool {
	for _, v := range list {
		if v == def {
			return true
		}
	}
	return false
}
