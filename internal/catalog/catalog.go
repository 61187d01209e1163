// Package catalog captures a read-only inventory of the customizations a
// site's apps own.
//
// An Inventory is a snapshot: apps (groups), the modules each app owns, and
// every DocType (entity) under those modules with its standard fields,
// custom fields and property setters. It is produced once by the Scanner and
// consumed by conflict detection and plan generation without further store
// reads, except record counts.
package catalog

import (
	"sort"
	"time"
)

// Field is one field of a DocType.
type Field struct {
	// Name is the fieldname.
	Name string `json:"fieldname" yaml:"fieldname"`

	// Type is the Frappe fieldtype tag (Data, Link, Table, ...).
	Type string `json:"fieldtype" yaml:"fieldtype"`

	// Custom marks fields added through Custom Field records.
	Custom bool `json:"custom,omitempty" yaml:"custom,omitempty"`

	// ID is the Custom Field record name. Empty for standard fields.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Module owning the Custom Field record. Empty for standard fields.
	Module string `json:"module,omitempty" yaml:"module,omitempty"`
}

// PropertySetter is a Property Setter record attached to a DocType.
type PropertySetter struct {
	ID       string `json:"id" yaml:"id"`
	Field    string `json:"field_name,omitempty" yaml:"field_name,omitempty"`
	Property string `json:"property" yaml:"property"`
	Module   string `json:"module,omitempty" yaml:"module,omitempty"`
}

// Entity is a DocType owned by an app.
type Entity struct {
	Name string `json:"name" yaml:"name"`

	// Group is the owning app. Empty when the module belongs to no scanned app.
	Group string `json:"app" yaml:"app"`

	Module   string `json:"module" yaml:"module"`
	IsTable  bool   `json:"is_table" yaml:"is_table"`
	IsCustom bool   `json:"is_custom" yaml:"is_custom"`

	// IsSingle and IsVirtual DocTypes have no table of their own.
	IsSingle  bool `json:"is_single,omitempty" yaml:"is_single,omitempty"`
	IsVirtual bool `json:"is_virtual,omitempty" yaml:"is_virtual,omitempty"`

	Fields          []Field          `json:"fields" yaml:"fields"`
	PropertySetters []PropertySetter `json:"property_setters,omitempty" yaml:"property_setters,omitempty"`
}

// StandardFields returns the non-custom fields.
func (e *Entity) StandardFields() []Field {
	var out []Field
	for _, f := range e.Fields {
		if !f.Custom {
			out = append(out, f)
		}
	}
	return out
}

// CustomFields returns the fields added through Custom Field records.
func (e *Entity) CustomFields() []Field {
	var out []Field
	for _, f := range e.Fields {
		if f.Custom {
			out = append(out, f)
		}
	}
	return out
}

// Group is an app and what it owned at scan time.
type Group struct {
	Name     string   `json:"name" yaml:"name"`
	Modules  []string `json:"modules" yaml:"modules"`
	Entities []string `json:"doctypes" yaml:"doctypes"`
}

// ScanError records an entity that could not be read.
type ScanError struct {
	Entity string `json:"doctype" yaml:"doctype"`
	Kind   string `json:"kind" yaml:"kind"`
	Error  string `json:"error" yaml:"error"`
}

// Inventory is the scan result.
type Inventory struct {
	Site      string      `json:"site" yaml:"site"`
	ScannedAt time.Time   `json:"scanned_at" yaml:"scanned_at"`
	Groups    []Group     `json:"apps" yaml:"apps"`
	Entities  []Entity    `json:"doctypes" yaml:"doctypes"`
	Errors    []ScanError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Group returns the named group, or nil.
func (inv *Inventory) Group(name string) *Group {
	for i := range inv.Groups {
		if inv.Groups[i].Name == name {
			return &inv.Groups[i]
		}
	}
	return nil
}

// HasGroup reports whether name is a scanned app owning at least one module.
func (inv *Inventory) HasGroup(name string) bool {
	if name == "" {
		return false
	}
	g := inv.Group(name)
	return g != nil && len(g.Modules) > 0
}

// ModuleApp returns the app owning module, or "".
func (inv *Inventory) ModuleApp(module string) string {
	for _, g := range inv.Groups {
		for _, m := range g.Modules {
			if m == module {
				return g.Name
			}
		}
	}
	return ""
}

// IsOrphan reports whether e belongs to no scanned app.
func (inv *Inventory) IsOrphan(e *Entity) bool {
	return !inv.HasGroup(e.Group)
}

// Restrict returns a copy of the inventory limited to apps, in the given
// order. Orphan entities are kept so they can still be reported.
func (inv *Inventory) Restrict(apps []string) *Inventory {
	keep := make(map[string]bool, len(apps))
	for _, a := range apps {
		keep[a] = true
	}

	out := &Inventory{
		Site:      inv.Site,
		ScannedAt: inv.ScannedAt,
		Errors:    inv.Errors,
	}
	for _, app := range apps {
		if g := inv.Group(app); g != nil {
			out.Groups = append(out.Groups, *g)
		}
	}
	for _, e := range inv.Entities {
		if keep[e.Group] || inv.IsOrphan(&e) {
			out.Entities = append(out.Entities, e)
		}
	}
	return out
}

// EntitiesOf returns the entities owned by app in inventory order.
func (inv *Inventory) EntitiesOf(app string) []Entity {
	var out []Entity
	for _, e := range inv.Entities {
		if e.Group == app {
			out = append(out, e)
		}
	}
	return out
}

// GroupNames returns the scanned app names in order.
func (inv *Inventory) GroupNames() []string {
	out := make([]string, len(inv.Groups))
	for i, g := range inv.Groups {
		out[i] = g.Name
	}
	return out
}

// Stats summarizes an inventory.
type Stats struct {
	Apps         int `json:"apps"`
	DocTypes     int `json:"doctypes"`
	Tables       int `json:"tables"`
	Fields       int `json:"fields"`
	CustomFields int `json:"custom_fields"`
	Orphans      int `json:"orphans"`
	Errors       int `json:"errors"`
}

// Stats counts what the inventory holds.
func (inv *Inventory) Stats() Stats {
	s := Stats{Apps: len(inv.Groups), DocTypes: len(inv.Entities), Errors: len(inv.Errors)}
	for i := range inv.Entities {
		e := &inv.Entities[i]
		if e.IsTable {
			s.Tables++
		}
		if inv.IsOrphan(e) {
			s.Orphans++
		}
		for _, f := range e.Fields {
			if f.Custom {
				s.CustomFields++
			} else {
				s.Fields++
			}
		}
	}
	return s
}

func sortedUnique(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
