// Package planner handles the analysis and planning phases of a migration.
//
// The planner inspects a scanned inventory, reports conflicts between the
// apps being consolidated, and generates a deterministic MigrationPlan that
// assigns every DocType to exactly one winning source app and orders the
// steps so parent DocTypes are handled before child tables.
//
// Key responsibilities:
//   - Detect conflicts (duplicate DocTypes, field type clashes, orphans, similar names)
//   - Resolve each DocType's winning app from overrides or the resolution policy
//   - Build field mappings and data rules per DocType
//   - Checksum plans so they can be verified after a round trip through a file
package planner
