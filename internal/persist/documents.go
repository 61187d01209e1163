// Package persist reads and writes the documents the pipeline produces:
// inventories, conflict reports, migration plans and execution reports.
//
// Documents are JSON or YAML. Writes go through fsops.FS.AtomicWrite so a
// plan file is never left half-written.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/appmigrate/internal/apperrors"
	"github.com/danieljhkim/appmigrate/internal/catalog"
	"github.com/danieljhkim/appmigrate/internal/engine"
	"github.com/danieljhkim/appmigrate/internal/fsops"
	"github.com/danieljhkim/appmigrate/internal/hash"
	"github.com/danieljhkim/appmigrate/internal/planner"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name. Empty is allowed and means "decide by
// file extension".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want json or yaml)", apperrors.ErrValidation, s)
	}
}

// FormatFor returns explicit if set, otherwise the format implied by path:
// .yaml and .yml are YAML, anything else JSON.
func FormatFor(path string, explicit Format) Format {
	if explicit != "" {
		return explicit
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Marshal encodes v in format f. JSON output is indented.
func Marshal(v any, f Format) ([]byte, error) {
	if f == FormatYAML {
		return yaml.Marshal(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func unmarshal(data []byte, f Format, v any) error {
	if f == FormatYAML {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// Documents saves and loads pipeline documents.
type Documents struct {
	fs     fsops.FS
	hasher hash.Hasher
}

// NewDocuments creates a Documents using fs for I/O and hasher to verify
// plan checksums.
func NewDocuments(fs fsops.FS, hasher hash.Hasher) *Documents {
	return &Documents{fs: fs, hasher: hasher}
}

// SavePlan writes plan to path.
func (d *Documents) SavePlan(path string, plan *planner.MigrationPlan, f Format) error {
	return d.save(path, plan, f)
}

// LoadPlan reads a plan from path, validates it and verifies its checksum.
//
// Returns an error wrapping ErrNotFound if the file does not exist and
// ErrValidation if it cannot be decoded, is incomplete, or was modified after
// generation.
func (d *Documents) LoadPlan(path string) (*planner.MigrationPlan, error) {
	data, err := d.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("plan file %s: %w", path, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var plan planner.MigrationPlan
	if err := unmarshal(data, FormatFor(path, ""), &plan); err != nil {
		return nil, fmt.Errorf("%w: failed to decode plan file %s: %w", apperrors.ErrValidation, path, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("plan file %s: %w", path, err)
	}
	if plan.Metadata.Checksum != "" {
		if err := plan.VerifyChecksum(d.hasher); err != nil {
			return nil, fmt.Errorf("plan file %s: %w", path, err)
		}
	}
	return &plan, nil
}

// SaveReport writes an execution report to path.
func (d *Documents) SaveReport(path string, report *engine.ExecutionReport, f Format) error {
	return d.save(path, report, f)
}

// SaveConflicts writes a conflict report to path.
func (d *Documents) SaveConflicts(path string, report *planner.ConflictReport, f Format) error {
	return d.save(path, report, f)
}

// SaveInventory writes a scanned inventory to path.
func (d *Documents) SaveInventory(path string, inv *catalog.Inventory, f Format) error {
	return d.save(path, inv, f)
}

func (d *Documents) save(path string, v any, f Format) error {
	data, err := Marshal(v, FormatFor(path, f))
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := d.fs.AtomicWrite(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
