package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/appmigrate/internal/apperrors"
	"github.com/danieljhkim/appmigrate/internal/fsops"
)

// PlanConfig holds the generate-plan settings file. Since YAML is a superset
// of JSON, JSON files are accepted too.
type PlanConfig struct {
	// TargetModule overrides the module derived from the target app.
	TargetModule string `yaml:"target_module"`

	// ResolutionPolicy overrides the configured policy.
	ResolutionPolicy string `yaml:"resolution_policy"`

	// BatchSize overrides the configured batch size.
	BatchSize int `yaml:"batch_size"`

	// Overrides maps a DocType to its winning source app.
	Overrides map[string]string `yaml:"overrides"`

	// Ignore lists DocTypes left out of the plan.
	Ignore []string `yaml:"ignore"`
}

// LoadPlanConfig reads a plan config file. Unknown keys are rejected.
func LoadPlanConfig(fs fsops.FS, path string) (*PlanConfig, error) {
	exists, err := fs.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("failed to check plan config: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("plan config %s: %w", path, apperrors.ErrNotFound)
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan config: %w", err)
	}

	pc := &PlanConfig{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(pc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: plan config %s: %w", apperrors.ErrValidation, path, err)
	}
	if pc.BatchSize < 0 {
		return nil, fmt.Errorf("%w: plan config %s: batch_size must not be negative", apperrors.ErrValidation, path)
	}
	for doctype, app := range pc.Overrides {
		if doctype == "" || app == "" {
			return nil, fmt.Errorf("%w: plan config %s: override entries need a doctype and an app", apperrors.ErrValidation, path)
		}
	}
	return pc, nil
}
