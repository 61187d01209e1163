// Package config manages appmigrate configuration and filesystem paths.
//
// Tool configuration comes from an optional YAML file (default
// ~/.appmigrate/config.yaml) with APPMIGRATE_* environment overrides. Site
// database settings come from the bench's sites/<site>/site_config.json, and
// per-plan settings from the generate-plan config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains all the filesystem paths used by appmigrate.
type Paths struct {
	// Root is the base directory for all appmigrate data (default: ~/.appmigrate)
	Root string

	// Reports is the directory execution reports are written to by default
	Reports string

	// Config is the path to the global config file
	Config string
}

// DefaultPaths returns the default paths for appmigrate.
// Paths can be overridden with environment variables:
// - APPMIGRATE_ROOT: Override the root directory
func DefaultPaths() (*Paths, error) {
	root := os.Getenv("APPMIGRATE_ROOT")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		root = filepath.Join(home, ".appmigrate")
	}

	return &Paths{
		Root:    root,
		Reports: filepath.Join(root, "reports"),
		Config:  filepath.Join(root, "config.yaml"),
	}, nil
}

// EnsureDirectories creates all necessary directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.Root, p.Reports} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SitesDir returns the sites directory of a bench.
func SitesDir(bench string) string {
	return filepath.Join(bench, "sites")
}

// SiteConfigPath returns the site_config.json path of site in bench.
func SiteConfigPath(bench, site string) string {
	return filepath.Join(SitesDir(bench), site, "site_config.json")
}

// CommonSiteConfigPath returns the bench-wide common_site_config.json path.
func CommonSiteConfigPath(bench string) string {
	return filepath.Join(SitesDir(bench), "common_site_config.json")
}
