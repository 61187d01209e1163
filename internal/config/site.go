package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/danieljhkim/appmigrate/internal/apperrors"
	"github.com/danieljhkim/appmigrate/internal/fsops"
)

// SiteConfig holds the database settings of a Frappe site.
type SiteConfig struct {
	DBName     string `json:"db_name" yaml:"db_name"`
	DBUser     string `json:"db_user" yaml:"db_user"`
	DBPassword string `json:"db_password" yaml:"db_password" env:"APPMIGRATE_DB_PASSWORD"`
	DBType     string `json:"db_type" yaml:"db_type"`
	DBHost     string `json:"db_host" yaml:"db_host"`
	DBPort     int    `json:"db_port" yaml:"db_port"`
}

// LoadSiteConfig reads sites/<site>/site_config.json of bench, falling back
// to sites/common_site_config.json for unset values. Frappe names the
// database user after the database, so DBUser defaults to DBName.
//
// site must be a plain directory name under sites/.
func LoadSiteConfig(fs fsops.FS, bench, site string) (*SiteConfig, error) {
	if err := fs.ValidateIdentifier(site); err != nil {
		return nil, fmt.Errorf("%w: site %q: %w", apperrors.ErrValidation, site, err)
	}

	path := SiteConfigPath(bench, site)
	exists, err := fs.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat site config: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("site %q (%s): %w", site, path, apperrors.ErrNotFound)
	}

	sc := &SiteConfig{}
	if err := cleanenv.ReadConfig(path, sc); err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", apperrors.ErrValidation, path, err)
	}

	common := CommonSiteConfigPath(bench)
	if ok, _ := fs.Exists(common); ok {
		var defaults SiteConfig
		if err := cleanenv.ReadConfig(common, &defaults); err != nil {
			return nil, fmt.Errorf("%w: failed to read %s: %w", apperrors.ErrValidation, common, err)
		}
		sc.fillFrom(&defaults)
	}

	if sc.DBName == "" {
		return nil, fmt.Errorf("%w: %s has no db_name", apperrors.ErrValidation, path)
	}
	if sc.DBUser == "" {
		sc.DBUser = sc.DBName
	}
	if sc.DBHost == "" {
		sc.DBHost = "localhost"
	}
	return sc, nil
}

func (sc *SiteConfig) fillFrom(d *SiteConfig) {
	if sc.DBType == "" {
		sc.DBType = d.DBType
	}
	if sc.DBHost == "" {
		sc.DBHost = d.DBHost
	}
	if sc.DBPort == 0 {
		sc.DBPort = d.DBPort
	}
}
