package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/appmigrate/internal/apperrors"
	"github.com/danieljhkim/appmigrate/internal/fsops"
)

func TestLoadSiteConfig(t *testing.T) {
	clearEnv(t)
	bench := t.TempDir()
	writeFile(t, SiteConfigPath(bench, "erp.local"), `{"db_name": "_1bd3e0294da19198", "db_password": "pw"}`)
	writeFile(t, CommonSiteConfigPath(bench), `{"db_host": "db.internal", "db_port": 3307, "db_type": "mariadb"}`)

	sc, err := LoadSiteConfig(fsops.NewRealFS(), bench, "erp.local")
	require.NoError(t, err)

	assert.Equal(t, "_1bd3e0294da19198", sc.DBName)
	assert.Equal(t, "_1bd3e0294da19198", sc.DBUser)
	assert.Equal(t, "pw", sc.DBPassword)
	assert.Equal(t, "mariadb", sc.DBType)
	assert.Equal(t, "db.internal", sc.DBHost)
	assert.Equal(t, 3307, sc.DBPort)
}

func TestLoadSiteConfig_SiteValuesWin(t *testing.T) {
	clearEnv(t)
	bench := t.TempDir()
	writeFile(t, SiteConfigPath(bench, "erp.local"), `{"db_name": "erp", "db_type": "postgres", "db_host": "pg"}`)
	writeFile(t, CommonSiteConfigPath(bench), `{"db_host": "db.internal", "db_type": "mariadb"}`)

	sc, err := LoadSiteConfig(fsops.NewRealFS(), bench, "erp.local")
	require.NoError(t, err)
	assert.Equal(t, "postgres", sc.DBType)
	assert.Equal(t, "pg", sc.DBHost)
}

func TestLoadSiteConfig_PasswordFromEnv(t *testing.T) {
	clearEnv(t)
	bench := t.TempDir()
	writeFile(t, SiteConfigPath(bench, "erp.local"), `{"db_name": "erp", "db_password": "from-file"}`)
	t.Setenv("APPMIGRATE_DB_PASSWORD", "from-env")

	sc, err := LoadSiteConfig(fsops.NewRealFS(), bench, "erp.local")
	require.NoError(t, err)
	assert.Equal(t, "from-env", sc.DBPassword)
	assert.Equal(t, "localhost", sc.DBHost)
}

func TestLoadSiteConfig_Errors(t *testing.T) {
	clearEnv(t)
	bench := t.TempDir()

	_, err := LoadSiteConfig(fsops.NewRealFS(), bench, "missing.local")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	writeFile(t, SiteConfigPath(bench, "empty.local"), `{}`)
	_, err = LoadSiteConfig(fsops.NewRealFS(), bench, "empty.local")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLoadSiteConfig_RejectsPathsOutsideSites(t *testing.T) {
	clearEnv(t)
	bench := t.TempDir()
	// A readable config one level above sites/ must not be reachable.
	writeFile(t, filepath.Join(bench, "escape", "site_config.json"), `{"db_name": "leak"}`)

	for _, site := range []string{"../escape", "..", "a/b", "", `..\escape`} {
		_, err := LoadSiteConfig(fsops.NewRealFS(), bench, site)
		assert.ErrorIs(t, err, apperrors.ErrValidation, "site %q", site)
	}
}

func TestLoadPlanConfig(t *testing.T) {
	dir := t.TempDir()
	fs := fsops.NewRealFS()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "plan.yaml")
		writeFile(t, path, `
target_module: Custom App
resolution_policy: last-match
batch_size: 200
overrides:
  Sales Target: stock_app
ignore:
  - Bin Label
`)
		pc, err := LoadPlanConfig(fs, path)
		require.NoError(t, err)
		assert.Equal(t, "Custom App", pc.TargetModule)
		assert.Equal(t, "last-match", pc.ResolutionPolicy)
		assert.Equal(t, 200, pc.BatchSize)
		assert.Equal(t, map[string]string{"Sales Target": "stock_app"}, pc.Overrides)
		assert.Equal(t, []string{"Bin Label"}, pc.Ignore)
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "plan.json")
		writeFile(t, path, `{"target_module": "Custom App", "ignore": ["Bin Label"]}`)
		pc, err := LoadPlanConfig(fs, path)
		require.NoError(t, err)
		assert.Equal(t, "Custom App", pc.TargetModule)
		assert.Equal(t, []string{"Bin Label"}, pc.Ignore)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		writeFile(t, path, "")
		pc, err := LoadPlanConfig(fs, path)
		require.NoError(t, err)
		assert.Empty(t, pc.TargetModule)
	})

	t.Run("unknown key", func(t *testing.T) {
		path := filepath.Join(dir, "typo.yaml")
		writeFile(t, path, "target_modul: Custom App\n")
		_, err := LoadPlanConfig(fs, path)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("negative batch size", func(t *testing.T) {
		path := filepath.Join(dir, "neg.yaml")
		writeFile(t, path, "batch_size: -1\n")
		_, err := LoadPlanConfig(fs, path)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := LoadPlanConfig(fs, filepath.Join(dir, "nope.yaml"))
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
