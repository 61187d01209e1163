package fsops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealFS_ValidateIdentifier(t *testing.T) {
	fs := &RealFS{}

	tests := []struct {
		name      string
		id        string
		wantError bool
	}{
		{name: "site name", id: "erp.local", wantError: false},
		{name: "app name", id: "custom_app", wantError: false},
		{name: "hidden name", id: ".hidden", wantError: false},
		{name: "empty", id: "", wantError: true},
		{name: "slash", id: "sites/erp.local", wantError: true},
		{name: "backslash", id: "sites\\erp", wantError: true},
		{name: "dot", id: ".", wantError: true},
		{name: "dot dot", id: "..", wantError: true},
		{name: "dot dot prefix", id: "..secret", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fs.ValidateIdentifier(tt.id)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRealFS_AtomicWrite(t *testing.T) {
	fs := NewRealFS()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "plan.json")

	require.NoError(t, fs.AtomicWrite(path, []byte(`{"plan_version":"1.0"}`), 0644))

	data, err := fs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"plan_version":"1.0"}`, string(data))

	// Overwrite keeps a single file and leaves no temp files behind.
	require.NoError(t, fs.AtomicWrite(path, []byte("second"), 0644))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	data, err = fs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestRealFS_Exists(t *testing.T) {
	fs := NewRealFS()
	dir := t.TempDir()

	exists, err := fs.Exists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, exists)

	path := filepath.Join(dir, "present")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	exists, err = fs.Exists(path)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRealFS_Copy(t *testing.T) {
	fs := NewRealFS()
	dir := t.TempDir()

	src := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(src, []byte("records: {}\n"), 0644))

	dst := filepath.Join(dir, "backup", "site.yaml.bak")
	require.NoError(t, fs.Copy(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "records: {}\n", string(data))

	assert.Error(t, fs.Copy(dir, filepath.Join(dir, "dircopy")), "directories are rejected")
	assert.Error(t, fs.Copy(filepath.Join(dir, "missing"), dst))
}
