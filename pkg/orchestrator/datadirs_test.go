package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duckclient/duck-cli/pkg/compose"
)

func TestMaterializeDataDirectoriesCreatesParentNotLeaf(t *testing.T) {
	fs := afero.NewMemMapFs()
	workDir := "/work"
	f := compose.File{Services: map[string]compose.Service{
		"db": {Volumes: []string{"./data/mysql:/var/lib/mysql"}},
	}}
	env := compose.NewEnvironment(nil)

	require.NoError(t, MaterializeDataDirectories(fs, workDir, f, env))

	parent := filepath.Join(workDir, "data")
	info, err := fs.Stat(parent)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = fs.Stat(filepath.Join(parent, "mysql"))
	assert.True(t, os.IsNotExist(err), "leaf directory must not be pre-created")
}

func TestIsSafeToResetMySQLDataDirTreatsInitArtifactsAsSafe(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ibdata1", "ib_logfile0", "auto.cnf", "performance_schema"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	safe, err := IsSafeToResetMySQLDataDir(dir)
	require.NoError(t, err)
	assert.True(t, safe)
}

func TestIsSafeToResetMySQLDataDirVetoesRealUserData(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ibdata1"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "binlog.000001"), []byte("x"), 0o644))

	safe, err := IsSafeToResetMySQLDataDir(dir)
	require.NoError(t, err)
	assert.False(t, safe)
}

func TestIsSafeToResetMySQLDataDirVetoesUnknownEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app_schema"), []byte("x"), 0o644))

	safe, err := IsSafeToResetMySQLDataDir(dir)
	require.NoError(t, err)
	assert.False(t, safe)
}

func TestIsSafeToResetMySQLDataDirMissingIsSafe(t *testing.T) {
	safe, err := IsSafeToResetMySQLDataDir(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.True(t, safe)
}
