package orchestrator

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/afero"

	"github.com/duckclient/duck-cli/pkg/compose"
	"github.com/duckclient/duck-cli/pkg/storage"
)

// MaterializeDataDirectories ensures the parent of every relative
// bind-mount host path exists with mode 0755, without creating the
// mount's leaf directory itself — the engine creates that so ownership
// matches what the container expects (spec §4.6.8). fs abstracts the
// directory creation so the walk logic is testable without real disk.
func MaterializeDataDirectories(fs afero.Fs, workDir string, f compose.File, env compose.Environment) error {
	for _, m := range compose.ParseRelativeBindMounts(f, env) {
		hostPath := filepath.Join(workDir, filepath.FromSlash(m.HostPath))
		parent := filepath.Dir(hostPath)
		if err := fs.MkdirAll(parent, 0o755); err != nil {
			return storage.Wrap(storage.KindIo, "orchestrator.MaterializeDataDirectories", err)
		}
	}
	return nil
}

// mysqlInitArtifacts are file/dir names that appear in a freshly
// initialized (never-used) MySQL data directory, vs. an actual
// database that must never be touched (spec §4.6.8).
var mysqlInitArtifacts = map[string]bool{
	"auto.cnf":           true,
	"ib_buffer_pool":     true,
	"ib_logfile0":        true,
	"ib_logfile1":        true,
	"ibdata1":            true,
	"ibtmp1":             true,
	"#innodb_temp":       true,
	"ca-key.pem":         true,
	"ca.pem":             true,
	"client-cert.pem":    true,
	"client-key.pem":     true,
	"private_key.pem":    true,
	"public_key.pem":     true,
	"server-cert.pem":    true,
	"server-key.pem":     true,
	"mysql.sock":         true,
	"performance_schema": true,
	"sys":                true,
	"mysql":               true,
}

// userDataPatterns veto automated cleanup when any directory entry
// matches them: application schema names, binlogs, undo logs.
var userDataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^binlog\.\d+$`),
	regexp.MustCompile(`^binlog\.index$`),
	regexp.MustCompile(`^undo_\d+$`),
}

// IsSafeToResetMySQLDataDir reports whether dataDir contains only
// known initialization artifacts (safe to widen permissions and clear)
// or appears to hold real user data (never touch), per spec §4.6.8.
// An empty or nonexistent directory is always safe.
func IsSafeToResetMySQLDataDir(dataDir string) (bool, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, storage.Wrap(storage.KindIo, "orchestrator.IsSafeToResetMySQLDataDir", err)
	}
	if len(entries) == 0 {
		return true, nil
	}

	for _, e := range entries {
		name := e.Name()
		for _, pattern := range userDataPatterns {
			if pattern.MatchString(name) {
				return false, nil
			}
		}
		if !mysqlInitArtifacts[name] {
			return false, nil
		}
	}
	return true, nil
}
