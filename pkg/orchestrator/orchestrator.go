package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/duckclient/duck-cli/pkg/backup"
	"github.com/duckclient/duck-cli/pkg/containerdriver"
	"github.com/duckclient/duck-cli/pkg/downloader"
	"github.com/duckclient/duck-cli/pkg/log"
	"github.com/duckclient/duck-cli/pkg/storage"
	"github.com/duckclient/duck-cli/pkg/types"
)

// ConfigKeyServiceVersion is the persistence-actor config key storing
// the currently-installed docker-service bundle version, named per
// spec.md §3's data model ("Versions: versions.docker_service").
const ConfigKeyServiceVersion = "versions.docker_service"

// driverHandle is the narrow capability this package needs from
// pkg/containerdriver.Driver, capability-scoped per spec §9's
// polymorphism note so orchestrator tests can supply a fake instead of
// a live engine.
type driverHandle interface {
	StopServices(ctx context.Context) error
	StartServices(ctx context.Context) error
	IsFullyStopped(ctx context.Context) (bool, []string, error)
	CheckServicesHealth(ctx context.Context) error
	GetAllContainersStatus(ctx context.Context) ([]containerdriver.ServiceStatus, error)
	LoadImage(ctx context.Context, tarPath string) (string, error)
	RetagImage(ctx context.Context, source, target string) error
	ImageExists(ctx context.Context, ref string) (bool, error)
}

// backupHandle is the narrow capability this package needs from
// pkg/backup.Engine.
type backupHandle interface {
	Create(ctx context.Context, req backup.CreateRequest) (types.BackupRecord, error)
	Restore(ctx context.Context, req backup.RestoreRequest) error
}

// versionChecker is the narrow capability this package needs from
// pkg/apiclient.Client.
type versionChecker interface {
	CheckVersion(ctx context.Context) (types.ServiceManifest, error)
}

// transferer is the narrow capability this package needs from
// pkg/downloader.Downloader.
type transferer interface {
	Download(ctx context.Context, req downloader.Request, onProgress downloader.ProgressFunc) error
}

// Orchestrator drives the C6 state machine of spec.md §4.6: check for
// an update, take a pre-upgrade backup, stop the stack, download and
// extract the new bundle, load and retag images, start and verify the
// stack, and roll back on failure. Structured the way the teacher's
// pkg/deploy.Deployer wraps a single handle to the components a
// deployment needs (there, a *manager.Manager; here, the storage
// handle, container driver, downloader, backup engine, and API
// client), generalized to the state list spec.md §4.6 names.
type Orchestrator struct {
	store   *storage.Handle
	driver  driverHandle
	dl      transferer
	backups backupHandle
	api     versionChecker
	logger  zerolog.Logger

	workDir     string
	dockerRoot  string
	composeFile string
	imagesDir   string
	dataDirs    []string
	cacheDir    string
}

// New builds an Orchestrator rooted at workDir, which must contain (or
// will come to contain) a docker/ subdirectory with the compose file
// and images/. dataDirs are the host paths backed up before an upgrade
// (spec §4.4's source_dirs).
func New(store *storage.Handle, driver driverHandle, dl transferer, backups backupHandle, api versionChecker, workDir string, dataDirs []string) *Orchestrator {
	dockerRoot := filepath.Join(workDir, "docker")
	return &Orchestrator{
		store:       store,
		driver:      driver,
		dl:          dl,
		backups:     backups,
		api:         api,
		logger:      log.WithComponent("orchestrator"),
		workDir:     workDir,
		dockerRoot:  dockerRoot,
		composeFile: filepath.Join(dockerRoot, "docker-compose.yml"),
		imagesDir:   filepath.Join(dockerRoot, "images"),
		dataDirs:    dataDirs,
		cacheDir:    filepath.Join(workDir, "cacheDuckData", "download"),
	}
}

// UpgradeRequest is the input to Run.
type UpgradeRequest struct {
	// CurrentVersion is the currently installed service version, used
	// for the "already current" short circuit and the backup filename.
	// Empty means "read it from persisted config."
	CurrentVersion string
	// Force skips the "already current" short circuit.
	Force bool
}

// Run executes one full deployment cycle per spec.md §4.6's state
// diagram. CreatingBackup stops the stack itself, since
// pkg/backup.Engine.Create enforces a fully-stopped precondition;
// StoppingServices then confirms that precondition rather than
// repeating the stop (see DESIGN.md's Open Question resolution for
// this state-ordering detail).
func (o *Orchestrator) Run(ctx context.Context, req UpgradeRequest) types.UpgradeResult {
	currentVersion := req.CurrentVersion
	if currentVersion == "" {
		if v, ok, err := o.getVersionConfig(ctx); err == nil && ok {
			currentVersion = v
		}
	}

	state := types.StateCheckingUpdates
	o.logger.Info().Str("state", string(state)).Msg("entering state")

	manifest, err := o.api.CheckVersion(ctx)
	if err != nil {
		return o.fail(ctx, state, err, false, types.BackupRecord{})
	}

	if !req.Force && manifest.Version == currentVersion {
		o.logger.Info().Str("version", manifest.Version).Msg("already current, nothing to do")
		return types.UpgradeResult{Success: true, FinalState: types.StateDone}
	}

	state = types.StateCreatingBackup
	o.logger.Info().Str("state", string(state)).Msg("entering state")
	if err := o.driver.StopServices(ctx); err != nil {
		return o.fail(ctx, state, err, false, types.BackupRecord{})
	}
	backupRec, err := o.backups.Create(ctx, backup.CreateRequest{
		BackupType:     types.BackupTypePreUpgrade,
		ServiceVersion: currentVersion,
		SourceDirs:     o.dataDirs,
	})
	if err != nil {
		return o.fail(ctx, state, err, false, types.BackupRecord{})
	}

	state = types.StateStoppingServices
	o.logger.Info().Str("state", string(state)).Msg("entering state")
	stopped, running, err := o.driver.IsFullyStopped(ctx)
	if err != nil {
		return o.fail(ctx, state, err, true, backupRec)
	}
	if !stopped {
		return o.fail(ctx, state, fmt.Errorf("services still running after stop: %v", running), true, backupRec)
	}

	state = types.StateDownloadingUpdate
	o.logger.Info().Str("state", string(state)).Msg("entering state")
	bundlePath := filepath.Join(o.cacheDir, manifest.Version, "full", "docker.zip")
	if err := o.dl.Download(ctx, downloader.Request{
		URL:          manifest.Full.URL,
		TargetPath:   bundlePath,
		Version:      manifest.Version,
		ExpectedSize: manifest.Full.Size,
		ExpectedHash: manifest.Full.Hash,
	}, nil); err != nil {
		return o.fail(ctx, state, err, true, backupRec)
	}

	state = types.StateExtractingUpdate
	o.logger.Info().Str("state", string(state)).Msg("entering state")
	if _, err := ExtractBundle(bundlePath, o.workDir, nil); err != nil {
		return o.fail(ctx, state, err, true, backupRec)
	}

	state = types.StateLoadingImages
	o.logger.Info().Str("state", string(state)).Msg("entering state")
	if _, err := LoadAndRetagImages(ctx, o.driver, o.imagesDir, HostArch()); err != nil {
		return o.fail(ctx, state, err, true, backupRec)
	}

	state = types.StateStartingServices
	o.logger.Info().Str("state", string(state)).Msg("entering state")
	if err := o.driver.StartServices(ctx); err != nil {
		return o.fail(ctx, state, err, true, backupRec)
	}

	state = types.StateVerifyingServices
	o.logger.Info().Str("state", string(state)).Msg("entering state")
	if err := o.driver.CheckServicesHealth(ctx); err != nil {
		return o.fail(ctx, state, err, true, backupRec)
	}

	state = types.StateCleaningUp
	o.logger.Info().Str("state", string(state)).Msg("entering state")
	if err := o.setVersionConfig(ctx, manifest.Version); err != nil {
		o.logger.Warn().Err(err).Msg("failed to persist new service version")
	}

	o.logger.Info().Str("version", manifest.Version).Msg("deployment complete")
	return types.UpgradeResult{Success: true, FinalState: types.StateDone}
}

// fail handles a failure from any state (spec §4.6.4). hasBackup
// distinguishes a pre-upgrade backup existing (roll back to it) from
// one never having been taken (best-effort restart only).
func (o *Orchestrator) fail(ctx context.Context, state types.DeploymentState, cause error, hasBackup bool, rec types.BackupRecord) types.UpgradeResult {
	o.logger.Error().Str("state", string(state)).Err(cause).Msg("deployment step failed")
	result := types.UpgradeResult{Success: false, FinalState: types.StateFailed, Error: cause.Error()}

	if !hasBackup {
		if restartErr := o.driver.StartServices(ctx); restartErr != nil {
			o.logger.Error().Err(restartErr).Msg("best-effort restart after failure also failed")
			result.Error = fmt.Sprintf("%s (restart attempt also failed: %s)", cause, restartErr)
		} else {
			result.Error = fmt.Sprintf("%s (stack restarted)", cause)
		}
		return result
	}

	if rbErr := o.backups.Restore(ctx, backup.RestoreRequest{
		BackupID:       rec.ID,
		TargetDir:      o.dockerRoot,
		ForceOverwrite: true,
	}); rbErr != nil {
		o.logger.Error().Err(rbErr).Int64("backup_id", rec.ID).Msg("rollback failed")
		result.Error = fmt.Sprintf("upgrade failed AND rollback failed: %s (rollback error: %s)", cause, rbErr)
		return result
	}

	result.RolledBackTo = rec.ID
	result.Error = fmt.Sprintf("upgrade failed, rolled back to backup %d: %s", rec.ID, cause)
	return result
}

func (o *Orchestrator) getVersionConfig(ctx context.Context) (string, bool, error) {
	raw, ok, err := o.store.GetConfig(ctx, ConfigKeyServiceVersion)
	if err != nil || !ok {
		return "", ok, err
	}
	var v string
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return "", false, storage.Wrap(storage.KindSchema, "orchestrator.getVersionConfig", err)
	}
	return v, true, nil
}

func (o *Orchestrator) setVersionConfig(ctx context.Context, version string) error {
	enc, err := json.Marshal(version)
	if err != nil {
		return storage.Wrap(storage.KindCustom, "orchestrator.setVersionConfig", err)
	}
	return o.store.SetConfig(ctx, ConfigKeyServiceVersion, string(enc))
}
