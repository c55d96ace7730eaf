package main

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/duckclient/duck-cli/pkg/apiclient"
	"github.com/duckclient/duck-cli/pkg/backup"
	"github.com/duckclient/duck-cli/pkg/compose"
	"github.com/duckclient/duck-cli/pkg/config"
	"github.com/duckclient/duck-cli/pkg/containerdriver"
	"github.com/duckclient/duck-cli/pkg/downloader"
	"github.com/duckclient/duck-cli/pkg/identity"
	"github.com/duckclient/duck-cli/pkg/lock"
	"github.com/duckclient/duck-cli/pkg/orchestrator"
	"github.com/duckclient/duck-cli/pkg/scheduler"
	"github.com/duckclient/duck-cli/pkg/selfupdate"
	"github.com/duckclient/duck-cli/pkg/storage"
)

// selfUpdateNamePrefix selects this binary's release assets apart from
// the managed docker-service bundles selfupdate's index also happens to
// list on a shared release channel.
const selfUpdateNamePrefix = "duckctl"

// app lazily wires every component the CLI surface needs, one instance
// per process. Structured like the teacher's main.go building its
// manager/worker/embedded stack once at startup, generalized here to
// build each dependency only when the command that needs it runs, since
// duckctl's commands touch very different subsets of the stack (status
// barely touches the DB; docker-service touches everything).
type app struct {
	workDir           string
	dbPath            string
	apiBaseURL        string
	selfUpdateBaseURL string

	dockerRoot  string
	composeFile string
	imagesDir   string
	backupDir   string
	cacheDir    string
	mirrorPath  string

	actor        *storage.Actor
	store        *storage.Handle
	identityMgr  *identity.Manager
	apiClient    *apiclient.Client
	dl           *downloader.Downloader
	driver       *containerdriver.Driver
	backupEngine *backup.Engine
	orch         *orchestrator.Orchestrator
	cfgMgr       *config.Manager
	idxClient    *selfupdate.IndexClient
	updater      *selfupdate.Updater
	lockFile     *lock.FileLock
}

func newApp(workDir, dbPath, apiBaseURL, selfUpdateBaseURL string) *app {
	dockerRoot := filepath.Join(workDir, "docker")
	return &app{
		workDir:           workDir,
		dbPath:            dbPath,
		apiBaseURL:        apiBaseURL,
		selfUpdateBaseURL: selfUpdateBaseURL,
		dockerRoot:        dockerRoot,
		composeFile:       filepath.Join(dockerRoot, "docker-compose.yml"),
		imagesDir:         filepath.Join(dockerRoot, "images"),
		backupDir:         filepath.Join(workDir, "data", "backups"),
		cacheDir:          filepath.Join(workDir, "cacheDuckData", "download"),
		mirrorPath:        filepath.Join(workDir, "data", "config.toml"),
	}
}

func (a *app) Storage() (*storage.Handle, error) {
	if a.store != nil {
		return a.store, nil
	}
	actor, err := storage.NewActor(a.dbPath)
	if err != nil {
		return nil, err
	}
	a.actor = actor
	a.store = actor.Handle()
	return a.store, nil
}

func (a *app) Identity() (*identity.Manager, error) {
	if a.identityMgr != nil {
		return a.identityMgr, nil
	}
	store, err := a.Storage()
	if err != nil {
		return nil, err
	}
	a.identityMgr = identity.New(store)
	return a.identityMgr, nil
}

func (a *app) APIClient() (*apiclient.Client, error) {
	if a.apiClient != nil {
		return a.apiClient, nil
	}
	id, err := a.Identity()
	if err != nil {
		return nil, err
	}
	a.apiClient = apiclient.New(a.apiBaseURL, id)
	return a.apiClient, nil
}

func (a *app) Downloader() *downloader.Downloader {
	if a.dl == nil {
		a.dl = downloader.New()
	}
	return a.dl
}

func (a *app) ContainerDriver() (*containerdriver.Driver, error) {
	if a.driver != nil {
		return a.driver, nil
	}
	d, err := containerdriver.New(a.dockerRoot, a.composeFile)
	if err != nil {
		return nil, err
	}
	a.driver = d
	return a.driver, nil
}

func (a *app) BackupEngine() (*backup.Engine, error) {
	if a.backupEngine != nil {
		return a.backupEngine, nil
	}
	store, err := a.Storage()
	if err != nil {
		return nil, err
	}
	driver, err := a.ContainerDriver()
	if err != nil {
		return nil, err
	}
	a.backupEngine = backup.New(store, driver, a.backupDir)
	return a.backupEngine, nil
}

func (a *app) Orchestrator() (*orchestrator.Orchestrator, error) {
	if a.orch != nil {
		return a.orch, nil
	}
	store, err := a.Storage()
	if err != nil {
		return nil, err
	}
	driver, err := a.ContainerDriver()
	if err != nil {
		return nil, err
	}
	backups, err := a.BackupEngine()
	if err != nil {
		return nil, err
	}
	api, err := a.APIClient()
	if err != nil {
		return nil, err
	}
	dataDirs, err := a.DataDirs()
	if err != nil {
		return nil, err
	}
	a.orch = orchestrator.New(store, driver, a.Downloader(), backups, api, a.workDir, dataDirs)
	return a.orch, nil
}

func (a *app) ConfigManager() (*config.Manager, error) {
	if a.cfgMgr != nil {
		return a.cfgMgr, nil
	}
	store, err := a.Storage()
	if err != nil {
		return nil, err
	}
	a.cfgMgr = config.New(store, a.mirrorPath)
	return a.cfgMgr, nil
}

func (a *app) SelfUpdater() (*selfupdate.Updater, error) {
	if a.updater != nil {
		return a.updater, nil
	}
	a.idxClient = selfupdate.New(a.selfUpdateBaseURL)
	a.updater = selfupdate.NewUpdater(a.idxClient, a.Downloader(), filepath.Join(a.cacheDir, "self"), selfUpdateNamePrefix)
	return a.updater, nil
}

func (a *app) AutoBackupScheduler(version func() string) (*scheduler.AutoBackupScheduler, error) {
	cfg, err := a.ConfigManager()
	if err != nil {
		return nil, err
	}
	driver, err := a.ContainerDriver()
	if err != nil {
		return nil, err
	}
	backups, err := a.BackupEngine()
	if err != nil {
		return nil, err
	}
	dataDirs, err := a.DataDirs()
	if err != nil {
		return nil, err
	}
	return scheduler.NewAutoBackupScheduler(cfg, driver, backups, dataDirs, version), nil
}

func (a *app) DelayedUpgradeScheduler() (*scheduler.DelayedUpgradeScheduler, error) {
	store, err := a.Storage()
	if err != nil {
		return nil, err
	}
	orch, err := a.Orchestrator()
	if err != nil {
		return nil, err
	}
	return scheduler.NewDelayedUpgradeScheduler(store, orch, a.workDir), nil
}

// currentServiceVersion reads the persisted orchestrator.ConfigKeyServiceVersion
// config key, unmarshaling it the same way pkg/orchestrator does (it is
// stored JSON-encoded, like every other config value, so a raw
// storage.Handle.GetConfig call would return it quoted).
func (a *app) currentServiceVersion(ctx context.Context) (string, bool, error) {
	store, err := a.Storage()
	if err != nil {
		return "", false, err
	}
	raw, ok, err := store.GetConfig(ctx, orchestrator.ConfigKeyServiceVersion)
	if err != nil || !ok {
		return "", ok, err
	}
	var v string
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return "", false, err
	}
	return v, true, nil
}

// DataDirs reports the host-relative bind-mount paths declared by the
// compose file (spec.md §4.4's source_dirs), resolved against the
// docker/ directory that holds the compose file.
// A missing or unreadable compose file yields no data dirs rather than
// an error, since several commands (status, cache) run before a stack
// has ever been deployed.
func (a *app) DataDirs() ([]string, error) {
	f, err := compose.Load(a.composeFile)
	if err != nil {
		return nil, nil
	}
	env, err := compose.LoadEnvironment(a.composeFile)
	if err != nil {
		env = compose.NewEnvironment(nil)
	}
	mounts := compose.ParseRelativeBindMounts(f, env)
	dirs := make([]string, 0, len(mounts))
	for _, m := range mounts {
		dirs = append(dirs, filepath.Join(a.dockerRoot, m.HostPath))
	}
	return dirs, nil
}

// Lock acquires the advisory working-directory lock (spec.md §5),
// returning a non-nil error only on an I/O failure; a lock already held
// by another process is reported through the bool return.
func (a *app) Lock() (bool, error) {
	a.lockFile = lock.New(a.workDir)
	return a.lockFile.TryLock()
}

func (a *app) Unlock() {
	if a.lockFile != nil {
		_ = a.lockFile.Unlock()
	}
}

// Close releases every resource the app opened.
func (a *app) Close() {
	if a.driver != nil {
		_ = a.driver.Close()
	}
	if a.actor != nil {
		_ = a.actor.Close()
	}
	a.Unlock()
}
