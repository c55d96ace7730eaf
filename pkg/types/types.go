package types

import "time"

// Identity is the process-wide client identity. LocalUUID is generated
// once and persisted; ServerClientID is assigned by the manifest server
// on first registration and replaced only by an authenticated
// re-registration cycle triggered by a 401 response.
type Identity struct {
	LocalUUID      string
	ServerClientID string
	CreatedAt      time.Time
}

// Registered reports whether the server has assigned a client ID.
func (i Identity) Registered() bool {
	return i.ServerClientID != ""
}

// BackupType distinguishes why a backup was taken.
type BackupType string

const (
	BackupTypeManual     BackupType = "Manual"
	BackupTypePreUpgrade BackupType = "PreUpgrade"
)

// BackupStatus is the outcome of a backup attempt.
type BackupStatus string

const (
	BackupStatusCompleted BackupStatus = "Completed"
	BackupStatusFailed    BackupStatus = "Failed"
)

// BackupRecord is a row of the backups table (pkg/storage/schema.sql).
type BackupRecord struct {
	ID             int64
	FilePath       string
	ServiceVersion string
	BackupType     BackupType
	Status         BackupStatus
	CreatedAt      time.Time
}

// TaskType enumerates the kinds of scheduled tasks.
type TaskType string

const (
	TaskTypeServiceUpgrade TaskType = "ServiceUpgrade"
)

// TaskStatus is the lifecycle state of a scheduled task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusInProgress TaskStatus = "InProgress"
	TaskStatusCompleted  TaskStatus = "Completed"
	TaskStatusFailed     TaskStatus = "Failed"
	TaskStatusCancelled  TaskStatus = "Cancelled"
)

// ScheduledTask is a row of the scheduled_tasks table. Invariant: at most
// one Pending task exists per TaskType (enforced by pkg/storage).
type ScheduledTask struct {
	ID             int64
	TaskType       TaskType
	TargetVersion  string
	ScheduledAt    time.Time
	Status         TaskStatus
	Details        string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// DownloadStatus is the lifecycle state of a download task.
type DownloadStatus string

const (
	DownloadStatusPending     DownloadStatus = "Pending"
	DownloadStatusDownloading DownloadStatus = "Downloading"
	DownloadStatusCompleted   DownloadStatus = "Completed"
	DownloadStatusFailed      DownloadStatus = "Failed"
)

// DownloadTask is a row of the download_tasks table.
type DownloadTask struct {
	ID             int64
	TaskName       string
	URL            string
	TotalSize      int64
	DownloadedSize int64
	TargetPath     string
	FileHash       string
	Status         DownloadStatus
	AvgSpeed       float64
	DurationMS     int64
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DownloadSidecar is the JSON document written next to a partial
// download (target file name + ".download"). It is the authority for
// resuming a download across process restarts; deleted on verified
// success, retained on failure so a later attempt may resume.
type DownloadSidecar struct {
	URL            string    `json:"url"`
	ExpectedSize   int64     `json:"expected_size"`
	ExpectedHash   string    `json:"expected_hash,omitempty"`
	DownloadedBytes int64    `json:"downloaded_bytes"`
	Version        string    `json:"version"`
	StartTime      time.Time `json:"start_time"`
	LastUpdate     time.Time `json:"last_update"`
}

// PackageInfo describes one downloadable artifact within a service
// manifest (packages.full or packages.patch).
type PackageInfo struct {
	URL       string `json:"url"`
	Hash      string `json:"hash"`
	Signature string `json:"signature,omitempty"`
	Size      int64  `json:"size"`
}

// ServiceManifest is the in-memory shape of the remote version-check
// response: the available release and its downloadable packages.
type ServiceManifest struct {
	Version      string       `json:"version"`
	ReleaseDate  string       `json:"release_date"`
	ReleaseNotes string       `json:"release_notes"`
	Full         PackageInfo  `json:"full"`
	Patch        *PackageInfo `json:"patch,omitempty"`
}

// DownloadProgressStatus is the phase reported through a progress
// callback during a transfer.
type DownloadProgressStatus string

const (
	ProgressStarting   DownloadProgressStatus = "Starting"
	ProgressDownloading DownloadProgressStatus = "Downloading"
	ProgressResuming   DownloadProgressStatus = "Resuming"
	ProgressCompleted  DownloadProgressStatus = "Completed"
	ProgressFailed     DownloadProgressStatus = "Failed"
)

// DownloadProgress is delivered to the caller-supplied progress
// callback as a transfer advances.
type DownloadProgress struct {
	TaskID      int64
	FileName    string
	Downloaded  int64
	Total       int64
	SpeedBps    float64
	ETA         time.Duration
	Percentage  float64
	Status      DownloadProgressStatus
}

// ServiceRuntimeStatus is the observed state of one container belonging
// to a declared service.
type ServiceRuntimeStatus string

const (
	ServiceRunning ServiceRuntimeStatus = "Running"
	ServiceStopped ServiceRuntimeStatus = "Stopped"
	ServiceUnknown ServiceRuntimeStatus = "Unknown"
)

// ServiceStatus reports the runtime status of a single declared (or
// adopted) service container.
type ServiceStatus struct {
	Name   string
	Status ServiceRuntimeStatus
	Image  string
	Ports  []ComposePort
}

// ComposePort is one parsed and environment-expanded port mapping from
// a compose service's `ports:` list.
type ComposePort struct {
	HostPort      int
	ContainerPort int
	Protocol      string
	ServiceName   string
}

// DeploymentState is one state of the orchestrator's state machine
// (spec §4.6).
type DeploymentState string

const (
	StateIdle               DeploymentState = "Idle"
	StateCheckingUpdates     DeploymentState = "CheckingUpdates"
	StateCreatingBackup      DeploymentState = "CreatingBackup"
	StateStoppingServices    DeploymentState = "StoppingServices"
	StateDownloadingUpdate   DeploymentState = "DownloadingUpdate"
	StateExtractingUpdate    DeploymentState = "ExtractingUpdate"
	StateLoadingImages       DeploymentState = "LoadingImages"
	StateStartingServices    DeploymentState = "StartingServices"
	StateVerifyingServices   DeploymentState = "VerifyingServices"
	StateCleaningUp          DeploymentState = "CleaningUp"
	StateDone                DeploymentState = "Done"
	StateFailed              DeploymentState = "Failed"
)

// UpgradeResult is the terminal outcome of a deployment cycle.
type UpgradeResult struct {
	Success      bool
	FinalState   DeploymentState
	Error        string
	RolledBackTo int64 // backup ID, 0 if no rollback occurred
}
