package model

// -----------------------------------------------------------------------------
// Tasks
// -----------------------------------------------------------------------------

// Task types.
const (
	TaskTypeAlist2Strm = "alist2strm"
	TaskTypeAni2Alist  = "ani2alist"
)

// Task statuses.
const (
	TaskRunning   = "running"
	TaskStopped   = "stopped"
	TaskError     = "error"
	TaskCompleted = "completed"
)

// TaskStatus is a task record as reported by the server.
type TaskStatus struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`     // alist2strm, ani2alist
	Status   string         `json:"status"`   // running, stopped, error, completed
	Progress float64        `json:"progress"` // Percent (0-100)
	Message  string         `json:"message"`
	LastRun  *Time          `json:"last_run,omitempty"`
	NextRun  *Time          `json:"next_run,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
}

// IsActive returns true while the task is running.
func (t TaskStatus) IsActive() bool {
	return t.Status == TaskRunning
}

// TriggerRequest asks the server to run a task now.
type TriggerRequest struct {
	TaskID string `json:"task_id"`
	Force  bool   `json:"force"`
}

// TaskActionResponse is returned by trigger and stop.
type TaskActionResponse struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id,omitempty"`
}

// TaskLogs is the raw log tail for a task.
type TaskLogs struct {
	TaskID     string   `json:"task_id"`
	Logs       []string `json:"logs"`
	TotalLines int      `json:"total_lines"`
}

// -----------------------------------------------------------------------------
// Logs
// -----------------------------------------------------------------------------

// LogEntry is one parsed log line.
type LogEntry struct {
	Timestamp  string `json:"timestamp"`
	Level      string `json:"level"`
	Message    string `json:"message"`
	LineNumber int    `json:"line_number"`
}

// LogQuery filters a log read.
type LogQuery struct {
	Lines   int    // Last N entries (0 = server default)
	Level   string // Exact level match, case-insensitive
	Keyword string // Substring match, case-insensitive
}

// LogPage is the response of a log read.
type LogPage struct {
	Logs          []LogEntry `json:"logs"`
	TotalLines    int        `json:"total_lines"`
	FilteredLines int        `json:"filtered_lines"`
	FilePath      string     `json:"file_path,omitempty"`
	FileName      string     `json:"file_name,omitempty"`
	Message       string     `json:"message,omitempty"`
}

// LogLevels lists the levels the server understands.
type LogLevels struct {
	Levels      []string `json:"levels"`
	Description string   `json:"description"`
}

// LogFile describes a log file on the server.
type LogFile struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Modified  Time   `json:"modified"`
	IsCurrent bool   `json:"is_current"`
}

// LogFiles is the log file listing.
type LogFiles struct {
	Files       []LogFile `json:"files"`
	CurrentFile string    `json:"current_file"`
}

// FileActionResponse is returned by clear, delete and restore operations.
type FileActionResponse struct {
	Message       string `json:"message"`
	Filename      string `json:"filename,omitempty"`
	BackupFile    string `json:"backup_file,omitempty"`
	RestoredFrom  string `json:"restored_from,omitempty"`
	CurrentBackup string `json:"current_backup,omitempty"`
	Timestamp     Time   `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// System
// -----------------------------------------------------------------------------

// SystemInfo is the host and process overview.
type SystemInfo struct {
	Platform        string         `json:"platform"`
	PythonVersion   string         `json:"python_version"`
	AutofilmVersion string         `json:"autofilm_version"`
	Uptime          string         `json:"uptime"`
	CPUPercent      float64        `json:"cpu_percent"`
	MemoryUsage     map[string]any `json:"memory_usage"`
	DiskUsage       map[string]any `json:"disk_usage"`
	NetworkIO       map[string]any `json:"network_io"`
}

// Health statuses.
const (
	HealthHealthy = "healthy"
	HealthWarning = "warning"
	HealthError   = "error"
)

// HealthStatus is the server's component health report.
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  Time              `json:"timestamp"`
	Uptime     string            `json:"uptime"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components"`
}

// SystemStats holds file and process counters.
type SystemStats struct {
	Stats     map[string]any `json:"stats"`
	Timestamp Time           `json:"timestamp"`
}

// VersionInfo describes the server build.
type VersionInfo struct {
	AutofilmVersion string   `json:"autofilm_version"`
	PythonVersion   string   `json:"python_version"`
	Platform        string   `json:"platform"`
	Architecture    []string `json:"architecture"`
	Machine         string   `json:"machine"`
	Processor       string   `json:"processor"`
	Timestamp       Time     `json:"timestamp"`
}

// Environment describes the server's runtime paths and flags.
type Environment struct {
	Environment map[string]any `json:"environment"`
	Timestamp   Time           `json:"timestamp"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Message   string `json:"message"`
	Timestamp Time   `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// Config
// -----------------------------------------------------------------------------

// ConfigDocument is the server's current task configuration.
type ConfigDocument struct {
	Config       map[string]any `json:"config"`
	FilePath     string         `json:"file_path"`
	LastModified Time           `json:"last_modified"`
}

// ConfigUpdate replaces the server configuration.
type ConfigUpdate struct {
	Config map[string]any `json:"config"`
	Backup bool           `json:"backup"`
}

// ConfigUpdateResponse is returned by a config update.
type ConfigUpdateResponse struct {
	Message       string `json:"message"`
	BackupCreated bool   `json:"backup_created"`
	Timestamp     Time   `json:"timestamp"`
}

// ValidationResult is the server-side config check.
type ValidationResult struct {
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors"`
	Warnings  []string `json:"warnings"`
	Timestamp Time     `json:"timestamp"`
}

// ConfigBackup describes a saved configuration file.
type ConfigBackup struct {
	Filename  string `json:"filename"`
	Timestamp Time   `json:"timestamp"`
	Size      int64  `json:"size"`
}
