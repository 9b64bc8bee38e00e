package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	AppName    = "percolator-go"
	AppVersion = "0.3.0"
)

// UserAgent is sent on RPC and websocket requests.
var UserAgent = fmt.Sprintf("%s/%s (%s; %s)", AppName, AppVersion, runtime.GOOS, runtime.GOARCH)

// GetWorkspaceDir returns the root directory for runtime data (snapshot
// database, keeper lock). A local "_workspace" directory wins if present
// (portable/dev mode); otherwise the OS data directory is used.
func GetWorkspaceDir() string {
	localDir := "_workspace"
	if _, err := os.Stat(localDir); err == nil {
		return localDir
	}

	var baseDir string
	switch runtime.GOOS {
	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			baseDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, _ := os.UserHomeDir()
		baseDir = filepath.Join(home, "Library", "Application Support")
	case "linux":
		// XDG_DATA_HOME, else ~/.local/share
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			home, _ := os.UserHomeDir()
			baseDir = filepath.Join(home, ".local", "share")
		}
	default:
		return localDir
	}

	return filepath.Join(baseDir, AppName)
}

// DefaultDBPath is the snapshot database inside the workspace.
func DefaultDBPath() string {
	return filepath.Join(GetWorkspaceDir(), "snapshots.db")
}

// EnsureDir creates the directory if it doesn't exist (0755).
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// CreateLockFile prevents two keepers from cranking with the same caller
// from one workspace. It returns a release func, or an error if the lock is
// already held.
func CreateLockFile(workDir, name string) (func(), error) {
	lockPath := filepath.Join(workDir, name+".lock")

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("another instance is already running (lock file exists: %s)", lockPath)
		}
		return nil, err
	}

	// PID for debugging stale locks
	fmt.Fprintf(f, "%d", os.Getpid())
	f.Close()

	return func() { os.Remove(lockPath) }, nil
}

// ResolveConfigPath finds config.yaml.
// Priority: explicit path, ./configs/config.yaml, OS config dir.
func ResolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	defaultPath := filepath.Join("configs", "config.yaml")

	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}

	configRoot, err := os.UserConfigDir()
	if err == nil {
		osPath := filepath.Join(configRoot, AppName, "config.yaml")
		if _, err := os.Stat(osPath); err == nil {
			return osPath
		}
	}

	// let LoadConfig report the missing file
	return defaultPath
}
