package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/colonyops/taskbook/internal/core/config"
	"github.com/colonyops/taskbook/internal/core/user"
	"github.com/colonyops/taskbook/internal/taskbook"
)

// Output modes for command results.
const (
	OutputAuto  = "auto"
	OutputJSON  = "json"
	OutputTable = "table"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
	Backend    string
	User       string
	Output     string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// actor resolves the acting user named by --user.
func (f *Flags) actor(app *taskbook.App) (user.User, error) {
	if f.User == "" {
		return user.User{}, fmt.Errorf("no acting user: pass --user or set TASKBOOK_USER")
	}
	return app.Accounts.Resolve(f.User)
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "taskbook", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "taskbook")
}

// DefaultLogFile returns the default log file path using the system's state directory.
// On macOS: ~/Library/Logs/taskbook/taskbook.log
// On Linux: $XDG_STATE_HOME/taskbook/taskbook.log (defaults to ~/.local/state/taskbook/taskbook.log)
func DefaultLogFile() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome != "" {
		return filepath.Join(stateHome, "taskbook", "taskbook.log")
	}

	home, _ := os.UserHomeDir()

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "taskbook", "taskbook.log")
	}

	return filepath.Join(home, ".local", "state", "taskbook", "taskbook.log")
}
