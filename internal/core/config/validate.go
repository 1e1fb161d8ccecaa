package config

import (
	"fmt"
	"net"
	"os"
	"regexp"

	"github.com/hay-kot/criterio"
)

// namespacePattern keeps namespaces free of glob metacharacters so export
// patterns such as "<namespace>_*" stay literal.
var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.-]*$`)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration
// including naming rules, backend reachability settings, and file
// accessibility. The configPath argument specifies the config file location
// to validate (empty string skips config file check).
// This calls Validate() first for basic structural validation, then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateNaming(),
		c.validateBackend(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		warnings = append(warnings, ValidationWarning{
			Category: "Database",
			Item:     "max_idle_conns",
			Message:  fmt.Sprintf("max_idle_conns (%d) exceeds max_open_conns (%d) and will be capped", c.Database.MaxIdleConns, c.Database.MaxOpenConns),
		})
	}

	if c.Backend == BackendMemory {
		warnings = append(warnings, ValidationWarning{
			Category: "Backend",
			Item:     string(c.Backend),
			Message:  "memory backend discards all data when the process exits",
		})
	}

	if c.Backend != BackendRedis && c.Redis.Password != "" {
		warnings = append(warnings, ValidationWarning{
			Category: "Redis",
			Item:     "password",
			Message:  "redis password is set but the redis backend is not selected",
		})
	}

	return warnings
}

// validateFileAccess checks the config file and data directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func (c *Config) validateNaming() error {
	var errs criterio.FieldErrorsBuilder
	if !namespacePattern.MatchString(c.Namespace) {
		errs = errs.Append("namespace", fmt.Errorf("invalid namespace %q: use letters, digits, dots and dashes", c.Namespace))
	}
	if c.Version == "" {
		errs = errs.Append("version", fmt.Errorf("version cannot be empty"))
	}
	return errs.ToError()
}

// validateBackend checks the settings of the selected backend only.
func (c *Config) validateBackend() error {
	if c.Backend != BackendRedis {
		return nil
	}

	var errs criterio.FieldErrorsBuilder
	if _, _, err := net.SplitHostPort(c.Redis.Addr); err != nil {
		errs = errs.Append("redis.addr", fmt.Errorf("invalid address %q: %w", c.Redis.Addr, err))
	}
	if c.Redis.DB > 15 {
		errs = errs.Append("redis.db", fmt.Errorf("database index %d is above the default limit of 15", c.Redis.DB))
	}
	return errs.ToError()
}
