package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config with all required fields set for testing.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	return &cfg
}

func TestValidateDeep_ValidConfig(t *testing.T) {
	cfg := validConfig(t)
	assert.NoError(t, cfg.ValidateDeep(""))
}

func TestValidateDeep_StructuralErrorFirst(t *testing.T) {
	cfg := validConfig(t)
	cfg.Backend = "bogus"
	cfg.Namespace = "bad name"

	err := cfg.ValidateDeep("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of")
	assert.NotContains(t, err.Error(), "namespace")
}

func TestValidateDeep_InvalidNamespace(t *testing.T) {
	cfg := validConfig(t)
	cfg.Namespace = "app_*"

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 1)
	assert.Equal(t, "namespace", fieldErrs[0].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "invalid namespace")
}

func TestValidateDeep_EmptyVersion(t *testing.T) {
	cfg := validConfig(t)
	cfg.Version = ""

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 1)
	assert.Equal(t, "version", fieldErrs[0].Field)
}

func TestValidateDeep_RedisAddress(t *testing.T) {
	cfg := validConfig(t)
	cfg.Backend = BackendRedis
	cfg.Redis.Addr = "no-port"
	cfg.Redis.DB = 16

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 2)
	assert.Equal(t, "redis.addr", fieldErrs[0].Field)
	assert.Equal(t, "redis.db", fieldErrs[1].Field)
}

func TestValidateDeep_RedisSettingsIgnoredForOtherBackends(t *testing.T) {
	cfg := validConfig(t)
	cfg.Redis.Addr = "no-port"
	assert.NoError(t, cfg.ValidateDeep(""))
}

func TestValidateDeep_DataDirIsFile(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	cfg.DataDir = file

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 1)
	assert.Equal(t, "data_dir", fieldErrs[0].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "not a directory")
}

func TestValidateDeep_DataDirMissingIsFine(t *testing.T) {
	cfg := validConfig(t)
	cfg.DataDir = filepath.Join(t.TempDir(), "later")
	assert.NoError(t, cfg.ValidateDeep(""))
}

func TestValidateDeep_ConfigFileIsDirectory(t *testing.T) {
	cfg := validConfig(t)
	dir := t.TempDir()

	err := cfg.ValidateDeep(dir)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 1)
	assert.Equal(t, "config_file", fieldErrs[0].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "is a directory")
}

func TestValidateDeep_ConfigFileMissingIsFine(t *testing.T) {
	cfg := validConfig(t)
	assert.NoError(t, cfg.ValidateDeep(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestWarnings(t *testing.T) {
	cfg := validConfig(t)
	assert.Empty(t, cfg.Warnings())

	cfg.Database.MaxIdleConns = 10
	cfg.Backend = BackendMemory
	cfg.Redis.Password = "secret"

	warnings := cfg.Warnings()
	require.Len(t, warnings, 3)
	assert.Equal(t, "Database", warnings[0].Category)
	assert.Equal(t, "Backend", warnings[1].Category)
	assert.Equal(t, "Redis", warnings[2].Category)
}
