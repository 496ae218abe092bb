package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, DefaultDir(), cfg.Storage.Dir)
	assert.Equal(t, filepath.Join(DefaultDir(), "queue.db"), cfg.Storage.SQLitePath)
	assert.Equal(t, "us-east-1", cfg.Storage.S3.Region)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Empty(t, cfg.Storage.Namespace)
}

func TestLoad_NilFlagSet(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("CQ_STORAGE_BACKEND", "s3")
	t.Setenv("CQ_STORAGE_S3_BUCKET", "events")
	t.Setenv("CQ_LOG_LEVEL", "debug")

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, BackendS3, cfg.Storage.Backend)
	assert.Equal(t, "events", cfg.Storage.S3.Bucket)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_FileThenEnvThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  backend: sqlite
  sqlite_path: /tmp/from-file.db
  namespace: from-file
log:
  level: info
`), 0o600))

	t.Setenv("CQ_STORAGE_NAMESPACE", "from-env")

	cfg, err := Load(newFlags(t, "--config", path, "--log-level", "error"))
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/from-file.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "from-env", cfg.Storage.Namespace)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoad_UnsetFlagDoesNotOverrideEnv(t *testing.T) {
	t.Setenv("CQ_STORAGE_BACKEND", "memory")
	cfg, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "absent.yaml")))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	ok := Config{Storage: Storage{Backend: BackendMemory}, Log: Log{Level: "info"}}
	require.NoError(t, ok.Validate())

	cases := map[string]Config{
		"unknown backend": {Storage: Storage{Backend: "floppy"}, Log: Log{Level: "info"}},
		"file no dir":     {Storage: Storage{Backend: BackendFile}, Log: Log{Level: "info"}},
		"sqlite no path":  {Storage: Storage{Backend: BackendSQLite}, Log: Log{Level: "info"}},
		"postgres no dsn": {Storage: Storage{Backend: BackendPostgres}, Log: Log{Level: "info"}},
		"s3 no bucket":    {Storage: Storage{Backend: BackendS3}, Log: Log{Level: "info"}},
		"bad log level":   {Storage: Storage{Backend: BackendMemory}, Log: Log{Level: "loud"}},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, c.Validate())
		})
	}
}
