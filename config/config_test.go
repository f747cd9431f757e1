package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "local", cfg.UploadStore)
}

func TestLoadFile(t *testing.T) {

	path := filepath.Join(t.TempDir(), "kb.ini")
	require.NoError(t, os.WriteFile(path, []byte(`
listen = 0.0.0.0:9090
log_level = debug
uploads = s3
s3_bucket = kb-files
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "s3", cfg.UploadStore)
	assert.Equal(t, "kb-files", cfg.S3Bucket)

	// unset keys keep their defaults
	assert.Equal(t, "./uploads", cfg.UploadDir)
}

func TestEnvOverridesFile(t *testing.T) {

	path := filepath.Join(t.TempDir(), "kb.ini")
	require.NoError(t, os.WriteFile(path, []byte("listen = 0.0.0.0:9090\n"), 0644))

	t.Setenv("KB_LISTEN", "127.0.0.1:7070")
	t.Setenv("KB_DB", "sqlite3:test.sqlite3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7070", cfg.Listen)
	assert.Equal(t, "sqlite3:test.sqlite3", cfg.DB)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.ini"))
	assert.Error(t, err)
}
