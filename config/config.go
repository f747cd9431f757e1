// Package config loads the service configuration from an ini file, with
// environment variables taking precedence over both file and defaults.
package config

import (
	"os"

	"gopkg.in/ini.v1"

	"kb/upload"
)

type Config struct {
	Listen   string // ip:port to serve HTTP on
	DB       string // sql database url, see github.com/xo/dburl
	LogLevel string // trace, debug, info, warn, error

	// uploads
	UploadStore string // "local" or "s3"
	UploadDir   string
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
}

func Default() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		DB:          "sqlite3:kb.sqlite3?_busy_timeout=10000&_journal=WAL&_sync=NORMAL&cache=shared",
		LogLevel:    "info",
		UploadStore: "local",
		UploadDir:   "./uploads",
	}
}

// Load reads the given ini file on top of the defaults. An empty path skips
// the file. KB_* environment variables override everything.
func Load(path string) (*Config, error) {

	cfg := Default()

	if path != "" {
		file, err := ini.Load(path)
		if err != nil {
			return nil, err
		}
		keys := file.Section("").KeysHash()
		fromMap(cfg, keys)
	}

	fromMap(cfg, envKeys())

	return cfg, nil
}

func fromMap(cfg *Config, keys map[string]string) {
	assign(keys, "listen", &cfg.Listen)
	assign(keys, "db", &cfg.DB)
	assign(keys, "log_level", &cfg.LogLevel)
	assign(keys, "uploads", &cfg.UploadStore)
	assign(keys, "upload_dir", &cfg.UploadDir)
	assign(keys, "s3_bucket", &cfg.S3Bucket)
	assign(keys, "s3_prefix", &cfg.S3Prefix)
	assign(keys, "s3_region", &cfg.S3Region)
	assign(keys, "s3_access_key", &cfg.S3AccessKey)
	assign(keys, "s3_secret_key", &cfg.S3SecretKey)
}

func assign(keys map[string]string, key string, dst *string) {
	if value, ok := keys[key]; ok && value != "" {
		*dst = value
	}
}

func envKeys() map[string]string {
	var keys = map[string]string{}
	for key, env := range map[string]string{
		"listen":        "KB_LISTEN",
		"db":            "KB_DB",
		"log_level":     "KB_LOG_LEVEL",
		"uploads":       "KB_UPLOADS",
		"upload_dir":    "KB_UPLOAD_DIR",
		"s3_bucket":     "KB_S3_BUCKET",
		"s3_prefix":     "KB_S3_PREFIX",
		"s3_region":     "KB_S3_REGION",
		"s3_access_key": "KB_S3_ACCESS_KEY",
		"s3_secret_key": "KB_S3_SECRET_KEY",
	} {
		if value, ok := os.LookupEnv(env); ok {
			keys[key] = value
		}
	}
	return keys
}

// Uploads maps the upload-related keys to an upload.Config.
func (cfg *Config) Uploads() upload.Config {
	return upload.Config{
		Type:        cfg.UploadStore,
		Dir:         cfg.UploadDir,
		S3Bucket:    cfg.S3Bucket,
		S3Prefix:    cfg.S3Prefix,
		S3Region:    cfg.S3Region,
		S3AccessKey: cfg.S3AccessKey,
		S3SecretKey: cfg.S3SecretKey,
	}
}
