// Package upload stores the binary content of uploaded files. Metadata
// lives in the database, implementations only see stored object names.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

type Store interface {
	// Put writes src under the given name and returns the number of
	// bytes written. Names are chosen by the caller and must already be
	// clean, see CleanFilename.
	Put(ctx context.Context, name string, src io.Reader) (int64, error)

	// Open returns the stored content. A missing object reports
	// fs.ErrNotExist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	Delete(ctx context.Context, name string) error
}

// Config selects and parametrizes a Store implementation.
type Config struct {
	Type string // "local" or "s3"

	// local
	Dir string

	// s3
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
}

func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case "", "local":
		if cfg.Dir == "" {
			return nil, errors.New("local upload store requires a directory")
		}
		return NewLocalStore(cfg.Dir)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, errors.New("s3 upload store requires a bucket")
		}
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown upload store type: %s", cfg.Type)
	}
}

func CleanFilename(filename string) (string, error) {
	filename = filepath.Base(filename)
	filename = strings.TrimSpace(filename)
	if strings.Contains(filename, "/") || strings.Contains(filename, `\`) {
		return "", errors.New("filename contains a slash")
	}
	if filename == "" || filename == "." {
		return "", errors.New("filename is empty")
	}
	return filename, nil
}
