// Package core defines the abstractions shared by the photo storage backends.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete photo storage backend implementation.
type Driver string

const (
	// DriverFilesystem stores photos under a local directory (default, dev).
	DriverFilesystem Driver = "fs"
	// DriverS3 stores photos in an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps photos in process memory (tests).
	DriverMemory Driver = "memory"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // User metadata (small, flat key-value)
}

// SignedURLOptions holds options for generating a pre-signed URL.
type SignedURLOptions struct {
	Expiry time.Duration // default 15m
}

// Info describes a stored photo object.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store is the interface photo backends implement. Put replaces any existing
// object at the key, matching profile-photo semantics where a new upload takes
// the place of the old one.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

// ErrUnsupported is returned when an optional capability is not available.
var ErrUnsupported = errors.New("blob: unsupported operation")

// ErrNotFound is returned when the requested key has no stored object.
var ErrNotFound = errors.New("blob: not found")
