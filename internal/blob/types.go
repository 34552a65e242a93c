// Package blob re-exports the photo storage abstractions for stable internal imports.
package blob

import (
	"cradlecore/internal/blob/core"
)

type (
	// Driver identifies a photo backend driver.
	Driver = core.Driver
	// PutOptions configures a photo write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored photo metadata.
	Info = core.Info
	// Store is the interface for photo storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrUnsupported indicates an operation isn't supported by a driver.
	ErrUnsupported = core.ErrUnsupported
	// ErrNotFound indicates the key has no stored photo.
	ErrNotFound = core.ErrNotFound
)
