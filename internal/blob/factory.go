package blob

import (
	"context"
	"fmt"
	"os"
)

// Open selects a photo Store implementation using environment variables.
//
//	CRADLECORE_PHOTO_DRIVER: fs|s3|memory (default fs)
//	CRADLECORE_PHOTO_FS_ROOT: directory root when driver=fs (default ./cradledata/photos)
//	(S3 specific variables documented in the s3 backend)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("CRADLECORE_PHOTO_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		root := os.Getenv("CRADLECORE_PHOTO_FS_ROOT")
		return NewFilesystem(root)
	case DriverS3:
		return OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown photo driver %s", driver)
	}
}
