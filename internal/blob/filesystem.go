package blob

import (
	"cradlecore/internal/infra/blob/fs"
)

// NewFilesystem constructs a filesystem-backed photo Store rooted at the
// provided path. Returns the Store interface so call sites don't depend on the
// concrete implementation.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}
