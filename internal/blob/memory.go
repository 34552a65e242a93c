package blob

import (
	memorystore "cradlecore/internal/infra/blob/memory"
)

// NewMemory returns an in-memory photo Store suitable for tests.
func NewMemory() Store { return memorystore.New() }
