// Package export reads and writes portable archives of the tracker state so
// users can move their data between installations.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"cradlecore/pkg/domain"
)

// Version identifies the archive format.
const Version = 1

// Archive is the JSON document produced by Export and consumed by Import.
type Archive struct {
	Version   int             `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Babies    []domain.Baby   `json:"babies"`
	Settings  domain.Settings `json:"settings"`
}

// Snapshot builds an archive from the given state.
func Snapshot(state domain.State) Archive {
	state = state.Clone()
	return Archive{
		Version:   Version,
		Timestamp: time.Now().UTC(),
		Babies:    state.Babies,
		Settings:  state.Settings,
	}
}

// Write serializes the state as an indented JSON archive.
func Write(w io.Writer, state domain.State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Snapshot(state)); err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	return nil
}

// Read parses an archive, rejecting payloads that are not valid JSON or that
// declare an unknown version. Babies are normalized so archives with missing
// ids or collections import cleanly.
func Read(r io.Reader) (Archive, error) {
	var a Archive
	dec := json.NewDecoder(r)
	if err := dec.Decode(&a); err != nil {
		return Archive{}, fmt.Errorf("decode archive: %w", err)
	}
	if a.Version != Version {
		return Archive{}, fmt.Errorf("unsupported archive version %d", a.Version)
	}
	for i := range a.Babies {
		a.Babies[i].Normalize()
	}
	return a, nil
}

// Merge folds the archive's babies into the existing list: a baby whose id is
// already present replaces the local copy in place, others are appended. The
// input slice is not modified.
func Merge(existing []domain.Baby, incoming []domain.Baby) []domain.Baby {
	merged := make([]domain.Baby, len(existing))
	for i := range existing {
		merged[i] = existing[i].Clone()
	}
	for _, in := range incoming {
		replaced := false
		for i := range merged {
			if merged[i].ID == in.ID {
				merged[i] = in.Clone()
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, in.Clone())
		}
	}
	return merged
}
