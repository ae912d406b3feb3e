// Package snapshot persists the compendium snapshot as one JSON blob
package snapshot

//go:generate mockgen -destination=mock/mock_repository.go -package=snapshotmock github.com/KirkDiggler/rpg-compendium/internal/repositories/snapshot Repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
)

// Repository stores and loads the single snapshot blob
type Repository interface {
	// Save replaces the stored snapshot
	// Returns errors.InvalidArgument for a nil snapshot
	Save(ctx context.Context, input *SaveInput) (*SaveOutput, error)

	// Load reads the stored snapshot
	// Returns errors.NotFound when nothing was saved yet
	// Returns errors.DataLoss when the blob is not a JSON object
	Load(ctx context.Context, input *LoadInput) (*LoadOutput, error)
}

// SaveInput defines the input for saving a snapshot
type SaveInput struct {
	Snapshot *compendium.Snapshot
}

// SaveOutput defines the output for saving a snapshot
type SaveOutput struct {
	Bytes int
}

// LoadInput defines the input for loading a snapshot
type LoadInput struct{}

// LoadOutput defines the output for loading a snapshot
type LoadOutput struct {
	Snapshot *compendium.Snapshot
	Report   *Report
}

// Report lists problems found while decoding an otherwise usable snapshot
type Report struct {
	Warnings []string
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// OK reports whether decoding found nothing to warn about
func (r *Report) OK() bool {
	return r == nil || len(r.Warnings) == 0
}

// Encode serializes a snapshot
func Encode(s *compendium.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, errors.InvalidArgument("snapshot cannot be nil")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal snapshot")
	}
	return data, nil
}

// Decode parses a snapshot best-effort. Missing, empty or wrongly shaped
// top-level fields become report warnings; packsByType is re-derived when
// it cannot be used.
func Decode(data []byte) (*compendium.Snapshot, *Report, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.CodeDataLoss, "snapshot is not valid JSON")
	}

	report := &Report{}
	out := &compendium.Snapshot{}

	var generatedAt *string
	if !decodeField(fields, "generatedAt", &generatedAt, report) {
		generatedAt = nil
	}
	switch {
	case generatedAt == nil:
		if _, ok := present(fields, "generatedAt"); !ok {
			report.warn("generatedAt: missing")
		}
	case *generatedAt == "":
		report.warn("generatedAt: empty")
	default:
		at, err := time.Parse(time.RFC3339Nano, *generatedAt)
		if err != nil {
			report.warn("generatedAt: unparseable %q", *generatedAt)
		} else {
			out.GeneratedAt = at
		}
	}

	var cacheVersion *string
	if !decodeField(fields, "cacheVersion", &cacheVersion, report) {
		cacheVersion = nil
	}
	switch {
	case cacheVersion == nil:
		if _, ok := present(fields, "cacheVersion"); !ok {
			report.warn("cacheVersion: missing")
		}
	case *cacheVersion == "":
		report.warn("cacheVersion: empty")
	default:
		out.CacheVersion = *cacheVersion
	}

	var packs map[string]*compendium.PackSnapshot
	if !decodeField(fields, "packs", &packs, report) {
		packs = nil
	}
	switch {
	case packs == nil:
		if _, ok := present(fields, "packs"); !ok {
			report.warn("packs: missing")
		}
		out.Packs = map[string]*compendium.PackSnapshot{}
	case len(packs) == 0:
		report.warn("packs: empty")
		out.Packs = packs
	default:
		out.Packs = packs
	}

	var packsByType map[string][]string
	if !decodeField(fields, "packsByType", &packsByType, report) {
		packsByType = nil
	}
	switch {
	case packsByType == nil:
		if _, ok := present(fields, "packsByType"); !ok {
			report.warn("packsByType: missing, derived from packs")
		}
		out.RefreshPacksByType()
	case len(packsByType) == 0:
		report.warn("packsByType: empty, derived from packs")
		out.RefreshPacksByType()
	default:
		out.PacksByType = packsByType
	}

	return out, report, nil
}

// present returns the raw value of a field; a JSON null counts as absent
func present(fields map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return nil, false
	}
	return raw, true
}

// decodeField unmarshals one field into dst. A value of the wrong shape is
// reported and ignored so the rest of the snapshot stays usable.
func decodeField(fields map[string]json.RawMessage, name string, dst any, report *Report) bool {
	raw, ok := present(fields, name)
	if !ok {
		return true
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		report.warn("%s: invalid, ignored", name)
		return false
	}
	return true
}
