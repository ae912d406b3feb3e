package compendium

import (
	"sort"
	"time"
)

// PackSnapshot is one materialized collection inside a Snapshot
type PackSnapshot struct {
	Label        string               `json:"label"`
	DocumentType string               `json:"documentType"`
	Entries      []IndexEntry         `json:"entries"`
	Documents    map[string]*Document `json:"documents"`
}

// Snapshot is the pre-materialized state of every cached collection.
// PacksByType is derived from Packs and can be recomputed at any time.
type Snapshot struct {
	GeneratedAt  time.Time                `json:"generatedAt"`
	CacheVersion string                   `json:"cacheVersion"`
	Packs        map[string]*PackSnapshot `json:"packs"`
	PacksByType  map[string][]string      `json:"packsByType"`
}

// DerivePacksByType infers, from index entries, which packs hold which
// document types. Pack name lists are sorted.
func DerivePacksByType(packs map[string]*PackSnapshot) map[string][]string {
	sets := make(map[string]map[string]struct{})
	for name, pack := range packs {
		if pack == nil {
			continue
		}
		for _, entry := range pack.Entries {
			if entry.Type == "" {
				continue
			}
			kind := string(entry.Type)
			if sets[kind] == nil {
				sets[kind] = make(map[string]struct{})
			}
			sets[kind][name] = struct{}{}
		}
	}

	out := make(map[string][]string, len(sets))
	for kind, names := range sets {
		list := make([]string, 0, len(names))
		for name := range names {
			list = append(list, name)
		}
		sort.Strings(list)
		out[kind] = list
	}
	return out
}

// RefreshPacksByType recomputes PacksByType in place
func (s *Snapshot) RefreshPacksByType() {
	if s == nil {
		return
	}
	s.PacksByType = DerivePacksByType(s.Packs)
}

// DocumentCount totals the documents across all packs
func (s *Snapshot) DocumentCount() int {
	if s == nil {
		return 0
	}
	total := 0
	for _, pack := range s.Packs {
		if pack != nil {
			total += len(pack.Documents)
		}
	}
	return total
}
