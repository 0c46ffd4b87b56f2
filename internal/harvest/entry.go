// Package harvest implements incremental scroll-and-collect harvesting of
// lazily rendered list dialogs (followers, following, friends). The host
// page never signals list completion, so the harvester combines several
// stall heuristics with hard caps to guarantee bounded, best-effort-complete
// collection.
package harvest

import "strings"

// ListEntry is one harvested list item. Entries are immutable once produced.
type ListEntry struct {
	DisplayName string `json:"display_name" yaml:"display_name"`
	ProfileURL  string `json:"profile_url" yaml:"profile_url"`
}

// Key returns the deduplication identity for the entry: the profile URL
// when present, otherwise the display name. An entry with neither has no
// identity and is never collected.
func (e ListEntry) Key() string {
	if e.ProfileURL != "" {
		return e.ProfileURL
	}
	return strings.TrimSpace(e.DisplayName)
}

// EntrySet accumulates entries keyed by identity, preserving first-seen
// order. It only ever grows; entries are never mutated or removed.
type EntrySet struct {
	seen    map[string]struct{}
	entries []ListEntry
}

// NewEntrySet creates an empty entry set.
func NewEntrySet() *EntrySet {
	return &EntrySet{seen: make(map[string]struct{})}
}

// Add inserts an entry if its identity key is new. Returns true when the
// entry was added, false for duplicates and entries without an identity.
func (s *EntrySet) Add(e ListEntry) bool {
	key := e.Key()
	if key == "" {
		return false
	}
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.entries = append(s.entries, e)
	return true
}

// Len returns the number of unique entries collected so far.
func (s *EntrySet) Len() int {
	return len(s.entries)
}

// Entries returns the collected entries in first-seen order.
func (s *EntrySet) Entries() []ListEntry {
	out := make([]ListEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
