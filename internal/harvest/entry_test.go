package harvest

import "testing"

func TestListEntry_Key(t *testing.T) {
	tests := []struct {
		name     string
		entry    ListEntry
		expected string
	}{
		{"url wins", ListEntry{DisplayName: "Ana", ProfileURL: "https://example.com/ana"}, "https://example.com/ana"},
		{"name fallback", ListEntry{DisplayName: "Ana"}, "Ana"},
		{"name trimmed", ListEntry{DisplayName: "  Ana  "}, "Ana"},
		{"no identity", ListEntry{}, ""},
		{"whitespace name only", ListEntry{DisplayName: "   "}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Key(); got != tt.expected {
				t.Errorf("Key() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestEntrySet_Add_New(t *testing.T) {
	s := NewEntrySet()

	added := s.Add(ListEntry{DisplayName: "Ana", ProfileURL: "https://example.com/ana"})
	if !added {
		t.Error("Add() should return true for a new entry")
	}

	if s.Len() != 1 {
		t.Errorf("expected set length 1, got %d", s.Len())
	}
}

func TestEntrySet_Add_Duplicate(t *testing.T) {
	s := NewEntrySet()

	s.Add(ListEntry{DisplayName: "Ana", ProfileURL: "https://example.com/ana"})
	added := s.Add(ListEntry{DisplayName: "Ana Maria", ProfileURL: "https://example.com/ana"})

	if added {
		t.Error("Add() should return false for duplicate identity key")
	}

	if s.Len() != 1 {
		t.Errorf("expected set length 1, got %d", s.Len())
	}
}

func TestEntrySet_Add_NoIdentity(t *testing.T) {
	s := NewEntrySet()

	if s.Add(ListEntry{}) {
		t.Error("Add() should return false for an entry without identity")
	}

	if s.Len() != 0 {
		t.Errorf("expected empty set, got length %d", s.Len())
	}
}

func TestEntrySet_NameFallbackIdentity(t *testing.T) {
	s := NewEntrySet()

	if !s.Add(ListEntry{DisplayName: "Ana"}) {
		t.Error("entry without URL should dedup by display name")
	}
	if s.Add(ListEntry{DisplayName: "Ana"}) {
		t.Error("same display name without URL should be a duplicate")
	}
}

func TestEntrySet_InsertionOrder(t *testing.T) {
	s := NewEntrySet()

	names := []string{"charlie", "alice", "bob"}
	for _, n := range names {
		s.Add(ListEntry{DisplayName: n, ProfileURL: "https://example.com/" + n})
	}
	// Replays of earlier entries must not disturb order
	s.Add(ListEntry{DisplayName: "alice", ProfileURL: "https://example.com/alice"})

	entries := s.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, n := range names {
		if entries[i].DisplayName != n {
			t.Errorf("entry %d = %q, want %q", i, entries[i].DisplayName, n)
		}
	}
}

func TestEntrySet_EntriesReturnsCopy(t *testing.T) {
	s := NewEntrySet()
	s.Add(ListEntry{DisplayName: "Ana", ProfileURL: "https://example.com/ana"})

	entries := s.Entries()
	entries[0].DisplayName = "mutated"

	if s.Entries()[0].DisplayName != "Ana" {
		t.Error("Entries() must return a copy, not the backing slice")
	}
}
