package harvest

import (
	"net/url"
	"testing"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parsing %q: %v", raw, err)
	}
	return u
}

func TestEntryExtractor_BasicRows(t *testing.T) {
	html := `<div>
		<div><a href="https://example.com/alice">alice</a></div>
		<div><a href="https://example.com/bob">bob</a></div>
	</div>`

	entries := NewEntryExtractor(mustParse(t, "https://example.com"))(html)

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].DisplayName != "alice" || entries[0].ProfileURL != "https://example.com/alice" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
}

func TestEntryExtractor_RelativeHrefResolved(t *testing.T) {
	html := `<a href="/carol/">carol</a>`

	entries := NewEntryExtractor(mustParse(t, "https://example.com/profile"))(html)

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ProfileURL != "https://example.com/carol/" {
		t.Errorf("ProfileURL = %q, want resolved absolute URL", entries[0].ProfileURL)
	}
}

func TestEntryExtractor_SkipsNonProfileAnchors(t *testing.T) {
	html := `<div>
		<a href="#">top</a>
		<a href="javascript:void(0)">menu</a>
		<a href="https://example.com/dave"><img src="avatar.jpg"></a>
		<a href="https://example.com/dave">dave</a>
	</div>`

	entries := NewEntryExtractor(mustParse(t, "https://example.com"))(html)

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d: %+v", len(entries), entries)
	}
	if entries[0].DisplayName != "dave" {
		t.Errorf("DisplayName = %q, want %q", entries[0].DisplayName, "dave")
	}
}

func TestEntryExtractor_PartialRowTolerated(t *testing.T) {
	// A row still streaming in renders its anchor without text. The valid
	// rows around it must all come through.
	html := `<ul>
		<li><a href="https://example.com/u1">u1</a></li>
		<li><a href="https://example.com/half-rendered">   </a></li>
		<li><a href="https://example.com/u2">u2</a></li>
		<li><a href="https://example.com/u3">u3</a></li>
	</ul>`

	entries := NewEntryExtractor(mustParse(t, "https://example.com"))(html)

	if len(entries) != 3 {
		t.Fatalf("expected 3 valid entries, got %d", len(entries))
	}
	for i, want := range []string{"u1", "u2", "u3"} {
		if entries[i].DisplayName != want {
			t.Errorf("entry %d = %q, want %q", i, entries[i].DisplayName, want)
		}
	}
}

func TestEntryExtractor_FragmentStripped(t *testing.T) {
	html := `<a href="https://example.com/erin#section">erin</a>`

	entries := NewEntryExtractor(nil)(html)

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ProfileURL != "https://example.com/erin" {
		t.Errorf("ProfileURL = %q, want fragment stripped", entries[0].ProfileURL)
	}
}

func TestEntryExtractor_NoBaseFallsBackToName(t *testing.T) {
	html := `<a href="/frank">frank</a>`

	entries := NewEntryExtractor(nil)(html)

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ProfileURL != "" {
		t.Errorf("ProfileURL = %q, want empty for unresolvable href", entries[0].ProfileURL)
	}
	if entries[0].Key() != "frank" {
		t.Errorf("Key() = %q, want display-name fallback", entries[0].Key())
	}
}

func TestEntryExtractor_EmptySnapshot(t *testing.T) {
	if entries := NewEntryExtractor(nil)(""); len(entries) != 0 {
		t.Errorf("expected no entries from empty snapshot, got %d", len(entries))
	}
}
