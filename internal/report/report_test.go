package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dossier/dossier/internal/harvest"
	"github.com/dossier/dossier/internal/profile"
)

func TestRender_FullResult(t *testing.T) {
	res := profile.Result{
		Target: "https://example.com/anadev/",
		Identity: profile.Identity{
			Handle:      "anadev",
			DisplayName: "Ana Dev",
			Bio:         "Building things.",
			Followers:   "1,234",
			Following:   "567",
		},
		Lists: []profile.List{
			{
				Kind: profile.ListFollowers,
				Entries: []harvest.ListEntry{
					{DisplayName: "bob", ProfileURL: "https://example.com/bob"},
					{DisplayName: "carol", ProfileURL: "https://example.com/carol"},
				},
				Status: harvest.StatusReachedEnd,
				Cycles: 3,
			},
			{
				Kind:   profile.ListFollowing,
				Status: harvest.StatusStalledNoProgress,
				Cycles: 14,
			},
		},
		Posts: []profile.Post{
			{Permalink: "https://example.com/p/AAA/", Caption: "sunset", ImageURL: "https://cdn.example.com/1.jpg"},
		},
		ScrapedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	buf := &bytes.Buffer{}
	if err := Render(buf, res); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"Ana Dev",
		"@anadev",
		"Building things.",
		"https://example.com/bob",
		"followers (2)",
		"complete",
		"following (0)",
		"stopped yielding new entries",
		"https://example.com/p/AAA/",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRender_EmptyResult(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Render(buf, profile.Result{}); err != nil {
		t.Fatalf("Render() must not fail on an empty result: %v", err)
	}
	if !strings.Contains(buf.String(), "<!DOCTYPE html>") {
		t.Error("expected a valid page even with no data")
	}
}

func TestRender_EscapesMarkup(t *testing.T) {
	res := profile.Result{
		Identity: profile.Identity{
			Handle: "x",
			Bio:    `<script>alert("x")</script>`,
		},
		Lists: []profile.List{
			{
				Kind: profile.ListFollowers,
				Entries: []harvest.ListEntry{
					{DisplayName: `<img onerror="x">`, ProfileURL: "https://example.com/u"},
				},
				Status: harvest.StatusReachedEnd,
			},
		},
	}

	buf := &bytes.Buffer{}
	if err := Render(buf, res); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	html := buf.String()

	if strings.Contains(html, "<script>alert") {
		t.Error("bio markup was not escaped")
	}
	if strings.Contains(html, `<img onerror`) {
		t.Error("entry markup was not escaped")
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		status   harvest.Status
		expected string
	}{
		{harvest.StatusReachedEnd, "complete"},
		{harvest.StatusSizeCap, "truncated at size cap"},
		{harvest.StatusNoSurface, "not collected: list not found"},
		{harvest.Status("weird"), "weird"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := statusLabel(tt.status); got != tt.expected {
				t.Errorf("statusLabel(%q) = %q, want %q", tt.status, got, tt.expected)
			}
		})
	}
}
