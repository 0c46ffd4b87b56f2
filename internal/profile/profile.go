// Package profile orchestrates a full scrape of one social profile: the
// rendered header, each requested connection list, and the visible post grid.
package profile

import (
	"time"

	"github.com/dossier/dossier/internal/harvest"
)

// ListKind names one harvestable connection list.
type ListKind string

const (
	ListFollowers ListKind = "followers"
	ListFollowing ListKind = "following"
	ListFriends   ListKind = "friends"
)

// DefaultLists is what a scrape collects when the caller does not choose.
var DefaultLists = []ListKind{ListFollowers, ListFollowing}

// Identity is what the rendered profile header reveals. Counts stay as the
// display strings the page shows ("1,234" or "1.2K"): they are approximations
// by the time the page renders them, and reformatting would pretend otherwise.
type Identity struct {
	Handle      string `json:"handle" yaml:"handle"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Bio         string `json:"bio,omitempty" yaml:"bio,omitempty"`
	Posts       string `json:"posts,omitempty" yaml:"posts,omitempty"`
	Followers   string `json:"followers,omitempty" yaml:"followers,omitempty"`
	Following   string `json:"following,omitempty" yaml:"following,omitempty"`
	Friends     string `json:"friends,omitempty" yaml:"friends,omitempty"`
}

// Post is one tile from the visible timeline grid. No per-post pagination:
// what the grid shows is what is collected.
type Post struct {
	Permalink string `json:"permalink" yaml:"permalink"`
	Caption   string `json:"caption,omitempty" yaml:"caption,omitempty"`
	ImageURL  string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
}

// List is one harvested connection list with its terminal status, so a
// reader can tell a complete list from one that stalled partway.
type List struct {
	Kind    ListKind            `json:"kind" yaml:"kind"`
	Entries []harvest.ListEntry `json:"entries" yaml:"entries"`
	Status  harvest.Status      `json:"status" yaml:"status"`
	Cycles  int                 `json:"cycles" yaml:"cycles"`
}

// Result is the complete scrape of one profile.
type Result struct {
	Target    string    `json:"target" yaml:"target"`
	Identity  Identity  `json:"identity" yaml:"identity"`
	Lists     []List    `json:"lists" yaml:"lists"`
	Posts     []Post    `json:"posts,omitempty" yaml:"posts,omitempty"`
	ScrapedAt time.Time `json:"scraped_at" yaml:"scraped_at"`
}
