package browser

import (
	"errors"
	"strings"
)

// Sentinel errors for pages served instead of the requested profile. Both
// mean the session cookie is missing, expired, or flagged; the caller decides
// whether to abort or continue with other targets.
var (
	ErrLoginWall = errors.New("login wall: session not authenticated")
	ErrChallenge = errors.New("challenge page: session flagged for verification")
)

// ErrPageGone means the tab or browser process died underneath us. Unlike a
// per-operation failure it cannot recover, so callers abort the run.
var ErrPageGone = errors.New("page closed or crashed")

// CheckAccess inspects the landed URL and document for signs that the site
// redirected away from the requested page. The URL check runs first because
// redirects are the cheapest, most reliable tell.
func CheckAccess(pageURL, html string) error {
	lowered := strings.ToLower(pageURL)
	switch {
	case strings.Contains(lowered, "/challenge"),
		strings.Contains(lowered, "/checkpoint"):
		return ErrChallenge
	case strings.Contains(lowered, "/accounts/login"),
		strings.Contains(lowered, "/login.php"),
		strings.Contains(lowered, "/login?"),
		strings.HasSuffix(lowered, "/login"),
		strings.HasSuffix(lowered, "/login/"):
		return ErrLoginWall
	}

	doc := strings.ToLower(html)
	if strings.Contains(doc, `name="password"`) &&
		(strings.Contains(doc, `name="username"`) || strings.Contains(doc, `name="email"`)) {
		return ErrLoginWall
	}
	return nil
}
