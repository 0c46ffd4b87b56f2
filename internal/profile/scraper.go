package profile

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dossier/dossier/internal/browser"
	"github.com/dossier/dossier/internal/harvest"
	"github.com/dossier/dossier/internal/logger"
)

// Page is the tab surface the scraper drives. browser.Page satisfies it; it
// also covers harvest.Page, so the same tab is handed to the harvester.
type Page interface {
	Navigate(ctx context.Context, url, waitSelector string) error
	Evaluate(ctx context.Context, expr string, out any) error
	CloseDialog(ctx context.Context) error
	HTML(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
}

// Options selects what one scrape collects.
type Options struct {
	TargetURL  string `validate:"required,url"`
	Lists      []ListKind
	MaxPosts   int    `validate:"gte=0"`
	DialogRoot string // CSS selector for the list dialog container
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Lists:      DefaultLists,
		MaxPosts:   12,
		DialogRoot: `div[role="dialog"]`,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Scraper runs the full profile collection sequence on one tab.
type Scraper struct {
	page   Page
	config harvest.Config
}

// New creates a scraper. The page must already carry an authenticated
// session; Run does not log in.
func New(page Page, cfg harvest.Config) *Scraper {
	return &Scraper{page: page, config: cfg}
}

// Run scrapes the target profile: header identity, each requested list, then
// the visible post grid. Login walls, challenge pages, and a dead tab abort
// the whole run; a list that cannot be collected yields an empty List with
// its status and the run continues.
func (s *Scraper) Run(ctx context.Context, opts Options) (Result, error) {
	if opts.DialogRoot == "" {
		opts.DialogRoot = DefaultOptions().DialogRoot
	}
	if len(opts.Lists) == 0 {
		opts.Lists = DefaultLists
	}
	if err := validate.Struct(opts); err != nil {
		return Result{}, fmt.Errorf("invalid scrape options: %w", err)
	}

	res := Result{
		Target:    opts.TargetURL,
		ScrapedAt: time.Now(),
	}

	if err := s.page.Navigate(ctx, opts.TargetURL, "body"); err != nil {
		return res, fmt.Errorf("loading profile: %w", err)
	}

	landed, err := s.page.Location(ctx)
	if err != nil {
		return res, fmt.Errorf("reading landed URL: %w", err)
	}
	html, err := s.page.HTML(ctx)
	if err != nil {
		return res, fmt.Errorf("capturing profile page: %w", err)
	}
	if err := browser.CheckAccess(landed, html); err != nil {
		return res, fmt.Errorf("profile %s: %w", opts.TargetURL, err)
	}

	base, err := url.Parse(landed)
	if err != nil {
		base, _ = url.Parse(opts.TargetURL)
	}

	res.Identity = parseIdentity(html, NormalizeHandle(opts.TargetURL))
	logger.Info("profile identity",
		"handle", res.Identity.Handle,
		"display_name", res.Identity.DisplayName)

	for _, kind := range opts.Lists {
		if ctx.Err() != nil {
			break
		}
		list, err := s.collectList(ctx, base, html, res.Identity.Handle, kind, opts.DialogRoot)
		if err != nil {
			return res, err
		}
		res.Lists = append(res.Lists, list)
	}

	if opts.MaxPosts > 0 && ctx.Err() == nil {
		res.Posts = s.collectPosts(ctx, opts.TargetURL, base, opts.MaxPosts)
	}

	return res, nil
}

// collectList opens one connection list and harvests it to a terminal state.
// List-level failures come back as an empty List carrying the status; only a
// dead page is an error, because every later list would silently come back
// empty too.
func (s *Scraper) collectList(ctx context.Context, base *url.URL, profileHTML, handle string, kind ListKind, dialogRoot string) (List, error) {
	list := List{Kind: kind, Status: harvest.StatusNoSurface}

	href := FindSectionHref(profileHTML, base, kind)
	if href == "" {
		href = SectionURL(base, handle, kind)
		logger.Debug("no section link on page, using constructed URL",
			"list", kind, "url", href)
	}
	if href == "" {
		logger.Warn("cannot determine list URL", "list", kind)
		return list, nil
	}

	if err := s.page.Navigate(ctx, href, "body"); err != nil {
		if errors.Is(err, browser.ErrPageGone) {
			return list, fmt.Errorf("opening %s list: %w", kind, err)
		}
		logger.Warn("opening list failed", "list", kind, "error", err)
		return list, nil
	}
	s.awaitRoot(ctx, dialogRoot)

	result := harvest.New(s.page, harvest.NewEntryExtractor(base), s.config).Run(ctx, dialogRoot)
	if result.Status == harvest.StatusNoSurface {
		// From the harvester's side a dead tab and a missing dialog look
		// identical; tell them apart before falling back.
		if err := s.page.Evaluate(ctx, "true", nil); errors.Is(err, browser.ErrPageGone) {
			return list, fmt.Errorf("%s list: %w", kind, err)
		}
		if dialogRoot != "body" {
			// Some deployments render the list as a full page rather than
			// a dialog; retry against the document itself.
			logger.Debug("no dialog surface, retrying against page body", "list", kind)
			result = harvest.New(s.page, harvest.NewEntryExtractor(base), s.config).Run(ctx, "body")
		}
	}

	list.Entries = result.Entries
	list.Status = result.Status
	list.Cycles = result.Cycles
	logger.Info("list collected",
		"list", kind,
		"entries", len(list.Entries),
		"status", list.Status,
		"cycles", list.Cycles)
	return list, nil
}

func (s *Scraper) collectPosts(ctx context.Context, profileURL string, base *url.URL, max int) []Post {
	if err := s.page.Navigate(ctx, profileURL, "body"); err != nil {
		logger.Warn("returning to profile for posts failed", "error", err)
		return nil
	}
	html, err := s.page.HTML(ctx)
	if err != nil {
		logger.Warn("capturing post grid failed", "error", err)
		return nil
	}
	posts := parsePosts(html, base, max)
	logger.Info("posts collected", "count", len(posts))
	return posts
}

// awaitRoot polls for the dialog container, which mounts only after the
// page hydrates. Giving up here is fine: the harvester reports NoSurface
// and the body fallback takes over.
func (s *Scraper) awaitRoot(ctx context.Context, selector string) {
	for range 10 {
		var present bool
		err := s.page.Evaluate(ctx, fmt.Sprintf("!!document.querySelector(%q)", selector), &present)
		if err == nil && present {
			return
		}
		if !pause(ctx, 300*time.Millisecond) {
			return
		}
	}
}

func pause(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
