package harvest

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dossier/dossier/internal/logger"
)

// Status is the terminal outcome of one harvest run. None of these are
// errors: a stalled harvest still returns everything collected so far.
type Status string

const (
	// StatusReachedEnd means the surface scrolled to its maximum with no
	// loading indicator present: the list is believed complete.
	StatusReachedEnd Status = "reached_end"

	// StatusSizeCap means collection stopped at the configured entry cap.
	StatusSizeCap Status = "size_cap"

	// StatusStalledNoProgress means the configured number of consecutive
	// cycles produced no new entries. Primary defense against pages that
	// silently stop serving items.
	StatusStalledNoProgress Status = "stalled_no_progress"

	// StatusStalledNoScroll means the scroll offset refused to advance for
	// the configured number of consecutive cycles.
	StatusStalledNoScroll Status = "stalled_no_scroll"

	// StatusCycleCeiling means the absolute cycle bound was hit. Only
	// reachable when the stall thresholds are miscalibrated upward.
	StatusCycleCeiling Status = "cycle_ceiling"

	// StatusNoSurface means no scrollable surface qualified inside the
	// dialog root; the result carries whatever was collected (nothing).
	StatusNoSurface Status = "no_surface"

	// StatusCancelled means the caller's context was cancelled mid-run.
	StatusCancelled Status = "cancelled"
)

// Config holds the harvester tunables. Defaults favor completeness over
// speed but every bound is finite.
type Config struct {
	// ScrollStep is the per-cycle scroll advance in content pixels. It is
	// deliberately larger than any plausible viewport: stepping through
	// intermediate offsets triggers lazy-load fetches more reliably than
	// jumping straight to the bottom.
	ScrollStep int `validate:"gt=0"`

	// SettleMin/SettleMax bound the randomized wait after each scroll while
	// the page fetches and renders the next chunk.
	SettleMin time.Duration `validate:"gt=0"`
	SettleMax time.Duration `validate:"gtefield=SettleMin"`

	// NoProgressCycles is how many consecutive zero-new-entry cycles are
	// tolerated before giving up.
	NoProgressCycles int `validate:"gt=0"`

	// NoScrollCycles is how many consecutive frozen-offset cycles are
	// tolerated before giving up.
	NoScrollCycles int `validate:"gt=0"`

	// MaxCycles is the absolute ceiling on cycles, enforced regardless of
	// the stall counters.
	MaxCycles int `validate:"gt=0"`

	// MaxEntries caps the collected set on very large accounts.
	MaxEntries int `validate:"gt=0"`

	// MinSurfaceHeight rejects decorative wrappers when locating the scroll
	// surface; OverflowMargin is how much taller than its box an element's
	// content must be to count as scrollable.
	MinSurfaceHeight int `validate:"gte=0"`
	OverflowMargin   int `validate:"gte=0"`
}

// DefaultConfig returns conservative harvest defaults.
func DefaultConfig() Config {
	return Config{
		ScrollStep:       4000,
		SettleMin:        400 * time.Millisecond,
		SettleMax:        900 * time.Millisecond,
		NoProgressCycles: 12,
		NoScrollCycles:   6,
		MaxCycles:        400,
		MaxEntries:       5000,
		MinSurfaceHeight: 120,
		OverflowMargin:   50,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// Result is the outcome of one harvest run.
type Result struct {
	Entries []ListEntry
	Status  Status
	Cycles  int
}

// Harvester drives scroll+extract cycles against one dialog. State lives for
// a single Run invocation and is never shared, so no locking is needed: each
// cycle's steps are strictly sequential and every wait is a genuine
// suspension point.
type Harvester struct {
	page    Page
	extract ExtractFunc
	config  Config
}

// New creates a harvester for one dialog.
func New(page Page, extract ExtractFunc, cfg Config) *Harvester {
	return &Harvester{
		page:    page,
		extract: extract,
		config:  cfg,
	}
}

// Run locates the scroll surface under rootSelector and harvests it to a
// terminal state. The dialog is closed on every exit path, and the returned
// entries are in first-seen order. Run never returns an error: extraction
// failures inside a cycle count as zero-progress cycles, and page-level
// failures surface as an early stall with whatever was collected.
//
// The result is a named return so the deferred cleanup fills in the
// collected entries after whichever return statement picked the status.
func (h *Harvester) Run(ctx context.Context, rootSelector string) (res Result) {
	set := NewEntrySet()
	res.Status = StatusNoSurface

	defer func() {
		h.dismissDialog(ctx)
		res.Entries = set.Entries()
		logger.Info("harvest finished",
			"status", res.Status,
			"entries", len(res.Entries),
			"cycles", res.Cycles)
	}()

	loc, err := locateSurface(ctx, h.page, rootSelector, h.config)
	if err != nil || !loc.Found {
		if ctx.Err() != nil {
			res.Status = StatusCancelled
		}
		return res
	}

	lastOffset := loc.ScrollTop
	noProgress := 0
	noScroll := 0

	for cycle := 1; cycle <= h.config.MaxCycles; cycle++ {
		if ctx.Err() != nil {
			res.Status = StatusCancelled
			return res
		}
		res.Cycles = cycle

		if err := h.scroll(ctx); err != nil {
			logger.Debug("scroll command failed", "cycle", cycle, "error", err)
		}

		if !h.settle(ctx) {
			res.Status = StatusCancelled
			return res
		}

		added := h.extractAndMerge(ctx, set, cycle)

		state, stateErr := h.probeState(ctx)

		if added > 0 {
			noProgress = 0
		} else {
			noProgress++
		}

		if stateErr == nil && state.Found && state.ScrollTop != lastOffset {
			noScroll = 0
			lastOffset = state.ScrollTop
		} else {
			noScroll++
		}

		logger.Debug("harvest cycle",
			"cycle", cycle,
			"added", added,
			"collected", set.Len(),
			"offset", lastOffset,
			"no_progress", noProgress,
			"no_scroll", noScroll)

		// Termination policy, first match wins.
		switch {
		case stateErr == nil && state.Found && atEnd(state):
			res.Status = StatusReachedEnd
			return res
		case set.Len() >= h.config.MaxEntries:
			res.Status = StatusSizeCap
			return res
		case noProgress >= h.config.NoProgressCycles:
			res.Status = StatusStalledNoProgress
			return res
		case noScroll >= h.config.NoScrollCycles:
			res.Status = StatusStalledNoScroll
			return res
		}
	}

	res.Status = StatusCycleCeiling
	return res
}

// atEnd reports the end-of-content signal: the visible window has reached
// the bottom of the content and nothing inside the surface is still loading.
// A 2px slack absorbs fractional scroll offsets.
func atEnd(s surfaceState) bool {
	return s.ScrollTop+s.ClientHeight >= s.ScrollHeight-2 && !s.Loading
}

func (h *Harvester) scroll(ctx context.Context) error {
	return h.page.Evaluate(ctx, scrollScript(h.config.ScrollStep), nil)
}

// settle suspends for a randomized interval within the configured bounds,
// yielding to the scheduler. Returns false if the context was cancelled
// during the wait.
func (h *Harvester) settle(ctx context.Context) bool {
	d := h.config.SettleMin
	if span := h.config.SettleMax - h.config.SettleMin; span > 0 {
		d += rand.N(span)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// extractAndMerge snapshots the surface, extracts entries, and merges them
// into the set up to the size cap. Any failure counts as a zero-progress
// cycle rather than aborting the harvest.
func (h *Harvester) extractAndMerge(ctx context.Context, set *EntrySet, cycle int) int {
	var html string
	if err := h.page.Evaluate(ctx, snapshotScript(), &html); err != nil {
		logger.Debug("extraction cycle failed", "cycle", cycle, "error", err)
		return 0
	}

	added := 0
	for _, entry := range h.extract(html) {
		if set.Len() >= h.config.MaxEntries {
			break
		}
		if set.Add(entry) {
			added++
		}
	}
	return added
}

func (h *Harvester) probeState(ctx context.Context) (surfaceState, error) {
	var state surfaceState
	err := h.page.Evaluate(ctx, stateScript(), &state)
	return state, err
}

// dismissDialog closes the dialog even when the run context is already
// cancelled, so the page is never left in a modal-open state.
func (h *Harvester) dismissDialog(ctx context.Context) {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := h.page.CloseDialog(closeCtx); err != nil {
		logger.Debug("dialog close failed", "error", err)
	}
}
