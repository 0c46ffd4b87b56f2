package harvest

import (
	"context"
	"fmt"

	"github.com/dossier/dossier/internal/logger"
)

// surfaceAttr marks the located scroll surface so later cycles can address
// it without re-running the search.
const surfaceAttr = "data-dossier-surface"

// geometry captures the dimensions of one candidate element, kept for
// diagnostics when no surface qualifies.
type geometry struct {
	Tag          string `json:"tag"`
	ScrollHeight int    `json:"scrollHeight"`
	ClientHeight int    `json:"clientHeight"`
}

type locateResult struct {
	RootFound  bool       `json:"rootFound"`
	Found      bool       `json:"found"`
	ScrollTop  int        `json:"scrollTop"`
	Candidates []geometry `json:"candidates"`
}

// surfaceState is the per-cycle geometry probe of the located surface.
type surfaceState struct {
	Found        bool `json:"found"`
	ScrollTop    int  `json:"scrollTop"`
	ScrollHeight int  `json:"scrollHeight"`
	ClientHeight int  `json:"clientHeight"`
	Loading      bool `json:"loading"`
}

// locateScript enumerates descendants of the dialog root in document order
// and tags the first one whose content overflows its visible box. The
// predicate is geometric on purpose: the host page's class names are
// generated and churn across deployments, so selection must not depend on
// them. This script is the single place the predicate lives; tuning a
// future heuristic change means editing only this function.
func locateScript(rootSelector string, minHeight, margin int) string {
	return fmt.Sprintf(`(() => {
	const root = document.querySelector(%q);
	if (!root) return {rootFound: false, found: false, scrollTop: 0, candidates: []};
	const candidates = [];
	for (const el of root.querySelectorAll('*')) {
		const display = window.getComputedStyle(el).display;
		if (display === 'inline' || display === 'none') continue;
		if (candidates.length < 25) {
			candidates.push({tag: el.tagName.toLowerCase(), scrollHeight: el.scrollHeight, clientHeight: el.clientHeight});
		}
		if (el.clientHeight >= %d && el.scrollHeight > el.clientHeight + %d) {
			for (const prev of document.querySelectorAll('[%s]')) prev.removeAttribute('%s');
			el.setAttribute('%s', '');
			return {rootFound: true, found: true, scrollTop: Math.round(el.scrollTop), candidates: []};
		}
	}
	return {rootFound: true, found: false, scrollTop: 0, candidates: candidates};
})()`, rootSelector, minHeight, margin, surfaceAttr, surfaceAttr, surfaceAttr)
}

func scrollScript(step int) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector('[%s]');
	if (!el) return false;
	el.scrollTop = el.scrollTop + %d;
	return true;
})()`, surfaceAttr, step)
}

// stateScript reports surface geometry plus a loading-indicator probe. The
// end-of-content signal is offset + visible height reaching total content
// height while nothing inside the surface still advertises itself as busy.
func stateScript() string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector('[%s]');
	if (!el) return {found: false, scrollTop: 0, scrollHeight: 0, clientHeight: 0, loading: false};
	const loading = !!el.querySelector('[role="progressbar"], [aria-busy="true"]');
	return {found: true, scrollTop: Math.round(el.scrollTop), scrollHeight: el.scrollHeight, clientHeight: el.clientHeight, loading: loading};
})()`, surfaceAttr)
}

func snapshotScript() string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector('[%s]');
	return el ? el.outerHTML : '';
})()`, surfaceAttr)
}

// locateSurface finds the scroll surface inside the dialog root and tags it.
// A missing surface is a recoverable condition for the caller, not an error:
// the candidate geometries are logged so a selector/heuristic mismatch can
// be diagnosed from a debug log alone.
func locateSurface(ctx context.Context, page Page, rootSelector string, cfg Config) (locateResult, error) {
	var res locateResult
	script := locateScript(rootSelector, cfg.MinSurfaceHeight, cfg.OverflowMargin)
	if err := page.Evaluate(ctx, script, &res); err != nil {
		return res, fmt.Errorf("locating scroll surface: %w", err)
	}
	if !res.RootFound {
		logger.Debug("dialog root not found", "selector", rootSelector)
		return res, nil
	}
	if !res.Found {
		logger.Debug("no scrollable surface in dialog",
			"selector", rootSelector,
			"min_height", cfg.MinSurfaceHeight,
			"overflow_margin", cfg.OverflowMargin)
		for _, c := range res.Candidates {
			logger.Debug("surface candidate rejected",
				"tag", c.Tag,
				"scroll_height", c.ScrollHeight,
				"client_height", c.ClientHeight)
		}
	}
	return res, nil
}
