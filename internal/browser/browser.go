// Package browser manages the authenticated Chrome session and the tabs the
// collectors drive.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/dossier/dossier/internal/logger"
)

// Config holds browser session configuration.
type Config struct {
	UserAgent  string
	Timeout    time.Duration // per-operation bound, not a session lifetime
	Headless   bool
	Stealth    bool
	ChromePath string // optional explicit binary; empty means chromedp's lookup
	WindowW    int
	WindowH    int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		Timeout:   30 * time.Second,
		Headless:  true,
		Stealth:   true,
		WindowW:   1920,
		WindowH:   1080,
	}
}

// Session owns one browser allocator. Tabs created from it share the browser
// process and its cookie jar, so a login applied to one page is visible to
// every page opened after it.
type Session struct {
	config   Config
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewSession creates a browser allocator. The browser process itself launches
// lazily with the first page.
func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	logger.Debug("browser session options configured",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
		"user_agent", cfg.UserAgent,
		"timeout", cfg.Timeout)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, allocatorOptions(cfg)...)

	return &Session{
		config:   cfg,
		allocCtx: allocCtx,
		cancel:   cancel,
	}, nil
}

// NewPage opens a tab. When stealth is enabled the evasion script is
// registered before any navigation so it runs ahead of the page's own code.
func (s *Session) NewPage() (*Page, error) {
	tabCtx, cancel := chromedp.NewContext(s.allocCtx)

	if s.config.Stealth {
		if err := chromedp.Run(tabCtx, stealthAction()); err != nil {
			cancel()
			return nil, fmt.Errorf("registering stealth script: %w", err)
		}
	}

	return &Page{
		ctx:     tabCtx,
		cancel:  cancel,
		timeout: s.config.Timeout,
	}, nil
}

// Close shuts the browser down.
func (s *Session) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// Page is one browser tab. Methods take the caller's context for cancellation
// but execute on the tab's own context, each bounded by the session timeout.
type Page struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// run executes actions on the tab, bounded by the per-operation timeout and
// abandoned early if the caller's context is cancelled.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A dead tab context means the browser went away, not that this
		// one action failed.
		if p.ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrPageGone, err)
		}
		return err
	}
	return nil
}

// Navigate loads a URL and waits for waitSelector to become visible.
func (p *Page) Navigate(ctx context.Context, url, waitSelector string) error {
	if waitSelector == "" {
		waitSelector = "body"
	}
	logger.Debug("navigating", "url", url, "wait_selector", waitSelector)

	if err := p.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(waitSelector),
	); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// Evaluate runs a JavaScript expression and unmarshals the result into out.
// Pass nil to discard the result.
func (p *Page) Evaluate(ctx context.Context, expr string, out any) error {
	return p.run(ctx, chromedp.Evaluate(expr, out))
}

// CloseDialog dismisses the active modal with an Escape key dispatch. The
// short pause lets the page unwind its dialog state before the next command.
func (p *Page) CloseDialog(ctx context.Context) error {
	return p.run(ctx,
		chromedp.KeyEvent(kb.Escape),
		chromedp.Sleep(300*time.Millisecond),
	)
}

// HTML returns the full document markup.
func (p *Page) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("capturing document: %w", err)
	}
	return html, nil
}

// Location returns the tab's current URL, which may differ from the one
// navigated to after server-side redirects.
func (p *Page) Location(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("reading location: %w", err)
	}
	return loc, nil
}

// Close releases the tab.
func (p *Page) Close() error {
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}
