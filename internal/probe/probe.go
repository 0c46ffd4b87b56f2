// Package probe does a static pre-flight of a target profile before the
// browser launches. It answers two cheap questions: does the URL resolve to a
// real profile, and is it served to anonymous visitors at all.
package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/dossier/dossier/internal/logger"
)

// Result is what the static fetch could see without a session.
type Result struct {
	URL          string
	CanonicalURL string // og:url when present
	Title        string
	DisplayName  string // og:title when present
	StatusCode   int
	LoginWalled  bool // anonymous fetch landed on a login form
	FetchedAt    time.Time
}

// Config holds probe settings.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		Timeout:   15 * time.Second,
	}
}

// Prober fetches profile pages statically.
type Prober struct {
	config Config
}

// New creates a prober.
func New(cfg Config) *Prober {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Prober{config: cfg}
}

// Probe fetches the target URL without a session and reads its metadata. A
// login-walled response is a normal result, not an error: the browser phase
// has the cookies the static fetch lacks.
func (p *Prober) Probe(ctx context.Context, targetURL string) (Result, error) {
	result := Result{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	c := colly.NewCollector(
		colly.UserAgent(p.config.UserAgent),
	)
	c.SetRequestTimeout(p.config.Timeout)

	var body string
	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		body = string(r.Body)
	})

	var fetchErr error
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
		}
		fetchErr = fmt.Errorf("fetch error: %w", err)
	})

	if err := c.Visit(targetURL); err != nil {
		return result, fmt.Errorf("failed to visit URL: %w", err)
	}
	if fetchErr != nil {
		return result, fetchErr
	}

	if err := p.parse(&result, body); err != nil {
		return result, fmt.Errorf("failed to parse probe response: %w", err)
	}

	logger.Debug("probe complete",
		"url", targetURL,
		"status", result.StatusCode,
		"display_name", result.DisplayName,
		"login_walled", result.LoginWalled)
	return result, nil
}

func (p *Prober) parse(result *Result, html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return err
	}

	result.Title = strings.TrimSpace(doc.Find("title").First().Text())
	result.DisplayName = metaProperty(doc, "og:title")
	result.CanonicalURL = metaProperty(doc, "og:url")

	lowered := strings.ToLower(result.Title)
	result.LoginWalled = strings.Contains(lowered, "log in") ||
		strings.Contains(lowered, "login") ||
		doc.Find(`input[name="password"]`).Length() > 0

	return nil
}

func metaProperty(doc *goquery.Document, property string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).First().Attr("content")
	return strings.TrimSpace(content)
}
