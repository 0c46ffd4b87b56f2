package browser

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/dossier/dossier/internal/logger"
)

// ReadCookieFile loads a session cookie header from a file. The file may be a
// plain one-line cookie dump or a .env-style file with other settings mixed
// in; the line that looks most like a cookie header wins, so a value pasted
// straight from browser devtools works without cleanup.
func ReadCookieFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading cookie file: %w", err)
	}

	best := ""
	bestScore := 0
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		score := strings.Count(line, "=") + strings.Count(line, ";")
		if score > bestScore {
			best = line
			bestScore = score
		}
	}
	if best == "" {
		return "", fmt.Errorf("no cookie header found in %s", path)
	}

	return cleanCookieHeader(best), nil
}

// cleanCookieHeader strips the decorations a pasted value tends to carry:
// an env-style KEY= prefix, a literal Cookie: prefix, and surrounding quotes.
func cleanCookieHeader(line string) string {
	if rest, ok := strings.CutPrefix(line, "export "); ok {
		line = rest
	}
	if key, rest, found := strings.Cut(line, "="); found {
		trimmedKey := strings.TrimSpace(key)
		if !strings.ContainsAny(trimmedKey, " ;") && looksQuoted(strings.TrimSpace(rest)) {
			line = strings.TrimSpace(rest)
		}
	}
	line = strings.Trim(line, `"'`)
	if rest, ok := strings.CutPrefix(line, "Cookie:"); ok {
		line = rest
	}
	return strings.TrimSpace(line)
}

func looksQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0]
}

// ParseCookieHeader splits a "name=value; name2=value2" header into cookie
// params for the given domain. Malformed pairs are skipped rather than
// failing the whole header.
func ParseCookieHeader(header, domain string) []*network.CookieParam {
	var params []*network.CookieParam
	for _, part := range strings.Split(header, ";") {
		name, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found || strings.TrimSpace(name) == "" {
			continue
		}
		params = append(params, &network.CookieParam{
			Name:   strings.TrimSpace(name),
			Value:  strings.TrimSpace(value),
			Domain: domain,
			Path:   "/",
			Secure: true,
		})
	}
	return params
}

// SetCookies installs session cookies into the browser. Must run before
// navigating to the authenticated pages.
func (p *Page) SetCookies(ctx context.Context, params []*network.CookieParam) error {
	if len(params) == 0 {
		return fmt.Errorf("no cookies to set")
	}
	logger.Debug("installing session cookies", "count", len(params))

	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("setting cookies: %w", err)
	}
	return nil
}
