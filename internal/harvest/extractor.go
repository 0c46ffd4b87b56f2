package harvest

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractFunc turns a DOM snapshot of the scroll surface into raw entries.
// It is pure and stateless: it runs fresh every cycle, may return items
// already seen, and must tolerate partially rendered rows. Deduplication is
// the harvester's job.
type ExtractFunc func(html string) []ListEntry

// NewEntryExtractor returns an ExtractFunc that reads profile anchors out of
// the surface snapshot. Rows still streaming in often render an avatar link
// before the name node; those are skipped this cycle and picked up on the
// next one. Relative hrefs resolve against base.
func NewEntryExtractor(base *url.URL) ExtractFunc {
	return func(html string) []ListEntry {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil
		}

		var entries []ListEntry
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
				return
			}

			name := strings.TrimSpace(a.Text())
			if name == "" {
				// Avatar-only or icon link; the named anchor for the same
				// row will produce the entry.
				return
			}

			entries = append(entries, ListEntry{
				DisplayName: name,
				ProfileURL:  absoluteURL(base, href),
			})
		})
		return entries
	}
}

// absoluteURL resolves href against base and returns it only when the
// result is absolute; a non-resolvable href yields "" so the entry falls
// back to its display-name identity.
func absoluteURL(base *url.URL, href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if !parsed.IsAbs() && base != nil {
		parsed = base.ResolveReference(parsed)
	}
	if !parsed.IsAbs() {
		return ""
	}
	parsed.Fragment = ""
	return parsed.String()
}
