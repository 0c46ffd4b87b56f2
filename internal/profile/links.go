package profile

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NormalizeHandle reduces user input to a bare handle: a pasted profile URL
// yields its first path segment, an @-prefixed name loses the @.
func NormalizeHandle(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	if strings.Contains(input, "://") {
		u, err := url.Parse(input)
		if err == nil {
			for _, segment := range strings.Split(u.Path, "/") {
				if segment != "" {
					input = segment
					break
				}
			}
		}
	}

	input = strings.TrimPrefix(input, "@")
	return strings.Trim(input, "/")
}

// FindSectionHref locates the link that opens a connection list on the
// rendered profile page. Visible anchor text is tried first because it
// survives site redesigns better than URL structure; the href pattern is the
// fallback for icon-only links. Returns "" when the page has no such link.
func FindSectionHref(html string, base *url.URL, kind ListKind) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	keyword := string(kind)

	byText := ""
	byPattern := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if href == "" || strings.HasPrefix(href, "#") {
			return true
		}
		text := strings.ToLower(strings.TrimSpace(a.Text()))
		if strings.Contains(text, keyword) {
			byText = href
			return false
		}
		if byPattern == "" && strings.Contains(strings.ToLower(href), "/"+keyword) {
			byPattern = href
		}
		return true
	})

	href := byText
	if href == "" {
		href = byPattern
	}
	if href == "" {
		return ""
	}
	return resolveHref(base, href)
}

// SectionURL builds the conventional list URL for a handle, used when the
// profile page exposes no discoverable link.
func SectionURL(base *url.URL, handle string, kind ListKind) string {
	if base == nil || handle == "" {
		return ""
	}
	u := url.URL{
		Scheme: base.Scheme,
		Host:   base.Host,
		Path:   "/" + handle + "/" + string(kind) + "/",
	}
	return u.String()
}

func resolveHref(base *url.URL, href string) string {
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
	return parsed.String()
}
