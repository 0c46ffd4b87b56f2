package profile

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// countPattern matches the display form of a section count: "1,234
// followers", "1.2K following", "87 friends".
var countPattern = regexp.MustCompile(`(?i)([\d][\d.,]*\s*[KkMm]?)\s+(followers|following|friends|posts)`)

// parseIdentity reads what it can from the rendered profile page. Every
// field is best-effort: a missing count or bio is normal, not an error.
func parseIdentity(html, fallbackHandle string) Identity {
	id := Identity{Handle: fallbackHandle}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return id
	}

	if name := metaContent(doc, "og:title"); name != "" {
		// og:title often carries "Name (@handle) • Site" decoration.
		if idx := strings.IndexAny(name, "(•|"); idx > 0 {
			name = name[:idx]
		}
		id.DisplayName = strings.TrimSpace(name)
	}
	if id.DisplayName == "" {
		id.DisplayName = strings.TrimSpace(doc.Find("header h1, header h2").First().Text())
	}

	id.Bio = metaContent(doc, "og:description")

	// Counts live in the header as anchor or list-item text.
	for _, match := range countPattern.FindAllStringSubmatch(doc.Find("header").Text(), -1) {
		value := strings.TrimSpace(match[1])
		switch strings.ToLower(match[2]) {
		case "followers":
			if id.Followers == "" {
				id.Followers = value
			}
		case "following":
			if id.Following == "" {
				id.Following = value
			}
		case "friends":
			if id.Friends == "" {
				id.Friends = value
			}
		case "posts":
			if id.Posts == "" {
				id.Posts = value
			}
		}
	}

	return id
}

// postHrefMarkers identify timeline permalinks across the supported sites.
var postHrefMarkers = []string{"/p/", "/reel/", "/posts/", "/photo"}

// parsePosts collects the visible timeline grid: permalink, caption from the
// image alt text, and the thumbnail URL. Bounded by max; no pagination.
func parsePosts(html string, base *url.URL, max int) []Post {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var posts []Post
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !isPostHref(href) {
			return true
		}
		permalink := resolveHref(base, href)
		if permalink == "" || seen[permalink] {
			return true
		}
		seen[permalink] = true

		img := a.Find("img").First()
		caption, _ := img.Attr("alt")
		imageURL, _ := img.Attr("src")

		posts = append(posts, Post{
			Permalink: permalink,
			Caption:   strings.TrimSpace(caption),
			ImageURL:  imageURL,
		})
		return max <= 0 || len(posts) < max
	})
	return posts
}

func isPostHref(href string) bool {
	if href == "" {
		return false
	}
	for _, marker := range postHrefMarkers {
		if strings.Contains(href, marker) {
			return true
		}
	}
	return false
}

func metaContent(doc *goquery.Document, property string) string {
	content, _ := doc.Find(`meta[property="` + property + `"]`).First().Attr("content")
	return strings.TrimSpace(content)
}
