// Package report renders a scrape result as a static HTML dossier.
package report

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/dossier/dossier/internal/harvest"
	"github.com/dossier/dossier/internal/profile"
)

// statusLabel translates a harvest status into the annotation shown next to
// each list, so a reader can tell "all 40 followers" from "gave up at 500".
func statusLabel(s harvest.Status) string {
	switch s {
	case harvest.StatusReachedEnd:
		return "complete"
	case harvest.StatusSizeCap:
		return "truncated at size cap"
	case harvest.StatusStalledNoProgress:
		return "incomplete: stopped yielding new entries"
	case harvest.StatusStalledNoScroll:
		return "incomplete: list stopped scrolling"
	case harvest.StatusCycleCeiling:
		return "incomplete: cycle limit reached"
	case harvest.StatusNoSurface:
		return "not collected: list not found"
	case harvest.StatusCancelled:
		return "incomplete: interrupted"
	default:
		return string(s)
	}
}

var funcs = template.FuncMap{
	"statusLabel": statusLabel,
	"timestamp": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04 MST")
	},
}

var reportTemplate = template.Must(template.New("dossier").Funcs(funcs).Parse(reportHTML))

// Render writes the dossier page. An empty result renders an empty but valid
// page; rendering never depends on any list having succeeded.
func Render(w io.Writer, res profile.Result) error {
	if err := reportTemplate.Execute(w, res); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	return nil
}

const reportHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>dossier{{with .Identity.Handle}} · {{.}}{{end}}</title>
<style>
  :root {
    --bg: #111418;
    --card: #1a1f26;
    --border: #2a3138;
    --text: #d8dde3;
    --muted: #8a939d;
    --accent: #4f9cf0;
  }
  * { box-sizing: border-box; }
  body {
    margin: 0;
    padding: 2rem 1rem;
    background: var(--bg);
    color: var(--text);
    font: 15px/1.5 -apple-system, "Segoe UI", Roboto, sans-serif;
  }
  .wrap { max-width: 860px; margin: 0 auto; }
  .card {
    background: var(--card);
    border: 1px solid var(--border);
    border-radius: 10px;
    padding: 1.25rem 1.5rem;
    margin-bottom: 1.25rem;
  }
  h1 { margin: 0 0 .25rem; font-size: 1.5rem; }
  h1 .handle { color: var(--accent); }
  .meta { color: var(--muted); font-size: .85rem; }
  .counts { display: flex; gap: 1.5rem; margin-top: .75rem; }
  .counts div strong { display: block; font-size: 1.1rem; }
  .counts div span { color: var(--muted); font-size: .8rem; }
  .bio { margin-top: .75rem; white-space: pre-wrap; }
  details summary {
    cursor: pointer;
    font-weight: 600;
    font-size: 1.05rem;
    padding: .25rem 0;
  }
  .status { color: var(--muted); font-weight: 400; font-size: .85rem; }
  ul.entries { list-style: none; margin: .75rem 0 0; padding: 0; }
  ul.entries li {
    padding: .4rem 0;
    border-top: 1px solid var(--border);
  }
  ul.entries a { color: var(--accent); text-decoration: none; }
  ul.entries a:hover { text-decoration: underline; }
  .empty { color: var(--muted); font-style: italic; margin-top: .5rem; }
  .grid {
    display: grid;
    grid-template-columns: repeat(auto-fill, minmax(180px, 1fr));
    gap: .75rem;
    margin-top: .75rem;
  }
  .grid a { display: block; }
  .grid img {
    width: 100%;
    aspect-ratio: 1;
    object-fit: cover;
    border-radius: 6px;
    border: 1px solid var(--border);
  }
  .grid .caption {
    color: var(--muted);
    font-size: .75rem;
    overflow: hidden;
    text-overflow: ellipsis;
    white-space: nowrap;
  }
</style>
</head>
<body>
<div class="wrap">
  <div class="card">
    <h1>{{if .Identity.DisplayName}}{{.Identity.DisplayName}} {{end}}{{with .Identity.Handle}}<span class="handle">@{{.}}</span>{{end}}</h1>
    <div class="meta">{{.Target}}{{with timestamp .ScrapedAt}} · collected {{.}}{{end}}</div>
    {{if or .Identity.Posts .Identity.Followers .Identity.Following .Identity.Friends}}
    <div class="counts">
      {{with .Identity.Posts}}<div><strong>{{.}}</strong><span>posts</span></div>{{end}}
      {{with .Identity.Followers}}<div><strong>{{.}}</strong><span>followers</span></div>{{end}}
      {{with .Identity.Following}}<div><strong>{{.}}</strong><span>following</span></div>{{end}}
      {{with .Identity.Friends}}<div><strong>{{.}}</strong><span>friends</span></div>{{end}}
    </div>
    {{end}}
    {{with .Identity.Bio}}<div class="bio">{{.}}</div>{{end}}
  </div>

  {{range .Lists}}
  <div class="card">
    <details open>
      <summary>{{.Kind}} ({{len .Entries}}) <span class="status">{{statusLabel .Status}}</span></summary>
      {{if .Entries}}
      <ul class="entries">
        {{range .Entries}}
        <li>{{if .ProfileURL}}<a href="{{.ProfileURL}}">{{if .DisplayName}}{{.DisplayName}}{{else}}{{.ProfileURL}}{{end}}</a>{{else}}{{.DisplayName}}{{end}}</li>
        {{end}}
      </ul>
      {{else}}
      <div class="empty">no entries collected</div>
      {{end}}
    </details>
  </div>
  {{end}}

  {{if .Posts}}
  <div class="card">
    <details open>
      <summary>posts ({{len .Posts}})</summary>
      <div class="grid">
        {{range .Posts}}
        <a href="{{.Permalink}}">
          {{if .ImageURL}}<img src="{{.ImageURL}}" alt="{{.Caption}}" loading="lazy">{{end}}
          {{with .Caption}}<div class="caption">{{.}}</div>{{end}}
        </a>
        {{end}}
      </div>
    </details>
  </div>
  {{end}}
</div>
</body>
</html>
`
