package dashboard

import (
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Page is one page of the site: static narrative, an optional link to a
// hosted demo and, for interactive pages, the dashboard to mount.
type Page struct {
	Slug  string
	Title string
	// Summary is a one-line description used in listings.
	Summary string
	// Narrative is trusted HTML shown above the dashboard.
	Narrative string
	// DemoURL points at a hosted copy of the demo, shown in an iframe.
	DemoURL string
	// Dataset names the dataset the dashboard loads.
	Dataset string
	Order   int
	New     Factory
}

// Interactive reports whether the page mounts a dashboard.
func (p Page) Interactive() bool { return p.New != nil }

// Markdown returns the page narrative converted to markdown.
func (p Page) Markdown() (string, error) {
	if p.Narrative == "" {
		return "", nil
	}
	return htmltomarkdown.ConvertString(p.Narrative)
}
