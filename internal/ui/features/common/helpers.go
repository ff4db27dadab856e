package common

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/chartlink/internal/dashboard"
)

// BuildNav lists the home page, every registered page and the dataset
// browser, marking the one at currentPath.
func BuildNav(currentPath string) []NavItem {
	nav := []NavItem{{Title: "Home", Path: "/", Active: currentPath == "/"}}
	for _, p := range dashboard.Pages() {
		path := "/" + p.Slug
		nav = append(nav, NavItem{Title: p.Title, Path: path, Active: currentPath == path})
	}
	return append(nav, NavItem{Title: "Datasets", Path: "/datasets", Active: currentPath == "/datasets"})
}

// Writer writes HTML fragments and keeps the first error.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Raw writes trusted HTML.
func (h *Writer) Raw(s string) *Writer {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
	return h
}

// Text writes escaped text.
func (h *Writer) Text(s string) *Writer {
	return h.Raw(templ.EscapeString(s))
}

// Render writes a component.
func (h *Writer) Render(ctx context.Context, c templ.Component) *Writer {
	if h.err == nil && c != nil {
		h.err = c.Render(ctx, h.w)
	}
	return h
}

// Err returns the first error encountered.
func (h *Writer) Err() error { return h.err }
