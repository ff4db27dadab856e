// Package common provides shared types and components for UI features.
package common

// NavItem is one entry of the top navigation.
type NavItem struct {
	Title  string
	Path   string
	Active bool
}

// PageData holds what the page shell needs to render.
type PageData struct {
	Title string
	Nav   []NavItem
	IsDev bool
}

// StatusKind classifies the message in a page's status area.
type StatusKind string

// Status kinds.
const (
	StatusOK    StatusKind = "ok"
	StatusEmpty StatusKind = "empty"
	StatusError StatusKind = "error"
)
