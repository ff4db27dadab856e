package common

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/chartlink/internal/ui/resources"
)

const (
	datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"
	plotlyScript   = "https://cdn.plot.ly/plotly-2.35.2.min.js"
)

// Layout renders the full HTML document around body.
func Layout(data PageData, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := NewWriter(w)
		h.Raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
		h.Raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.Raw(`<title>`).Text(data.Title).Raw(` - chartlink</title>`)
		h.Raw(`<link rel="stylesheet" href="`).Text(resources.StaticPath("style.css")).Raw(`">`)
		h.Raw(`<script type="module" src="` + datastarScript + `"></script>`)
		h.Raw(`<script src="` + plotlyScript + `"></script>`)
		h.Raw(`<script defer src="`).Text(resources.StaticPath("bridge.js")).Raw(`"></script>`)
		if data.IsDev {
			h.Raw(`<div data-init="@get('/reload')" hidden></div>`)
		}
		h.Raw(`</head><body><header class="topbar"><nav>`)
		for _, item := range data.Nav {
			h.Raw(`<a href="`).Text(item.Path).Raw(`"`)
			if item.Active {
				h.Raw(` class="active" aria-current="page"`)
			}
			h.Raw(`>`).Text(item.Title).Raw(`</a>`)
		}
		h.Raw(`</nav></header>`)
		h.Render(ctx, body)
		h.Raw(`</body></html>`)
		return h.Err()
	})
}

// Status renders the status area.
func Status(kind StatusKind, message string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := NewWriter(w)
		h.Raw(`<div id="status" class="status status-`).Text(string(kind)).Raw(`" role="status">`)
		h.Text(message)
		h.Raw(`</div>`)
		return h.Err()
	})
}

// ErrorPanel renders a visible error in place of the element id.
func ErrorPanel(id, title string, err error) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := NewWriter(w)
		h.Raw(`<div id="`).Text(id).Raw(`" class="error-panel" role="alert"><h2>`).Text(title).Raw(`</h2>`)
		h.Raw(`<pre>`).Text(err.Error()).Raw(`</pre></div>`)
		return h.Err()
	})
}

// DemoFrame embeds a hosted demo.
func DemoFrame(url string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if url == "" {
			return nil
		}
		h := NewWriter(w)
		h.Raw(`<section class="demo"><h2>Live demo</h2>`)
		h.Raw(`<iframe src="`).Text(url).Raw(`" loading="lazy" title="Live demo"></iframe></section>`)
		return h.Err()
	})
}
