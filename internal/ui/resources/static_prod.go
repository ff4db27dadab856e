//go:build !dev

package resources

import (
	"bytes"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"sync"
	"time"
)

//go:embed static/*
var staticFS embed.FS

var (
	minifyOnce sync.Once
	minified   map[string][]byte
	startedAt  = time.Now()
)

// minifiedAssets minifies every embedded asset once. An asset that fails to
// minify is served as is.
func minifiedAssets() map[string][]byte {
	minifyOnce.Do(func() {
		minified = make(map[string][]byte)
		_ = fs.WalkDir(staticFS, "static", func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			src, err := staticFS.ReadFile(p)
			if err != nil {
				return err
			}
			out, err := Minify(p, src)
			if err != nil {
				slog.Warn("failed to minify static asset", "file", p, "error", err)
				out = src
			}
			minified[p[len("static/"):]] = out
			return nil
		})
	})
	return minified
}

// Handler returns an HTTP handler for serving static files.
// In production mode, files are embedded in the binary and minified.
func Handler() http.Handler {
	assets := minifiedAssets()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean(r.URL.Path[len("/static/"):])
		content, ok := assets[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		// Cache embedded static assets for 1 year (they never change in prod)
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		http.ServeContent(w, r, name, startedAt, bytes.NewReader(content))
	})
}
