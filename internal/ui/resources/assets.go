// Package resources provides static asset handling for the UI server.
package resources

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// StaticDirectoryPath is the path to static assets from the project root.
const StaticDirectoryPath = "internal/ui/resources/static"

// StaticPath returns the URL path for a static asset.
func StaticPath(path string) string {
	return "/static/" + path
}

// Minify minifies JavaScript and CSS assets with esbuild. Other files are
// returned unchanged.
func Minify(name string, src []byte) ([]byte, error) {
	var loader api.Loader
	switch strings.ToLower(filepath.Ext(name)) {
	case ".js":
		loader = api.LoaderJS
	case ".css":
		loader = api.LoaderCSS
	default:
		return src, nil
	}

	result := api.Transform(string(src), api.TransformOptions{
		Loader:            loader,
		Sourcefile:        name,
		Target:            api.ES2020,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LogLevel:          api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		var errMsg string
		for _, err := range result.Errors {
			line, col := 0, 0
			if err.Location != nil {
				line, col = err.Location.Line, err.Location.Column
			}
			errMsg += fmt.Sprintf("%s:%d:%d: %s\n", name, line, col, err.Text)
		}
		return nil, fmt.Errorf("esbuild errors:\n%s", errMsg)
	}
	return result.Code, nil
}
