package resources

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticPath(t *testing.T) {
	assert.Equal(t, "/static/bridge.js", StaticPath("bridge.js"))
}

func TestMinify(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		src        string
		wantErr    bool
		wantSame   bool
		wantAbsent string
	}{
		{
			name:       "javascript",
			file:       "a.js",
			src:        "function add(first, second) {\n  // sum\n  return first + second;\n}\nwindow.add = add;\n",
			wantAbsent: "// sum",
		},
		{
			name:       "css",
			file:       "a.css",
			src:        ".chart {\n  color: #ff0000;\n}\n",
			wantAbsent: "\n  ",
		},
		{
			name:     "other files untouched",
			file:     "a.txt",
			src:      "  keep  me  ",
			wantSame: true,
		},
		{
			name:    "syntax error",
			file:    "bad.js",
			src:     "function (",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Minify(tt.file, []byte(tt.src))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "bad.js")
				return
			}
			require.NoError(t, err)
			if tt.wantSame {
				assert.Equal(t, tt.src, string(out))
				return
			}
			assert.Less(t, len(out), len(tt.src))
			assert.NotContains(t, string(out), tt.wantAbsent)
		})
	}
}

func TestMinify_StaticAssets(t *testing.T) {
	for _, name := range []string{"bridge.js", "style.css"} {
		t.Run(name, func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join("static", name))
			require.NoError(t, err)
			out, err := Minify(name, src)
			require.NoError(t, err)
			assert.NotEmpty(t, out)
		})
	}
}

func TestHandler(t *testing.T) {
	h := Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/bridge.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chartlink")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/missing.js", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
