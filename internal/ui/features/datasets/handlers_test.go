package datasets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/chartlink/internal/dataset"
	"github.com/leapstack-labs/chartlink/internal/testutil"
	"github.com/leapstack-labs/chartlink/internal/ui/features"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

type brokenLoader struct{}

func (brokenLoader) Load(context.Context) (*core.Dataset, error) {
	return nil, errors.New("no such file: prices.csv")
}

func setupRouter(t *testing.T) (chi.Router, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupTestFixture(t, map[string]dataset.Loader{"broken": brokenLoader{}})
	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(r, fixture.Registry, testutil.NewTestLogger(t), false))
	return r, fixture
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	r, fixture := setupRouter(t)
	_, err := fixture.Registry.Get(context.Background(), "stock_prices")
	require.NoError(t, err)

	rec := serve(r, http.MethodGet, "/datasets", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Datasets - chartlink</title>",
		`href="/datasets/breast_cancer"`,
		`href="/datasets/stock_prices"`,
		"<td>30</td>",
		"not loaded",
	} {
		assert.Contains(t, body, want, "response should contain %q", want)
	}
	assert.NotContains(t, body, "no such file", "index must not load datasets")
}

func TestDetail(t *testing.T) {
	r, _ := setupRouter(t)

	rec := serve(r, http.MethodGet, "/datasets/breast_cancer", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{
		"<h1>breast_cancer</h1>",
		"<code>radius_mean</code>",
		"<td>Radius Mean</td>",
		"<td>number</td>",
		`<option value="diagnosis">Diagnosis</option>`,
		"/datasets/breast_cancer/view",
		`id="dataset-rows"`,
		"first 25 of 27 rows",
	} {
		assert.Contains(t, body, want, "response should contain %q", want)
	}
	assert.NotContains(t, body, `<option value="radius_mean">`, "continuous fields are not offered for grouping")

	schema := features.Element(t, body, "dataset-schema")
	assert.Equal(t, 11, strings.Count(schema, "<tr>"), "header plus one row per field")
	rows := features.Element(t, body, "dataset-rows")
	assert.Equal(t, PreviewRows+1, strings.Count(rows, "<tr>"), "header plus the preview rows")
}

func TestDetail_Errors(t *testing.T) {
	r, _ := setupRouter(t)

	rec := serve(r, http.MethodGet, "/datasets/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `unknown dataset "nope"`)

	rec = serve(r, http.MethodGet, "/datasets/broken", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to load broken")
	assert.Contains(t, rec.Body.String(), "no such file: prices.csv")
}

func TestViewSSE(t *testing.T) {
	r, _ := setupRouter(t)

	tests := []struct {
		name    string
		dataset string
		signals string
		want    []string
	}{
		{
			name:    "group by diagnosis",
			dataset: "breast_cancer",
			signals: `{"groupBy":"diagnosis"}`,
			want:    []string{`id="dataset-view"`, "<th>Diagnosis</th>", "<th>Mean Radius Mean</th>", "<td>13</td>", "<td>14</td>", "2 groups by Diagnosis."},
		},
		{
			name:    "group by ticker",
			dataset: "stock_prices",
			signals: `{"groupBy":"ticker"}`,
			want:    []string{"<td>AAPL</td>", "<td>MSFT</td>", "<td>GOOG</td>", "3 groups by Ticker."},
		},
		{
			name:    "no field picked",
			dataset: "stock_prices",
			signals: `{"groupBy":""}`,
			want:    []string{"Pick a field to group by."},
		},
		{
			name:    "unknown field",
			dataset: "stock_prices",
			signals: `{"groupBy":"sector"}`,
			want:    []string{"Cannot group stock_prices", "sector"},
		},
		{
			name:    "load failure",
			dataset: "broken",
			signals: `{"groupBy":"x"}`,
			want:    []string{"Failed to load broken"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(r, http.MethodPost, "/datasets/"+tt.dataset+"/view", tt.signals)

			body := rec.Body.String()
			assert.GreaterOrEqual(t, strings.Count(body, "event:"), 1)
			for _, want := range tt.want {
				assert.Contains(t, body, want)
			}
		})
	}
}
