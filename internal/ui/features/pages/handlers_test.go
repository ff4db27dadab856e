package pages

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/chartlink/internal/coupling"
	"github.com/leapstack-labs/chartlink/internal/dashboard"
	"github.com/leapstack-labs/chartlink/internal/dashboard/cancer"
	"github.com/leapstack-labs/chartlink/internal/dataset"
	"github.com/leapstack-labs/chartlink/internal/testutil"
	"github.com/leapstack-labs/chartlink/internal/ui/features"
	"github.com/leapstack-labs/chartlink/internal/ui/features/common"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

type brokenLoader struct{}

func (brokenLoader) Load(context.Context) (*core.Dataset, error) {
	return nil, errors.New("no such file: cancer.csv")
}

func init() {
	dashboard.Register(dashboard.Page{
		Slug:      "test-broken",
		Title:     "Broken",
		Dataset:   "broken",
		Order:     100,
		New:       cancer.New,
		Narrative: "<p>Backed by a dataset that fails to load.</p>",
	})
	dashboard.Register(dashboard.Page{
		Slug:      "test-about",
		Title:     "About",
		Order:     101,
		Narrative: "<p>Static <em>narrative</em>.</p>",
		DemoURL:   "https://example.com/demo",
	})
}

func setupRouter(t *testing.T) (chi.Router, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupTestFixture(t, map[string]dataset.Loader{"broken": brokenLoader{}})
	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(r, fixture.Registry, fixture.Store, fixture.Notifier,
		fixture.Metrics, testutil.NewTestLogger(t), false))
	return r, fixture
}

func get(r http.Handler, path string, cookies *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookies != nil {
		features.WithCookies(req, cookies)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func post(r http.Handler, path, body string, cookies *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookies != nil {
		features.WithCookies(req, cookies)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPage(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   []string
		notInBody  []string
	}{
		{
			name:       "cancer dashboard",
			path:       "/cancer",
			wantStatus: http.StatusOK,
			wantBody: []string{
				"<title>Breast cancer diagnosis - chartlink</title>",
				"data-init=\"@get('/cancer/updates')\"",
				"data-signals=",
				"&#34;xFeature&#34;:&#34;radius_mean&#34;",
				`id="scatter"`,
				`data-source="scatter"`,
				`id="bars" class="chart chart-placeholder"`,
				`id="box" class="chart chart-placeholder"`,
				`<select data-bind="yFeature">`,
				`<option value="texture_mean" selected>Texture Mean</option>`,
				"<strong>lasso or box-select</strong>",
				`<iframe src="https://chartlink.fly.dev/cancer"`,
				"/cancer/reload",
			},
		},
		{
			name:       "stocks dashboard",
			path:       "/stocks",
			wantStatus: http.StatusOK,
			wantBody: []string{
				`id="prices"`,
				`data-events="selected hovered"`,
				`<option value="AAPL">AAPL</option>`,
			},
		},
		{
			name:       "dataset failure",
			path:       "/test-broken",
			wantStatus: http.StatusOK,
			wantBody: []string{
				`id="dashboard" class="error-panel"`,
				"Could not load dataset broken",
				"no such file: cancer.csv",
				"/test-broken/reload",
			},
		},
		{
			name:       "static page",
			path:       "/test-about",
			wantStatus: http.StatusOK,
			wantBody:   []string{"Static <em>narrative</em>.", `<iframe src="https://example.com/demo"`},
			notInBody:  []string{"data-init", "/test-about/reload"},
		},
		{
			name:       "unknown page",
			path:       "/nope",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := setupRouter(t)
			rec := get(r, tt.path, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := rec.Body.String()
			for _, want := range tt.wantBody {
				assert.Contains(t, body, want)
			}
			for _, not := range tt.notInBody {
				assert.NotContains(t, body, not)
			}
		})
	}
}

func TestEventSSE(t *testing.T) {
	tests := []struct {
		name       string
		event      string
		wantBody   []string
		wantReason string
	}{
		{
			name:     "selection updates the bar chart",
			event:    `{"source":"scatter","kind":"selected","points":[{"curveNumber":0,"pointNumber":0},{"curveNumber":1,"pointNumber":0},{"curveNumber":1,"pointNumber":1}]}`,
			wantBody: []string{`id="bars" class="chart"`, `data-source="bars"`, "Updated bars."},
		},
		{
			name:       "out of range point is rejected",
			event:      `{"source":"scatter","kind":"selected","points":[{"curveNumber":0,"pointNumber":99}]}`,
			wantBody:   []string{"status-error", "Event rejected:", "out of range"},
			wantReason: "index_out_of_range",
		},
		{
			name:     "empty selection",
			event:    `{"source":"scatter","kind":"selected","points":[]}`,
			wantBody: []string{"status-empty", "No selection."},
		},
		{
			name:     "no event",
			event:    `null`,
			wantBody: []string{"No selection."},
		},
		{
			name:       "event for another page",
			event:      `{"source":"prices","kind":"hovered","points":[{"curveNumber":0,"pointNumber":0}]}`,
			wantBody:   []string{"status-error", "Event rejected:", "unknown source", "prices"},
			wantReason: "source_mismatch",
		},
		{
			name:     "hover on the scatter plot",
			event:    `{"source":"scatter","kind":"hovered","points":[{"curveNumber":0,"pointNumber":0}]}`,
			wantBody: []string{"status-empty", "Nothing to update."},
		},
		{
			name:     "malformed event",
			event:    `{"source":"scatter","kind":"dragged"}`,
			wantBody: []string{"status-error", "invalid chart event"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, fixture := setupRouter(t)
			page := get(r, "/cancer", nil)
			require.Equal(t, http.StatusOK, page.Code)

			rec := post(r, "/cancer/events", `{"chartEvent":`+tt.event+`}`, page)
			body := rec.Body.String()
			assert.GreaterOrEqual(t, strings.Count(body, "event:"), 1)
			for _, want := range tt.wantBody {
				assert.Contains(t, body, want)
			}
			if tt.wantReason != "" {
				assert.Equal(t, 1.0, promtest.ToFloat64(fixture.Metrics.ContractViolations.WithLabelValues("cancer", tt.wantReason)))
			}
		})
	}
}

func TestEventSSE_TwoHops(t *testing.T) {
	r, fixture := setupRouter(t)
	page := get(r, "/cancer", nil)

	sel := `{"chartEvent":{"source":"scatter","kind":"selected","points":[{"curveNumber":0,"pointNumber":0},{"curveNumber":0,"pointNumber":1},{"curveNumber":1,"pointNumber":0}]}}`
	post(r, "/cancer/events", sel, page)

	click := `{"chartEvent":{"source":"bars","kind":"clicked","points":[{"curveNumber":0,"pointNumber":1}]}}`
	body := post(r, "/cancer/events", click, page).Body.String()
	assert.Contains(t, body, `id="box" class="chart"`)
	assert.Contains(t, body, "Benign: Texture Mean (1)")
	assert.Contains(t, body, "Updated box.")

	assert.Equal(t, 1.0, promtest.ToFloat64(fixture.Metrics.Events.WithLabelValues("cancer", "bars", "rendered")))
}

func TestEventSSE_SessionsAreIsolated(t *testing.T) {
	r, _ := setupRouter(t)
	alice := get(r, "/cancer", nil)
	bob := get(r, "/cancer", nil)

	sel := `{"chartEvent":{"source":"scatter","kind":"selected","points":[{"curveNumber":0,"pointNumber":0}]}}`
	post(r, "/cancer/events", sel, alice)

	// Bob has no bar chart yet, so his click cannot resolve to a bar.
	click := `{"chartEvent":{"source":"bars","kind":"clicked","points":[{"curveNumber":0,"pointNumber":0}]}}`
	assert.Contains(t, post(r, "/cancer/events", click, bob).Body.String(), "Event rejected:")
	assert.Contains(t, post(r, "/cancer/events", click, alice).Body.String(), "Updated box.")
}

func TestInputSSE(t *testing.T) {
	r, _ := setupRouter(t)
	page := get(r, "/cancer", nil)

	body := post(r, "/cancer/inputs", `{"xFeature":"area_mean","yFeature":"texture_mean","chartEvent":null}`, page).Body.String()
	assert.Contains(t, body, `id="scatter"`)
	assert.Contains(t, body, "Area Mean")
	assert.Contains(t, body, "Updated scatter.")

	body = post(r, "/cancer/inputs", `{"xFeature":"shoe_size"}`, page).Body.String()
	assert.Contains(t, body, "status-error")
	assert.Contains(t, body, "Unknown x axis")

	body = post(r, "/stocks/inputs", `{"ticker":"MSFT"}`, get(r, "/stocks", nil)).Body.String()
	assert.Contains(t, body, `id="prices"`)
	assert.NotContains(t, body, "AAPL")
}

func TestReloadSSE(t *testing.T) {
	r, fixture := setupRouter(t)
	page := get(r, "/stocks", nil)

	updates := fixture.Notifier.Subscribe("stock_prices")
	defer fixture.Notifier.Unsubscribe(updates)

	body := post(r, "/stocks/reload", `{}`, page).Body.String()
	assert.Contains(t, body, `id="dashboard" class="dashboard"`)
	assert.Contains(t, body, "Reloaded 30 rows.")

	select {
	case <-updates:
	case <-time.After(100 * time.Millisecond):
		t.Error("reload did not notify listeners")
	}

	body = post(r, "/test-broken/reload", `{}`, nil).Body.String()
	assert.Contains(t, body, "error-panel")
	assert.Contains(t, body, "no such file: cancer.csv")
}

func TestPageUpdates_PushesDashboardOnReload(t *testing.T) {
	r, fixture := setupRouter(t)
	page := get(r, "/cancer", nil)

	req := features.WithCookies(httptest.NewRequest(http.MethodGet, "/cancer/updates", nil), page)
	ctx, cancel := context.WithTimeout(req.Context(), 300*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	fixture.Notifier.Broadcast("stock_prices")
	fixture.Notifier.Broadcast("breast_cancer")
	<-done

	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "event:"), "only the page's dataset triggers an update")
	assert.Contains(t, body, `id="dashboard"`)
	assert.Contains(t, body, `id="scatter"`)
}

func TestDescribe(t *testing.T) {
	oor := &core.IndexOutOfRangeError{Source: "scatter", Curve: 0, Point: 9, Limit: 3}

	tests := []struct {
		name        string
		results     []coupling.Result
		noSelection bool
		wantKind    common.StatusKind
		wantPrefix  string
	}{
		{"rendered", []coupling.Result{{Output: "bars", Outcome: coupling.OutcomeRendered}, {Output: "box", Outcome: coupling.OutcomeSkipped}}, false, common.StatusOK, "Updated bars."},
		{"contract violation", []coupling.Result{{Output: "bars", Outcome: coupling.OutcomeFailed, Err: oor}}, false, common.StatusError, "Event rejected:"},
		{"other failure", []coupling.Result{{Output: "bars", Outcome: coupling.OutcomeFailed, Err: errors.New("boom")}}, false, common.StatusError, "Update failed: boom"},
		{"empty selection", []coupling.Result{{Output: "bars", Outcome: coupling.OutcomeSkipped}}, true, common.StatusEmpty, "No selection."},
		{"unknown source", []coupling.Result{{Outcome: coupling.OutcomeFailed, Err: &core.SourceMismatchError{Got: "bogus"}}}, true, common.StatusError, "Event rejected: event from unknown source"},
		{"nothing accepted", nil, false, common.StatusEmpty, "Nothing to update."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, msg := Describe(tt.results, tt.noSelection)
			assert.Equal(t, tt.wantKind, kind)
			assert.True(t, strings.HasPrefix(msg, tt.wantPrefix), msg)
		})
	}
}
