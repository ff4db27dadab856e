package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/chartlink/internal/dashboard"
	"github.com/leapstack-labs/chartlink/internal/dashboard/cancer"
	"github.com/leapstack-labs/chartlink/internal/dataset"
	"github.com/leapstack-labs/chartlink/internal/dataset/bundled"
	"github.com/leapstack-labs/chartlink/internal/testutil"
	"github.com/leapstack-labs/chartlink/internal/ui/metrics"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

type failingLoader struct{}

func (failingLoader) Load(context.Context) (*core.Dataset, error) {
	return nil, errors.New("connection refused")
}

func setupStore(t *testing.T) (*Store, *metrics.Metrics) {
	t.Helper()

	reg := dataset.NewRegistry(testutil.NewTestLogger(t))
	loader, err := dataset.New(bundled.BreastCancer, dataset.Config{})
	require.NoError(t, err)
	reg.Register(bundled.BreastCancer, loader, "")
	reg.Register("unreachable", failingLoader{}, "")

	m := metrics.New()
	return NewStore(Config{
		Cookies:  sessions.NewCookieStore([]byte("test-secret")),
		Registry: reg,
		Metrics:  m,
		Logger:   testutil.NewTestLogger(t),
	}), m
}

func cancerPage(t *testing.T) dashboard.Page {
	t.Helper()
	p, ok := dashboard.Lookup("cancer")
	require.True(t, ok)
	return p
}

// request returns a request carrying the cookies set on rec, if any.
func request(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/cancer", nil)
	if rec != nil {
		for _, c := range rec.Result().Cookies() {
			req.AddCookie(c)
		}
	}
	return req
}

func TestStore_ID(t *testing.T) {
	s, _ := setupStore(t)

	first := httptest.NewRecorder()
	id, err := s.ID(first, request(nil))
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Len(t, first.Result().Cookies(), 1)
	assert.Equal(t, CookieName, first.Result().Cookies()[0].Name)

	again := httptest.NewRecorder()
	same, err := s.ID(again, request(first))
	require.NoError(t, err)
	assert.Equal(t, id, same)
	assert.Empty(t, again.Result().Cookies(), "an existing session is not re-issued")

	other, err := s.ID(httptest.NewRecorder(), request(nil))
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestStore_DashboardPerSession(t *testing.T) {
	s, m := setupStore(t)
	ctx := context.Background()
	p := cancerPage(t)

	rec := httptest.NewRecorder()
	d1, err := s.Dashboard(ctx, rec, request(nil), p)
	require.NoError(t, err)

	d1again, err := s.Dashboard(ctx, httptest.NewRecorder(), request(rec), p)
	require.NoError(t, err)
	assert.Same(t, d1, d1again)

	d2, err := s.Dashboard(ctx, httptest.NewRecorder(), request(nil), p)
	require.NoError(t, err)
	assert.NotSame(t, d1, d2)
	assert.Equal(t, 2, s.Len())

	// Selector state is per session.
	d1.Session().InitInput(cancer.InputX, "area_mean")
	assert.NotEqual(t, "area_mean", d2.Session().Input(cancer.InputX))

	assert.Contains(t, metricsBody(t, m), "chartlink_sessions 2")
}

func metricsBody(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestStore_DatasetFailure(t *testing.T) {
	s, _ := setupStore(t)
	p := cancerPage(t)
	p.Dataset = "unreachable"

	_, err := s.Dashboard(context.Background(), httptest.NewRecorder(), request(nil), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 0, s.Len())
}

func TestStore_StaticPage(t *testing.T) {
	s, _ := setupStore(t)

	_, err := s.Dashboard(context.Background(), httptest.NewRecorder(), request(nil), dashboard.Page{Slug: "about"})
	assert.Error(t, err)
}

func TestStore_ResetAndDrop(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()
	p := cancerPage(t)

	d, err := s.Dashboard(ctx, httptest.NewRecorder(), request(nil), p)
	require.NoError(t, err)
	c := d.(*cancer.Dashboard)

	small := testutil.NewDataset(t, bundled.BreastCancer, c.Dataset().Schema, c.Dataset().Records[0].Values())
	require.NoError(t, s.Reset(ctx, bundled.BreastCancer, small))
	assert.Equal(t, 1, c.Dataset().Len())

	require.NoError(t, s.Reset(ctx, "stock_prices", small), "other datasets are untouched")
	assert.Equal(t, 1, c.Dataset().Len())

	s.Drop(bundled.BreastCancer)
	assert.Equal(t, 0, s.Len())
}
