package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/chartlink/internal/testutil"
	"github.com/leapstack-labs/chartlink/internal/ui/features"
)

func setup(t *testing.T, isDev bool) http.Handler {
	t.Helper()

	fixture := features.SetupTestFixture(t, nil)
	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(r, Deps{
		Registry: fixture.Registry,
		Store:    fixture.Store,
		Notifier: fixture.Notifier,
		Metrics:  fixture.Metrics,
		Logger:   testutil.NewTestLogger(t),
		IsDev:    isDev,
	}))
	return r
}

func TestSetupRoutes(t *testing.T) {
	r := setup(t, false)

	tests := []struct {
		method   string
		path     string
		wantCode int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/cancer", http.StatusOK},
		{http.MethodGet, "/stocks", http.StatusOK},
		{http.MethodGet, "/datasets", http.StatusOK},
		{http.MethodGet, "/datasets/stock_prices", http.StatusOK},
		{http.MethodGet, "/datasets/nope", http.StatusNotFound},
		{http.MethodGet, "/static/style.css", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/hotreload", http.StatusNotFound},
		{http.MethodGet, "/cancer/events", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestSetupRoutes_DevReload(t *testing.T) {
	r := setup(t, true)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hotreload", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	// The first /reload connection reloads the page once, then waits.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reload", nil).WithContext(ctx))
	assert.Contains(t, rec.Body.String(), "window.location.reload()")
}
