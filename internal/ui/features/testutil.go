// Package features provides shared test utilities for UI feature tests.
package features

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/sessions"
	"golang.org/x/net/html"

	"github.com/leapstack-labs/chartlink/internal/dataset"
	"github.com/leapstack-labs/chartlink/internal/dataset/bundled"
	"github.com/leapstack-labs/chartlink/internal/testutil"
	"github.com/leapstack-labs/chartlink/internal/ui/metrics"
	"github.com/leapstack-labs/chartlink/internal/ui/notifier"
	"github.com/leapstack-labs/chartlink/internal/ui/session"

	// Register the dashboard pages.
	_ "github.com/leapstack-labs/chartlink/internal/dashboard/cancer"
	_ "github.com/leapstack-labs/chartlink/internal/dashboard/stocks"
)

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Registry     *dataset.Registry
	Store        *session.Store
	Notifier     *notifier.Notifier
	Metrics      *metrics.Metrics
	SessionStore *sessions.CookieStore
}

// SetupTestFixture creates a registry with the bundled datasets plus any
// extra loaders, and a session store over it.
func SetupTestFixture(t *testing.T, extra map[string]dataset.Loader) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)
	m := metrics.New()

	reg := dataset.NewRegistry(logger)
	reg.OnLoad = m.ObserveLoad
	for _, table := range bundled.Tables() {
		reg.Register(table, &dataset.BundledLoader{Name: table, Table: table}, "")
	}
	for name, l := range extra {
		reg.Register(name, l, "")
	}

	cookies := sessions.NewCookieStore([]byte("test-secret"))
	return &TestFixture{
		Registry: reg,
		Store: session.NewStore(session.Config{
			Cookies:  cookies,
			Registry: reg,
			Metrics:  m,
			Logger:   logger,
		}),
		Notifier:     notifier.New(),
		Metrics:      m,
		SessionStore: cookies,
	}
}

// WithCookies copies the cookies set on rec onto req.
func WithCookies(req *http.Request, rec *httptest.ResponseRecorder) *http.Request {
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

// Element returns the outer HTML of the element with id in body. The test
// fails when body does not parse or has no such element.
func Element(t *testing.T, body, id string) string {
	t.Helper()

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode {
			continue
		}
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				var b strings.Builder
				if err := html.Render(&b, n); err != nil {
					t.Fatalf("failed to render #%s: %v", id, err)
				}
				return b.String()
			}
		}
	}
	t.Fatalf("no element with id %q", id)
	return ""
}
