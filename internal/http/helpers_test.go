package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/akmalstorm/stdcalumni/internal/adapters/memory"
	domainauth "github.com/akmalstorm/stdcalumni/internal/domain/auth"
	"github.com/akmalstorm/stdcalumni/internal/observability/statsd"
	"github.com/akmalstorm/stdcalumni/internal/service"
	"github.com/stretchr/testify/require"
)

const testCSRFToken = "test-csrf-token"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testApp is a router wired to an in-memory record store.
type testApp struct {
	records  *memory.RecordStore
	registry *service.SessionRegistry
	metrics  *statsd.Recorder
	handler  http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	records := memory.NewRecordStore()
	metrics := statsd.NewRecorder()
	registry := service.NewSessionRegistry(service.SessionRegistryOptions{
		Records: records,
		Logger:  discardLogger(),
		Metrics: metrics,
	})
	return &testApp{
		records:  records,
		registry: registry,
		metrics:  metrics,
		handler: NewRouter(RouterServices{
			Registry:   registry,
			Metrics:    metrics,
			TemplateFS: os.DirFS(TemplatePathFromTest),
			Logger:     discardLogger(),
		}),
	}
}

// newPage builds a browser navigation carrying the visitor cookie.
func newPage(visitorID, target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	req.AddCookie(&http.Cookie{Name: DefaultVisitorCookie, Value: visitorID})
	return req
}

// newPost builds a state-changing request with a valid CSRF token.
func newPost(visitorID, target, contentType, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set(DefaultCSRFHeaderName, testCSRFToken)
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: testCSRFToken})
	req.AddCookie(&http.Cookie{Name: DefaultVisitorCookie, Value: visitorID})
	return req
}

func (a *testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// signIn applies a login directly on the visitor's machine.
func (a *testApp) signIn(t *testing.T, visitorID, role, userJSON string) *service.AuthStateMachine {
	t.Helper()
	ctx := context.Background()
	m, err := a.registry.Acquire(ctx, visitorID)
	require.NoError(t, err)
	user, err := domainauth.DecodeUserInfo([]byte(userJSON))
	require.NoError(t, err)
	require.NoError(t, m.Login(ctx, role, user, "tok"))
	return m
}

// stubRegistry returns a fixed machine for every visitor.
type stubRegistry struct {
	machine *service.AuthStateMachine
	err     error
	calls   []string
}

func (s *stubRegistry) Acquire(_ context.Context, visitorID string) (*service.AuthStateMachine, error) {
	s.calls = append(s.calls, visitorID)
	return s.machine, s.err
}

// loadingMachine is a machine whose restore never ran.
func loadingMachine() *service.AuthStateMachine {
	return service.NewAuthStateMachine(service.AuthStateMachineOptions{Logger: discardLogger()})
}

func newTestRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	r, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: os.DirFS(TemplatePathFromTest), Logger: discardLogger()})
	require.NoError(t, err)
	return r
}

func httptestServe(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
