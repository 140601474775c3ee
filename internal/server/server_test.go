package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/opium/internal/shared"
)

type fakeExchanger struct {
	codes []string
	err   error
}

func (f *fakeExchanger) Exchange(ctx context.Context, code string) error {
	f.codes = append(f.codes, code)
	return f.err
}

func receive(t *testing.T, h *OAuthHandler) OAuthResult {
	t.Helper()
	select {
	case res := <-h.Result():
		return res
	case <-time.After(time.Second):
		t.Fatal("no result sent")
		return OAuthResult{}
	}
}

func TestOAuthHandler(t *testing.T) {
	t.Run("Successful Callback", func(t *testing.T) {
		ex := &fakeExchanger{}
		h := NewOAuthHandler(ex, "state-1", "")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state-1&code=abc", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Signed in") {
			t.Error("expected success page")
		}
		if res := receive(t, h); res.Error() != nil {
			t.Errorf("expected no error, got %v", res.Error())
		}
		if len(ex.codes) != 1 || ex.codes[0] != "abc" {
			t.Errorf("expected code abc to be exchanged, got %v", ex.codes)
		}
	})

	t.Run("Invalid State", func(t *testing.T) {
		ex := &fakeExchanger{}
		h := NewOAuthHandler(ex, "state-1", "/callback")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=other&code=abc", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if res := receive(t, h); !errors.Is(res.Error(), ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", res.Error())
		}
		if len(ex.codes) != 0 {
			t.Error("code must not be exchanged on state mismatch")
		}
	})

	t.Run("User Denied", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{}, "s", "")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied", nil))

		res := receive(t, h)
		if !errors.Is(res.Error(), ErrAuthorizationDenied) || !strings.Contains(res.Error().Error(), "access_denied") {
			t.Errorf("expected denial error, got %v", res.Error())
		}
	})

	t.Run("Exchange Failure", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{err: shared.ErrAuthFailed}, "s", "")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=c", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if res := receive(t, h); !errors.Is(res.Error(), shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", res.Error())
		}
	})

	t.Run("Second Callback Rejected", func(t *testing.T) {
		ex := &fakeExchanger{}
		h := NewOAuthHandler(ex, "s", "")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&code=c", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=d", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if len(ex.codes) != 1 {
			t.Errorf("expected one exchange, got %d", len(ex.codes))
		}
	})

	t.Run("Custom Route", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{}, "s", "/auth/done")
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "GET /auth/done" {
			t.Errorf("unexpected routes %v", routes)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mw("first"), mw("second"))
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Unknown Path", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handler(NewOAuthHandler(&fakeExchanger{}, "s", ""))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
		if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "sign-in callback") {
			t.Errorf("expected sign-in 404, got %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callback?state=s&code=c", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405 for POST callback, got %d", rec.Code)
		}
	})

	t.Run("Recover", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(Recover(shared.NewLogger(io.Discard)), Logging(shared.NewLogger(io.Discard)))
		router.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func TestListen(t *testing.T) {
	t.Run("Serves Callback", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{}, "s", "")
		router := NewBasicRouter()
		router.Handler(h)

		srv, errs, err := Listen("127.0.0.1:0", router)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		resp, err := http.Get("http://" + srv.Addr + "/callback?state=s&code=c")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if res := receive(t, h); res.Error() != nil {
			t.Errorf("expected no error, got %v", res.Error())
		}

		if err := srv.Shutdown(context.Background()); err != nil {
			t.Errorf("shutdown failed: %v", err)
		}
		if err, ok := <-errs; ok {
			t.Errorf("expected clean close, got %v", err)
		}
	})

	t.Run("Port In Use", func(t *testing.T) {
		srv, _, err := Listen("127.0.0.1:0", http.NotFoundHandler())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer srv.Close()

		if _, _, err := Listen(srv.Addr, http.NotFoundHandler()); err == nil {
			t.Error("expected bind error")
		}
	})
}
