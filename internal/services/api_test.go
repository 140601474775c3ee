package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/opium/internal/shared"
	tu "github.com/desertthunder/opium/internal/testing"
)

func TestAPIService(t *testing.T) {
	tokens := tu.StaticTokens{Token: "raw-token"}

	t.Run("New", func(t *testing.T) {
		t.Run("With Empty BaseURL", func(t *testing.T) {
			srv := NewAPIService("", tokens, nil)
			if srv.baseURL != DefaultBaseURL {
				t.Errorf("expected default baseURL, got %s", srv.baseURL)
			}
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})

		t.Run("Trailing Slash Trimmed", func(t *testing.T) {
			srv := NewAPIService("http://example.com/v1/", tokens, nil)
			if srv.baseURL != "http://example.com/v1" {
				t.Errorf("expected trimmed baseURL, got %s", srv.baseURL)
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("JSON Response With Query", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/me/top/artists" || r.URL.Query().Get("limit") != "5" {
					t.Errorf("unexpected request %s", r.URL)
				}
				if r.Header.Get("Authorization") != "Bearer raw-token" {
					t.Errorf("expected bearer token, got %s", r.Header.Get("Authorization"))
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"status": "success"})
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, tokens, nil).Get(context.Background(), "me/top/artists?limit=5")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusOK || !resp.IsJSON || resp.JSONData == nil {
				t.Errorf("unexpected response %+v", resp)
			}
		})

		t.Run("Non-JSON Error Status Is Returned", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Custom-Header", "test-value")
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte("upstream down"))
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, tokens, nil).Get(context.Background(), "/x")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusBadGateway || resp.IsJSON || string(resp.Body) != "upstream down" {
				t.Errorf("unexpected response %+v", resp)
			}
			if resp.Headers.Get("X-Custom-Header") != "test-value" {
				t.Errorf("expected custom header, got %s", resp.Headers.Get("X-Custom-Header"))
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil),
			}

			_, err := NewAPIService("http://example.com", tokens, client).Get(context.Background(), "/test")
			if !errors.Is(err, shared.ErrTransport) {
				t.Errorf("expected ErrTransport, got %v", err)
			}
		})

		t.Run("Malformed Query", func(t *testing.T) {
			_, err := NewAPIService("http://example.com", tokens, nil).Get(context.Background(), "/x?a=%zz")
			if !errors.Is(err, shared.ErrInvalidURL) {
				t.Errorf("expected ErrInvalidURL, got %v", err)
			}
		})

		t.Run("Without Token Provider", func(t *testing.T) {
			_, err := NewAPIService("http://example.com", nil, nil).Get(context.Background(), "/x")
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("With Canceled Context", func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			if _, err := NewAPIService("http://example.com", tokens, nil).Get(ctx, "/test"); err == nil {
				t.Error("expected error for canceled context")
			}
		})
	})
}
