package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/savedl/internal/shared"
	"golang.org/x/oauth2"
)

func okExchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "token-for-" + code}, nil
}

func TestOAuthHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		exchange   ExchangeFunc
		wantStatus int
		wantToken  string
		wantErr    bool
	}{
		{name: "success", query: "state=s1&code=abc", exchange: okExchange, wantStatus: http.StatusOK, wantToken: "token-for-abc"},
		{name: "bad state", query: "state=other&code=abc", exchange: okExchange, wantStatus: http.StatusBadRequest, wantErr: true},
		{name: "access denied", query: "state=s1&error=access_denied", exchange: okExchange, wantStatus: http.StatusBadRequest, wantErr: true},
		{
			name:  "exchange failure",
			query: "state=s1&code=abc",
			exchange: func(context.Context, string) (*oauth2.Token, error) {
				return nil, errors.New("boom")
			},
			wantStatus: http.StatusInternalServerError,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOAuthHandler(tt.exchange, "s1")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			result := <-h.Result()
			if (result.Error() != nil) != tt.wantErr {
				t.Fatalf("result error = %v, wantErr %v", result.Error(), tt.wantErr)
			}
			if tt.wantToken != "" && result.Token.AccessToken != tt.wantToken {
				t.Errorf("token = %s, want %s", result.Token.AccessToken, tt.wantToken)
			}
			if tt.wantErr && tt.name != "exchange failure" && !errors.Is(result.Error(), shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", result.Error())
			}
		})
	}

	t.Run("second callback rejected", func(t *testing.T) {
		h := NewOAuthHandler(okExchange, "s1")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=a", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=b", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 on replay, got %d", rec.Code)
		}

		result := <-h.Result()
		if result.Token.AccessToken != "token-for-a" {
			t.Errorf("expected first token to win, got %s", result.Token.AccessToken)
		}
		if _, ok := <-h.Result(); ok {
			t.Error("expected result channel to be closed")
		}
	})

	t.Run("success page", func(t *testing.T) {
		h := NewOAuthHandler(okExchange, "s1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=a", nil))
		if !strings.Contains(rec.Body.String(), "Authorization Successful") {
			t.Error("expected success page body")
		}
	})
}

func TestBasicRouter(t *testing.T) {
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
	router.Handle("post", "/items", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	t.Run("middleware order", func(t *testing.T) {
		order = nil
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items", nil))
		if rec.Code != http.StatusCreated {
			t.Errorf("status = %d, want 201", rec.Code)
		}
		if strings.Join(order, ",") != "first,second" {
			t.Errorf("middleware order = %v", order)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestCallbackServer(t *testing.T) {
	logger := log.New(io.Discard)

	t.Run("receives token", func(t *testing.T) {
		srv, err := NewCallbackServer("127.0.0.1:0", "s1", okExchange, logger)
		if err != nil {
			t.Fatalf("NewCallbackServer() error = %v", err)
		}
		srv.Start()
		defer srv.Shutdown()

		go func() {
			resp, err := http.Get(fmt.Sprintf("http://%s/callback?state=s1&code=xyz", srv.Addr()))
			if err == nil {
				resp.Body.Close()
			}
		}()

		token, err := srv.Wait(context.Background(), 5*time.Second)
		if err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		if token.AccessToken != "token-for-xyz" {
			t.Errorf("token = %s", token.AccessToken)
		}
	})

	t.Run("times out", func(t *testing.T) {
		srv, err := NewCallbackServer("127.0.0.1:0", "s1", okExchange, logger)
		if err != nil {
			t.Fatalf("NewCallbackServer() error = %v", err)
		}
		srv.Start()
		defer srv.Shutdown()

		if _, err := srv.Wait(context.Background(), 10*time.Millisecond); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("port in use", func(t *testing.T) {
		first, err := NewCallbackServer("127.0.0.1:0", "s1", okExchange, logger)
		if err != nil {
			t.Fatalf("NewCallbackServer() error = %v", err)
		}
		defer first.listener.Close()

		if _, err := NewCallbackServer(first.Addr(), "s1", okExchange, logger); err == nil {
			t.Error("expected error binding an occupied port")
		}
	})
}
