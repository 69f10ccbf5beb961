// package server contains the router, middleware & handlers for the local OAuth callback listener
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/savedl/internal/shared"
	"golang.org/x/oauth2"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers served by the callback listener.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Logging logs every request at debug level with its status and duration.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// CallbackServer is a short-lived listener that receives a single OAuth redirect.
type CallbackServer struct {
	handler  *OAuthHandler
	server   *http.Server
	listener net.Listener
	errs     chan error
	logger   *log.Logger
}

// NewCallbackServer binds addr and routes /callback to an [OAuthHandler].
//
// Binding happens here so a port conflict is reported before the browser opens.
func NewCallbackServer(addr, state string, exchange ExchangeFunc, logger *log.Logger) (*CallbackServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	handler := NewOAuthHandler(exchange, state)
	router := NewBasicRouter()
	router.Use(Logging(logger))
	router.Handler(handler)

	return &CallbackServer{
		handler:  handler,
		server:   &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second},
		listener: listener,
		errs:     make(chan error, 1),
		logger:   logger,
	}, nil
}

// Addr returns the bound address.
func (c *CallbackServer) Addr() string {
	return c.listener.Addr().String()
}

// Start serves in the background until [CallbackServer.Shutdown].
func (c *CallbackServer) Start() {
	go func() {
		c.logger.Info("starting OAuth callback server", "addr", c.Addr())
		if err := c.server.Serve(c.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.errs <- err
		}
	}()
}

// Wait blocks until the redirect arrives, the server fails, ctx ends or timeout elapses.
func (c *CallbackServer) Wait(ctx context.Context, timeout time.Duration) (*oauth2.Token, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-c.handler.Result():
		if result.Error() != nil {
			return nil, fmt.Errorf("authorization failed: %w", result.Error())
		}
		if result.Token == nil {
			return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
		}
		return result.Token, nil
	case err := <-c.errs:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops the listener, waiting up to five seconds for in-flight requests.
func (c *CallbackServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.server.Shutdown(ctx)
}
