package httpserver_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/pkg/httpserver"
)

func run(ctx context.Context, t *testing.T, srv *httpserver.Server, h http.Handler) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, h) }()
	return done
}

func wait(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		require.Fail(t, "run did not finish")
	}
}

func TestRunAndCancel(t *testing.T) {
	t.Parallel()
	var stopped atomic.Bool
	srv := httpserver.New(
		httpserver.WithAddr("127.0.0.1:0"),
		httpserver.WithShutdownTimeout(100*time.Millisecond),
		httpserver.WithStopHook(func(*slog.Logger) { stopped.Store(true) }),
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := run(ctx, t, srv, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	resp, err := http.Get("http://" + srv.Addr().String())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "ok", string(body))

	cancel()
	wait(t, done)
	assert.True(t, stopped.Load())
	assert.NoError(t, srv.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestManualShutdown(t *testing.T) {
	t.Parallel()
	srv := httpserver.New(httpserver.WithAddr("127.0.0.1:0"))
	done := run(context.Background(), t, srv, nil)
	_ = srv.Addr()

	require.NoError(t, srv.Shutdown(context.Background()))
	wait(t, done)
}

func TestStartErrors(t *testing.T) {
	t.Parallel()

	err := httpserver.New(httpserver.WithAddr(":invalid")).Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrStart)

	srv := httpserver.New(httpserver.WithAddr("127.0.0.1:0"))
	ctx, cancel := context.WithCancel(context.Background())
	done := run(ctx, t, srv, nil)
	_ = srv.Addr()
	assert.ErrorIs(t, srv.Run(context.Background(), nil), httpserver.ErrStart)
	cancel()
	wait(t, done)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()
	srv := httpserver.NewFromConfig(httpserver.Config{Addr: "127.0.0.1:0", ReadTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	done := run(ctx, t, srv, nil)
	assert.NotNil(t, srv.Addr())
	cancel()
	wait(t, done)
}

func TestOptionPanics(t *testing.T) {
	t.Parallel()
	for name, fn := range map[string]func(){
		"addr":      func() { httpserver.WithAddr("") },
		"header":    func() { httpserver.WithReadHeaderTimeout(0) },
		"read":      func() { httpserver.WithReadTimeout(-time.Second) },
		"write":     func() { httpserver.WithWriteTimeout(-time.Second) },
		"idle":      func() { httpserver.WithIdleTimeout(-time.Second) },
		"shutdown":  func() { httpserver.WithShutdownTimeout(-time.Second) },
		"stop hook": func() { httpserver.WithStopHook(nil) },
	} {
		assert.Panics(t, fn, name)
	}
}

func TestHealthHandlers(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	httpserver.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALIVE", rec.Body.String())

	ok := httpserver.Check{Name: "ok", Fn: func(context.Context) error { return nil }}
	rec = httptest.NewRecorder()
	httpserver.ReadinessHandler(nil, ok)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "READY", rec.Body.String())

	down := httpserver.Check{Name: "redis", Fn: func(context.Context) error { return errors.New("down") }}
	rec = httptest.NewRecorder()
	httpserver.ReadinessHandler(nil, ok, down)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NOT_READY", rec.Body.String())
}
