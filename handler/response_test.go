package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/handler"
)

func datastarRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Accept", "text/event-stream")
	return req
}

func TestIsDataStar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  func() *http.Request
		want bool
	}{
		{"accept header", func() *http.Request { return datastarRequest(http.MethodPost, "/") }, true},
		{"query param", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/?datastar=%7B%7D", nil) }, true},
		{"content type", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r.Header.Set("Content-Type", "application/x-datastar")
			return r
		}, true},
		{"plain request", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/", nil) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, handler.IsDataStar(tt.req()))
		})
	}
}

func TestRedirect(t *testing.T) {
	t.Parallel()

	t.Run("regular request gets 303", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, handler.Redirect("/dashboard").Render(rec, httptest.NewRequest(http.MethodPost, "/sign-in", nil)))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	})

	t.Run("datastar request gets script redirect", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, handler.Redirect("/dashboard").Render(rec, datastarRequest(http.MethodPost, "/sign-in")))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
		assert.Contains(t, rec.Body.String(), "/dashboard")
		assert.Empty(t, rec.Header().Get("Location"))
	})
}

func TestSafeRedirectPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"/dashboard", "/dashboard"},
		{"/reset-password?token=abc", "/reset-password?token=abc"},
		{"", "/"},
		{"https://evil.example.com", "/"},
		{"//evil.example.com", "/"},
		{"/\\evil.example.com", "/"},
		{"dashboard", "/"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, handler.SafeRedirectPath(tt.in, "/"), tt.in)
	}
}

func TestTemplPartial(t *testing.T) {
	t.Parallel()

	resp := handler.TemplPartial(text("<form id=\"f\">partial</form>"), text("<html>full</html>"), handler.WithTarget("#f"))

	t.Run("regular request renders full page", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, resp.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil)))
		assert.Equal(t, "<html>full</html>", rec.Body.String())
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	})

	t.Run("datastar request patches partial", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, resp.Render(rec, datastarRequest(http.MethodPost, "/")))
		body := rec.Body.String()
		assert.Contains(t, body, "datastar-patch-elements")
		assert.Contains(t, body, "partial")
		assert.Contains(t, body, "#f")
		assert.NotContains(t, body, "full")
	})
}

func TestSignals(t *testing.T) {
	t.Parallel()

	t.Run("datastar request patches signals", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, handler.Signals(map[string]any{"resendCooldown": 0}).Render(rec, datastarRequest(http.MethodPost, "/")))
		assert.Contains(t, rec.Body.String(), "datastar-patch-signals")
		assert.Contains(t, rec.Body.String(), `"resendCooldown":0`)
	})

	t.Run("regular request gets json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, handler.Signals(map[string]any{"otpSent": true}).Render(rec, httptest.NewRequest(http.MethodPost, "/", nil)))
		assert.JSONEq(t, `{"otpSent":true}`, rec.Body.String())
	})
}

func TestSSE_RequiresDataStar(t *testing.T) {
	t.Parallel()

	resp := handler.SSE(func(ctx handler.StreamContext) error { return nil })
	err := resp.Render(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	var httpErr handler.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestSSE_StreamsSignals(t *testing.T) {
	t.Parallel()

	resp := handler.SSE(func(ctx handler.StreamContext) error {
		for _, n := range []int{2, 1, 0} {
			if err := ctx.SendSignal("count", n); err != nil {
				return err
			}
		}
		return nil
	})

	rec := httptest.NewRecorder()
	require.NoError(t, resp.Render(rec, datastarRequest(http.MethodPost, "/")))
	body := rec.Body.String()
	assert.Contains(t, body, `"count":2`)
	assert.Contains(t, body, `"count":1`)
	assert.Contains(t, body, `"count":0`)
}

func TestJSON(t *testing.T) {
	t.Parallel()

	t.Run("data envelope", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, handler.JSON(map[string]string{"id": "1"}).Render(rec, httptest.NewRequest(http.MethodGet, "/", nil)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data":{"id":"1"}}`, rec.Body.String())
	})

	t.Run("http error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, handler.JSONError(handler.ErrUnauthorized).Render(rec, httptest.NewRequest(http.MethodGet, "/", nil)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body handler.JSONResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotNil(t, body.Error)
		assert.Equal(t, "unauthorized", body.Error.Code)
	})

	t.Run("validation error", func(t *testing.T) {
		verr := handler.NewValidationError()
		verr.Add("email", "Please enter a valid email address")

		rec := httptest.NewRecorder()
		require.NoError(t, handler.JSON(verr).Render(rec, httptest.NewRequest(http.MethodGet, "/", nil)))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var body handler.JSONResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, []string{"Please enter a valid email address"}, body.Error.Details["email"])
	})

	t.Run("unknown error hides details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, handler.JSONError(errors.New("pq: connection refused")).Render(rec, httptest.NewRequest(http.MethodGet, "/", nil)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	verr := handler.NewValidationError()
	assert.True(t, verr.IsEmpty())

	verr.Add("password", "Password must be at least 8 characters")
	verr.Add("email", "Please enter a valid email address")

	assert.True(t, verr.Has("email"))
	assert.False(t, verr.Has("otp"))
	assert.Equal(t, "Password must be at least 8 characters", verr.Get("password"))
	assert.Equal(t, "validation error: email: Please enter a valid email address, password: Password must be at least 8 characters", verr.Error())
}

func TestError_ReachesErrorHandler(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var got error
	h := handler.Wrap(func(handler.Context, struct{}) handler.Response {
		return handler.Error(boom)
	}, handler.WithErrorHandler[handler.Context, struct{}](func(_ handler.Context, err error) { got = err }))

	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, got, boom)
}

func TestNoContent(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	require.NoError(t, handler.NoContent().Render(rec, httptest.NewRequest(http.MethodPost, "/", nil)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
