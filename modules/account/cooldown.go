package account

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/dmitrymomot/authstarter/pkg/cookie"
	"github.com/dmitrymomot/authstarter/pkg/token"
)

// Countdown calls fn with from, from-1, ..., 0, waiting tick between calls.
// It returns early with ctx.Err() when ctx is done, or with fn's error.
func Countdown(ctx context.Context, from int, tick time.Duration, fn func(remaining int) error) error {
	t := time.NewTicker(max(tick, time.Nanosecond))
	defer t.Stop()

	for n := max(from, 0); ; n-- {
		if err := fn(n); err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

const resendCookie = "otp_resend"

type resendGuard struct {
	Email string `json:"e"`
	Until int64  `json:"u"`
}

// cooldownGuard remembers the last code request per browser in a signed,
// short-lived cookie so the resend endpoint can refuse early requests.
type cooldownGuard struct {
	cookies  *cookie.Manager
	secret   string
	duration time.Duration
	now      func() time.Time
}

// remaining returns the whole seconds left before email may request
// another code.
func (g *cooldownGuard) remaining(r *http.Request, email string) int {
	raw, err := g.cookies.Get(r, resendCookie)
	if err != nil {
		return 0
	}
	guard, err := token.Parse[resendGuard](raw, g.secret)
	if err != nil || guard.Email != email {
		return 0
	}
	left := time.UnixMilli(guard.Until).Sub(g.now()).Seconds()
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left))
}

func (g *cooldownGuard) start(w http.ResponseWriter, email string) error {
	tok, err := token.Generate(resendGuard{Email: email, Until: g.now().Add(g.duration).UnixMilli()}, g.secret, g.duration)
	if err != nil {
		return err
	}
	return g.cookies.Set(w, resendCookie, tok, cookie.WithMaxAge(int(g.duration.Seconds())), cookie.WithHTTPOnly(true))
}

func (g *cooldownGuard) reset(w http.ResponseWriter) {
	g.cookies.Delete(w, resendCookie)
}
