package authserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authstarter/internal/authserver"
	"github.com/dmitrymomot/authstarter/pkg/auth"
	"github.com/dmitrymomot/authstarter/pkg/cookie"
	"github.com/dmitrymomot/authstarter/pkg/email"
	"github.com/dmitrymomot/authstarter/pkg/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type outbox struct {
	mu   sync.Mutex
	msgs []email.SendEmailParams
	err  error
}

func (o *outbox) SendEmail(_ context.Context, p email.SendEmailParams) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, p)
	return nil
}

func (o *outbox) All() []email.SendEmailParams {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]email.SendEmailParams(nil), o.msgs...)
}

func (o *outbox) Last(t *testing.T) email.SendEmailParams {
	t.Helper()
	msgs := o.All()
	require.NotEmpty(t, msgs, "no email sent")
	return msgs[len(msgs)-1]
}

var hrefRe = regexp.MustCompile(`href="([^"]+)"`)

// link extracts the first link of an e-mail body.
func link(t *testing.T, msg email.SendEmailParams) string {
	t.Helper()
	m := hrefRe.FindStringSubmatch(msg.BodyHTML)
	require.Len(t, m, 2, "no link in email body")
	return html.UnescapeString(m[1])
}

// otpFrom reads the code from a "Your verification code: 123456" subject.
func otpFrom(t *testing.T, msg email.SendEmailParams) string {
	t.Helper()
	code, ok := strings.CutPrefix(msg.Subject, "Your verification code: ")
	require.True(t, ok, "not an OTP email: %q", msg.Subject)
	return code
}

type fakeGoogle struct {
	profile auth.ProviderProfile
}

func (fakeGoogle) ProviderID() string { return auth.ProviderGoogle }

func (fakeGoogle) AuthURL(state string) (string, error) {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state), nil
}

func (g fakeGoogle) ResolveProfile(_ context.Context, code string) (auth.ProviderProfile, error) {
	if code != "good-code" {
		return auth.ProviderProfile{}, auth.ErrInvalidCode
	}
	return g.profile, nil
}

type fixture struct {
	srv      *authserver.Server
	users    *auth.MemoryStorage
	sessions *session.Manager
	store    *session.MemoryStore
	outbox   *outbox
	ts       *httptest.Server
}

func newFixture(t *testing.T, mutate ...func(*authserver.Config)) *fixture {
	t.Helper()

	f := &fixture{
		users:  auth.NewMemoryStorage(),
		store:  session.NewMemoryStore(0),
		outbox: &outbox{},
	}

	cookies, err := cookie.New([]string{testSecret})
	require.NoError(t, err)
	f.sessions = session.New(session.WithStore(f.store), session.WithCookieManager(cookies))
	t.Cleanup(func() { _ = f.sessions.Close() })

	r := chi.NewRouter()
	f.ts = httptest.NewServer(r)
	t.Cleanup(f.ts.Close)

	cfg := authserver.DefaultConfig()
	cfg.Secret = testSecret
	cfg.BaseURL = f.ts.URL
	for _, m := range mutate {
		m(&cfg)
	}

	f.srv, err = authserver.New(cfg, f.users, auth.NewMemoryVerificationStore(), f.sessions, cookies,
		authserver.WithEmailSender(f.outbox),
		authserver.WithBcryptCost(bcrypt.MinCost),
		authserver.WithProvider(fakeGoogle{profile: auth.ProviderProfile{
			ProviderUserID: "google-123",
			Email:          "oauth@example.com",
			EmailVerified:  true,
			Name:           "OAuth User",
		}}),
	)
	require.NoError(t, err)
	r.Mount(cfg.BasePath, f.srv.Routes())
	return f
}

// client returns a browser-like client that keeps cookies and doesn't
// follow redirects.
func (f *fixture) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (f *fixture) post(t *testing.T, c *http.Client, path string, body any) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := c.Post(f.ts.URL+"/api/auth"+path, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// get requests an absolute URL or a path under /api/auth and returns the
// response with its body closed.
func (f *fixture) get(t *testing.T, c *http.Client, target string) *http.Response {
	t.Helper()
	if !strings.HasPrefix(target, "http") {
		target = f.ts.URL + "/api/auth" + target
	}
	resp, err := c.Get(target)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

type sessionPayload struct {
	Session struct {
		ID string `json:"id"`
	} `json:"session"`
	User *auth.User `json:"user"`
}

func (f *fixture) session(t *testing.T, c *http.Client) *sessionPayload {
	t.Helper()
	resp, err := c.Get(f.ts.URL + "/api/auth/get-session")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data *sessionPayload `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Data
}

// verifiedUser registers a password user and marks them verified.
func (f *fixture) verifiedUser(t *testing.T, addr, password string) *auth.User {
	t.Helper()
	c := f.client(t)
	status, _ := f.post(t, c, "/sign-up/email", map[string]string{"name": "Test", "email": addr, "password": password})
	require.Equal(t, http.StatusOK, status)

	ctx := context.Background()
	u, err := f.users.GetUserByEmail(ctx, addr)
	require.NoError(t, err)
	u.EmailVerified = true
	require.NoError(t, f.users.UpdateUser(ctx, u))
	return u
}

func (f *fixture) signIn(t *testing.T, addr, password string) *http.Client {
	t.Helper()
	c := f.client(t)
	status, body := f.post(t, c, "/sign-in/email", map[string]string{"email": addr, "password": password})
	require.Equal(t, http.StatusOK, status, "sign in failed: %+v", body.Error)
	return c
}
