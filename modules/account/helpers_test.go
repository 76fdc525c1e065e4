package account_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/internal/authserver"
	"github.com/dmitrymomot/authstarter/modules/account"
	"github.com/dmitrymomot/authstarter/pkg/auth"
	"github.com/dmitrymomot/authstarter/pkg/cookie"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type call struct {
	method string
	params any
}

// fakeClient records every call and answers with err when set.
type fakeClient struct {
	mu        sync.Mutex
	calls     []call
	err       error
	session   *authserver.SessionData
	admin     bool
	providers []string
}

func (f *fakeClient) record(method string, params any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: method, params: params})
	return f.err
}

func (f *fakeClient) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeClient) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeClient) signedIn(s *authserver.SessionData, admin bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session, f.admin = s, admin
}

func (f *fakeClient) setProviders(p ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers = p
}

func (f *fakeClient) Middleware(next http.Handler) http.Handler { return next }

func (f *fakeClient) GetSession(context.Context, http.ResponseWriter, *http.Request) (*authserver.SessionData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakeClient) IsAdmin(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admin
}

func (f *fakeClient) Providers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.providers
}

func (f *fakeClient) SignInEmail(_ context.Context, _ http.ResponseWriter, _ *http.Request, p authserver.SignInEmailParams) (*authserver.AuthResult, error) {
	if err := f.record("SignInEmail", p); err != nil {
		return nil, err
	}
	return &authserver.AuthResult{SignedIn: true}, nil
}

func (f *fakeClient) SignInSocial(_ context.Context, p authserver.SignInSocialParams) (*authserver.SocialResult, error) {
	if err := f.record("SignInSocial", p); err != nil {
		return nil, err
	}
	return &authserver.SocialResult{Redirect: true, URL: "https://accounts.example.com/auth"}, nil
}

func (f *fakeClient) SignInMagicLink(_ context.Context, p authserver.SignInMagicLinkParams) (*authserver.StatusResult, error) {
	if err := f.record("SignInMagicLink", p); err != nil {
		return nil, err
	}
	return &authserver.StatusResult{Status: true}, nil
}

func (f *fakeClient) SendVerificationOTP(_ context.Context, p authserver.SendVerificationOTPParams) (*authserver.StatusResult, error) {
	if err := f.record("SendVerificationOTP", p); err != nil {
		return nil, err
	}
	return &authserver.StatusResult{Status: true}, nil
}

func (f *fakeClient) SignInEmailOTP(_ context.Context, _ http.ResponseWriter, _ *http.Request, p authserver.EmailOTPParams) (*authserver.AuthResult, error) {
	if err := f.record("SignInEmailOTP", p); err != nil {
		return nil, err
	}
	return &authserver.AuthResult{SignedIn: true}, nil
}

func (f *fakeClient) ForgetPassword(_ context.Context, p authserver.ForgetPasswordParams) (*authserver.StatusResult, error) {
	if err := f.record("ForgetPassword", p); err != nil {
		return nil, err
	}
	return &authserver.StatusResult{Status: true}, nil
}

func (f *fakeClient) ResetPassword(_ context.Context, p authserver.ResetPasswordParams) (*authserver.StatusResult, error) {
	if err := f.record("ResetPassword", p); err != nil {
		return nil, err
	}
	return &authserver.StatusResult{Status: true}, nil
}

func (f *fakeClient) SignOut(context.Context, http.ResponseWriter, *http.Request) (*authserver.StatusResult, error) {
	if err := f.record("SignOut", nil); err != nil {
		return nil, err
	}
	return &authserver.StatusResult{Status: true}, nil
}

type fixture struct {
	client *fakeClient
	ts     *httptest.Server
	http   *http.Client
}

func newFixture(t *testing.T, wrap ...func(http.Handler) http.Handler) *fixture {
	t.Helper()
	return newFixtureWith(t, nil, wrap...)
}

func newFixtureWith(t *testing.T, opts []account.Option, wrap ...func(http.Handler) http.Handler) *fixture {
	t.Helper()

	cookies, err := cookie.New([]string{testSecret})
	require.NoError(t, err)

	f := &fixture{client: &fakeClient{providers: []string{auth.ProviderGoogle}}}
	mod := account.New(f.client, cookies,
		account.Config{Secret: testSecret, ResendCooldown: 3 * time.Second},
		append([]account.Option{account.WithTick(time.Millisecond)}, opts...)...,
	)

	var h http.Handler = mod.Routes()
	for _, w := range wrap {
		h = w(h)
	}
	f.ts = httptest.NewServer(h)
	t.Cleanup(f.ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	f.http = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return f
}

type result struct {
	status   int
	location string
	body     string
	header   http.Header
}

func (f *fixture) do(t *testing.T, req *http.Request) result {
	t.Helper()
	resp, err := f.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return result{
		status:   resp.StatusCode,
		location: resp.Header.Get("Location"),
		body:     string(body),
		header:   resp.Header,
	}
}

func (f *fixture) get(t *testing.T, path string) result {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.ts.URL+path, nil)
	require.NoError(t, err)
	return f.do(t, req)
}

func (f *fixture) post(t *testing.T, path string, form url.Values) result {
	t.Helper()
	return f.do(t, f.formRequest(t, path, form))
}

// postDataStar submits form the way the DataStar client does.
func (f *fixture) postDataStar(t *testing.T, path string, form url.Values) result {
	t.Helper()
	req := f.formRequest(t, path, form)
	req.Header.Set("Accept", "text/event-stream")
	return f.do(t, req)
}

func (f *fixture) formRequest(t *testing.T, path string, form url.Values) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.ts.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
