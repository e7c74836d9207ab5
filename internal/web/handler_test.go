package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/raphael2692/ssohub/internal/auth"
	"github.com/raphael2692/ssohub/pkg/cookie"
)

var stateRe = regexp.MustCompile(`^[0-9a-f]{32}$`)

func newTestServer(t *testing.T, registry *auth.Registry, provisioner UserProvisioner) *httptest.Server {
	t.Helper()
	h := NewHandler(registry, provisioner, cookie.New())
	srv := httptest.NewServer(NewRouter(h, nil))
	t.Cleanup(srv.Close)
	return srv
}

// noRedirect returns a client that stops at the first redirect so tests can
// inspect 3xx responses and their cookies.
func noRedirect() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func cookieByName(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("issues state cookie and redirects to provider", func(t *testing.T) {
		t.Parallel()

		registry := auth.NewRegistry(&stubProvider{name: "google", authURL: "https://idp.example.com/authorize"})
		srv := newTestServer(t, registry, &MockProvisioner{})

		resp, err := noRedirect().Get(srv.URL + "/login/google")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusFound, resp.StatusCode)

		state := cookieByName(t, resp, cookieState)
		require.NotNil(t, state)
		assert.Regexp(t, stateRe, state.Value)
		assert.True(t, state.HttpOnly)
		assert.Equal(t, 300, state.MaxAge)
		assert.Equal(t, http.SameSiteLaxMode, state.SameSite)
		assert.False(t, state.Secure)

		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, state.Value, loc.Query().Get("state"))
	})

	t.Run("unknown provider yields 400", func(t *testing.T) {
		t.Parallel()

		registry := auth.NewRegistry(&stubProvider{name: "google"})
		srv := newTestServer(t, registry, &MockProvisioner{})

		resp, err := http.Get(srv.URL + "/login/facebook")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("secure cookies in production mode", func(t *testing.T) {
		t.Parallel()

		registry := auth.NewRegistry(&stubProvider{name: "google", authURL: "https://idp.example.com/authorize"})
		h := NewHandler(registry, &MockProvisioner{}, cookie.New(), WithSecureCookies(true))
		srv := httptest.NewServer(NewRouter(h, nil))
		t.Cleanup(srv.Close)

		resp, err := noRedirect().Get(srv.URL + "/login/google")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		state := cookieByName(t, resp, cookieState)
		require.NotNil(t, state)
		assert.True(t, state.Secure)
	})
}

func TestCallback(t *testing.T) {
	t.Parallel()

	okProvider := func() *stubProvider {
		return &stubProvider{
			name:   "google",
			result: &auth.Result{Identity: auth.Identity{Email: "u@x.com", Name: "U"}},
		}
	}

	get := func(t *testing.T, srv *httptest.Server, path string, cookies ...*http.Cookie) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		resp, err := noRedirect().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	t.Run("missing state cookie yields 400 and no provisioning", func(t *testing.T) {
		t.Parallel()

		provisioner := &MockProvisioner{}
		srv := newTestServer(t, auth.NewRegistry(okProvider()), provisioner)

		resp := get(t, srv, "/auth/google?code=abc&state=whatever")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		provisioner.AssertNotCalled(t, "Provision", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("mismatched state yields 400 and no provisioning", func(t *testing.T) {
		t.Parallel()

		provisioner := &MockProvisioner{}
		srv := newTestServer(t, auth.NewRegistry(okProvider()), provisioner)

		resp := get(t, srv, "/auth/google?code=abc&state=bbbb",
			&http.Cookie{Name: cookieState, Value: "aaaa"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		provisioner.AssertNotCalled(t, "Provision", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing code yields 400", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, auth.NewRegistry(okProvider()), &MockProvisioner{})

		resp := get(t, srv, "/auth/google?state=s1",
			&http.Cookie{Name: cookieState, Value: "s1"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("failed exchange yields 401 and no user row", func(t *testing.T) {
		t.Parallel()

		provider := okProvider()
		provider.err = auth.ErrExchangeFailed
		provisioner := newMemoryProvisioner()
		srv := newTestServer(t, auth.NewRegistry(provider), provisioner)

		resp := get(t, srv, "/auth/google?code=bad&state=s1",
			&http.Cookie{Name: cookieState, Value: "s1"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Empty(t, provisioner.users)
	})

	t.Run("missing email yields 400", func(t *testing.T) {
		t.Parallel()

		provider := okProvider()
		provider.result = &auth.Result{Identity: auth.Identity{Name: "No Email"}}
		srv := newTestServer(t, auth.NewRegistry(provider), &MockProvisioner{})

		resp := get(t, srv, "/auth/google?code=abc&state=s1",
			&http.Cookie{Name: cookieState, Value: "s1"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("success sets identity cookies and clears state", func(t *testing.T) {
		t.Parallel()

		provisioner := newMemoryProvisioner()
		srv := newTestServer(t, auth.NewRegistry(okProvider()), provisioner)

		resp := get(t, srv, "/auth/google?code=abc&state=s1",
			&http.Cookie{Name: cookieState, Value: "s1"})

		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))

		email := cookieByName(t, resp, cookieUserEmail)
		require.NotNil(t, email)
		assert.Equal(t, "u@x.com", email.Value)

		name := cookieByName(t, resp, cookieUserName)
		require.NotNil(t, name)
		assert.Equal(t, "U", name.Value)

		state := cookieByName(t, resp, cookieState)
		require.NotNil(t, state)
		assert.Empty(t, state.Value)
		assert.Equal(t, -1, state.MaxAge)

		assert.Equal(t, 1, provisioner.calls)
		assert.Equal(t, "U", provisioner.users["u@x.com"])
	})

	t.Run("storage failure yields 500", func(t *testing.T) {
		t.Parallel()

		provisioner := &MockProvisioner{}
		provisioner.On("Provision", mock.Anything, "u@x.com", "U").Return(assert.AnError)
		srv := newTestServer(t, auth.NewRegistry(okProvider()), provisioner)

		resp := get(t, srv, "/auth/google?code=abc&state=s1",
			&http.Cookie{Name: cookieState, Value: "s1"})
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Nil(t, cookieByName(t, resp, cookieUserEmail))
	})
}

func TestLoginCallbackEndToEnd_Google(t *testing.T) {
	t.Parallel()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"t","token_type":"Bearer"}`))
	}))
	t.Cleanup(tokenSrv.Close)

	userinfoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email":"u@x.com","name":"U"}`))
	}))
	t.Cleanup(userinfoSrv.Close)

	google := auth.NewGoogleProvider(auth.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost/auth/google",
		Scopes:       []string{"openid", "email", "profile"},
	})
	provisioner := newMemoryProvisioner()
	srv := newTestServer(t, auth.NewRegistry(google), provisioner)

	// Step 1: login redirects to Google's consent screen.
	loginResp, err := noRedirect().Get(srv.URL + "/login/google")
	require.NoError(t, err)
	defer func() { _ = loginResp.Body.Close() }()

	require.Equal(t, http.StatusFound, loginResp.StatusCode)
	loc, err := url.Parse(loginResp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", loc.Host)
	assert.Equal(t, "client-id", loc.Query().Get("client_id"))
	assert.Equal(t, "openid email profile", loc.Query().Get("scope"))

	state := cookieByName(t, loginResp, cookieState)
	require.NotNil(t, state)
	assert.Regexp(t, stateRe, state.Value)
	assert.Equal(t, state.Value, loc.Query().Get("state"))

	// Step 2: rebuild the provider against mock endpoints and complete the callback.
	google2 := auth.NewGoogleProvider(auth.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost/auth/google",
		Scopes:       []string{"openid", "email", "profile"},
	}, auth.WithGoogleEndpoints(oauth2.Endpoint{TokenURL: tokenSrv.URL}, userinfoSrv.URL))
	srv2 := newTestServer(t, auth.NewRegistry(google2), provisioner)

	req, err := http.NewRequest(http.MethodGet, srv2.URL+"/auth/google?code=abc&state="+state.Value, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: cookieState, Value: state.Value})

	cbResp, err := noRedirect().Do(req)
	require.NoError(t, err)
	defer func() { _ = cbResp.Body.Close() }()

	require.Equal(t, http.StatusFound, cbResp.StatusCode)
	assert.Equal(t, "/", cbResp.Header.Get("Location"))
	assert.Equal(t, "u@x.com", cookieByName(t, cbResp, cookieUserEmail).Value)
	assert.Equal(t, "U", cookieByName(t, cbResp, cookieUserName).Value)
	assert.Equal(t, "U", provisioner.users["u@x.com"])
	assert.Len(t, provisioner.users, 1)
}

func TestLogout(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, auth.NewRegistry(), &MockProvisioner{})

	resp, err := noRedirect().Get(srv.URL + "/logout")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	for _, name := range []string{cookieUserEmail, cookieUserName} {
		c := cookieByName(t, resp, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.Equal(t, -1, c.MaxAge)
	}
}

func TestHome(t *testing.T) {
	t.Parallel()

	registry := auth.NewRegistry(
		&stubProvider{name: "google"},
		&stubProvider{name: "microsoft"},
	)
	srv := newTestServer(t, registry, &MockProvisioner{})

	t.Run("anonymous view lists providers", func(t *testing.T) {
		t.Parallel()

		resp, err := http.Get(srv.URL + "/")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := readBody(t, resp)
		assert.Contains(t, body, "/login/google")
		assert.Contains(t, body, "/login/microsoft")
		assert.NotContains(t, body, "Sign out")
	})

	t.Run("signed-in view shows identity from cookies", func(t *testing.T) {
		t.Parallel()

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: cookieUserEmail, Value: "u@x.com"})
		req.AddCookie(&http.Cookie{Name: cookieUserName, Value: "U"})

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		body := readBody(t, resp)
		assert.Contains(t, body, "u@x.com")
		assert.Contains(t, body, "Sign out")
	})
}
