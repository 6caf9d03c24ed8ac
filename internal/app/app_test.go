package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/testutil"
	"github.com/d60-Lab/microblog/pkg/mail"
)

type captureSender struct {
	ch chan mail.Message
}

func (s *captureSender) Send(_ context.Context, msg mail.Message) error {
	s.ch <- msg
	return nil
}

type testServer struct {
	*httptest.Server
	db   *gorm.DB
	mail *captureSender
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{BaseURL: "http://microblog.test"},
		Auth: config.AuthConfig{
			Secret:        "0123456789abcdef0123456789abcdef",
			CookieName:    "microblog_session",
			SessionTTL:    time.Hour,
			RememberTTL:   24 * time.Hour,
			ResetTokenTTL: 10 * time.Minute,
			BcryptCost:    bcrypt.MinCost,
		},
		Feed: config.FeedConfig{PostsPerPage: 3},
		Mail: config.MailConfig{QueueSize: 10},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	sender := &captureSender{ch: make(chan mail.Message, 10)}

	a, err := New(testConfig(), db, nil, sender)
	require.NoError(t, err)
	stop := a.Mailer.Start(1)

	srv := httptest.NewServer(a.Router)
	t.Cleanup(func() {
		srv.Close()
		_ = stop(context.Background())
	})
	return &testServer{Server: srv, db: db, mail: sender}
}

func (s *testServer) client(t *testing.T) *http.Client {
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

func get(t *testing.T, c *http.Client, rawURL string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func post(t *testing.T, c *http.Client, rawURL string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := c.PostForm(rawURL, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (s *testServer) register(t *testing.T, username, password string) {
	t.Helper()
	resp, _ := post(t, s.client(t), s.URL+"/register", url.Values{
		"username":  {username},
		"email":     {username + "@example.com"},
		"password":  {password},
		"password2": {password},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))
}

func (s *testServer) login(t *testing.T, username, password string) *http.Client {
	t.Helper()
	c := s.client(t)
	resp, _ := post(t, c, s.URL+"/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/index", resp.Header.Get("Location"))
	return c
}

func TestAnonymousRedirectedToLogin(t *testing.T) {
	s := newTestServer(t)

	resp, _ := get(t, s.client(t), s.URL+"/explore")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fexplore", resp.Header.Get("Location"))
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "pw-alice")

	c := s.client(t)
	resp, _ := post(t, c, s.URL+"/login?next=%2Fexplore", url.Values{"username": {"alice"}, "password": {"pw-alice"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/explore", resp.Header.Get("Location"))

	resp, body := get(t, c, s.URL+"/index")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Hi, alice!")

	// logged-in users are sent away from the login page
	resp, _ = get(t, c, s.URL+"/login")
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp, _ = get(t, c, s.URL+"/logout")
	assert.Equal(t, "/index", resp.Header.Get("Location"))
	resp, _ = get(t, c, s.URL+"/index")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "pw")

	resp, body := post(t, s.client(t), s.URL+"/register", url.Values{
		"username":  {"alice"},
		"email":     {"other@example.com"},
		"password":  {"pw"},
		"password2": {"pw"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Please use a different username.")

	var n int64
	require.NoError(t, s.db.Model(&model.User{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "pw-alice")

	c := s.client(t)
	resp, _ := post(t, c, s.URL+"/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	_, body := get(t, c, s.URL+"/login")
	assert.Contains(t, body, "Invalid username or password")

	resp, _ = post(t, c, s.URL+"/login", url.Values{"username": {"nobody"}, "password": {"pw"}})
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestLoginIgnoresOffsiteNext(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "pw")

	for _, next := range []string{"http://evil.example/", "//evil.example/x"} {
		resp, _ := post(t, s.client(t), s.URL+"/login?next="+url.QueryEscape(next), url.Values{"username": {"alice"}, "password": {"pw"}})
		assert.Equal(t, "/index", resp.Header.Get("Location"), next)
	}
}

func TestPublishPost(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "pw")
	c := s.login(t, "alice", "pw")

	resp, body := post(t, c, s.URL+"/index", url.Values{"post": {"too short"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Field must be between 10 and 140 characters long.")

	var n int64
	require.NoError(t, s.db.Model(&model.Post{}).Count(&n).Error)
	assert.Zero(t, n)

	resp, _ = post(t, c, s.URL+"/index", url.Values{"post": {"hello from alice"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/index", resp.Header.Get("Location"))

	_, body = get(t, c, s.URL+"/index")
	assert.Contains(t, body, "Your post is now live!")
	assert.Contains(t, body, "hello from alice")

	require.NoError(t, s.db.Model(&model.Post{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestFeedPagination(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "pw")
	c := s.login(t, "alice", "pw")

	for i := 0; i < 4; i++ {
		resp, _ := post(t, c, s.URL+"/index", url.Values{"post": {"numbered post " + string(rune('a'+i))}})
		require.Equal(t, http.StatusFound, resp.StatusCode)
	}

	_, body := get(t, c, s.URL+"/index")
	assert.Contains(t, body, `href="/index?page=2"`)
	assert.NotContains(t, body, "Newer posts")

	_, body = get(t, c, s.URL+"/index?page=2")
	assert.Contains(t, body, `href="/index?page=1"`)
	assert.NotContains(t, body, "Older posts")
}

func TestFollowFlow(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "pw")
	s.register(t, "bob", "pw")
	c := s.login(t, "alice", "pw")

	resp, _ := get(t, c, s.URL+"/follow/bob")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/user/bob", resp.Header.Get("Location"))

	_, body := get(t, c, s.URL+"/user/bob")
	assert.Contains(t, body, "You are following bob!")
	assert.Contains(t, body, "1 followers, 0 following.")
	assert.Contains(t, body, `href="/unfollow/bob"`)

	get(t, c, s.URL+"/follow/bob")
	_, body = get(t, c, s.URL+"/user/bob")
	assert.Contains(t, body, "You are already following bob.")
	assert.Contains(t, body, "1 followers, 0 following.")

	get(t, c, s.URL+"/follow/alice")
	_, body = get(t, c, s.URL+"/user/alice")
	assert.Contains(t, body, "You cannot follow yourself!")
	assert.Contains(t, body, "0 followers, 1 following.")

	resp, _ = get(t, c, s.URL+"/follow/nobody")
	assert.Equal(t, "/index", resp.Header.Get("Location"))
	_, body = get(t, c, s.URL+"/index")
	assert.Contains(t, body, "User nobody not found.")

	get(t, c, s.URL+"/unfollow/bob")
	_, body = get(t, c, s.URL+"/user/bob")
	assert.Contains(t, body, "You are no longer following bob.")
	assert.NotContains(t, body, "You are not following bob.")
	assert.Contains(t, body, "0 followers, 0 following.")

	resp, _ = get(t, c, s.URL+"/unfollow/bob")
	assert.Equal(t, "/user/bob", resp.Header.Get("Location"))
	_, body = get(t, c, s.URL+"/user/bob")
	assert.Contains(t, body, "You are not following bob.")
	assert.NotContains(t, body, "You are no longer following bob.")
}

func TestFollowedPostsAppearInFeed(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "pw")
	s.register(t, "bob", "pw")

	bob := s.login(t, "bob", "pw")
	post(t, bob, s.URL+"/index", url.Values{"post": {"bob says hello"}})

	alice := s.login(t, "alice", "pw")
	_, body := get(t, alice, s.URL+"/index")
	assert.NotContains(t, body, "bob says hello")

	_, body = get(t, alice, s.URL+"/explore")
	assert.Contains(t, body, "bob says hello")

	get(t, alice, s.URL+"/follow/bob")
	_, body = get(t, alice, s.URL+"/index")
	assert.Contains(t, body, "bob says hello")
}

func TestProfileUnknownUser(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "pw")
	c := s.login(t, "alice", "pw")

	resp, _ := get(t, c, s.URL+"/user/nobody")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEditProfile(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "pw")
	s.register(t, "bob", "pw")
	c := s.login(t, "alice", "pw")

	_, body := get(t, c, s.URL+"/edit_profile")
	assert.Contains(t, body, `value="alice"`)

	resp, body := post(t, c, s.URL+"/edit_profile", url.Values{"username": {"bob"}, "about_me": {""}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Please use a different username.")

	resp, _ = post(t, c, s.URL+"/edit_profile", url.Values{"username": {"alice"}, "about_me": {"I write Go for a living."}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/user/alice", resp.Header.Get("Location"))

	_, body = get(t, c, s.URL+"/user/alice")
	assert.Contains(t, body, "I write Go for a living.")
	assert.Contains(t, body, "Your changes have been saved.")

	resp, _ = post(t, c, s.URL+"/edit_profile", url.Values{"username": {"alicia"}, "about_me": {""}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/user/alicia", resp.Header.Get("Location"))
}

func TestRegisterPasswordConfirmationIsExact(t *testing.T) {
	s := newTestServer(t)

	resp, body := post(t, s.client(t), s.URL+"/register", url.Values{
		"username":  {"alice"},
		"email":     {"alice@example.com"},
		"password":  {"secret "},
		"password2": {"secret"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Field must be equal to password.")

	var n int64
	require.NoError(t, s.db.Model(&model.User{}).Count(&n).Error)
	assert.Zero(t, n)
}

var resetLink = regexp.MustCompile(`/reset_password/(\S+)`)

func TestPasswordReset(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "old-pw")

	anon := s.client(t)
	resp, _ := post(t, anon, s.URL+"/reset_password_request", url.Values{"email": {"alice@example.com"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	var msg mail.Message
	select {
	case msg = <-s.mail.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("reset mail not sent")
	}
	assert.Equal(t, "alice@example.com", msg.To)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(strings.Split(msg.Body, "\n\n")[2]), "http://microblog.test/reset_password/"))
	m := resetLink.FindStringSubmatch(msg.Body)
	require.Len(t, m, 2)
	token := m[1]

	resp, body := get(t, anon, s.URL+"/reset_password/"+token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Reset Your Password")

	resp, _ = post(t, anon, s.URL+"/reset_password/"+token, url.Values{"password": {"new-pw"}, "password2": {"new-pw"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	s.login(t, "alice", "new-pw")

	// a used token no longer matches the stored password
	resp, _ = get(t, anon, s.URL+"/reset_password/"+token)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/index", resp.Header.Get("Location"))
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	s := newTestServer(t)

	resp, _ := post(t, s.client(t), s.URL+"/reset_password_request", url.Values{"email": {"ghost@example.com"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	select {
	case <-s.mail.ch:
		t.Fatal("no mail expected for unknown address")
	case <-time.After(100 * time.Millisecond):
	}

	resp, _ = get(t, s.client(t), s.URL+"/reset_password/not-a-token")
	assert.Equal(t, "/index", resp.Header.Get("Location"))
}

func TestRelationsJSON(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "pw")
	s.register(t, "bob", "pw")

	resp, _ := get(t, s.client(t), s.URL+"/api/v1/users/bob/followers")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	c := s.login(t, "alice", "pw")
	get(t, c, s.URL+"/follow/bob")

	resp, body := get(t, c, s.URL+"/api/v1/users/bob/followers")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Code int `json:"code"`
		Data struct {
			List []string `json:"list"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, []string{"alice"}, out.Data.List)

	_, body = get(t, c, s.URL+"/api/v1/users/alice/following")
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, []string{"bob"}, out.Data.List)

	resp, _ = get(t, c, s.URL+"/api/v1/users/nobody/following")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp, body := get(t, s.client(t), s.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.Metrics = config.MetricsConfig{Enabled: true}
	a, err := New(cfg, testutil.NewDB(t), nil, &captureSender{ch: make(chan mail.Message, 1)})
	require.NoError(t, err)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	c := srv.Client()
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	get(t, c, srv.URL+"/health")

	resp, body := get(t, c, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `microblog_http_requests_total{method="GET",route="/health",status="200"}`)
}
