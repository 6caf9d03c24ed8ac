package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeSessions map[string]string

func (f fakeSessions) Parse(raw string) (string, error) {
	if id, ok := f[raw]; ok {
		return id, nil
	}
	return "", service.ErrTokenInvalid
}

type fakeUsers struct {
	users   map[string]*model.User
	touched []string
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, service.ErrUserNotFound
}

func (f *fakeUsers) TouchLastSeen(_ context.Context, id string) {
	f.touched = append(f.touched, id)
}

func newSessionRouter(users *fakeUsers) *gin.Engine {
	r := gin.New()
	r.Use(LoadSession(SessionCookie{Name: "sid"}, fakeSessions{"good": "u1", "stale": "gone"}, users))
	r.GET("/who", func(c *gin.Context) {
		if u, ok := CurrentUser(c); ok {
			c.String(http.StatusOK, u.Username)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	r.GET("/private", RequireLogin(), func(c *gin.Context) { c.String(http.StatusOK, "secret") })
	r.GET("/api", RequireLoginJSON(), func(c *gin.Context) { c.String(http.StatusOK, "data") })
	r.GET("/login", RedirectIfAuthenticated(), func(c *gin.Context) { c.String(http.StatusOK, "form") })
	return r
}

func do(r http.Handler, path, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: cookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoadSession(t *testing.T) {
	users := &fakeUsers{users: map[string]*model.User{"u1": {ID: "u1", Username: "alice"}}}
	r := newSessionRouter(users)

	assert.Equal(t, "alice", do(r, "/who", "good").Body.String())
	assert.Equal(t, []string{"u1"}, users.touched)

	assert.Equal(t, "anonymous", do(r, "/who", "").Body.String())

	w := do(r, "/who", "forged")
	assert.Equal(t, "anonymous", w.Body.String())
	assert.Contains(t, w.Header().Get("Set-Cookie"), "sid=;")

	w = do(r, "/who", "stale")
	assert.Equal(t, "anonymous", w.Body.String())
	assert.Contains(t, w.Header().Get("Set-Cookie"), "sid=;")
}

func TestLoginGuards(t *testing.T) {
	users := &fakeUsers{users: map[string]*model.User{"u1": {ID: "u1", Username: "alice"}}}
	r := newSessionRouter(users)

	w := do(r, "/private?x=1", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fprivate%3Fx%3D1", w.Header().Get("Location"))
	assert.Equal(t, "secret", do(r, "/private", "good").Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "/api", "").Code)
	assert.Equal(t, "data", do(r, "/api", "good").Body.String())

	w = do(r, "/login", "good")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/index", w.Header().Get("Location"))
	assert.Equal(t, "form", do(r, "/login", "").Body.String())
}

func TestFlashRoundTrip(t *testing.T) {
	r := gin.New()
	r.GET("/set", func(c *gin.Context) {
		AddFlash(c, "first")
		AddFlash(c, "second")
		c.Status(http.StatusNoContent)
	})
	r.GET("/read", func(c *gin.Context) {
		c.JSON(http.StatusOK, Flashes(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/set", nil))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	last := cookies[len(cookies)-1]
	assert.Equal(t, flashCookie, last.Name)

	req := httptest.NewRequest(http.MethodGet, "/read", nil)
	req.AddCookie(last)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `["first","second"]`, w.Body.String())
	assert.Contains(t, w.Header().Get("Set-Cookie"), "flash=;")

	req = httptest.NewRequest(http.MethodGet, "/read", nil)
	req.AddCookie(&http.Cookie{Name: flashCookie, Value: "%%%"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "null", w.Body.String())
}

func TestSecureCookieFlag(t *testing.T) {
	users := &fakeUsers{users: map[string]*model.User{}}
	r := gin.New()
	r.Use(LoadSession(SessionCookie{Name: "sid", Secure: true}, fakeSessions{}, users))
	r.GET("/set", func(c *gin.Context) {
		AddFlash(c, "hello")
		c.Status(http.StatusNoContent)
	})
	r.GET("/read", func(c *gin.Context) {
		c.JSON(http.StatusOK, Flashes(c))
	})

	w := do(r, "/set", "forged")
	var session, flash *http.Cookie
	for _, ck := range w.Result().Cookies() {
		switch ck.Name {
		case "sid":
			session = ck
		case flashCookie:
			flash = ck
		}
	}
	require.NotNil(t, session)
	require.NotNil(t, flash)
	assert.True(t, session.Secure)
	assert.True(t, flash.Secure)

	req := httptest.NewRequest(http.MethodGet, "/read", nil)
	req.AddCookie(flash)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `["hello"]`, w.Body.String())
	cleared := w.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, flashCookie, cleared[0].Name)
	assert.True(t, cleared[0].Secure)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	r := gin.New()
	r.POST("/login", rl.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

