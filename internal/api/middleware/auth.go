package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/logger"
	"github.com/d60-Lab/microblog/pkg/response"
)

const (
	currentUserKey  = "current_user"
	cookieSecureKey = "cookie_secure"
)

// SessionCookie names the session cookie and whether cookies require HTTPS.
type SessionCookie struct {
	Name   string
	Secure bool
}

type SessionParser interface {
	Parse(raw string) (string, error)
}

type UserLoader interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	TouchLastSeen(ctx context.Context, userID string)
}

// LoadSession 解析会话 cookie，把当前用户放入请求上下文，并尽力刷新 last_seen
func LoadSession(cookie SessionCookie, sessions SessionParser, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(cookieSecureKey, cookie.Secure)
		raw, err := c.Cookie(cookie.Name)
		if err != nil || raw == "" {
			c.Next()
			return
		}
		userID, err := sessions.Parse(raw)
		if err != nil {
			ClearSessionCookie(c, cookie.Name, cookie.Secure)
			c.Next()
			return
		}
		u, err := users.GetByID(c.Request.Context(), userID)
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			ClearSessionCookie(c, cookie.Name, cookie.Secure)
		case err != nil:
			logger.Warn("load session user failed", zap.String("user", userID), zap.Error(err))
		default:
			c.Set(currentUserKey, u)
			users.TouchLastSeen(c.Request.Context(), u.ID)
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user of this request, if any.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*model.User)
	return u, ok && u != nil
}

// RequireLogin 未登录时跳转登录页并携带 next
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); ok {
			c.Next()
			return
		}
		AddFlash(c, "Please log in to access this page.")
		c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

func RequireLoginJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			response.Unauthorized(c, "login required")
			return
		}
		c.Next()
	}
}

// RedirectIfAuthenticated keeps logged-in users away from anonymous-only pages.
func RedirectIfAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); ok {
			c.Redirect(http.StatusFound, "/index")
			c.Abort()
			return
		}
		c.Next()
	}
}

func SetSessionCookie(c *gin.Context, name, token string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, token, maxAge, "/", "", secure, true)
}

func ClearSessionCookie(c *gin.Context, name string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", secure, true)
}
