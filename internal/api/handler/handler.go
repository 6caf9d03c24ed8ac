package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/internal/api/middleware"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/logger"
)

// CookieOptions 会话 cookie 设置
type CookieOptions struct {
	Name   string
	Secure bool
}

type Options struct {
	Accounts  *service.AccountService
	Sessions  *service.SessionManager
	Relations service.RelationshipService
	Feed      *service.FeedService
	Publisher *service.Publisher
	Resets    *service.PasswordResetService
	Cookie    CookieOptions
	// Ping reports database liveness for /health.
	Ping func(ctx context.Context) error
}

type Handler struct {
	accounts   *service.AccountService
	sessions   *service.SessionManager
	relService service.RelationshipService
	feed       *service.FeedService
	publisher  *service.Publisher
	resets     *service.PasswordResetService
	cookie     CookieOptions
	ping       func(ctx context.Context) error
}

func New(opts Options) *Handler {
	return &Handler{
		accounts:   opts.Accounts,
		sessions:   opts.Sessions,
		relService: opts.Relations,
		feed:       opts.Feed,
		publisher:  opts.Publisher,
		resets:     opts.Resets,
		cookie:     opts.Cookie,
		ping:       opts.Ping,
	}
}

// render 注入当前用户与 flash 消息后渲染页面
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if u, ok := middleware.CurrentUser(c); ok {
		data["current_user"] = u
	}
	data["flashes"] = middleware.Flashes(c)
	c.HTML(status, name, data)
}

func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	h.render(c, http.StatusInternalServerError, "error.html", gin.H{
		"title":   "Error",
		"heading": "An unexpected error has occurred",
		"detail":  "The administrator has been notified. Sorry for the inconvenience!",
	})
}

func (h *Handler) notFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "error.html", gin.H{
		"title":   "Not Found",
		"heading": "File Not Found",
		"detail":  "The page you asked for does not exist.",
	})
}

// NoRoute serves the 404 page for unknown paths.
func (h *Handler) NoRoute(c *gin.Context) { h.notFound(c) }

func (h *Handler) redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusFound, location)
}

func currentUser(c *gin.Context) *model.User {
	u, _ := middleware.CurrentUser(c)
	return u
}

// pageParam 读取 ?page=，非法值按第一页处理
func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// pagerLinks 生成上一页/下一页链接，无则为空串
func pagerLinks(path string, p service.Page) (next, prev string) {
	if p.HasNext {
		next = fmt.Sprintf("%s?page=%d", path, p.NextNum())
	}
	if p.HasPrev {
		prev = fmt.Sprintf("%s?page=%d", path, p.PrevNum())
	}
	return next, prev
}

// safeNext only accepts site-relative paths as post-login targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/index"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/index"
	}
	return next
}
