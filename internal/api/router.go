package api

import (
	"html/template"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/d60-Lab/microblog/docs"
	"github.com/d60-Lab/microblog/internal/api/handler"
	"github.com/d60-Lab/microblog/internal/api/middleware"
)

type RouterOptions struct {
	Handler     *handler.Handler
	Templates   *template.Template
	Cookie      middleware.SessionCookie
	Sessions    middleware.SessionParser
	Users       middleware.UserLoader
	RateLimiter *middleware.RateLimiter

	Sentry      bool
	Tracing     bool
	ServiceName string
	Swagger     bool
	MetricsPath string
}

// NewRouter 组装中间件与路由
func NewRouter(opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), middleware.Metrics(), gin.Recovery())
	if opts.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if opts.Tracing {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	var noGzip []string
	if opts.MetricsPath != "" {
		// promhttp 自己压缩
		noGzip = append(noGzip, opts.MetricsPath)
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths(noGzip)))
	r.SetHTMLTemplate(opts.Templates)

	h := opts.Handler
	r.GET("/health", h.Health)
	if opts.MetricsPath != "" {
		r.GET(opts.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	site := r.Group("/", middleware.LoadSession(opts.Cookie, opts.Sessions, opts.Users))
	site.GET("/logout", h.Logout)

	limit := func(c *gin.Context) { c.Next() }
	if opts.RateLimiter != nil {
		limit = opts.RateLimiter.Handler()
	}

	anon := site.Group("/", middleware.RedirectIfAuthenticated())
	{
		anon.GET("/register", h.Register)
		anon.POST("/register", limit, h.Register)
		anon.GET("/login", h.Login)
		anon.POST("/login", limit, h.Login)
		anon.GET("/reset_password_request", h.ResetPasswordRequest)
		anon.POST("/reset_password_request", limit, h.ResetPasswordRequest)
		anon.GET("/reset_password/:token", h.ResetPassword)
		anon.POST("/reset_password/:token", limit, h.ResetPassword)
	}

	auth := site.Group("/", middleware.RequireLogin())
	{
		auth.GET("/", h.Index)
		auth.POST("/", h.Index)
		auth.GET("/index", h.Index)
		auth.POST("/index", h.Index)
		auth.GET("/explore", h.Explore)
		auth.GET("/user/:username", h.Profile)
		auth.GET("/edit_profile", h.EditProfile)
		auth.POST("/edit_profile", h.EditProfile)
		auth.GET("/follow/:username", h.Follow)
		auth.GET("/unfollow/:username", h.Unfollow)
	}

	v1 := site.Group("/api/v1", middleware.RequireLoginJSON())
	{
		v1.GET("/users/:username/following", h.ListFollowing)
		v1.GET("/users/:username/followers", h.ListFans)
	}

	r.NoRoute(middleware.LoadSession(opts.Cookie, opts.Sessions, opts.Users), h.NoRoute)
	return r
}
