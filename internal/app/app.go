// Package app wires repositories, services and the HTTP router together.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/api"
	"github.com/d60-Lab/microblog/internal/api/handler"
	"github.com/d60-Lab/microblog/internal/api/middleware"
	"github.com/d60-Lab/microblog/internal/cache"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/internal/web"
	"github.com/d60-Lab/microblog/pkg/mail"
)

type App struct {
	Router *gin.Engine
	Mailer *service.MailDispatcher
}

// New builds the application from already-opened dependencies. rdb may be nil.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, sender mail.Sender) (*App, error) {
	users := repository.NewUserRepository(db)
	follows := repository.NewFollowRepository(db)
	posts := repository.NewPostRepository(db)

	following := cache.NewFollowingIndex(rdb, follows, cfg.Redis.FollowingTTL)
	accounts := service.NewAccountService(users, service.NewBcryptHasher(cfg.Auth.BcryptCost))
	sessions := service.NewSessionManager(cfg.Auth.Secret, cfg.Auth.SessionTTL, cfg.Auth.RememberTTL)
	mailer := service.NewMailDispatcher(sender, cfg.Server.BaseURL, cfg.Mail.QueueSize)
	resets := service.NewPasswordResetService(accounts, service.NewResetTokens(cfg.Auth.Secret, cfg.Auth.ResetTokenTTL), mailer)

	tpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	h := handler.New(handler.Options{
		Accounts:  accounts,
		Sessions:  sessions,
		Relations: service.NewRelationshipService(users, follows, following),
		Feed:      service.NewFeedService(posts, following, cfg.Feed.PostsPerPage),
		Publisher: service.NewPublisher(posts),
		Resets:    resets,
		Cookie:    handler.CookieOptions{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure},
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	router := api.NewRouter(api.RouterOptions{
		Handler:     h,
		Templates:   tpl,
		Cookie:      middleware.SessionCookie{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure},
		Sessions:    sessions,
		Users:       accounts,
		RateLimiter: limiter,
		Sentry:      cfg.Sentry.DSN != "",
		Tracing:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Swagger:     cfg.Swagger.Enabled,
		MetricsPath: metricsPath(cfg.Metrics),
	})
	return &App{Router: router, Mailer: mailer}, nil
}

func metricsPath(cfg config.MetricsConfig) string {
	if !cfg.Enabled {
		return ""
	}
	if cfg.Path == "" {
		return "/metrics"
	}
	return cfg.Path
}
