// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microblog_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "microblog_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimitBlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microblog_rate_limit_blocked_total",
			Help: "Total number of requests blocked by rate limiter",
		},
		[]string{"route"},
	)

	FollowingCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microblog_following_cache_lookups_total",
			Help: "Following index lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	MailDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microblog_mail_deliveries_total",
			Help: "Outgoing mail attempts by result (sent, failed, dropped)",
		},
		[]string{"result"},
	)

	MailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "microblog_mail_queue_length",
			Help: "Messages waiting in the mail queue",
		},
	)

	PostsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "microblog_posts_published_total",
			Help: "Total number of posts published",
		},
	)

	FollowChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microblog_follow_changes_total",
			Help: "Follow edges created or removed",
		},
		[]string{"action"},
	)
)
