package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/internal/api/middleware"
	"github.com/d60-Lab/microblog/internal/form"
	"github.com/d60-Lab/microblog/pkg/metrics"
)

// Index 首页：关注流 + 发帖表单
func (h *Handler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)

	var f form.PostForm
	errs := form.Errors{}
	if c.Request.Method == http.MethodPost {
		if err := c.ShouldBind(&f); err != nil {
			errs["post"] = "Invalid form submission."
		} else {
			var err error
			errs, err = form.PostSchema().Validate(ctx, f.Values())
			if err != nil {
				h.fail(c, err)
				return
			}
		}
		if errs.OK() {
			if _, err := h.publisher.Publish(ctx, user, strings.TrimSpace(f.Post)); err != nil {
				h.fail(c, err)
				return
			}
			metrics.PostsPublished.Inc()
			middleware.AddFlash(c, "Your post is now live!")
			h.redirect(c, "/index")
			return
		}
	}

	p, err := h.feed.FollowedPosts(ctx, user.ID, pageParam(c), 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	next, prev := pagerLinks("/index", p)
	h.render(c, http.StatusOK, "index.html", gin.H{
		"title":     "Home",
		"show_form": true,
		"form":      f,
		"errors":    errs,
		"posts":     p.Items,
		"next_url":  next,
		"prev_url":  prev,
	})
}

// Explore 全站帖子
func (h *Handler) Explore(c *gin.Context) {
	p, err := h.feed.ExplorePosts(c.Request.Context(), pageParam(c), 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	next, prev := pagerLinks("/explore", p)
	h.render(c, http.StatusOK, "index.html", gin.H{
		"title":    "Explore",
		"posts":    p.Items,
		"next_url": next,
		"prev_url": prev,
	})
}
