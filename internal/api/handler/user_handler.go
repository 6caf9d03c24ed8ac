package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/internal/api/middleware"
	"github.com/d60-Lab/microblog/internal/form"
	"github.com/d60-Lab/microblog/internal/service"
)

// Profile 用户主页：资料、关注计数、该用户的帖子
func (h *Handler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	viewer := currentUser(c)

	user, err := h.accounts.GetByUsername(ctx, c.Param("username"))
	if errors.Is(err, service.ErrUserNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	p, err := h.feed.UserPosts(ctx, user.ID, pageParam(c), 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	followers, following, err := h.relService.Counts(ctx, user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	isSelf := viewer.ID == user.ID
	isFollowing := false
	if !isSelf {
		if isFollowing, err = h.relService.IsFollowing(ctx, viewer.ID, user.ID); err != nil {
			h.fail(c, err)
			return
		}
	}

	next, prev := pagerLinks("/user/"+url.PathEscape(user.Username), p)
	h.render(c, http.StatusOK, "user.html", gin.H{
		"title":        user.Username,
		"user":         user,
		"posts":        p.Items,
		"followers":    followers,
		"following":    following,
		"is_self":      isSelf,
		"is_following": isFollowing,
		"next_url":     next,
		"prev_url":     prev,
	})
}

func (h *Handler) EditProfile(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)
	f := form.EditProfileForm{Username: user.Username, AboutMe: user.AboutMe}
	errs := form.Errors{}

	if c.Request.Method == http.MethodPost {
		f = form.EditProfileForm{}
		if err := c.ShouldBind(&f); err != nil {
			errs["username"] = "Invalid form submission."
		} else {
			var err error
			errs, err = form.EditProfileSchema(user.Username, h.accounts).Validate(ctx, f.Values())
			if err != nil {
				h.fail(c, err)
				return
			}
		}
		if errs.OK() {
			err := h.accounts.UpdateProfile(ctx, user, strings.TrimSpace(f.Username), strings.TrimSpace(f.AboutMe))
			switch {
			case errors.Is(err, service.ErrDuplicateUsername):
				errs["username"] = form.MsgUsernameTaken
			case err != nil:
				h.fail(c, err)
				return
			default:
				middleware.AddFlash(c, "Your changes have been saved.")
				h.redirect(c, "/user/"+url.PathEscape(user.Username))
				return
			}
		}
	}

	h.render(c, http.StatusOK, "edit_profile.html", gin.H{"title": "Edit Profile", "form": f, "errors": errs})
}
