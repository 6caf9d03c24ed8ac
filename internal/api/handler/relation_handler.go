package handler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/internal/api/middleware"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/metrics"
	"github.com/d60-Lab/microblog/pkg/response"
)

// Follow 关注用户，重复关注只提示不报错
func (h *Handler) Follow(c *gin.Context) {
	name := c.Param("username")
	target, created, err := h.relService.Follow(c.Request.Context(), currentUser(c).ID, name)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		middleware.AddFlash(c, fmt.Sprintf("User %s not found.", name))
		h.redirect(c, "/index")
	case errors.Is(err, service.ErrFollowSelf):
		middleware.AddFlash(c, "You cannot follow yourself!")
		h.redirect(c, "/user/"+url.PathEscape(name))
	case err != nil:
		h.fail(c, err)
	case !created:
		middleware.AddFlash(c, fmt.Sprintf("You are already following %s.", target.Username))
		h.redirect(c, "/user/"+url.PathEscape(target.Username))
	default:
		metrics.FollowChanges.WithLabelValues("follow").Inc()
		middleware.AddFlash(c, fmt.Sprintf("You are following %s!", target.Username))
		h.redirect(c, "/user/"+url.PathEscape(target.Username))
	}
}

func (h *Handler) Unfollow(c *gin.Context) {
	name := c.Param("username")
	target, err := h.relService.Unfollow(c.Request.Context(), currentUser(c).ID, name)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		middleware.AddFlash(c, fmt.Sprintf("User %s not found.", name))
		h.redirect(c, "/index")
	case errors.Is(err, service.ErrFollowSelf):
		middleware.AddFlash(c, "You cannot unfollow yourself!")
		h.redirect(c, "/user/"+url.PathEscape(name))
	case errors.Is(err, service.ErrNotFollowing):
		middleware.AddFlash(c, fmt.Sprintf("You are not following %s.", name))
		h.redirect(c, "/user/"+url.PathEscape(name))
	case err != nil:
		h.fail(c, err)
	default:
		metrics.FollowChanges.WithLabelValues("unfollow").Inc()
		middleware.AddFlash(c, fmt.Sprintf("You are no longer following %s.", target.Username))
		h.redirect(c, "/user/"+url.PathEscape(target.Username))
	}
}

func pagingQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	return page, pageSize
}

// ListFollowing 查询某用户关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Produce json
// @Param username path string true "用户名"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{username}/following [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	h.listRelations(c, h.relService.ListFollowing)
}

// ListFans 查询某用户的粉丝
// @Summary 查询粉丝列表
// @Tags 关系链
// @Produce json
// @Param username path string true "用户名"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{username}/followers [get]
func (h *Handler) ListFans(c *gin.Context) {
	h.listRelations(c, h.relService.ListFans)
}

type relationLister func(ctx context.Context, userID string, page, pageSize int) ([]string, error)

func (h *Handler) listRelations(c *gin.Context, list relationLister) {
	ctx := c.Request.Context()
	user, err := h.accounts.GetByUsername(ctx, c.Param("username"))
	if errors.Is(err, service.ErrUserNotFound) {
		response.NotFound(c, "user not found")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	page, pageSize := pagingQuery(c)
	names, err := list(ctx, user.ID, page, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"username": user.Username, "page": page, "page_size": pageSize, "list": names})
}
