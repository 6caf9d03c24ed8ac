package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/internal/api/middleware"
	"github.com/d60-Lab/microblog/internal/form"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/logger"
)

// ResetPasswordRequest 无论邮箱是否存在都给出相同提示
func (h *Handler) ResetPasswordRequest(c *gin.Context) {
	ctx := c.Request.Context()
	var f form.ResetPasswordRequestForm
	errs := form.Errors{}

	if c.Request.Method == http.MethodPost {
		if err := c.ShouldBind(&f); err != nil {
			errs["email"] = "Invalid form submission."
		} else {
			var err error
			errs, err = form.ResetPasswordRequestSchema().Validate(ctx, f.Values())
			if err != nil {
				h.fail(c, err)
				return
			}
		}
		if errs.OK() {
			if err := h.resets.RequestReset(ctx, strings.TrimSpace(f.Email)); err != nil {
				logger.Error("password reset request failed", zap.Error(err))
			}
			middleware.AddFlash(c, "Check your email for the instructions to reset your password")
			h.redirect(c, "/login")
			return
		}
	}

	h.render(c, http.StatusOK, "reset_password_request.html", gin.H{"title": "Reset Password", "form": f, "errors": errs})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.resets.VerifyToken(ctx, c.Param("token"))
	if errors.Is(err, service.ErrTokenExpired) || errors.Is(err, service.ErrTokenInvalid) {
		h.redirect(c, "/index")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	var f form.ResetPasswordForm
	errs := form.Errors{}
	if c.Request.Method == http.MethodPost {
		if err := c.ShouldBind(&f); err != nil {
			errs["password"] = "Invalid form submission."
		} else {
			errs, err = form.ResetPasswordSchema().Validate(ctx, f.Values())
			if err != nil {
				h.fail(c, err)
				return
			}
		}
		if errs.OK() {
			if err := h.resets.ResetPassword(ctx, user, f.Password); err != nil {
				h.fail(c, err)
				return
			}
			middleware.AddFlash(c, "Your password has been reset.")
			h.redirect(c, "/login")
			return
		}
	}

	h.render(c, http.StatusOK, "reset_password.html", gin.H{"title": "Reset Password", "errors": errs})
}
