package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/internal/api/middleware"
	"github.com/d60-Lab/microblog/internal/form"
	"github.com/d60-Lab/microblog/internal/service"
)

func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()
	var f form.RegistrationForm
	errs := form.Errors{}

	if c.Request.Method == http.MethodPost {
		if err := c.ShouldBind(&f); err != nil {
			errs["username"] = "Invalid form submission."
		} else {
			var err error
			errs, err = form.RegistrationSchema(h.accounts).Validate(ctx, f.Values())
			if err != nil {
				h.fail(c, err)
				return
			}
		}
		if errs.OK() {
			_, err := h.accounts.Register(ctx, service.RegisterInput{
				Username: strings.TrimSpace(f.Username),
				Email:    strings.TrimSpace(f.Email),
				Password: f.Password,
			})
			switch {
			case errors.Is(err, service.ErrDuplicateUsername):
				errs["username"] = form.MsgUsernameTaken
			case errors.Is(err, service.ErrDuplicateEmail):
				errs["email"] = form.MsgEmailTaken
			case err != nil:
				h.fail(c, err)
				return
			default:
				middleware.AddFlash(c, "Congratulations, you are now a registered user!")
				h.redirect(c, "/login")
				return
			}
		}
	}

	f.Password, f.Password2 = "", ""
	h.render(c, http.StatusOK, "register.html", gin.H{"title": "Register", "form": f, "errors": errs})
}

// Login 校验凭据并签发会话 cookie，成功后跳转到安全的 next
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	var f form.LoginForm
	errs := form.Errors{}

	if c.Request.Method == http.MethodPost {
		if err := c.ShouldBind(&f); err != nil {
			errs["username"] = "Invalid form submission."
		} else {
			var err error
			errs, err = form.LoginSchema().Validate(ctx, f.Values())
			if err != nil {
				h.fail(c, err)
				return
			}
		}
		if errs.OK() {
			u, err := h.accounts.Authenticate(ctx, strings.TrimSpace(f.Username), f.Password)
			if errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrBadPassword) {
				middleware.AddFlash(c, "Invalid username or password")
				h.redirect(c, c.Request.URL.RequestURI())
				return
			}
			if err != nil {
				h.fail(c, err)
				return
			}
			token, maxAge, err := h.sessions.Issue(u, f.RememberMe)
			if err != nil {
				h.fail(c, err)
				return
			}
			middleware.SetSessionCookie(c, h.cookie.Name, token, maxAge, h.cookie.Secure)
			h.redirect(c, safeNext(c.Query("next")))
			return
		}
	}

	f.Password = ""
	h.render(c, http.StatusOK, "login.html", gin.H{"title": "Sign In", "form": f, "errors": errs})
}

func (h *Handler) Logout(c *gin.Context) {
	middleware.ClearSessionCookie(c, h.cookie.Name, h.cookie.Secure)
	h.redirect(c, "/index")
}
