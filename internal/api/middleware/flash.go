package middleware

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	flashCookie = "flash"
	pendingKey  = "pending_flashes"
)

// AddFlash queues a one-shot notice shown on the next rendered page.
func AddFlash(c *gin.Context, msg string) {
	var pending []string
	if v, ok := c.Get(pendingKey); ok {
		pending, _ = v.([]string)
	}
	pending = append(pending, msg)
	c.Set(pendingKey, pending)

	data, err := json.Marshal(pending)
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, base64.RawURLEncoding.EncodeToString(data), 0, "/", "", cookieSecure(c), true)
}

// Flashes consumes the notices carried by the request cookie.
func Flashes(c *gin.Context) []string {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, "", -1, "/", "", cookieSecure(c), true)

	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var msgs []string
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil
	}
	return msgs
}

// cookieSecure reports the Secure flag installed by LoadSession.
func cookieSecure(c *gin.Context) bool {
	return c.GetBool(cookieSecureKey)
}
