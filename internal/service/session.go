package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/d60-Lab/microblog/internal/model"
)

// SessionManager 签发与解析登录会话 token
type SessionManager struct {
	secret      []byte
	sessionTTL  time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

func NewSessionManager(secret string, sessionTTL, rememberTTL time.Duration) *SessionManager {
	return &SessionManager{
		secret:      []byte(secret),
		sessionTTL:  sessionTTL,
		rememberTTL: rememberTTL,
		now:         time.Now,
	}
}

// Issue returns the signed token and the cookie max-age in seconds.
// A zero max-age means a browser-session cookie.
func (m *SessionManager) Issue(u *model.User, remember bool) (string, int, error) {
	ttl, maxAge := m.sessionTTL, 0
	if remember {
		ttl, maxAge = m.rememberTTL, int(m.rememberTTL.Seconds())
	}
	now := m.now()
	token, err := signToken(m.secret, &tokenClaims{
		Type: tokenTypeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	if err != nil {
		return "", 0, err
	}
	return token, maxAge, nil
}

// Parse returns the user id carried by a session token.
func (m *SessionManager) Parse(raw string) (string, error) {
	claims, err := parseToken(m.secret, raw, tokenTypeSession, m.now)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
