package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/d60-Lab/microblog/internal/model"
)

// ResetTokens issues stateless password reset tokens.
type ResetTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewResetTokens(secret string, ttl time.Duration) *ResetTokens {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ResetTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (r *ResetTokens) Issue(u *model.User) (string, error) {
	now := r.now()
	return signToken(r.secret, &tokenClaims{
		Type:                tokenTypeReset,
		PasswordFingerprint: passwordFingerprint(u.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
	})
}

func (r *ResetTokens) parse(raw string) (*tokenClaims, error) {
	return parseToken(r.secret, raw, tokenTypeReset, r.now)
}
