package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/pkg/logger"
)

// ResetMailer delivers reset links; implementations must not block the caller.
type ResetMailer interface {
	SendPasswordResetEmail(u *model.User, token string)
}

// PasswordResetService 找回密码流程
type PasswordResetService struct {
	accounts *AccountService
	tokens   *ResetTokens
	mailer   ResetMailer
}

func NewPasswordResetService(accounts *AccountService, tokens *ResetTokens, mailer ResetMailer) *PasswordResetService {
	return &PasswordResetService{accounts: accounts, tokens: tokens, mailer: mailer}
}

// RequestReset 未知邮箱静默返回，避免暴露注册信息
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	u, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		logger.Debug("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		return err
	}
	s.mailer.SendPasswordResetEmail(u, token)
	logger.Info("password reset issued", zap.String("user", u.ID))
	return nil
}

// VerifyToken resolves a reset token to its user. A token whose password
// fingerprint no longer matches has already been used.
func (s *PasswordResetService) VerifyToken(ctx context.Context, raw string) (*model.User, error) {
	claims, err := s.tokens.parse(raw)
	if err != nil {
		return nil, err
	}
	u, err := s.accounts.GetByID(ctx, claims.Subject)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if claims.PasswordFingerprint != passwordFingerprint(u.PasswordHash) {
		return nil, ErrTokenInvalid
	}
	return u, nil
}

func (s *PasswordResetService) ResetPassword(ctx context.Context, u *model.User, newPassword string) error {
	return s.accounts.SetPassword(ctx, u.ID, newPassword)
}
