package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/pkg/logger"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AccountService 账户注册、认证与资料维护
type AccountService struct {
	users  repository.UserRepository
	hasher PasswordHasher
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(users repository.UserRepository, hasher PasswordHasher) *AccountService {
	return &AccountService{users: users, hasher: hasher, now: time.Now}
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if err := s.checkAvailable(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	u := &model.User{
		ID:           uuid.New().String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		LastSeen:     now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// 校验与写入之间的并发注册由唯一索引兜底
			if cerr := s.checkAvailable(ctx, in.Username, in.Email); cerr != nil {
				return nil, cerr
			}
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	logger.Info("user registered", zap.String("user", u.ID), zap.String("username", u.Username))
	return u, nil
}

func (s *AccountService) checkAvailable(ctx context.Context, username, email string) error {
	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateUsername
	}
	taken, err = s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateEmail
	}
	return nil
}

// Authenticate 校验用户名与密码；未知用户同样执行一次 bcrypt 比较
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		_ = s.hasher.Compare(s.dummy(), password)
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrBadPassword
	}
	return u, nil
}

func (s *AccountService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	return s.dummyHash
}

func (s *AccountService) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.get(s.users.GetByID(ctx, id))
}

func (s *AccountService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.get(s.users.GetByUsername(ctx, username))
}

func (s *AccountService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.get(s.users.GetByEmail(ctx, email))
}

func (s *AccountService) get(u *model.User, err error) (*model.User, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *AccountService) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.users.ExistsByUsername(ctx, username)
}

func (s *AccountService) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.users.ExistsByEmail(ctx, email)
}

func (s *AccountService) UpdateProfile(ctx context.Context, u *model.User, username, aboutMe string) error {
	if username != u.Username {
		taken, err := s.users.ExistsByUsername(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateUsername
		}
	}
	err := s.users.UpdateProfile(ctx, u.ID, username, aboutMe)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDuplicateUsername
	case errors.Is(err, repository.ErrNotFound):
		return ErrUserNotFound
	case err != nil:
		return err
	}
	u.Username, u.AboutMe = username, aboutMe
	return nil
}

func (s *AccountService) SetPassword(ctx context.Context, userID, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// TouchLastSeen 尽力而为：失败只记录日志，不影响请求
func (s *AccountService) TouchLastSeen(ctx context.Context, userID string) {
	if err := s.users.TouchLastSeen(ctx, userID, s.now().UTC()); err != nil {
		logger.Warn("update last_seen failed", zap.String("user", userID), zap.Error(err))
	}
}
