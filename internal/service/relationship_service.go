package service

import (
	"context"
	"errors"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
)

// FollowingCache is invalidated after each follow graph mutation.
type FollowingCache interface {
	Invalidate(ctx context.Context, userID string)
}

// RelationshipService 关系链服务
type RelationshipService interface {
	// Follow 返回 created=false 表示边已存在（幂等）
	Follow(ctx context.Context, actorID, targetUsername string) (target *model.User, created bool, err error)
	Unfollow(ctx context.Context, actorID, targetUsername string) (*model.User, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	ListFans(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	Counts(ctx context.Context, userID string) (followers, following int64, err error)
}

type relationshipService struct {
	users      repository.UserRepository
	followRepo repository.FollowRepository
	cache      FollowingCache
}

func NewRelationshipService(users repository.UserRepository, followRepo repository.FollowRepository, cache FollowingCache) RelationshipService {
	return &relationshipService{users: users, followRepo: followRepo, cache: cache}
}

func (s *relationshipService) resolveTarget(ctx context.Context, actorID, targetUsername string) (*model.User, error) {
	target, err := s.users.GetByUsername(ctx, targetUsername)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if target.ID == actorID {
		return target, ErrFollowSelf
	}
	return target, nil
}

func (s *relationshipService) Follow(ctx context.Context, actorID, targetUsername string) (*model.User, bool, error) {
	target, err := s.resolveTarget(ctx, actorID, targetUsername)
	if err != nil {
		return target, false, err
	}
	created, err := s.followRepo.Create(ctx, actorID, target.ID)
	if err != nil {
		return target, false, err
	}
	if created && s.cache != nil {
		s.cache.Invalidate(ctx, actorID)
	}
	return target, created, nil
}

func (s *relationshipService) Unfollow(ctx context.Context, actorID, targetUsername string) (*model.User, error) {
	target, err := s.resolveTarget(ctx, actorID, targetUsername)
	if err != nil {
		return target, err
	}
	removed, err := s.followRepo.Delete(ctx, actorID, target.ID)
	if err != nil {
		return target, err
	}
	if !removed {
		return target, ErrNotFollowing
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, actorID)
	}
	return target, nil
}

func (s *relationshipService) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	return s.followRepo.Exists(ctx, followerID, followeeID)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return page, pageSize
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	page, pageSize = normalizePage(page, pageSize)
	items, err := s.followRepo.ListFollowings(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.FolloweeID
	}
	return s.usernames(ctx, ids)
}

func (s *relationshipService) ListFans(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	page, pageSize = normalizePage(page, pageSize)
	items, err := s.followRepo.ListFollowers(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.FollowerID
	}
	return s.usernames(ctx, ids)
}

// usernames 保持 ids 的顺序
func (s *relationshipService) usernames(ctx context.Context, ids []string) ([]string, error) {
	names, err := s.users.ListUsernames(ctx, ids)
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok {
			res = append(res, name)
		}
	}
	return res, nil
}

func (s *relationshipService) Counts(ctx context.Context, userID string) (int64, int64, error) {
	followers, err := s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	following, err := s.followRepo.CountFollowings(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return followers, following, nil
}
