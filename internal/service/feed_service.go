package service

import (
	"context"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
)

// FolloweeIndex yields the ids a user follows (cached or not).
type FolloweeIndex interface {
	IDs(ctx context.Context, userID string) ([]string, error)
}

// Page 一页帖子及翻页信息，页码从 1 开始
type Page struct {
	Items    []*model.Post
	Page     int
	PageSize int
	HasNext  bool
	HasPrev  bool
}

func (p Page) NextNum() int { return p.Page + 1 }
func (p Page) PrevNum() int { return p.Page - 1 }

// FeedService composes paginated post timelines.
type FeedService struct {
	posts           repository.PostRepository
	following       FolloweeIndex
	defaultPageSize int
}

func NewFeedService(posts repository.PostRepository, following FolloweeIndex, defaultPageSize int) *FeedService {
	if defaultPageSize < 1 {
		defaultPageSize = 25
	}
	return &FeedService{posts: posts, following: following, defaultPageSize: defaultPageSize}
}

// FollowedPosts 用户自己及其关注者的帖子
func (s *FeedService) FollowedPosts(ctx context.Context, userID string, page, pageSize int) (Page, error) {
	ids, err := s.following.IDs(ctx, userID)
	if err != nil {
		return Page{}, err
	}
	authors := make([]string, 0, len(ids)+1)
	authors = append(authors, userID)
	for _, id := range ids {
		if id != userID {
			authors = append(authors, id)
		}
	}
	return s.paginate(page, pageSize, func(offset, limit int) ([]*model.Post, error) {
		return s.posts.ListByAuthors(ctx, authors, offset, limit)
	})
}

func (s *FeedService) ExplorePosts(ctx context.Context, page, pageSize int) (Page, error) {
	return s.paginate(page, pageSize, func(offset, limit int) ([]*model.Post, error) {
		return s.posts.ListAll(ctx, offset, limit)
	})
}

func (s *FeedService) UserPosts(ctx context.Context, userID string, page, pageSize int) (Page, error) {
	return s.paginate(page, pageSize, func(offset, limit int) ([]*model.Post, error) {
		return s.posts.ListByAuthors(ctx, []string{userID}, offset, limit)
	})
}

// paginate 多取一条判断是否有下一页
func (s *FeedService) paginate(page, pageSize int, fetch func(offset, limit int) ([]*model.Post, error)) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.defaultPageSize
	}
	items, err := fetch((page-1)*pageSize, pageSize+1)
	if err != nil {
		return Page{}, err
	}
	hasNext := len(items) > pageSize
	if hasNext {
		items = items[:pageSize]
	}
	return Page{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		HasNext:  hasNext,
		HasPrev:  page > 1,
	}, nil
}
