package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/microblog/internal/model"
)

type PostRepository interface {
	Create(ctx context.Context, p *model.Post) error
	// ListByAuthors 按时间倒序返回指定作者集合的帖子
	ListByAuthors(ctx context.Context, authorIDs []string, offset, limit int) ([]*model.Post, error)
	ListAll(ctx context.Context, offset, limit int) ([]*model.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, p *model.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

func (r *postRepository) ListByAuthors(ctx context.Context, authorIDs []string, offset, limit int) ([]*model.Post, error) {
	if len(authorIDs) == 0 {
		return []*model.Post{}, nil
	}
	return r.list(ctx, r.db.WithContext(ctx).Where("author_id IN ?", authorIDs), offset, limit)
}

func (r *postRepository) ListAll(ctx context.Context, offset, limit int) ([]*model.Post, error) {
	return r.list(ctx, r.db.WithContext(ctx), offset, limit)
}

// 相同时间戳按 id 倒序，保证分页稳定（不重不漏）
func (r *postRepository) list(ctx context.Context, q *gorm.DB, offset, limit int) ([]*model.Post, error) {
	var res []*model.Post
	err := q.Preload("Author").
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}
