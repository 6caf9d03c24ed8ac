package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
)

// Publisher 负责落地新帖子
type Publisher struct {
	posts repository.PostRepository
	now   func() time.Time
}

func NewPublisher(posts repository.PostRepository) *Publisher {
	return &Publisher{posts: posts, now: time.Now}
}

// Publish 帖子 id 使用 UUIDv7，与插入顺序一致
func (p *Publisher) Publish(ctx context.Context, author *model.User, body string) (*model.Post, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("post id: %w", err)
	}
	post := &model.Post{
		ID:        id.String(),
		AuthorID:  author.ID,
		Body:      body,
		CreatedAt: p.now().UTC(),
	}
	if err := p.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	post.Author = *author
	return post, nil
}
