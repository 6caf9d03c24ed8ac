package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/cache"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/testutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	db        *gorm.DB
	users     repository.UserRepository
	follows   repository.FollowRepository
	posts     repository.PostRepository
	accounts  *AccountService
	relations RelationshipService
	publisher *Publisher
	feed      *FeedService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)
	follows := repository.NewFollowRepository(db)
	posts := repository.NewPostRepository(db)
	index := cache.NewFollowingIndex(nil, follows, 0)
	return &testEnv{
		db:        db,
		users:     users,
		follows:   follows,
		posts:     posts,
		accounts:  NewAccountService(users, NewBcryptHasher(bcrypt.MinCost)),
		relations: NewRelationshipService(users, follows, index),
		publisher: NewPublisher(posts),
		feed:      NewFeedService(posts, index, 5),
	}
}

func (e *testEnv) register(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := e.accounts.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret-" + username,
	})
	require.NoError(t, err)
	return u
}

// fixedClock returns a settable clock func.
func fixedClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}
