package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/testutil"
)

func TestUserRepository_UniqueUsernameAndEmail(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.User{ID: "a", Username: "alice", Email: "alice@example.com", PasswordHash: "h"}))

	err := repo.Create(ctx, &model.User{ID: "b", Username: "alice", Email: "other@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	err = repo.Create(ctx, &model.User{ID: "c", Username: "carol", Email: "alice@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestUserRepository_Lookups(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &model.User{ID: "a", Username: "alice", Email: "alice@example.com", PasswordHash: "h"}))

	u, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "a", u.ID)

	u, err = repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	ok, err := repo.ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ExistsByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	names, err := repo.ListUsernames(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "alice"}, names)
}

func TestUserRepository_Updates(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &model.User{ID: "a", Username: "alice", Email: "alice@example.com", PasswordHash: "h"}))

	require.NoError(t, repo.UpdateProfile(ctx, "a", "alicia", "hello there, world"))
	require.NoError(t, repo.UpdatePassword(ctx, "a", "h2"))
	seen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.TouchLastSeen(ctx, "a", seen))

	u, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "alicia", u.Username)
	assert.Equal(t, "hello there, world", u.AboutMe)
	assert.Equal(t, "h2", u.PasswordHash)
	assert.True(t, seen.Equal(u.LastSeen))

	assert.ErrorIs(t, repo.UpdatePassword(ctx, "missing", "h"), repository.ErrNotFound)
}
