// Command feedbench seeds a follow graph and measures home-feed latency with
// and without the Redis following cache.
package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/cache"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	if err := repository.Migrate(db); err != nil {
		panic(err)
	}
	ctx := context.Background()

	N := envInt("N", 1000)
	FOLLOWS := envInt("FOLLOWS", 50)
	POSTS := envInt("POSTS", 5)
	ROUNDS := envInt("ROUNDS", 200)

	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)

	// 所有种子用户共用一个哈希，避免 N 次 bcrypt
	hash := string(must(bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)))
	users := make([]*model.User, N)
	for i := 0; i < N; i++ {
		id := uuid.New().String()
		users[i] = &model.User{ID: id, Username: "bench_" + id[:8], Email: id[:8] + "@bench.local", PasswordHash: hash}
	}
	if err := db.CreateInBatches(users, 500).Error; err != nil {
		panic(err)
	}

	t0 := time.Now()
	rng := rand.New(rand.NewSource(42))
	for _, u := range users {
		for j := 0; j < FOLLOWS && j < N-1; j++ {
			target := users[rng.Intn(N)]
			if target.ID == u.ID {
				continue
			}
			if _, err := followRepo.Create(ctx, u.ID, target.ID); err != nil {
				panic(err)
			}
		}
	}
	followDur := time.Since(t0)

	publisher := service.NewPublisher(postRepo)
	t1 := time.Now()
	for _, u := range users {
		for j := 0; j < POSTS; j++ {
			if _, err := publisher.Publish(ctx, u, fmt.Sprintf("benchmark post number %d", j)); err != nil {
				panic(err)
			}
		}
	}
	postDur := time.Since(t1)

	measure := func(feed *service.FeedService) []time.Duration {
		recs := make([]time.Duration, 0, ROUNDS)
		for i := 0; i < ROUNDS; i++ {
			u := users[rng.Intn(N)]
			st := time.Now()
			if _, err := feed.FollowedPosts(ctx, u.ID, 1, cfg.Feed.PostsPerPage); err != nil {
				panic(err)
			}
			recs = append(recs, time.Since(st))
		}
		return recs
	}

	direct := measure(service.NewFeedService(postRepo, cache.NewFollowingIndex(nil, followRepo, 0), cfg.Feed.PostsPerPage))

	fmt.Printf("N=%d, FOLLOWS=%d, POSTS=%d, ROUNDS=%d\n", N, FOLLOWS, POSTS, ROUNDS)
	fmt.Printf("Seed follows: %v, posts: %v\n", followDur, postDur)
	fmt.Printf("Feed (db only) p50=%v p95=%v p99=%v\n", pct(direct, 0.50), pct(direct, 0.95), pct(direct, 0.99))

	rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil || rdb == nil {
		fmt.Println("Feed (redis): skipped, redis not configured")
		return
	}
	defer rdb.Close()
	index := cache.NewFollowingIndex(rdb, followRepo, cfg.Redis.FollowingTTL)
	cached := measure(service.NewFeedService(postRepo, index, cfg.Feed.PostsPerPage))
	fmt.Printf("Feed (redis) p50=%v p95=%v p99=%v\n", pct(cached, 0.50), pct(cached, 0.95), pct(cached, 0.99))

	// 验证缓存结果与数据库一致
	sample := users[0]
	fromCache := must(index.IDs(ctx, sample.ID))
	fromDB := must(followRepo.ListFolloweeIDs(ctx, sample.ID))
	fmt.Printf("Consistency check for %s: cache=%d db=%d\n", sample.Username, len(fromCache), len(fromDB))
}
