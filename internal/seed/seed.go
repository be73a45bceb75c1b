package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"kinship/internal/middleware"
	"kinship/internal/models"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	SkipBcrypt  bool
	DryRun      bool
	BatchSize   int
	MaxDays     int
}

func (o Options) batchSize() int {
	if o.BatchSize <= 0 {
		return 100
	}
	return o.BatchSize
}

// Report counts what a run created.
type Report struct {
	Users         int `json:"users" yaml:"users"`
	Posts         int `json:"posts" yaml:"posts"`
	Follows       int `json:"follows" yaml:"follows"`
	Likes         int `json:"likes" yaml:"likes"`
	Comments      int `json:"comments" yaml:"comments"`
	Conversations int `json:"conversations" yaml:"conversations"`
	Messages      int `json:"messages" yaml:"messages"`
}

// Seeder drives a Factory to build a connected demo network.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// Seed optionally clears the social tables, then builds the network.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Report, error) {
	middleware.Logger.InfoContext(ctx, "seeding database",
		slog.Int("users", opts.NumUsers), slog.Int("posts", opts.NumPosts), slog.Bool("dry_run", opts.DryRun))

	if opts.ShouldClean && !opts.DryRun {
		if err := clearData(ctx, db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	report, err := NewSeeder(db, opts).SeedSocialMesh(ctx, opts.NumUsers, opts.NumPosts)
	if err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "seeding complete",
		slog.Int("users", report.Users), slog.Int("posts", report.Posts),
		slog.Int("follows", report.Follows), slog.Int("messages", report.Messages))
	return report, nil
}

// clearTables lists child tables first so deletes respect foreign keys.
var clearTables = []string{
	"notifications", "messages", "participants", "conversations",
	"saved_posts", "likes", "comments", "posts", "follows", "profiles", "users",
}

func clearData(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx)
	if tx.Dialector.Name() == "postgres" {
		sql := "TRUNCATE TABLE "
		for i, t := range clearTables {
			if i > 0 {
				sql += ", "
			}
			sql += t
		}
		return tx.Exec(sql + " RESTART IDENTITY CASCADE").Error
	}
	for _, t := range clearTables {
		if err := tx.Exec("DELETE FROM " + t).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedSocialMesh creates numUsers users who each follow a few others,
// numPosts posts with likes and comment threads, a direct conversation per
// mutual pair sampled and one group.
func (s *Seeder) SeedSocialMesh(ctx context.Context, numUsers, numPosts int) (*Report, error) {
	if numUsers < 2 {
		return nil, fmt.Errorf("need at least 2 users, got %d", numUsers)
	}
	report := &Report{}

	users := make([]*models.User, 0, numUsers)
	for range numUsers {
		u, err := s.factory.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	report.Users = len(users)

	for i, u := range users {
		// Each user follows the next few, which makes neighbours mutual.
		targets := []*models.User{users[(i+1)%numUsers]}
		for step := 2; step <= min(3, numUsers-1); step++ {
			targets = append(targets, users[(i+step)%numUsers])
		}
		edges := [][2]*models.User{{users[(i+1)%numUsers], u}}
		for _, t := range targets {
			edges = append(edges, [2]*models.User{u, t})
		}
		for _, e := range edges {
			created, err := s.factory.CreateFollow(e[0], e[1])
			if err != nil {
				return nil, fmt.Errorf("create follow: %w", err)
			}
			if created {
				report.Follows++
			}
		}
	}

	posts := make([]*models.Post, 0, numPosts)
	for range numPosts {
		posts = append(posts, s.factory.BuildPost(users[rand.IntN(len(users))]))
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	report.Posts = len(posts)

	for _, p := range posts {
		for range rand.IntN(4) {
			created, err := s.factory.CreateLike(users[rand.IntN(len(users))], p)
			if err != nil {
				return nil, fmt.Errorf("create like: %w", err)
			}
			if created {
				report.Likes++
			}
		}
		if rand.IntN(2) == 0 {
			root, err := s.factory.CreateComment(users[rand.IntN(len(users))], p, nil)
			if err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			if _, err := s.factory.CreateComment(users[rand.IntN(len(users))], p, root); err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			report.Comments += 2
		}
	}

	for i := 0; i+1 < len(users); i += 2 {
		conv, err := s.factory.CreateConversation(users[i], "", users[i+1])
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		report.Conversations++
		for turn := range 4 {
			if _, err := s.factory.CreateMessage(conv, users[i+turn%2]); err != nil {
				return nil, fmt.Errorf("create message: %w", err)
			}
			report.Messages++
		}
	}

	if len(users) >= 3 {
		group, err := s.factory.CreateConversation(users[0], "Book club", users[1:min(len(users), 6)]...)
		if err != nil {
			return nil, fmt.Errorf("create group: %w", err)
		}
		report.Conversations++
		if _, err := s.factory.CreateMessage(group, users[0]); err != nil {
			return nil, fmt.Errorf("create message: %w", err)
		}
		report.Messages++
	}

	return report, nil
}
