// Package service holds the post gateway: quota-checked submission and feed reads.
package service

import (
	"context"
	"errors"
	"strings"

	"socialgrid/internal/cache"
	"socialgrid/internal/featureflags"
	"socialgrid/internal/middleware"
	"socialgrid/internal/models"
	"socialgrid/internal/repository"
	"socialgrid/internal/submission"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PostService struct {
	postRepo repository.PostRepository
	flags    *featureflags.Manager
}

// SubmitPostInput is one upload as received from the client.
type SubmitPostInput struct {
	Image      []byte
	MIMEType   string
	TwitterURL string
	UserID     string
}

func NewPostService(postRepo repository.PostRepository, flags *featureflags.Manager) *PostService {
	return &PostService{
		postRepo: postRepo,
		flags:    flags,
	}
}

// Submit stores a new post for in.UserID if the user still has quota.
//
// The count is only a fast path. The insert claims the next free quota slot and
// the store's unique (user, slot) index rejects a concurrent claim of the same
// slot, so a user never ends up with more than models.MaxPostsPerUser posts.
func (s *PostService) Submit(ctx context.Context, in SubmitPostInput) (*models.Post, error) {
	userID := strings.TrimSpace(in.UserID)
	twitterURL := strings.TrimSpace(in.TwitterURL)
	mimeType := strings.TrimSpace(in.MIMEType)

	if len(in.Image) == 0 || mimeType == "" || twitterURL == "" || userID == "" {
		middleware.PostRejections.WithLabelValues("validation").Inc()
		return nil, models.NewValidationError("Missing required fields")
	}
	if err := submission.ValidateImage(int64(len(in.Image)), mimeType); err != nil {
		middleware.PostRejections.WithLabelValues("validation").Inc()
		return nil, err
	}

	used, err := s.postRepo.CountByUser(ctx, userID)
	if err != nil {
		middleware.PostRejections.WithLabelValues("store").Inc()
		return nil, models.NewStoreUnavailableError("Failed to create post", err)
	}
	if used >= models.MaxPostsPerUser {
		middleware.PostRejections.WithLabelValues("quota").Inc()
		return nil, models.NewQuotaExceededError(models.MaxPostsPerUser)
	}

	post := &models.Post{
		ImageURL:   submission.EncodeDataURI(mimeType, in.Image),
		TwitterURL: twitterURL,
		UserID:     userID,
	}

	for slot := int(used); slot < models.MaxPostsPerUser; slot++ {
		post.Slot = slot
		err := s.postRepo.Create(ctx, post)
		if errors.Is(err, repository.ErrSlotTaken) {
			continue
		}
		if err != nil {
			middleware.PostRejections.WithLabelValues("store").Inc()
			return nil, models.NewStoreUnavailableError("Failed to create post", err)
		}

		middleware.PostsCreated.Inc()
		cache.InvalidateFeedStats(ctx)
		return post, nil
	}

	middleware.PostRejections.WithLabelValues("quota").Inc()
	return nil, models.NewQuotaExceededError(models.MaxPostsPerUser)
}

// ListAll returns every post, oldest first, with the feed totals.
func (s *PostService) ListAll(ctx context.Context) (*models.Feed, error) {
	return s.list(ctx, 0, 0)
}

// ListPage is ListAll restricted to one page of posts. limit is clamped to
// [1, MaxPageSize]; the totals still cover the whole store.
func (s *PostService) ListPage(ctx context.Context, limit, offset int) (*models.Feed, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.list(ctx, limit, offset)
}

func (s *PostService) list(ctx context.Context, limit, offset int) (*models.Feed, error) {
	posts, err := s.postRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, models.NewStoreUnavailableError("Failed to fetch posts", err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	stats, err := s.feedStats(ctx)
	if err != nil {
		return nil, models.NewStoreUnavailableError("Failed to fetch posts", err)
	}

	return &models.Feed{
		Posts:      posts,
		TotalPosts: stats.TotalPosts,
		TotalUsers: stats.TotalUsers,
	}, nil
}

func (s *PostService) feedStats(ctx context.Context) (models.FeedStats, error) {
	var stats models.FeedStats
	fetch := func() error {
		total, err := s.postRepo.Count(ctx)
		if err != nil {
			return err
		}
		users, err := s.postRepo.CountDistinctUsers(ctx)
		if err != nil {
			return err
		}
		stats = models.FeedStats{TotalPosts: total, TotalUsers: users}
		return nil
	}

	if !s.flags.Global(featureflags.FeedStatsCache) {
		err := fetch()
		return stats, err
	}
	err := cache.Aside(ctx, cache.FeedStatsKey, &stats, cache.FeedStatsTTL, fetch)
	return stats, err
}

// UserPosts returns the posts owned by userID, oldest first.
func (s *PostService) UserPosts(ctx context.Context, userID string) ([]*models.Post, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	posts, err := s.postRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, models.NewStoreUnavailableError("Failed to fetch posts", err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

// Quota reports how many of the per-user posts userID has used.
func (s *PostService) Quota(ctx context.Context, userID string) (*models.Quota, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	used, err := s.postRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, models.NewStoreUnavailableError("Failed to fetch quota", err)
	}
	remaining := int64(models.MaxPostsPerUser) - used
	if remaining < 0 {
		remaining = 0
	}
	return &models.Quota{
		UserID:    userID,
		Used:      used,
		Remaining: remaining,
		Max:       models.MaxPostsPerUser,
	}, nil
}
