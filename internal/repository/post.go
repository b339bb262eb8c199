// Package repository provides the post store implementations.
package repository

import (
	"context"
	"errors"
	"log/slog"

	"socialgrid/internal/models"
	"socialgrid/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrSlotTaken is returned by Create when the (user, slot) pair already exists.
var ErrSlotTaken = errors.New("quota slot already taken")

// PostRepository defines the interface for post data operations
type PostRepository interface {
	// Create inserts post. It returns ErrSlotTaken when post.Slot is already
	// occupied for post.UserID.
	Create(ctx context.Context, post *models.Post) error
	CountByUser(ctx context.Context, userID string) (int64, error)
	// List returns posts oldest first. A limit of 0 returns every post.
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Post, error)
	Count(ctx context.Context) (int64, error)
	CountDistinctUsers(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// postRepository implements PostRepository on a SQL store via GORM.
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger(db.Name())}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	ctx, done := r.log.Track(ctx, "create")
	defer done()

	err := r.db.WithContext(ctx).Create(post).Error
	if isUniqueViolation(err) {
		return ErrSlotTaken
	}
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}

	r.log.LogCreate(ctx,
		slog.String("post_id", post.ID),
		slog.String("user_id", post.UserID),
		slog.Int("slot", post.Slot),
	)
	return nil
}

func (r *postRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	ctx, done := r.log.Track(ctx, "count_by_user")
	defer done()

	var n int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	ctx, done := r.log.Track(ctx, "list")
	defer done()

	var posts []*models.Post
	query := r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&posts).Error; err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, err
	}
	r.log.LogRead(ctx, slog.Int("count", len(posts)))
	return posts, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID string) ([]*models.Post, error) {
	ctx, done := r.log.Track(ctx, "list_by_user")
	defer done()

	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&posts).Error
	if err != nil {
		r.log.LogError(ctx, err, "list_by_user")
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	ctx, done := r.log.Track(ctx, "count")
	defer done()

	var n int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&n).Error
	return n, err
}

func (r *postRepository) CountDistinctUsers(ctx context.Context) (int64, error) {
	ctx, done := r.log.Track(ctx, "count_users")
	defer done()

	var n int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Distinct("user_id").Count(&n).Error
	return n, err
}

func (r *postRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// isUniqueViolation recognises duplicate-key failures whether or not the
// connection was opened with TranslateError.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
