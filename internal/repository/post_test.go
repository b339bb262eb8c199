package repository

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"socialgrid/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Post{}); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	return db
}

func newPost(userID string, slot int) *models.Post {
	return &models.Post{
		ImageURL:   "data:image/png;base64,iVBORw0KGgo=",
		TwitterURL: "@" + userID,
		UserID:     userID,
		Slot:       slot,
	}
}

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := newPost("k3x9a", 0)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Create(ctx, post)
	assert.NoError(t, err)
	assert.NotEmpty(t, post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Create_PgUniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_posts_user_slot"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), newPost("k3x9a", 1))
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Create_OtherErrorPassesThrough(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnError(fmt.Errorf("connection reset"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), newPost("k3x9a", 0))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSlotTaken)
}

func TestPostRepository_CountByUser(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "posts" WHERE user_id = $1`)).
		WithArgs("k3x9a").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountByUser(context.Background(), "k3x9a")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_SQLite(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seed := []*models.Post{newPost("alice", 0), newPost("bob", 0), newPost("alice", 1)}
	for i, p := range seed {
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, p))
	}

	t.Run("DuplicateSlot", func(t *testing.T) {
		err := repo.Create(ctx, newPost("alice", 1))
		assert.ErrorIs(t, err, ErrSlotTaken)
	})

	t.Run("ListOldestFirst", func(t *testing.T) {
		posts, err := repo.List(ctx, 0, 0)
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, seed[0].ID, posts[0].ID)
		assert.Equal(t, seed[2].ID, posts[2].ID)
	})

	t.Run("ListPage", func(t *testing.T) {
		posts, err := repo.List(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, seed[1].ID, posts[0].ID)
	})

	t.Run("ListByUser", func(t *testing.T) {
		posts, err := repo.ListByUser(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, posts, 2)
		for _, p := range posts {
			assert.Equal(t, "alice", p.UserID)
		}
	})

	t.Run("Counts", func(t *testing.T) {
		total, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)

		users, err := repo.CountDistinctUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), users)

		mine, err := repo.CountByUser(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(2), mine)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, repo.Ping(ctx))
	})
}
