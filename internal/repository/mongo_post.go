package repository

import (
	"context"
	"log/slog"
	"time"

	"socialgrid/internal/database"
	"socialgrid/internal/models"
	"socialgrid/internal/observability"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// mongoPostRepository implements PostRepository on MongoDB.
type mongoPostRepository struct {
	coll *mongo.Collection
	log  *observability.RepoLogger
}

// NewMongoPostRepository creates a post repository backed by db's posts collection.
// The unique (userId, slot) index must exist; see database.EnsureMongoIndexes.
func NewMongoPostRepository(db *mongo.Database) PostRepository {
	return &mongoPostRepository{
		coll: db.Collection(database.PostsCollection),
		log:  observability.NewRepoLogger("mongo"),
	}
}

var oldestFirst = bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}

func (r *mongoPostRepository) Create(ctx context.Context, post *models.Post) error {
	ctx, done := r.log.Track(ctx, "create")
	defer done()

	if post.ID == "" {
		post.ID = primitive.NewObjectID().Hex()
	}
	if post.CreatedAt.IsZero() {
		// BSON dates carry millisecond precision.
		post.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	if _, err := r.coll.InsertOne(ctx, post); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrSlotTaken
		}
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

func (r *mongoPostRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	ctx, done := r.log.Track(ctx, "count_by_user")
	defer done()
	return r.coll.CountDocuments(ctx, bson.D{{Key: "userId", Value: userID}})
}

func (r *mongoPostRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	ctx, done := r.log.Track(ctx, "list")
	defer done()

	opts := options.Find().SetSort(oldestFirst)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}

	posts, err := r.find(ctx, bson.D{}, opts)
	if err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, err
	}
	r.log.LogRead(ctx, slog.Int("count", len(posts)))
	return posts, nil
}

func (r *mongoPostRepository) ListByUser(ctx context.Context, userID string) ([]*models.Post, error) {
	ctx, done := r.log.Track(ctx, "list_by_user")
	defer done()

	posts, err := r.find(ctx, bson.D{{Key: "userId", Value: userID}}, options.Find().SetSort(oldestFirst))
	if err != nil {
		r.log.LogError(ctx, err, "list_by_user")
		return nil, err
	}
	return posts, nil
}

func (r *mongoPostRepository) Count(ctx context.Context) (int64, error) {
	ctx, done := r.log.Track(ctx, "count")
	defer done()
	return r.coll.CountDocuments(ctx, bson.D{})
}

func (r *mongoPostRepository) CountDistinctUsers(ctx context.Context) (int64, error) {
	ctx, done := r.log.Track(ctx, "count_users")
	defer done()

	ids, err := r.coll.Distinct(ctx, "userId", bson.D{})
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func (r *mongoPostRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func (r *mongoPostRepository) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]*models.Post, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	posts := make([]*models.Post, 0)
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}
