package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"socialgrid/internal/config"
	"socialgrid/internal/middleware"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostsCollection is the collection that holds posts in the document store.
const PostsCollection = "posts"

// ConnectMongo connects to MongoDB, verifies the connection and ensures the
// post indexes exist. The caller owns the returned client and must Disconnect it.
func ConnectMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(cfg.MongoDatabase)
	if err := EnsureMongoIndexes(connectCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	middleware.Logger.Info("MongoDB connected successfully", slog.String("database", cfg.MongoDatabase))
	return client, db, nil
}

// EnsureMongoIndexes creates the unique quota index on (userId, slot) and the
// createdAt index used for feed ordering. Posts stored without a slot are given
// one first, otherwise two of them for the same user would collide on
// (userId, null) and the unique index could not be built.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(PostsCollection)

	n, err := backfillMongoSlots(ctx, coll)
	if err != nil {
		return err
	}
	if n > 0 {
		middleware.Logger.Info("Backfilled quota slots on existing posts", slog.Int("posts", n))
	}

	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "slot", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_posts_user_slot"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("idx_posts_created_at"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create mongo indexes: %w", err)
	}
	return nil
}

// backfillMongoSlots assigns a slot to every post that has none, per user in
// createdAt order, skipping slots the user already holds. It returns the
// number of posts updated.
func backfillMongoSlots(ctx context.Context, coll *mongo.Collection) (int, error) {
	cur, err := coll.Find(ctx,
		bson.D{{Key: "slot", Value: bson.D{{Key: "$exists", Value: false}}}},
		options.Find().
			SetSort(bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
			SetProjection(bson.D{{Key: "_id", Value: 1}, {Key: "userId", Value: 1}}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to find posts without slot: %w", err)
	}

	var docs []struct {
		ID     any    `bson:"_id"`
		UserID string `bson:"userId"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return 0, fmt.Errorf("failed to read posts without slot: %w", err)
	}

	byUser := make(map[string][]any)
	var users []string
	for _, d := range docs {
		if _, ok := byUser[d.UserID]; !ok {
			users = append(users, d.UserID)
		}
		byUser[d.UserID] = append(byUser[d.UserID], d.ID)
	}

	for _, userID := range users {
		held, err := coll.Distinct(ctx, "slot", bson.D{
			{Key: "userId", Value: userID},
			{Key: "slot", Value: bson.D{{Key: "$exists", Value: true}}},
		})
		if err != nil {
			return 0, fmt.Errorf("failed to read slots for user %q: %w", userID, err)
		}

		ids := byUser[userID]
		for i, slot := range freeSlots(slotSet(held), len(ids)) {
			update := bson.D{{Key: "$set", Value: bson.D{{Key: "slot", Value: slot}}}}
			if _, err := coll.UpdateByID(ctx, ids[i], update); err != nil {
				return 0, fmt.Errorf("failed to backfill slot for post %v: %w", ids[i], err)
			}
		}
	}

	return len(docs), nil
}

// freeSlots returns the n lowest slots not in held, in ascending order.
func freeSlots(held map[int]bool, n int) []int {
	out := make([]int, 0, n)
	for slot := 0; len(out) < n; slot++ {
		if !held[slot] {
			out = append(out, slot)
		}
	}
	return out
}

func slotSet(values []any) map[int]bool {
	out := make(map[int]bool, len(values))
	for _, v := range values {
		switch n := v.(type) {
		case int32:
			out[int(n)] = true
		case int64:
			out[int(n)] = true
		case float64:
			out[int(n)] = true
		}
	}
	return out
}
