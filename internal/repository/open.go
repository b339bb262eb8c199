package repository

import (
	"context"

	"socialgrid/internal/config"
	"socialgrid/internal/database"
)

// Open connects the store selected by cfg.StoreDriver and returns its post
// repository with a function that releases the connection.
func Open(ctx context.Context, cfg *config.Config) (PostRepository, func(context.Context) error, error) {
	if cfg.StoreDriver == config.DriverMongo {
		client, db, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return NewMongoPostRepository(db), client.Disconnect, nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return NewPostRepository(db), closeFn, nil
}
