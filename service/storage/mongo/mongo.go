package mongo

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	mongoOnce sync.Once
	db        *mongo.Database
	client    *mongo.Client
)

type Config struct {
	URI      string
	Database string
}

// Init connects and pings once (singleton).
func Init(ctx context.Context, c Config) error {
	var initErr error
	mongoOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		cli, err := mongo.Connect(ctx, options.Client().ApplyURI(c.URI))
		if err != nil {
			initErr = err
			return
		}
		if err := cli.Ping(ctx, nil); err != nil {
			initErr = err
			return
		}
		client = cli
		db = cli.Database(c.Database)
	})
	return initErr
}

func GetDB() *mongo.Database {
	if db == nil {
		panic("mongo not initialized, call Init first")
	}
	return db
}

func Close(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}
