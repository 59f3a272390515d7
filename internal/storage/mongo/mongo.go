// Package mongo provides MongoDB-backed stores and a distributed Locker.
package mongo

import (
	"context"
	"fmt"
	"time"

	lock "github.com/square/mongo-lock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// Collection names.
const (
	CollectionTokens  = "verified_tokens"
	CollectionReports = "token_reports"
	CollectionLocks   = "locks"
)

// Database wraps a mongo database handle.
type Database struct {
	*mongo.Database
	timeout time.Duration
}

// Connect opens a client with majority write concern and pings it.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*Database, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	wcMajority := writeconcern.New(writeconcern.WMajority(), writeconcern.WTimeout(timeout))

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri).SetWriteConcern(wcMajority))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Database{Database: client.Database(database), timeout: timeout}, nil
}

// SetupIndexes creates the secondary indexes used by the stores and the locker.
func (d *Database) SetupIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	_, err := d.Collection(CollectionReports).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "mint_address", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "reporter_identity", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create report indexes: %w", err)
	}

	if err := lock.NewClient(d.Collection(CollectionLocks)).CreateIndexes(ctx); err != nil {
		return fmt.Errorf("create lock indexes: %w", err)
	}
	return nil
}

// Disconnect closes the underlying client.
func (d *Database) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.Client().Disconnect(ctx)
}
