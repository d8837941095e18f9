package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const DefaultMongoDatabase = "ecoscan"

// ConnectMongo connects and pings. dbName wins over a database named in the
// URI, which wins over DefaultMongoDatabase.
func ConnectMongo(ctx context.Context, mongoURI, dbName string, log *zap.SugaredLogger) (*mongo.Client, *mongo.Database, error) {
	connCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(mongoURI)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(connCtx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	if dbName == "" {
		dbName = databaseFromURI(mongoURI)
	}
	log.Infow("connected to MongoDB", "database", dbName)
	return client, client.Database(dbName), nil
}

// databaseFromURI extracts the path segment of mongodb://host/<db>?opts.
func databaseFromURI(uri string) string {
	rest := uri
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	i := strings.Index(rest, "/")
	if i < 0 {
		return DefaultMongoDatabase
	}
	name := strings.SplitN(rest[i+1:], "?", 2)[0]
	if name == "" {
		return DefaultMongoDatabase
	}
	return name
}

// DisconnectMongo closes the client with a bounded wait.
func DisconnectMongo(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return client.Disconnect(ctx)
}
