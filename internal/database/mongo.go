package database

import (
	"context"
	"fmt"
	"time"

	"github.com/GooseOb/pai2024/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const defaultMongoDatabase = "pai2024"

// ConnectMongo dials url and checks the server is reachable. The database
// name comes from the URL path.
func ConnectMongo(ctx context.Context, url string) (*mongo.Database, error) {
	cs, err := connstring.ParseAndValidate(url)
	if err != nil {
		return nil, fmt.Errorf("parse mongo url: %w", err)
	}
	name := cs.Database
	if name == "" {
		name = defaultMongoDatabase
	}

	opts := options.Client().ApplyURI(url).SetServerSelectionTimeout(5 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client.Database(name), nil
}

// EnsureIndexes creates the indexes the application relies on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []struct {
		coll  string
		model mongo.IndexModel
	}{
		{models.Person{}.TableName(), mongo.IndexModel{
			Keys:    bson.D{{Key: "login", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{models.Task{}.TableName(), mongo.IndexModel{
			Keys: bson.D{{Key: "project_id", Value: 1}},
		}},
		{models.Session{}.TableName(), mongo.IndexModel{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
		}},
	}
	for _, ix := range indexes {
		if _, err := db.Collection(ix.coll).Indexes().CreateOne(ctx, ix.model); err != nil {
			return fmt.Errorf("create index on %s: %w", ix.coll, err)
		}
	}
	return nil
}
