package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rugvedkadu06/aggrigator/internal/logger"
	"github.com/rugvedkadu06/aggrigator/internal/registry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetInstance connects to MongoDB at uri and pings it. The caller owns the
// returned client and closes it with CloseInstance.
func GetInstance(uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("database connection URL is empty")
	}

	clientOptions := options.Client().ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetConnectTimeout(5 * time.Second).
		SetSocketTimeout(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancelPing()
	if err := client.Ping(ctxPing, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.GetAppLogger().Info("Successfully connected to MongoDB")
	return client, nil
}

// CloseInstance disconnects the client. A nil client is a no-op.
func CloseInstance(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.GetAppLogger().WithError(err).Error("Failed to disconnect MongoDB client")
		return err
	}
	logger.GetAppLogger().Info("Successfully disconnected from MongoDB")
	return nil
}

// MissingCollections returns the names in want that do not exist in db.
func MissingCollections(ctx context.Context, db *mongo.Database, want []string) ([]string, error) {
	existing, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections of %s: %w", db.Name(), err)
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}
	var missing []string
	for _, name := range want {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// RegisterCollections registers db.Collection(name) for every name in reg.
func RegisterCollections(reg *registry.Registry[*mongo.Collection], db *mongo.Database, names ...string) error {
	for _, name := range names {
		isNew, err := reg.Register(name, db.Collection(name))
		if err != nil {
			return fmt.Errorf("register collection %q: %w", name, err)
		}
		if !isNew {
			logger.WithCollection(name).Warn("Collection registered twice")
		}
	}
	return nil
}
