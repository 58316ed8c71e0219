package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type preferenceDocument struct {
	ID        string    `bson:"_id"`
	Namespace string    `bson:"namespace"`
	Key       string    `bson:"key"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoDB stores preferences in a MongoDB collection
type MongoDB struct {
	client          *mongo.Client
	preferencesColl *mongo.Collection
}

// NewMongoDB connects to the database and checks that it answers
func NewMongoDB(ctx context.Context, dbURL, dbName string) (*MongoDB, error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(dbURL))
	if err != nil {
		return nil, fmt.Errorf("could not connect to MongoDB: %w", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		_ = mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("could not reach MongoDB: %w", err)
	}
	log.Info().Str("database", dbName).Msg("Using MongoDB preference store")

	return &MongoDB{
		client:          mongoClient,
		preferencesColl: mongoClient.Database(dbName).Collection("preferences"),
	}, nil
}

func preferenceID(namespace, key string) string {
	return namespace + "/" + key
}

// Load returns the raw value stored for a namespace and key
func (m *MongoDB) Load(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	var doc preferenceDocument
	err := m.preferencesColl.FindOne(ctx, bson.M{"_id": preferenceID(namespace, key)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("could not load preference %q: %w", key, err)
	}
	return []byte(doc.Value), true, nil
}

// Save replaces the raw value stored for a namespace and key
func (m *MongoDB) Save(ctx context.Context, namespace, key string, value []byte) error {
	id := preferenceID(namespace, key)
	_, err := m.preferencesColl.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"namespace":  namespace,
			"key":        key,
			"value":      string(value),
			"updated_at": time.Now(),
		}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("could not save preference %q: %w", key, err)
	}
	return nil
}

// Close closes the MongoDB connection
func (m *MongoDB) Close() error {
	return m.client.Disconnect(context.Background())
}
