package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo keeps one BSON document per path (_id = path) with a numeric
// version field used as the compare-and-swap token.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type mongoDoc struct {
	Path      string    `bson:"_id"`
	Version   int64     `bson:"version"`
	Body      string    `bson:"body"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// OpenMongo connects and pings the server.
func OpenMongo(ctx context.Context, uri, database, collection string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("mongo URI is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Mongo{client: client, collection: client.Database(database).Collection(collection)}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) Conditional() bool { return true }

func (m *Mongo) Load(ctx context.Context, path string) (Document, error) {
	var doc mongoDoc
	err := m.collection.FindOne(ctx, bson.M{"_id": path}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("load %s: %w", path, err)
	}
	return Document{Body: []byte(doc.Body), Version: formatVersion(doc.Version)}, nil
}

func (m *Mongo) Save(ctx context.Context, path string, body []byte, expectedVersion string) (string, error) {
	now := time.Now().UTC()
	if expectedVersion == "" {
		_, err := m.collection.InsertOne(ctx, mongoDoc{Path: path, Version: 1, Body: string(body), UpdatedAt: now})
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrVersionConflict
		}
		if err != nil {
			return "", fmt.Errorf("insert %s: %w", path, err)
		}
		return formatVersion(1), nil
	}

	want, err := parseVersion(expectedVersion)
	if err != nil {
		return "", err
	}
	res, err := m.collection.UpdateOne(ctx,
		bson.M{"_id": path, "version": want},
		bson.M{
			"$set": bson.M{"body": string(body), "updated_at": now},
			"$inc": bson.M{"version": 1},
		},
		options.Update().SetUpsert(false),
	)
	if err != nil {
		return "", fmt.Errorf("update %s: %w", path, err)
	}
	if res.MatchedCount == 0 {
		return "", ErrVersionConflict
	}
	return formatVersion(want + 1), nil
}
