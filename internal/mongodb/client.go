// Package mongodb loads source documents from a MongoDB collection.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/davidschrooten/index-bootstrap/config"
	"github.com/davidschrooten/index-bootstrap/internal/document"
)

// Client wraps MongoDB client with additional functionality
type Client struct {
	client   *mongo.Client
	database string
	timeout  time.Duration
}

// NewClient creates a new MongoDB client
func NewClient(ctx context.Context, cfg config.MongoDBConfig) (*Client, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.GetMongoURI())

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Client{
		client:   client,
		database: cfg.Database,
		timeout:  timeout,
	}, nil
}

// Disconnect closes the MongoDB connection
func (c *Client) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// Collection returns a collection from the configured database
func (c *Client) Collection(name string) *mongo.Collection {
	return c.client.Database(c.database).Collection(name)
}

// CountDocuments returns the number of documents in a collection
func (c *Client) CountDocuments(ctx context.Context, collection string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	count, err := c.Collection(collection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// LoadCollection reads every document of collection, ordered by id. The
// value of idField becomes the document id and is stored as "id".
func (c *Client) LoadCollection(ctx context.Context, collection, idField string) (*document.Collection, error) {
	if idField == "" {
		idField = "_id"
	}

	opts := options.Find()
	// Fetch more documents per round trip
	opts.SetBatchSize(1000)

	cursor, err := c.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find documents: %w", err)
	}
	defer cursor.Close(ctx)

	docs := document.NewCollection()
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}

		id, m, err := ToDocument(raw, idField)
		if err != nil {
			return nil, err
		}
		docs.Add(id, document.FromMap(m))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	docs.SortByID()
	return docs, nil
}

// ToDocument converts a decoded BSON document into plain Go values and
// extracts its id.
func ToDocument(raw bson.M, idField string) (string, map[string]any, error) {
	rawID, ok := raw[idField]
	if !ok || rawID == nil {
		return "", nil, fmt.Errorf("document has no %s field", idField)
	}

	id := fmt.Sprint(ConvertValue(rawID))
	m := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == idField {
			continue
		}
		m[k] = ConvertValue(v)
	}
	m["id"] = id
	return id, m, nil
}

// ConvertValue maps BSON types onto the JSON-like values documents hold.
func ConvertValue(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0).UTC()
	case primitive.Decimal128:
		return t.String()
	case primitive.M:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = ConvertValue(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = ConvertValue(item)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = ConvertValue(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ConvertValue(item)
		}
		return out
	case []interface{}:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ConvertValue(item)
		}
		return out
	case int32:
		return int64(t)
	default:
		return v
	}
}
