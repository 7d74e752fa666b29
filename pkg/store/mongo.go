package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultMongoDatabase is used when no database name is configured.
const DefaultMongoDatabase = "folio"

// MongoStore keeps each table in its own collection. Documents have the
// record ID as _id and the field map under "fields".
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

type mongoRecord struct {
	ID        string    `bson:"_id"`
	Fields    bson.M    `bson:"fields"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoStore connects to uri and pings the primary.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

// Get implements Store.
func (m *MongoStore) Get(ctx context.Context, table, id string) (Record, error) {
	var doc mongoRecord
	err := m.db.Collection(table).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("mongo find %s/%s: %w", table, id, err)
	}
	fields := Fields{}
	for k, v := range doc.Fields {
		fields[k] = normalizeBSON(v)
	}
	return Record{ID: doc.ID, Fields: fields}, nil
}

// Update implements Store.
func (m *MongoStore) Update(ctx context.Context, table, id string, fields Fields) error {
	if err := CheckFields(fields); err != nil {
		return err
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		if err := checkMongoKey(k); err != nil {
			return err
		}
		set["fields."+k] = v
	}
	res, err := m.db.Collection(table).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("mongo update %s/%s: %w", table, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Put implements Putter.
func (m *MongoStore) Put(ctx context.Context, table string, rec Record) error {
	for k := range rec.Fields {
		if err := checkMongoKey(k); err != nil {
			return err
		}
	}
	doc := mongoRecord{ID: rec.ID, Fields: bson.M(rec.Fields.Clone()), UpdatedAt: time.Now().UTC()}
	_, err := m.db.Collection(table).ReplaceOne(ctx, bson.M{"_id": rec.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo replace %s/%s: %w", table, rec.ID, err)
	}
	return nil
}

// Close disconnects the client.
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func checkMongoKey(k string) error {
	if k == "" || strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
		return fmt.Errorf("field name %q not storable in mongo", k)
	}
	return nil
}

// normalizeBSON converts driver container types to plain Go maps and slices
// so Fields helpers see the same shapes as the JSON backends.
func normalizeBSON(v any) any {
	switch x := v.(type) {
	case primitive.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeBSON(e)
		}
		return out
	case primitive.M:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalizeBSON(e)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case primitive.DateTime:
		return Timestamp(x.Time())
	default:
		return v
	}
}
