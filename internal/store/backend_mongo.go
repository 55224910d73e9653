package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoBackend keeps each collection path in its own MongoDB collection.
// Documents are {_id, position, fields}.
type MongoBackend struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo dials uri and returns a backend using database name.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoBackend, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	return &MongoBackend{client: client, db: client.Database(database)}, nil
}

// Close disconnects the client.
func (b *MongoBackend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}

// Name implements Backend.
func (b *MongoBackend) Name() string {
	return "mongo:" + b.db.Name()
}

func (b *MongoBackend) collection(path string) *mongo.Collection {
	return b.db.Collection(strings.ReplaceAll(path, "/", "."))
}

type mongoRecord struct {
	ID       string `bson:"_id"`
	Position int64  `bson:"position"`
	Fields   bson.M `bson:"fields"`
}

// List implements Backend.
func (b *MongoBackend) List(ctx context.Context, path string) ([]Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := b.collection(path).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []mongoRecord
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		fields, _ := normalizeBSON(doc.Fields).(map[string]any)
		if fields == nil {
			fields = map[string]any{}
		}
		records = append(records, Record{ID: doc.ID, Fields: fields})
	}
	return records, nil
}

// Insert implements Backend.
func (b *MongoBackend) Insert(ctx context.Context, path string, fields map[string]any) (string, error) {
	doc := mongoRecord{
		ID:       uuid.New().String(),
		Position: time.Now().UnixNano(),
		Fields:   bson.M(fields),
	}
	if _, err := b.collection(path).InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

// Merge implements Backend.
func (b *MongoBackend) Merge(ctx context.Context, path, id string, fields map[string]any) error {
	set := bson.M{}
	for k, v := range fields {
		set["fields."+k] = v
	}
	if len(set) == 0 {
		// An empty merge still has to prove the record exists.
		n, err := b.collection(path).CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return types.ErrNotFound
		}
		return nil
	}

	res, err := b.collection(path).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}

// Replace implements Backend. MongoDB standalone servers have no transactions,
// so readers may briefly observe the emptied collection.
func (b *MongoBackend) Replace(ctx context.Context, path string, recs []Record) error {
	coll := b.collection(path)
	if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}

	docs := make([]any, 0, len(recs))
	for i, rec := range recs {
		id := rec.ID
		if id == "" {
			id = uuid.New().String()
		}
		docs = append(docs, mongoRecord{ID: id, Position: int64(i), Fields: bson.M(rec.Fields)})
	}
	_, err := coll.InsertMany(ctx, docs)
	return err
}

// Remove implements Backend.
func (b *MongoBackend) Remove(ctx context.Context, path, id string) error {
	res, err := b.collection(path).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}

// Ping implements Backend.
func (b *MongoBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx, readpref.Primary())
}

// normalizeBSON converts decoded documents and arrays into plain maps and slices.
func normalizeBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		return normalizeMap(map[string]any(t))
	case map[string]any:
		return normalizeMap(t)
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalizeBSON(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeBSON(e)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	case int32:
		return int64(t)
	}
	return v
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, e := range m {
		out[k] = normalizeBSON(e)
	}
	return out
}
