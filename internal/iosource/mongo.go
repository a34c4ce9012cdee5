package iosource

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/tmforge/tmmigrate/internal/iomongo"
	"github.com/tmforge/tmmigrate/pkg/config"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/migrate"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoSource struct {
	client   *mongo.Client
	db       *mongo.Database
	pageSize int
	timeout  time.Duration
}

// NewMongo connects to the legacy MongoDB database.
func NewMongo(ctx context.Context, cfg *config.Config) (migrate.Source, error) {
	timeout := cfg.Migrate.Timeout
	client, err := iomongo.Connect(ctx, cfg.Source.URI, timeout)
	if err != nil {
		return nil, ConnectionError("mongo", cfg.Source.Database, err)
	}
	slog.Info("Connected to source store",
		"kind", "mongo", "database", cfg.Source.Database)

	return &mongoSource{
		client:   client,
		db:       client.Database(cfg.Source.Database),
		pageSize: pageSize(cfg),
		timeout:  timeout,
	}, nil
}

// Read pages through the collection by _id. Every page is a separate
// query with its own timeout, so a long scan never holds a cursor open
// for the whole stage. A non-empty cursor that is an ObjectID hex string
// is compared as an ObjectID, any other cursor as a string.
func (s *mongoSource) Read(
	ctx context.Context,
	t entity.Type,
	cursor string,
) iter.Seq2[entity.Record, error] {
	return func(yield func(entity.Record, error) bool) {
		coll := s.db.Collection(t.SourceCollection())
		var after any
		if cursor != "" {
			after = cursorValue(cursor)
		}
		for {
			recs, last, err := s.page(ctx, coll, t, after)
			if err != nil {
				yield(entity.Record{}, err)
				return
			}
			for _, v := range recs {
				if !yield(v, nil) {
					return
				}
			}
			if len(recs) < s.pageSize {
				return
			}
			after = last
		}
	}
}

func (s *mongoSource) page(
	ctx context.Context,
	coll *mongo.Collection,
	t entity.Type,
	after any,
) ([]entity.Record, any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := afterFilter(after)
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(s.pageSize))

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, nil, ReadError(t, err)
	}
	defer cur.Close(ctx)

	res := make([]entity.Record, 0, s.pageSize)
	var last any
	for cur.Next(ctx) {
		var doc bson.M
		if err = cur.Decode(&doc); err != nil {
			return nil, nil, DecodeError(t, "", err)
		}
		id := doc["_id"]
		key, ok := keyOf(id)
		if !ok {
			return nil, nil, DecodeError(t, "", InvalidKeyError(id))
		}
		last = id
		delete(doc, "_id")
		res = append(res, entity.Record{
			Type:   t,
			Key:    key,
			Fields: normalizeMap(doc),
		})
	}
	if err = cur.Err(); err != nil {
		return nil, nil, ReadError(t, err)
	}
	return res, last, nil
}

// idTypeOrder lists BSON types in the order MongoDB sorts _id values.
var idTypeOrder = []string{
	"number", "string", "object", "array", "binData", "objectId",
	"bool", "date", "timestamp", "regex",
}

// afterFilter selects documents sorted after the _id. Range operators only
// match values of the same BSON type, so types that sort later are
// selected by $type.
func afterFilter(after any) bson.M {
	if after == nil {
		return bson.M{}
	}
	gt := bson.M{"_id": bson.M{"$gt": after}}
	later := laterTypes(after)
	if len(later) == 0 {
		return gt
	}
	return bson.M{"$or": bson.A{
		gt,
		bson.M{"_id": bson.M{"$type": later}},
	}}
}

func laterTypes(id any) bson.A {
	var name string
	switch id.(type) {
	case int32, int64, float64:
		name = "number"
	case string:
		name = "string"
	case primitive.ObjectID:
		name = "objectId"
	default:
		return nil
	}
	var res bson.A
	for _, v := range idTypeOrder[slices.Index(idTypeOrder, name)+1:] {
		res = append(res, v)
	}
	return res
}

func cursorValue(cursor string) any {
	if id, err := primitive.ObjectIDFromHex(cursor); err == nil {
		return id
	}
	return cursor
}

func (s *mongoSource) Count(ctx context.Context, t entity.Type) (int, error) {
	coll := s.db.Collection(t.SourceCollection())
	n, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, ReadError(t, err)
	}
	return int(n), nil
}

func (s *mongoSource) Close() error {
	return iomongo.Disconnect(s.client, s.timeout)
}
