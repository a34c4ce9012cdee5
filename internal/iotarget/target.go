// Package iotarget implements the Target interface on top of the new
// MongoDB store.
// This is an impure I/O package.
package iotarget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
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

// legacyKeyField keeps the source key in every written document.
const legacyKeyField = "legacyKey"

type mongoTarget struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// New connects to the new store.
func New(ctx context.Context, cfg *config.Config) (migrate.Target, error) {
	client, err := iomongo.Connect(ctx, cfg.Target.URI, cfg.Migrate.Timeout)
	if err != nil {
		return nil, ConnectionError(cfg.Target.Database, err)
	}
	slog.Info("Connected to target store", "database", cfg.Target.Database)
	return &mongoTarget{
		client:  client,
		db:      client.Database(cfg.Target.Database),
		timeout: cfg.Migrate.Timeout,
	}, nil
}

// Insert writes documents with one unordered InsertMany. Keys are
// generated on the client, so every document knows its new key before
// the call. A document rejected because its legacyKey is already stored
// is not an error: the stored key is returned instead.
func (m *mongoTarget) Insert(
	ctx context.Context,
	t entity.Type,
	docs []entity.Document,
) []migrate.WriteResult {
	res := make([]migrate.WriteResult, len(docs))
	if len(docs) == 0 {
		return res
	}

	coll := m.db.Collection(t.TargetCollection())
	payload := make([]any, len(docs))
	for i, d := range docs {
		id := primitive.NewObjectID()
		payload[i] = toBSON(id, d)
		res[i].NewKey = id.Hex()
	}

	opts := options.InsertMany().SetOrdered(false)
	_, err := coll.InsertMany(ctx, payload, opts)
	if err == nil {
		return res
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || len(bwe.WriteErrors) == 0 {
		// nothing tells which documents were written, all of them are
		// reported failed and the legacyKey guard sorts it out on retry
		for i := range res {
			res[i] = migrate.WriteResult{Err: WriteError(t, err)}
		}
		return res
	}

	m.applyWriteErrors(ctx, t, docs, res, bwe.WriteErrors)
	return res
}

// applyWriteErrors replaces results of documents rejected by the server.
func (m *mongoTarget) applyWriteErrors(
	ctx context.Context,
	t entity.Type,
	docs []entity.Document,
	res []migrate.WriteResult,
	errs []mongo.BulkWriteError,
) {
	for _, we := range errs {
		if we.Index < 0 || we.Index >= len(res) {
			continue
		}
		res[we.Index] = m.failed(ctx, t, docs[we.Index], we.WriteError)
	}
}

func (m *mongoTarget) failed(
	ctx context.Context,
	t entity.Type,
	doc entity.Document,
	we mongo.WriteError,
) migrate.WriteResult {
	err := WriteError(t, we)
	if !mongo.IsDuplicateKeyError(we) {
		return migrate.WriteResult{Err: err}
	}
	legacy, _ := doc.Fields[legacyKeyField].(string)
	if legacy != "" {
		if key, ferr := m.findLegacy(ctx, t, legacy); ferr == nil && key != "" {
			slog.Debug("Document was already written",
				"type", t, "legacy_key", legacy, "key", key)
			return migrate.WriteResult{NewKey: key}
		}
	}
	return migrate.WriteResult{Err: fmt.Errorf("%w: %w", migrate.ErrPermanent, err)}
}

func (m *mongoTarget) findLegacy(
	ctx context.Context,
	t entity.Type,
	legacy string,
) (string, error) {
	coll := m.db.Collection(t.TargetCollection())
	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	var doc struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	err := coll.FindOne(ctx, bson.M{legacyKeyField: legacy}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return doc.ID.Hex(), nil
}

// SetFields replaces the fields with one $set.
func (m *mongoTarget) SetFields(
	ctx context.Context,
	t entity.Type,
	newKey string,
	fields map[string]any,
) error {
	names := strings.Join(slices.Sorted(maps.Keys(fields)), ",")
	id, err := primitive.ObjectIDFromHex(newKey)
	if err != nil {
		return UpdateError(t, newKey, names,
			fmt.Errorf("%w: %w", migrate.ErrPermanent, err))
	}
	set := make(bson.M, len(fields))
	for k, v := range fields {
		set[k] = refValue(v)
	}
	coll := m.db.Collection(t.TargetCollection())
	res, err := coll.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return UpdateError(t, newKey, names, err)
	}
	if res.MatchedCount == 0 {
		return UpdateError(t, newKey, names,
			fmt.Errorf("%w: document not found", migrate.ErrPermanent))
	}
	return nil
}

func (m *mongoTarget) Existing(
	ctx context.Context,
	t entity.Type,
) (map[string]string, error) {
	coll := m.db.Collection(t.TargetCollection())
	filter := bson.M{legacyKeyField: bson.M{"$exists": true}}
	opts := options.Find().SetProjection(bson.M{"_id": 1, legacyKeyField: 1})

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, ListError(t, err)
	}
	defer cur.Close(ctx)

	res := make(map[string]string)
	for cur.Next(ctx) {
		var doc struct {
			ID        primitive.ObjectID `bson:"_id"`
			LegacyKey string             `bson:"legacyKey"`
		}
		if err = cur.Decode(&doc); err != nil {
			return nil, ListError(t, err)
		}
		res[doc.LegacyKey] = doc.ID.Hex()
	}
	if err = cur.Err(); err != nil {
		return nil, ListError(t, err)
	}
	return res, nil
}

func (m *mongoTarget) Close(context.Context) error {
	return iomongo.Disconnect(m.client, m.timeout)
}
