package iotarget

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tmforge/tmmigrate/pkg/index"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes lists index names of every involved collection and
// creates only the missing ones.
func (m *mongoTarget) EnsureIndexes(
	ctx context.Context,
	specs []index.Spec,
) (int, error) {
	byColl := make(map[string][]index.Spec)
	var order []string
	for _, v := range specs {
		c := v.Collection()
		if _, ok := byColl[c]; !ok {
			order = append(order, c)
		}
		byColl[c] = append(byColl[c], v)
	}

	var created int
	for _, c := range order {
		coll := m.db.Collection(c)
		existing, err := m.indexNames(ctx, coll)
		if err != nil {
			return created, IndexError(c, err)
		}

		var models []mongo.IndexModel
		for _, v := range byColl[c] {
			if _, ok := existing[v.Name()]; ok {
				continue
			}
			models = append(models, indexModel(v))
		}
		if len(models) == 0 {
			continue
		}
		if _, err = coll.Indexes().CreateMany(ctx, models); err != nil {
			return created, IndexError(c, err)
		}
		created += len(models)
		slog.Debug("Indexes created", "collection", c, "count", len(models))
	}
	return created, nil
}

func (m *mongoTarget) indexNames(
	ctx context.Context,
	coll *mongo.Collection,
) (map[string]struct{}, error) {
	specs, err := coll.Indexes().ListSpecifications(ctx)
	if err != nil {
		// a collection that does not exist yet has no indexes
		if isNamespaceNotFound(err) {
			return map[string]struct{}{}, nil
		}
		return nil, err
	}
	res := make(map[string]struct{}, len(specs))
	for _, v := range specs {
		res[v.Name] = struct{}{}
	}
	return res, nil
}

func isNamespaceNotFound(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return ce.Code == 26 || ce.Name == "NamespaceNotFound"
	}
	return false
}

func indexModel(s index.Spec) mongo.IndexModel {
	keys := make(bson.D, len(s.Keys))
	for i, k := range s.Keys {
		dir := 1
		if k.Desc {
			dir = -1
		}
		keys[i] = bson.E{Key: k.Field, Value: dir}
	}
	opts := options.Index().SetName(s.Name())
	if s.Unique {
		opts.SetUnique(true)
	}
	if s.Sparse {
		opts.SetSparse(true)
	}
	return mongo.IndexModel{Keys: keys, Options: opts}
}
