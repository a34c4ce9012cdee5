package iosource_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmforge/tmmigrate/internal/iomongo"
	"github.com/tmforge/tmmigrate/internal/iosource"
	"github.com/tmforge/tmmigrate/internal/iotesting"
	"github.com/tmforge/tmmigrate/pkg/config"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMongoRead(t *testing.T) {
	iotesting.RequireMongo(t)
	cfg := iotesting.GetTestConfig(t)
	cfg.Update([]config.Option{config.OptMigrateBatchSize(2)})
	ctx := context.Background()

	client, err := iomongo.Connect(ctx, cfg.Source.URI, cfg.Migrate.Timeout)
	require.NoError(t, err)
	db := client.Database(cfg.Source.Database)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = iomongo.Disconnect(client, cfg.Migrate.Timeout)
	})

	coll := db.Collection(entity.Item.SourceCollection())
	_, err = coll.InsertMany(ctx, []any{
		bson.M{"_id": "s3", "source": "c"},
		bson.M{"_id": "s1", "source": "a", "position": int32(1)},
		bson.M{"_id": "s2", "source": "b"},
	})
	require.NoError(t, err)

	src, err := iosource.New(ctx, cfg)
	require.NoError(t, err)
	defer src.Close()

	n, err := src.Count(ctx, entity.Item)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var keys []string
	for rec, err := range src.Read(ctx, entity.Item, "") {
		require.NoError(t, err)
		keys = append(keys, rec.Key)
		if rec.Key == "s1" {
			assert.Equal(t, 1, rec.Fields["position"])
			assert.NotContains(t, rec.Fields, "_id")
		}
	}
	assert.Equal(t, []string{"s1", "s2", "s3"}, keys)

	keys = keys[:0]
	for rec, err := range src.Read(ctx, entity.Item, "s2") {
		require.NoError(t, err)
		keys = append(keys, rec.Key)
	}
	assert.Equal(t, []string{"s3"}, keys)
}

func TestMongoReadMixedKeys(t *testing.T) {
	iotesting.RequireMongo(t)
	cfg := iotesting.GetTestConfig(t)
	cfg.Update([]config.Option{config.OptMigrateBatchSize(1)})
	ctx := context.Background()

	client, err := iomongo.Connect(ctx, cfg.Source.URI, cfg.Migrate.Timeout)
	require.NoError(t, err)
	db := client.Database(cfg.Source.Database)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = iomongo.Disconnect(client, cfg.Migrate.Timeout)
	})

	oid := primitive.NewObjectID()
	coll := db.Collection(entity.Account.SourceCollection())
	_, err = coll.InsertMany(ctx, []any{
		bson.M{"_id": oid, "email": "c@example.org"},
		bson.M{"_id": "u1", "email": "a@example.org"},
		bson.M{"_id": "u2", "email": "b@example.org"},
		bson.M{"_id": int64(5), "email": "d@example.org"},
	})
	require.NoError(t, err)

	src, err := iosource.New(ctx, cfg)
	require.NoError(t, err)
	defer src.Close()

	var keys []string
	for rec, err := range src.Read(ctx, entity.Account, "") {
		require.NoError(t, err)
		keys = append(keys, rec.Key)
	}
	// one record per page, so every type change is a page boundary
	assert.Equal(t, []string{"5", "u1", "u2", oid.Hex()}, keys)

	n, err := src.Count(ctx, entity.Account)
	require.NoError(t, err)
	assert.Len(t, keys, n)
}
