package iosource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalize(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	oid := primitive.NewObjectIDFromTimestamp(ts)

	doc := bson.M{
		"created_at":  primitive.NewDateTimeFromTime(ts),
		"owner_id":    oid,
		"position":    int32(7),
		"size":        int64(9),
		"segment_ids": bson.A{"s1", oid},
		"meta":        bson.D{{Key: "lang", Value: "de"}},
		"nested":      bson.M{"when": primitive.NewDateTimeFromTime(ts)},
		"deleted":     primitive.Null{},
	}
	res := normalizeMap(doc)

	assert.Equal(t, ts, res["created_at"])
	assert.Equal(t, oid.Hex(), res["owner_id"])
	assert.Equal(t, 7, res["position"])
	assert.Equal(t, 9, res["size"])
	assert.Equal(t, []any{"s1", oid.Hex()}, res["segment_ids"])
	assert.Equal(t, map[string]any{"lang": "de"}, res["meta"])
	assert.Equal(t, map[string]any{"when": ts}, res["nested"])
	assert.Nil(t, res["deleted"])
}

func TestKeyOf(t *testing.T) {
	oid := primitive.NewObjectID()
	tests := []struct {
		id  any
		key string
		ok  bool
	}{
		{"u1", "u1", true},
		{"", "", false},
		{oid, oid.Hex(), true},
		{int32(5), "5", true},
		{int64(6), "6", true},
		{1.5, "", false},
	}
	for _, v := range tests {
		key, ok := keyOf(v.id)
		assert.Equal(t, v.key, key, describe(v.id))
		assert.Equal(t, v.ok, ok, describe(v.id))
	}
}

func TestNormalizeJSON(t *testing.T) {
	v := map[string]any{"a": 1.0, "b": 1.5, "c": []any{2.0}}
	normalizeJSON(v)
	assert.Equal(t, map[string]any{"a": 1, "b": 1.5, "c": []any{2}}, v)
}

func TestAfterFilter(t *testing.T) {
	oid := primitive.NewObjectIDFromTimestamp(time.Unix(1700000000, 0))
	tests := []struct {
		msg   string
		after any
		res   bson.M
	}{
		{"full scan", nil, bson.M{}},
		{
			"number falls through to strings and ObjectIDs",
			int64(7),
			bson.M{"$or": bson.A{
				bson.M{"_id": bson.M{"$gt": int64(7)}},
				bson.M{"_id": bson.M{"$type": bson.A{
					"string", "object", "array", "binData", "objectId",
					"bool", "date", "timestamp", "regex",
				}}},
			}},
		},
		{
			"string falls through to ObjectIDs",
			"s2",
			bson.M{"$or": bson.A{
				bson.M{"_id": bson.M{"$gt": "s2"}},
				bson.M{"_id": bson.M{"$type": bson.A{
					"object", "array", "binData", "objectId",
					"bool", "date", "timestamp", "regex",
				}}},
			}},
		},
		{
			"ObjectID",
			oid,
			bson.M{"$or": bson.A{
				bson.M{"_id": bson.M{"$gt": oid}},
				bson.M{"_id": bson.M{"$type": bson.A{
					"bool", "date", "timestamp", "regex",
				}}},
			}},
		},
	}
	for _, v := range tests {
		assert.Equal(t, v.res, afterFilter(v.after), v.msg)
	}
}

func TestCursorValue(t *testing.T) {
	oid := primitive.NewObjectIDFromTimestamp(time.Unix(1700000000, 0))
	assert.Equal(t, oid, cursorValue(oid.Hex()))
	assert.Equal(t, "s2", cursorValue("s2"))
}
