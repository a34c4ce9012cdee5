package iotarget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/index"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestToBSON(t *testing.T) {
	id := primitive.NewObjectID()
	owner := primitive.NewObjectID()

	doc := entity.NewDocument()
	doc.Fields["name"] = "Manual"
	doc.Fields[legacyKeyField] = "p1"
	doc.Refs["owner"] = entity.Resolved(owner.Hex())
	doc.Refs["items"] = entity.Pending("s1", "s2").AsMany()
	doc.Refs["reviewer"] = entity.Null()

	res := toBSON(id, doc)
	assert.Equal(t, id, res["_id"])
	assert.Equal(t, "Manual", res["name"])
	assert.Equal(t, owner, res["owner"])
	assert.Equal(t, bson.A{}, res["items"])
	assert.Nil(t, res["reviewer"])
}

func TestRefValue(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	assert.Equal(t, a, refValue(a.Hex()))
	assert.Equal(t, "legacy-1", refValue("legacy-1"))
	assert.Equal(t, bson.A{a, b}, refValue([]string{a.Hex(), b.Hex()}))
	assert.Nil(t, refValue(nil))
}

func TestIndexModel(t *testing.T) {
	spec := index.Spec{
		Type:   entity.Collection,
		Keys:   []index.Key{{Field: "status"}, {Field: "dueAt", Desc: true}},
		Sparse: true,
	}
	m := indexModel(spec)
	assert.Equal(t, bson.D{
		{Key: "status", Value: 1},
		{Key: "dueAt", Value: -1},
	}, m.Keys)
	assert.Equal(t, spec.Name(), *m.Options.Name)
	assert.True(t, *m.Options.Sparse)
	assert.Nil(t, m.Options.Unique)
}
