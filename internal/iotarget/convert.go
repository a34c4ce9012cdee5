package iotarget

import (
	"github.com/tmforge/tmmigrate/pkg/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func toBSON(id primitive.ObjectID, d entity.Document) bson.M {
	res := make(bson.M, len(d.Fields)+len(d.Refs)+1)
	for k, v := range d.Fields {
		res[k] = v
	}
	for k, v := range d.Refs {
		res[k] = refValue(v.Value())
	}
	res["_id"] = id
	return res
}

// refValue stores references as ObjectIDs. Keys that are not ObjectID
// hex strings are kept as they are.
func refValue(v any) any {
	switch x := v.(type) {
	case string:
		return objectID(x)
	case []string:
		res := make(bson.A, len(x))
		for i := range x {
			res[i] = objectID(x[i])
		}
		return res
	}
	return v
}

func objectID(s string) any {
	if id, err := primitive.ObjectIDFromHex(s); err == nil {
		return id
	}
	return s
}
