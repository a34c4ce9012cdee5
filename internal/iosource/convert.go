package iosource

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// keyOf turns a legacy _id into the opaque record key.
func keyOf(id any) (string, bool) {
	switch v := id.(type) {
	case string:
		return v, v != ""
	case primitive.ObjectID:
		return v.Hex(), true
	case int32:
		return strconv.Itoa(int(v)), true
	case int64:
		return strconv.FormatInt(v, 10), true
	}
	return "", false
}

func normalizeMap(m map[string]any) map[string]any {
	res := make(map[string]any, len(m))
	for k, v := range m {
		res[k] = normalize(v)
	}
	return res
}

// normalize converts bson values into plain Go values the field
// transformer understands.
func normalize(v any) any {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(x.T), 0).UTC()
	case primitive.ObjectID:
		return x.Hex()
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return x.String()
		}
		return f
	case primitive.Null, primitive.Undefined:
		return nil
	case int32:
		return int(x)
	case int64:
		return int(x)
	case bson.A:
		res := make([]any, len(x))
		for i := range x {
			res[i] = normalize(x[i])
		}
		return res
	case []any:
		res := make([]any, len(x))
		for i := range x {
			res[i] = normalize(x[i])
		}
		return res
	case bson.D:
		res := make(map[string]any, len(x))
		for _, e := range x {
			res[e.Key] = normalize(e.Value)
		}
		return res
	case bson.M:
		return normalizeMap(x)
	case map[string]any:
		return normalizeMap(x)
	}
	return v
}

// normalizeJSON turns integral JSON numbers into ints.
func normalizeJSON(v any) any {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int(x)
		}
		return x
	case []any:
		for i := range x {
			x[i] = normalizeJSON(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizeJSON(x[k])
		}
		return x
	}
	return v
}

func describe(v any) string {
	return fmt.Sprintf("%T(%v)", v, v)
}
