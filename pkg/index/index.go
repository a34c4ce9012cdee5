// Package index lists secondary indexes of the new store. The list is
// versioned: changing it means bumping Version so that index names change
// together with definitions.
package index

import (
	"fmt"
	"strings"

	"github.com/tmforge/tmmigrate/pkg/entity"
)

// Version of the index list.
const Version = 1

// Key is one indexed field.
type Key struct {
	Field string
	Desc  bool
}

// Spec defines one index.
type Spec struct {
	Type   entity.Type
	Keys   []Key
	Unique bool
	// Sparse indexes skip documents without the field.
	Sparse bool
}

// Collection is the target collection of the index.
func (s Spec) Collection() string {
	return s.Type.TargetCollection()
}

// Name is derived from the fields and the version.
func (s Spec) Name() string {
	parts := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		dir := 1
		if k.Desc {
			dir = -1
		}
		parts[i] = fmt.Sprintf("%s_%d", k.Field, dir)
	}
	return fmt.Sprintf("tmm_v%d_%s", Version, strings.Join(parts, "_"))
}

func asc(fields ...string) []Key {
	res := make([]Key, len(fields))
	for i, v := range fields {
		res[i] = Key{Field: v}
	}
	return res
}

// Current returns all indexes of the new store.
func Current() []Spec {
	var res []Spec
	for _, t := range entity.Types() {
		res = append(res, Spec{Type: t, Keys: asc("legacyKey"), Unique: true})
	}
	res = append(res,
		Spec{Type: entity.Account, Keys: asc("email")},
		Spec{Type: entity.Collection, Keys: asc("owner")},
		Spec{Type: entity.Collection, Keys: []Key{
			{Field: "status"}, {Field: "dueAt", Desc: true},
		}},
		Spec{Type: entity.Item, Keys: asc("collection", "position")},
		Spec{Type: entity.Item, Keys: asc("assignee"), Sparse: true},
		Spec{Type: entity.Review, Keys: asc("item")},
		Spec{Type: entity.Review, Keys: asc("reviewer")},
		Spec{Type: entity.MemoryEntry, Keys: asc("collection")},
		Spec{Type: entity.MemoryEntry, Keys: asc("sourceLang", "targetLang")},
	)
	return res
}

// For returns indexes of the given types.
func For(types []entity.Type) []Spec {
	set := make(map[entity.Type]struct{}, len(types))
	for _, v := range types {
		set[v] = struct{}{}
	}
	var res []Spec
	for _, v := range Current() {
		if _, ok := set[v.Type]; ok {
			res = append(res, v)
		}
	}
	return res
}
