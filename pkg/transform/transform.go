// Package transform converts raw legacy records into documents of the new
// store. Every entity type has a Rule: the fields it copies, the enum
// values it remaps, the fields it derives and the references it holds.
//
// Transformations are pure. Everything outside the record (the run clock,
// keys of already migrated records, planner decisions) comes from Context.
package transform

import (
	"slices"
	"time"

	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/plan"
)

// Transformer converts one source record into a target document.
type Transformer interface {
	Transform(rec entity.Record, tc *Context) (entity.Document, error)
}

// Lookup finds new keys of already migrated records.
type Lookup interface {
	Get(t entity.Type, oldKey string) (string, bool)
}

// Context is shared by all transformations of a run.
type Context struct {
	// Now is the start of the run. It is the default for missing
	// timestamps.
	Now time.Time

	// IDs resolves forward references.
	IDs Lookup

	// Plan decides which references are deferred. Nil means none.
	Plan *plan.Plan
}

func (tc *Context) isDeferred(t entity.Type, field string) bool {
	if tc.Plan == nil {
		return false
	}
	return tc.Plan.IsDeferred(t, field)
}

// Rule describes the transformation of one entity type.
type Rule struct {
	Type entity.Type

	// Relations are reference fields of the type in declaration order.
	Relations []plan.Relation

	// Enums are target fields that are remapped through an EnumTable.
	Enums []string

	// Apply fills the document using the Builder.
	Apply func(b *Builder)
}

// Registry keeps rules and enum tables of all entity types.
type Registry struct {
	rules []Rule
	enums map[entity.Type]map[string]EnumTable
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{enums: make(map[entity.Type]map[string]EnumTable)}
}

// Default returns the Registry with rules and enum tables of every
// entity type of the translation platform.
func Default() *Registry {
	res := NewRegistry()
	res.Register(accountRule())
	res.Register(collectionRule())
	res.Register(itemRule())
	res.Register(reviewRule())
	res.Register(memoryEntryRule())
	for k, v := range defaultEnums() {
		res.SetEnum(k.Type, k.Field, v)
	}
	return res
}

// Register adds or replaces the rule of a type.
func (r *Registry) Register(rule Rule) {
	idx := slices.IndexFunc(r.rules, func(v Rule) bool {
		return v.Type == rule.Type
	})
	if idx >= 0 {
		r.rules[idx] = rule
		return
	}
	r.rules = append(r.rules, rule)
}

// SetEnum adds the enum table of a field.
func (r *Registry) SetEnum(t entity.Type, field string, tbl EnumTable) {
	if _, ok := r.enums[t]; !ok {
		r.enums[t] = make(map[string]EnumTable)
	}
	r.enums[t][field] = tbl
}

// Types returns registered types in registration order.
func (r *Registry) Types() []entity.Type {
	res := make([]entity.Type, len(r.rules))
	for i, v := range r.rules {
		res[i] = v.Type
	}
	return res
}

// Relations returns relations of all registered types.
func (r *Registry) Relations() []plan.Relation {
	var res []plan.Relation
	for _, v := range r.rules {
		res = append(res, v.Relations...)
	}
	return res
}

// Validate checks that every enum field has a table.
func (r *Registry) Validate() error {
	for _, rule := range r.rules {
		for _, f := range rule.Enums {
			if _, ok := r.enums[rule.Type][f]; !ok {
				return EnumTableError(rule.Type, f)
			}
		}
	}
	return nil
}

// Transform converts a record using the rule of its type. Errors mean the
// record is skipped.
func (r *Registry) Transform(
	rec entity.Record,
	tc *Context,
) (entity.Document, error) {
	idx := slices.IndexFunc(r.rules, func(v Rule) bool {
		return v.Type == rec.Type
	})
	if idx < 0 {
		return entity.Document{}, UnknownTypeError(rec.Type)
	}
	rule := r.rules[idx]

	b := newBuilder(rec, tc, rule, r.enums[rule.Type])
	rule.Apply(b)
	if b.err != nil {
		return entity.Document{}, b.err
	}
	b.doc.Fields["legacyKey"] = rec.Key
	return b.doc, nil
}
