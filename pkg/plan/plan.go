// Package plan orders entity types into stages so that every record is
// written after the records it references. References that close a cycle
// are deferred and filled in by the patch pass.
package plan

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tmforge/tmmigrate/pkg/entity"
)

// Relation is a foreign-key field of an entity type.
type Relation struct {
	// From is the type that holds the field.
	From entity.Type
	// Field is the name of the reference field.
	Field string
	// To is the referenced type.
	To entity.Type
	// Many marks list-valued references.
	Many bool
	// Deferrable relations may be filled in after all stages are written.
	Deferrable bool
	// Required relations cannot be null. A record with an unresolvable
	// required relation is skipped.
	Required bool
	// CountField, if set, holds the number of stored references. It is
	// written together with the field.
	CountField string
}

func (r Relation) String() string {
	arrow := "->"
	if r.Many {
		arrow = "->[]"
	}
	return fmt.Sprintf("%s.%s %s %s", r.From, r.Field, arrow, r.To)
}

// Stage is a group of types that have no dependencies among themselves.
type Stage struct {
	Index int
	Types []entity.Type
}

// Plan is the ordered list of stages plus relations deferred to the
// patch pass.
type Plan struct {
	Stages    []Stage
	relations []Relation
	deferred  []Relation
}

// Build creates a plan from types and relations.
func Build(types []entity.Type, rels []Relation) (*Plan, error) {
	known := make(map[entity.Type]struct{}, len(types))
	for _, v := range types {
		known[v] = struct{}{}
	}
	for _, r := range rels {
		for _, t := range []entity.Type{r.From, r.To} {
			if _, ok := known[t]; !ok {
				return nil, UnknownTypeError(r, t)
			}
		}
	}

	g := newGraph(types)
	res := Plan{relations: rels}

	for _, r := range rels {
		if r.Deferrable {
			continue
		}
		if r.From == r.To || g.reachable(r.To, r.From) {
			return nil, UnbreakableCycleError(r)
		}
		g.add(r.From, r.To)
	}

	for _, r := range rels {
		if !r.Deferrable {
			continue
		}
		if r.From == r.To || g.reachable(r.To, r.From) {
			res.deferred = append(res.deferred, r)
			continue
		}
		g.add(r.From, r.To)
	}

	res.Stages = g.layers()
	return &res, nil
}

// IsDeferred tells if the field of the type is filled by the patch pass.
func (p *Plan) IsDeferred(from entity.Type, field string) bool {
	for _, v := range p.deferred {
		if v.From == from && v.Field == field {
			return true
		}
	}
	return false
}

// Relation finds the relation held by the field of the type.
func (p *Plan) Relation(from entity.Type, field string) (Relation, bool) {
	for _, v := range p.relations {
		if v.From == from && v.Field == field {
			return v, true
		}
	}
	return Relation{}, false
}

// Deferred returns deferred relations in declaration order.
func (p *Plan) Deferred() []Relation {
	return slices.Clone(p.deferred)
}

// Relations returns all relations the plan was built from.
func (p *Plan) Relations() []Relation {
	return slices.Clone(p.relations)
}

// RelationsOf returns relations held by the type.
func (p *Plan) RelationsOf(t entity.Type) []Relation {
	var res []Relation
	for _, v := range p.relations {
		if v.From == t {
			res = append(res, v)
		}
	}
	return res
}

// Types returns all types in stage order.
func (p *Plan) Types() []entity.Type {
	var res []entity.Type
	for _, s := range p.Stages {
		res = append(res, s.Types...)
	}
	return res
}

// Dependencies returns types that must be migrated before t through
// non-deferred relations, transitively.
func (p *Plan) Dependencies(t entity.Type) []entity.Type {
	seen := map[entity.Type]struct{}{}
	var visit func(entity.Type)
	visit = func(from entity.Type) {
		for _, r := range p.RelationsOf(from) {
			if p.IsDeferred(r.From, r.Field) || r.To == from {
				continue
			}
			if _, ok := seen[r.To]; ok {
				continue
			}
			seen[r.To] = struct{}{}
			visit(r.To)
		}
	}
	visit(t)
	delete(seen, t)

	var res []entity.Type
	for _, v := range p.Types() {
		if _, ok := seen[v]; ok {
			res = append(res, v)
		}
	}
	return res
}

func (p *Plan) String() string {
	var sb strings.Builder
	for _, s := range p.Stages {
		names := make([]string, len(s.Types))
		for i, t := range s.Types {
			names[i] = string(t)
		}
		fmt.Fprintf(&sb, "stage %d: %s\n", s.Index+1, strings.Join(names, ", "))
	}
	if len(p.deferred) == 0 {
		return sb.String()
	}
	sb.WriteString("deferred:\n")
	for _, r := range p.deferred {
		fmt.Fprintf(&sb, "  %s\n", r)
	}
	return sb.String()
}
