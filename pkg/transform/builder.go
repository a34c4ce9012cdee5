package transform

import (
	"strings"
	"time"

	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/plan"
)

// Builder fills a document from a record. The first error stops all
// further changes.
type Builder struct {
	rec   entity.Record
	tc    *Context
	rels  map[string]plan.Relation
	enums map[string]EnumTable
	doc   entity.Document
	err   error
}

func newBuilder(
	rec entity.Record,
	tc *Context,
	rule Rule,
	enums map[string]EnumTable,
) *Builder {
	res := Builder{
		rec:   rec,
		tc:    tc,
		rels:  make(map[string]plan.Relation, len(rule.Relations)),
		enums: enums,
		doc:   entity.NewDocument(),
	}
	for _, v := range rule.Relations {
		res.rels[v.Field] = v
	}
	return &res
}

// Now returns the run clock.
func (b *Builder) Now() time.Time {
	return b.tc.Now
}

// Raw returns the source value of a field.
func (b *Builder) Raw(src string) (any, bool) {
	v, ok := b.rec.Fields[src]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Set assigns a target field.
func (b *Builder) Set(dst string, val any) {
	if b.err != nil {
		return
	}
	b.doc.Fields[dst] = val
}

// Get returns a target field that is already set.
func (b *Builder) Get(dst string) any {
	return b.doc.Fields[dst]
}

// Fail marks the record as not transformable.
func (b *Builder) Fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// String copies a trimmed string. Empty values are not copied.
func (b *Builder) String(src, dst string) string {
	v, _ := b.Raw(src)
	s, ok := asString(v)
	s = strings.TrimSpace(s)
	if !ok || s == "" {
		return ""
	}
	b.Set(dst, s)
	return s
}

// RequiredString copies a non-empty string or fails the record.
func (b *Builder) RequiredString(src, dst string) string {
	res := b.String(src, dst)
	if res == "" {
		b.Fail(MissingFieldError(b.rec, src))
	}
	return res
}

// StringOr copies a string or assigns the default.
func (b *Builder) StringOr(src, dst, def string) string {
	res := b.String(src, dst)
	if res == "" {
		res = def
		b.Set(dst, res)
	}
	return res
}

// Strings copies a list of non-empty trimmed strings. A missing value
// becomes an empty list.
func (b *Builder) Strings(src, dst string) []string {
	v, _ := b.Raw(src)
	res := asStrings(v)
	b.Set(dst, res)
	return res
}

// Int copies an integer. Missing or malformed values are not copied.
func (b *Builder) Int(src, dst string) (int, bool) {
	v, _ := b.Raw(src)
	res, ok := asInt(v)
	if !ok {
		return 0, false
	}
	b.Set(dst, res)
	return res, true
}

// Time copies a timestamp. Missing or malformed values are not copied.
func (b *Builder) Time(src, dst string) (time.Time, bool) {
	v, _ := b.Raw(src)
	res, ok := asTime(v)
	if !ok {
		return time.Time{}, false
	}
	b.Set(dst, res)
	return res, true
}

// TimeOrNow copies a timestamp or assigns the run clock.
func (b *Builder) TimeOrNow(src, dst string) time.Time {
	res, ok := b.Time(src, dst)
	if !ok {
		res = b.tc.Now.UTC()
		b.Set(dst, res)
	}
	return res
}

// Enum remaps a value through the enum table of the target field.
func (b *Builder) Enum(src, dst string) string {
	tbl, ok := b.enums[dst]
	if !ok {
		b.Fail(EnumTableError(b.rec.Type, dst))
		return ""
	}
	v, _ := b.Raw(src)
	s, _ := asString(v)
	res := tbl.Map(s)
	b.Set(dst, res)
	return res
}

// Ref converts old foreign keys of the relation dst into a reference.
// It returns the number of old keys found in the record. A count field of
// the relation gets the number of stored keys, which is zero until the
// patch pass fills a pending reference.
//
// Deferred relations become pending. Forward relations are resolved
// through the Identifier Map; unmapped keys are dropped and the field is
// marked dangling. A required relation without a resolved key fails the
// record.
func (b *Builder) Ref(src, dst string) int {
	rel, ok := b.rels[dst]
	if !ok {
		b.Fail(UnknownRelationError(b.rec.Type, dst))
		return 0
	}
	v, _ := b.Raw(src)
	old := asStrings(v)

	ref := b.resolve(rel, old)
	if rel.Many {
		ref = ref.AsMany()
	} else {
		ref = ref.AsOne()
	}

	if rel.Required && ref.State == entity.RefNull {
		if len(old) == 0 {
			b.Fail(MissingFieldError(b.rec, src))
		} else {
			b.Fail(DanglingRefError(b.rec, dst, old))
		}
		return len(old)
	}
	if b.err == nil {
		b.doc.Refs[dst] = ref
		if rel.CountField != "" {
			b.doc.Fields[rel.CountField] = storedCount(ref)
		}
	}
	return len(old)
}

func storedCount(ref entity.Ref) int {
	if ref.State != entity.RefResolved {
		return 0
	}
	return len(ref.Keys)
}

func (b *Builder) resolve(rel plan.Relation, old []string) entity.Ref {
	if len(old) == 0 {
		return entity.Null()
	}
	if !rel.Many {
		old = old[:1]
	}
	if b.tc.isDeferred(rel.From, rel.Field) {
		return entity.Pending(old...)
	}

	var keys []string
	for _, v := range old {
		if b.tc.IDs == nil {
			break
		}
		if k, ok := b.tc.IDs.Get(rel.To, v); ok {
			keys = append(keys, k)
		}
	}
	if len(keys) < len(old) {
		b.doc.Dangling = append(b.doc.Dangling, rel.Field)
	}
	if len(keys) == 0 {
		return entity.Null()
	}
	return entity.Resolved(keys...)
}
