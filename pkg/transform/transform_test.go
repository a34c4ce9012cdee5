package transform_test

import (
	"testing"
	"time"

	"github.com/gnames/gn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/idmap"
	"github.com/tmforge/tmmigrate/pkg/plan"
	"github.com/tmforge/tmmigrate/pkg/transform"
)

var now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newContext(t *testing.T) (*transform.Registry, *transform.Context, *idmap.Map) {
	reg := transform.Default()
	require.NoError(t, reg.Validate())
	p, err := plan.Build(entity.Types(), reg.Relations())
	require.NoError(t, err)
	ids := idmap.New()
	return reg, &transform.Context{Now: now, IDs: ids, Plan: p}, ids
}

func TestAccount(t *testing.T) {
	reg, tc, _ := newContext(t)
	rec := entity.Record{
		Type: entity.Account,
		Key:  "u1",
		Fields: map[string]any{
			"email": "  Ann@Example.ORG ",
			"role":  "Project-Manager",
		},
	}
	doc, err := reg.Transform(rec, tc)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.org", doc.Fields["email"])
	assert.Equal(t, "ann", doc.Fields["name"])
	assert.Equal(t, "en", doc.Fields["locale"])
	assert.Equal(t, "manager", doc.Fields["role"])
	assert.Equal(t, now, doc.Fields["createdAt"])
	assert.Equal(t, "u1", doc.Fields["legacyKey"])
	assert.Empty(t, doc.Refs)
}

func TestEnumDefaults(t *testing.T) {
	reg, tc, ids := newContext(t)
	require.NoError(t, ids.Put(entity.Account, "u1", "n1"))
	require.NoError(t, ids.Put(entity.Collection, "p1", "c1"))
	require.NoError(t, ids.Put(entity.Item, "s1", "i1"))

	tests := []struct {
		msg   string
		rec   entity.Record
		field string
		res   string
	}{
		{
			msg: "unknown role",
			rec: entity.Record{Type: entity.Account, Key: "a",
				Fields: map[string]any{"email": "a@b.c", "role": "wizard"}},
			field: "role",
			res:   "translator",
		},
		{
			msg: "missing collection status",
			rec: entity.Record{Type: entity.Collection, Key: "p",
				Fields: map[string]any{"title": "T", "owner_id": "u1"}},
			field: "status",
			res:   "draft",
		},
		{
			msg: "item status with spaces",
			rec: entity.Record{Type: entity.Item, Key: "s",
				Fields: map[string]any{"source": "x", "project_id": "p1",
					"status": " In Progress "}},
			field: "status",
			res:   "in_progress",
		},
		{
			msg: "unknown verdict",
			rec: entity.Record{Type: entity.Review, Key: "r",
				Fields: map[string]any{"segment_id": "s1", "reviewer_id": "u1",
					"verdict": "maybe"}},
			field: "verdict",
			res:   "pending",
		},
		{
			msg: "memory origin mt",
			rec: entity.Record{Type: entity.MemoryEntry, Key: "m",
				Fields: map[string]any{"source_text": "a", "target_text": "b",
					"origin": "MT"}},
			field: "origin",
			res:   "machine",
		},
	}
	for _, v := range tests {
		doc, err := reg.Transform(v.rec, tc)
		require.NoError(t, err, v.msg)
		assert.Equal(t, v.res, doc.Fields[v.field], v.msg)
	}
}

func TestCollection(t *testing.T) {
	reg, tc, ids := newContext(t)
	require.NoError(t, ids.Put(entity.Account, "u1", "n1"))
	rec := entity.Record{
		Type: entity.Collection,
		Key:  "p1",
		Fields: map[string]any{
			"title":            "Manual",
			"owner_id":         "u1",
			"segment_ids":      []any{"s1", "s2", ""},
			"target_languages": []any{"de", "fr"},
			"due_date":         "2026-03-01",
			"created_at":       "2020-01-01T10:00:00Z",
			"status":           "done",
		},
	}
	doc, err := reg.Transform(rec, tc)
	require.NoError(t, err)
	assert.Equal(t, entity.Resolved("n1").AsOne(), doc.Refs["owner"])
	assert.Equal(t, entity.Pending("s1", "s2").AsMany(), doc.Refs["items"])
	// items are stored empty until the patch pass
	assert.Equal(t, 0, doc.Fields["itemCount"])
	assert.Equal(t, []string{"de", "fr"}, doc.Fields["targetLangs"])
	assert.Equal(t, "completed", doc.Fields["status"])
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		doc.Fields["dueAt"])
	assert.Equal(t, time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC),
		doc.Fields["createdAt"])
	assert.Equal(t, []string{"items"}, doc.Pending())
}

func TestCollectionNoItems(t *testing.T) {
	reg, tc, ids := newContext(t)
	require.NoError(t, ids.Put(entity.Account, "u1", "n1"))
	rec := entity.Record{Type: entity.Collection, Key: "p1",
		Fields: map[string]any{"title": "Empty", "owner_id": "u1"}}
	doc, err := reg.Transform(rec, tc)
	require.NoError(t, err)
	assert.Equal(t, entity.RefNull, doc.Refs["items"].State)
	assert.Equal(t, []string{}, doc.Refs["items"].Value())
	assert.Equal(t, 0, doc.Fields["itemCount"])
}

func TestItem(t *testing.T) {
	reg, tc, ids := newContext(t)
	require.NoError(t, ids.Put(entity.Collection, "p1", "c1"))
	rec := entity.Record{
		Type: entity.Item,
		Key:  "s1",
		Fields: map[string]any{
			"source":      "Hello  brave\nnew world",
			"project_id":  "p1",
			"assignee_id": "ghost",
			"position":    3.0,
		},
	}
	doc, err := reg.Transform(rec, tc)
	require.NoError(t, err)
	assert.Equal(t, 4, doc.Fields["wordCount"])
	assert.Equal(t, 3, doc.Fields["position"])
	assert.Equal(t, "c1", doc.Refs["collection"].Value())
	assert.Equal(t, entity.RefNull, doc.Refs["assignee"].State)
	assert.Equal(t, []string{"assignee"}, doc.Dangling)
}

func TestReviewScore(t *testing.T) {
	reg, tc, ids := newContext(t)
	require.NoError(t, ids.Put(entity.Account, "u1", "n1"))
	require.NoError(t, ids.Put(entity.Item, "s1", "i1"))
	tests := []struct {
		msg   string
		score any
		res   any
	}{
		{"in range", 75, 75},
		{"above", 250, 100},
		{"below", -3, 0},
		{"string", "42", 42},
		{"garbage", "high", nil},
	}
	for _, v := range tests {
		rec := entity.Record{Type: entity.Review, Key: "r1",
			Fields: map[string]any{"segment_id": "s1", "reviewer_id": "u1",
				"score": v.score}}
		doc, err := reg.Transform(rec, tc)
		require.NoError(t, err, v.msg)
		assert.Equal(t, v.res, doc.Fields["score"], v.msg)
	}
}

func TestSkippedRecords(t *testing.T) {
	reg, tc, ids := newContext(t)
	require.NoError(t, ids.Put(entity.Account, "u1", "n1"))
	tests := []struct {
		msg      string
		rec      entity.Record
		missing  bool
		dangling bool
	}{
		{
			msg:     "account without email",
			rec:     entity.Record{Type: entity.Account, Key: "a", Fields: map[string]any{}},
			missing: true,
		},
		{
			msg: "collection without owner",
			rec: entity.Record{Type: entity.Collection, Key: "p",
				Fields: map[string]any{"title": "T"}},
			missing: true,
		},
		{
			msg: "collection with unknown owner",
			rec: entity.Record{Type: entity.Collection, Key: "p",
				Fields: map[string]any{"title": "T", "owner_id": "u9"}},
			dangling: true,
		},
		{
			msg: "memory entry without target text",
			rec: entity.Record{Type: entity.MemoryEntry, Key: "m",
				Fields: map[string]any{"source_text": "a", "target_text": " "}},
			missing: true,
		},
	}
	for _, v := range tests {
		_, err := reg.Transform(v.rec, tc)
		require.Error(t, err, v.msg)
		if v.missing {
			assertErrIs(t, err, transform.ErrMissingField)
		}
		if v.dangling {
			assertErrIs(t, err, transform.ErrDanglingRef)
		}
	}
}

func TestRegistryValidate(t *testing.T) {
	reg := transform.NewRegistry()
	reg.Register(transform.Rule{
		Type:  "invoice",
		Enums: []string{"state"},
		Apply: func(b *transform.Builder) { b.Enum("state", "state") },
	})
	require.Error(t, reg.Validate())

	reg.SetEnum("invoice", "state", transform.EnumTable{
		Default: "open",
		Values:  map[string]string{"paid": "paid"},
	})
	require.NoError(t, reg.Validate())

	tc := &transform.Context{Now: now}
	doc, err := reg.Transform(entity.Record{Type: "invoice", Key: "1",
		Fields: map[string]any{"state": "PAID"}}, tc)
	require.NoError(t, err)
	assert.Equal(t, "paid", doc.Fields["state"])

	_, err = reg.Transform(entity.Record{Type: "order", Key: "1"}, tc)
	require.Error(t, err)
}

func TestEnumTableMap(t *testing.T) {
	tbl := transform.EnumTable{
		Default: "x",
		Values:  map[string]string{"in_review": "review"},
	}
	assert.Equal(t, "review", tbl.Map("In-Review"))
	assert.Equal(t, "review", tbl.Map(" in review"))
	assert.Equal(t, "x", tbl.Map(""))
	assert.Equal(t, "x", tbl.Map("reviewed"))
}

func assertErrIs(t *testing.T, err, target error) {
	t.Helper()
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.ErrorIs(t, gnErr.Err, target)
}
