package plan_test

import (
	"testing"

	"github.com/gnames/gn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/plan"
)

var rels = []plan.Relation{
	{From: entity.Collection, Field: "owner", To: entity.Account, Required: true},
	{From: entity.Collection, Field: "items", To: entity.Item, Many: true,
		Deferrable: true, CountField: "itemCount"},
	{From: entity.Item, Field: "collection", To: entity.Collection,
		Required: true},
	{From: entity.Item, Field: "assignee", To: entity.Account},
	{From: entity.Review, Field: "item", To: entity.Item, Required: true},
	{From: entity.Review, Field: "reviewer", To: entity.Account,
		Required: true},
	{From: entity.MemoryEntry, Field: "collection", To: entity.Collection},
	{From: entity.MemoryEntry, Field: "author", To: entity.Account},
}

func TestBuild(t *testing.T) {
	p, err := plan.Build(entity.Types(), rels)
	require.NoError(t, err)

	var stages [][]entity.Type
	for _, s := range p.Stages {
		stages = append(stages, s.Types)
	}
	assert.Equal(t, [][]entity.Type{
		{entity.Account},
		{entity.Collection},
		{entity.Item, entity.MemoryEntry},
		{entity.Review},
	}, stages)

	assert.True(t, p.IsDeferred(entity.Collection, "items"))
	assert.False(t, p.IsDeferred(entity.Item, "collection"))
	require.Len(t, p.Deferred(), 1)
	assert.Equal(t, "items", p.Deferred()[0].Field)

	assert.Contains(t, p.String(), "stage 3: item, memory_entry")
	assert.Contains(t, p.String(), "collection.items ->[] item")
}

func TestBuildDeterministic(t *testing.T) {
	p1, err := plan.Build(entity.Types(), rels)
	require.NoError(t, err)
	rev := []entity.Type{entity.Review, entity.MemoryEntry, entity.Item,
		entity.Collection, entity.Account}
	p2, err := plan.Build(rev, rels)
	require.NoError(t, err)
	assert.Equal(t, p1.String(), p2.String())
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		msg   string
		types []entity.Type
		rels  []plan.Relation
		cycle bool
	}{
		{
			msg:   "mandatory cycle",
			types: []entity.Type{"a", "b"},
			rels: []plan.Relation{
				{From: "a", Field: "b", To: "b"},
				{From: "b", Field: "a", To: "a"},
			},
			cycle: true,
		},
		{
			msg:   "mandatory self reference",
			types: []entity.Type{"a"},
			rels:  []plan.Relation{{From: "a", Field: "parent", To: "a"}},
			cycle: true,
		},
		{
			msg:   "unknown type",
			types: []entity.Type{"a"},
			rels:  []plan.Relation{{From: "a", Field: "x", To: "x"}},
		},
	}
	for _, v := range tests {
		_, err := plan.Build(v.types, v.rels)
		require.Error(t, err, v.msg)
		if v.cycle {
			assertErrIs(t, err, plan.ErrCycle)
		} else {
			assert.NotErrorIs(t, err, plan.ErrCycle, v.msg)
		}
	}
}

func TestDeferrableSelfReference(t *testing.T) {
	types := []entity.Type{"a", "b"}
	p, err := plan.Build(types, []plan.Relation{
		{From: "a", Field: "parent", To: "a", Deferrable: true},
		{From: "b", Field: "a", To: "a"},
	})
	require.NoError(t, err)
	assert.True(t, p.IsDeferred("a", "parent"))
	assert.Len(t, p.Stages, 2)
}

func TestDependencies(t *testing.T) {
	p, err := plan.Build(entity.Types(), rels)
	require.NoError(t, err)
	assert.Equal(t,
		[]entity.Type{entity.Account, entity.Collection, entity.Item},
		p.Dependencies(entity.Review))
	assert.Equal(t, []entity.Type{entity.Account},
		p.Dependencies(entity.Collection))
	assert.Empty(t, p.Dependencies(entity.Account))
}

func TestRelation(t *testing.T) {
	p, err := plan.Build(entity.Types(), rels)
	require.NoError(t, err)

	rel, ok := p.Relation(entity.Collection, "items")
	require.True(t, ok)
	assert.Equal(t, entity.Item, rel.To)
	assert.Equal(t, "itemCount", rel.CountField)

	_, ok = p.Relation(entity.Item, "items")
	assert.False(t, ok)
}

func assertErrIs(t *testing.T, err, target error) {
	t.Helper()
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.ErrorIs(t, gnErr.Err, target)
}
