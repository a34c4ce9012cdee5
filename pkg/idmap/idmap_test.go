package idmap_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/gnames/gn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/idmap"
)

func TestPutGet(t *testing.T) {
	m := idmap.New()
	require.NoError(t, m.Put(entity.Account, "u1", "n1"))
	require.NoError(t, m.Put(entity.Account, "u2", "n2"))
	require.NoError(t, m.Put(entity.Item, "u1", "n1"))

	res, ok := m.Get(entity.Account, "u2")
	assert.True(t, ok)
	assert.Equal(t, "n2", res)

	old, ok := m.Old(entity.Account, "n1")
	assert.True(t, ok)
	assert.Equal(t, "u1", old)

	_, ok = m.Get(entity.Collection, "u1")
	assert.False(t, ok)
	assert.True(t, m.Has(entity.Item, "u1"))
	assert.Equal(t, 2, m.Len(entity.Account))
	assert.Equal(t, []entity.Type{entity.Account, entity.Item}, m.Types())
	assert.Equal(t, []idmap.Pair{{Old: "u1", New: "n1"}, {Old: "u2", New: "n2"}},
		m.Pairs(entity.Account))
}

func TestDuplicates(t *testing.T) {
	tests := []struct {
		msg      string
		old, new string
	}{
		{"same old key", "u1", "n9"},
		{"same new key", "u9", "n1"},
	}
	for _, v := range tests {
		m := idmap.New()
		require.NoError(t, m.Put(entity.Account, "u1", "n1"))
		err := m.Put(entity.Account, v.old, v.new)
		assertErrIs(t, err, idmap.ErrDuplicate)
		assert.Equal(t, 1, m.Len(entity.Account), v.msg)
	}
}

func TestSeed(t *testing.T) {
	m := idmap.New()
	pairs := []idmap.Pair{{Old: "a", New: "1"}, {Old: "b", New: "2"}}
	require.NoError(t, m.Seed(entity.Review, pairs))
	assert.Equal(t, pairs, m.Pairs(entity.Review))

	err := m.Seed(entity.Review, []idmap.Pair{{Old: "a", New: "3"}})
	assertErrIs(t, err, idmap.ErrDuplicate)
}

func TestConcurrentPut(t *testing.T) {
	m := idmap.New()
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Put(entity.Item, fmt.Sprintf("o%d", i), fmt.Sprintf("n%d", i))
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, m.Len(entity.Item))
}

func assertErrIs(t *testing.T, err, target error) {
	t.Helper()
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.ErrorIs(t, gnErr.Err, target)
}
