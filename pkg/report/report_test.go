package report_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/report"
)

func TestCounts(t *testing.T) {
	r := report.New("run", 2, time.Now())
	r.AddTotal(entity.Account, 5)
	r.AddMigrated(entity.Account, 2)
	r.AddResumed(entity.Account, 1)
	r.AddSkipped(entity.Account, "a1", errors.New("no email"))
	r.AddErrored(entity.Account, "a2", errors.New("timeout"))

	require.NoError(t, r.Check())
	assert.True(t, r.Failed())
	s := r.Stats(entity.Account)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 1, s.Errored)
	assert.Len(t, r.Samples(), 2)
}

func TestCheckViolation(t *testing.T) {
	r := report.New("run", 2, time.Now())
	r.AddTotal(entity.Item, 3)
	r.AddMigrated(entity.Item, 2)
	assert.Error(t, r.Check())
	assert.False(t, r.Failed())
}

func TestSampleLimit(t *testing.T) {
	r := report.New("run", 2, time.Now())
	for range 5 {
		r.AddSkipped(entity.Item, "k", errors.New("bad"))
	}
	r.AddPatchFailed(entity.Collection, "c1", errors.New("down"))
	assert.Len(t, r.Samples(), 3)
	assert.Equal(t, 5, r.Stats(entity.Item).Skipped)
	assert.True(t, r.Failed())
}

func TestFailed(t *testing.T) {
	r := report.New("run", 1, time.Now())
	r.AddTotal(entity.Account, 1)
	r.AddMigrated(entity.Account, 1)
	r.AddPatched(3)
	assert.False(t, r.Failed())
	assert.Equal(t, 3, r.Patch.Broken)

	r.Abort()
	assert.True(t, r.Failed())
}

func TestSummary(t *testing.T) {
	start := time.Now()
	r := report.New("run", 1, start)
	r.AddTotal(entity.Account, 1200)
	r.AddMigrated(entity.Account, 1200)
	r.AddSkipped(entity.Item, "s1", errors.New("missing source"))
	r.Finish(start.Add(2 * time.Second))

	res := r.Summary()
	assert.Contains(t, res, "account")
	assert.Contains(t, res, "1,200")
	assert.Contains(t, res, "missing source")
}
