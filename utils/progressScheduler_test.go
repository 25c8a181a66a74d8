package utils

import (
	"context"
	"testing"
	"time"

	"lms/services/progress"
	"lms/services/rollup"
	"lms/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollupReconciler_Window(t *testing.T) {
	r := NewRollupReconciler(nil, nil, nil)
	started := time.Date(2026, 3, 4, 15, 30, 0, 0, time.Local)

	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.Local), r.window(started))

	r.lastRun = started
	assert.Equal(t, started, r.window(started.Add(time.Hour)))
}

func TestRollupReconciler_RunAdvancesWindow(t *testing.T) {
	db := testutil.DB(t)
	svc := rollup.NewService(progress.NewRegistry())
	r := NewRollupReconciler(db, svc, nil)

	tick := time.Now()
	r.clock = func() time.Time { return tick }

	n, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, tick, r.lastRun)
}

func TestStartRollupScheduler(t *testing.T) {
	r := NewRollupReconciler(nil, nil, nil)

	c, err := StartRollupScheduler(r, "")
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = StartRollupScheduler(r, "not a spec")
	assert.Error(t, err)

	c, err = StartRollupScheduler(r, "@every 1h")
	require.NoError(t, err)
	require.NotNil(t, c)
	c.Stop()
}
