package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/sap-helpdesk/internal/config"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
	"github.com/lorrc/sap-helpdesk/internal/infrastructure/metrics"
	"github.com/lorrc/sap-helpdesk/internal/infrastructure/scheduler"
)

func testConfig(driver string) *config.Config {
	cfg := config.FromEnv()
	cfg.Store.Driver = driver
	cfg.Backend.URL = ""
	cfg.Cache.RedisAddr = ""
	cfg.Jobs.EmailFetchSchedule = ""
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_MemoryStore(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(config.StoreMemory), discardLogger(), metrics.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NoError(t, a.Store.Ping(ctx))
	assert.Nil(t, a.Cache)
	assert.Nil(t, a.Backend)

	tickets, err := a.Tickets.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, tickets)

	users, err := a.Registry.ListUsers(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, users)

	_, err = a.EmailService.Stats(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotConfigured)
}

func TestNew_SQLiteStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(config.StoreSQLite)
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "data", "helpdesk.db")

	a, err := New(ctx, cfg, discardLogger(), nil)
	require.NoError(t, err)

	require.NoError(t, a.Store.Ping(ctx))
	require.NoError(t, a.Close())
	assert.FileExists(t, cfg.Store.SQLitePath)
}

func TestNew_RejectsBadStores(t *testing.T) {
	_, err := New(context.Background(), testConfig(config.StoreRemote), discardLogger(), nil)
	assert.ErrorContains(t, err, "BACKEND_URL")

	_, err = New(context.Background(), testConfig("mongo"), discardLogger(), nil)
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestScheduler_RegistersJobs(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(config.StoreMemory), discardLogger(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	sched, err := a.Scheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Stop(ctx) })

	jobs := sched.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, scheduler.JobEmailFetch, jobs[0].Name)
	assert.Empty(t, jobs[0].Schedule)
	assert.Equal(t, scheduler.JobOverdueReminders, jobs[1].Name)
	assert.Equal(t, "0 8 * * 1-5", jobs[1].Schedule)

	// Undeliverable reminders are logged, not returned.
	assert.NoError(t, sched.RunNow(ctx, scheduler.JobOverdueReminders))
	assert.ErrorIs(t, sched.RunNow(ctx, scheduler.JobEmailFetch), apperrors.ErrNotConfigured)
}
