package migrations

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct {
	mu    sync.Mutex
	infos []string
	warns []string
}

func (l *testLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *testLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *testLogger) Error(msg string, _ ...any) {}

type fakeMigrator struct {
	upErr      error
	stepsErr   error
	steps      []int
	version    uint
	dirty      bool
	versionErr error
}

func (m *fakeMigrator) Up() error { return m.upErr }

func (m *fakeMigrator) Steps(n int) error {
	m.steps = append(m.steps, n)
	return m.stepsErr
}

func (m *fakeMigrator) Version() (uint, bool, error) { return m.version, m.dirty, m.versionErr }

func (m *fakeMigrator) Close() (error, error) { return nil, nil }

type blockingMigrator struct {
	fakeMigrator
	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

func newBlockingMigrator() *blockingMigrator {
	return &blockingMigrator{closeCh: make(chan struct{})}
}

func (m *blockingMigrator) Up() error {
	<-m.closeCh
	return nil
}

func (m *blockingMigrator) Close() (error, error) {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		close(m.closeCh)
	})
	return nil, nil
}

// useMigrator swaps the factories for the duration of the test.
func useMigrator(t *testing.T, m migrator, initErr error) *string {
	t.Helper()

	origDriverFactory := driverFactory
	origMigratorFactory := migratorFactory
	t.Cleanup(func() {
		driverFactory = origDriverFactory
		migratorFactory = origMigratorFactory
	})

	var gotSourceURL string
	driverFactory = func(_ *sql.DB, cfg Config) (database.Driver, error) {
		assert.NotEmpty(t, cfg.MigrationsTable)
		return nil, nil
	}
	migratorFactory = func(sourceURL string, _ database.Driver) (migrator, error) {
		gotSourceURL = sourceURL
		if initErr != nil {
			return nil, initErr
		}
		return m, nil
	}
	return &gotSourceURL
}

func TestUp_NilDB(t *testing.T) {
	assert.Error(t, Up(context.Background(), nil, Config{}))
}

func TestUp_ContextAlreadyCancelled_ReturnsCtxErr(t *testing.T) {
	sourceURL := useMigrator(t, &fakeMigrator{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Up(ctx, &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *sourceURL, "no migrator should be created when ctx is already cancelled")
}

func TestUp_ContextDeadlineExceeded_ReturnsCtxErr_AndCloses(t *testing.T) {
	block := newBlockingMigrator()
	useMigrator(t, block, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Up(ctx, &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, block.closed.Load())
}

func TestUp_NoChange_LogsAndReturnsNil(t *testing.T) {
	useMigrator(t, &fakeMigrator{upErr: migrate.ErrNoChange}, nil)
	logger := &testLogger{}

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger}))
	assert.Contains(t, logger.infos, "No migrations to apply")
}

func TestUp_Success_LogsApplied(t *testing.T) {
	useMigrator(t, &fakeMigrator{}, nil)
	logger := &testLogger{}

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger}))
	assert.Contains(t, logger.infos, "Migrations applied successfully")
}

func TestUp_Failure_IsWrapped(t *testing.T) {
	useMigrator(t, &fakeMigrator{upErr: errors.New("syntax error at or near")}, nil)

	err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations: up")
}

func TestUp_MigratorInitError(t *testing.T) {
	useMigrator(t, nil, errors.New("boom"))

	err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations: init")
}

func TestUp_BuildsFileSourceURL(t *testing.T) {
	tmp := t.TempDir()
	sourceURL := useMigrator(t, &fakeMigrator{upErr: migrate.ErrNoChange}, nil)

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Dir: tmp}))

	abs, _ := filepath.Abs(tmp)
	expected := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	assert.Equal(t, expected, *sourceURL)
}

func TestUp_HandlesPathsWithSpecialCharacters(t *testing.T) {
	dirWithSpaces := filepath.Join(t.TempDir(), "my migrations dir")
	require.NoError(t, os.MkdirAll(dirWithSpaces, 0o755))
	sourceURL := useMigrator(t, &fakeMigrator{upErr: migrate.ErrNoChange}, nil)

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Dir: dirWithSpaces}))

	parsedURL, err := url.Parse(*sourceURL)
	require.NoError(t, err)
	assert.Equal(t, "file", parsedURL.Scheme)

	abs, _ := filepath.Abs(dirWithSpaces)
	assert.Equal(t, filepath.ToSlash(abs), parsedURL.Path)
}

func TestDown_RevertsOneStep(t *testing.T) {
	m := &fakeMigrator{}
	useMigrator(t, m, nil)

	require.NoError(t, Down(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()}))
	assert.Equal(t, []int{-1}, m.steps)
}

func TestDown_NothingApplied(t *testing.T) {
	useMigrator(t, &fakeMigrator{stepsErr: migrate.ErrNilVersion}, nil)
	logger := &testLogger{}

	require.NoError(t, Down(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger}))
	assert.Contains(t, logger.infos, "No migrations to revert")
}

func TestVersion(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		useMigrator(t, &fakeMigrator{version: 1}, nil)

		status, err := Version(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
		require.NoError(t, err)
		assert.Equal(t, Status{Version: 1}, status)
	})

	t.Run("dirty", func(t *testing.T) {
		useMigrator(t, &fakeMigrator{version: 1, dirty: true}, nil)

		status, err := Version(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
		require.NoError(t, err)
		assert.True(t, status.Dirty)
	})

	t.Run("pristine", func(t *testing.T) {
		useMigrator(t, &fakeMigrator{versionErr: migrate.ErrNilVersion}, nil)

		status, err := Version(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
		require.NoError(t, err)
		assert.True(t, status.Pristine)
	})
}
