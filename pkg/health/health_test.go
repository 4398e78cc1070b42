package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWorstStatusWins(t *testing.T) {
	c := NewChecker()
	c.Register("a", func(context.Context) ComponentHealth { return ComponentHealth{Status: StatusUp} })
	c.Register("b", func(context.Context) ComponentHealth { return ComponentHealth{Status: StatusDegraded} })
	assert.Equal(t, StatusDegraded, c.Run(context.Background()).Status)

	c.Register("c", func(context.Context) ComponentHealth { return ComponentHealth{Status: StatusDown} })
	report := c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.Len(t, report.Components, 3)
}

func TestDirCheck(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, StatusUp, DirCheck(dir)(context.Background()).Status)

	file := filepath.Join(dir, "a.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))
	assert.Equal(t, StatusDown, DirCheck(file)(context.Background()).Status)
	assert.Equal(t, StatusDown, DirCheck(filepath.Join(dir, "missing"))(context.Background()).Status)
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("store", DirCheck(t.TempDir()))

	rec := httptest.NewRecorder()
	c.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	c.Register("store", DirCheck(filepath.Join(t.TempDir(), "gone")))
	rec = httptest.NewRecorder()
	c.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPingCheck(t *testing.T) {
	ok := PingCheck(func(context.Context) error { return nil })
	assert.Equal(t, StatusUp, ok(context.Background()).Status)

	bad := PingCheck(func(context.Context) error { return errors.New("connection refused") })
	got := bad(context.Background())
	assert.Equal(t, StatusDegraded, got.Status)
	assert.Equal(t, "connection refused", got.Message)
}
