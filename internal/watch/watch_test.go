package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	feed := filepath.Join(dir, "feed.csv")
	require.NoError(t, os.WriteFile(feed, []byte("a\n"), 0o644))

	var calls atomic.Int32
	fw, err := New(feed, 200*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, fw.Start(context.Background()))
	defer fw.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(feed, []byte("a\nb\n"), 0o644))
	}
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Less(t, calls.Load(), int32(5), "burst of writes should be debounced")
}

func TestIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	feed := filepath.Join(dir, "feed.csv")

	var calls atomic.Int32
	fw, err := New(feed, 20*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)
	require.NoError(t, err)
	require.NoError(t, fw.Start(context.Background()))
	defer fw.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestStartFailsOnMissingDir(t *testing.T) {
	fw, err := New(filepath.Join(t.TempDir(), "nope", "feed.csv"), 0, func(context.Context) error { return nil }, nil)
	require.NoError(t, err)
	require.Error(t, fw.Start(context.Background()))
	fw.Stop()
}

func TestStopIsIdempotent(t *testing.T) {
	fw, err := New(filepath.Join(t.TempDir(), "feed.csv"), 0, func(context.Context) error { return nil }, nil)
	require.NoError(t, err)
	require.NoError(t, fw.Start(context.Background()))
	fw.Stop()
	fw.Stop()
}
