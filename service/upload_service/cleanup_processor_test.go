package upload_service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCleanupProcessor_SweepsOnStart(t *testing.T) {
	env := newTestEnv(t)
	base := time.Now()
	env.svc.now = func() time.Time { return base }
	res := env.init(t, "old.bin", 10, 1, "")

	orphan := filepath.Join(env.svc.opts.ChunkDir, "left-over")
	require.NoError(t, os.MkdirAll(orphan, 0755))

	env.svc.now = func() time.Time { return base.Add(2 * time.Hour) }

	cp := NewCleanupProcessor(env.svc, time.Hour, zaptest.NewLogger(t))
	cp.Start()

	assert.Eventually(t, func() bool {
		return env.svc.ActiveSessions() == 0
	}, 5*time.Second, 10*time.Millisecond)
	cp.Stop()

	_, err := os.Stat(orphan)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(env.svc.opts.ChunkDir, res.SessionId))
	assert.True(t, os.IsNotExist(err))
}

func TestCleanupProcessor_PeriodicSweep(t *testing.T) {
	env := newTestEnv(t)
	clock := &fakeClock{now: time.Now()}
	env.svc.now = clock.Now
	env.init(t, "later.bin", 10, 1, "")

	cp := NewCleanupProcessor(env.svc, 20*time.Millisecond, zaptest.NewLogger(t))
	cp.Start()
	defer cp.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, env.svc.ActiveSessions())

	clock.Advance(2 * time.Hour)
	assert.Eventually(t, func() bool {
		return env.svc.ActiveSessions() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCleanupProcessor_StopWithoutStart(t *testing.T) {
	env := newTestEnv(t)
	cp := NewCleanupProcessor(env.svc, 0, zaptest.NewLogger(t))
	assert.Equal(t, 10*time.Minute, cp.interval)

	done := make(chan struct{})
	go func() {
		cp.Stop()
		cp.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked")
	}
}
