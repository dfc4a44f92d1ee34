package gate

import (
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("testing.(*T).Run"),
		goleak.IgnoreTopFunction("runtime.gopark"),
		goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
	)
	os.Exit(m.Run())
}

func TestTryAcquireRelease(t *testing.T) {
	t.Parallel()

	g := New()

	require.True(t, g.TryAcquire(), "fresh gate should admit the first caller")
	assert.Equal(t, int64(1), g.InFlight())

	assert.False(t, g.TryAcquire(), "held gate must reject the second caller")
	assert.Equal(t, int64(1), g.InFlight())

	g.Release()
	assert.Equal(t, int64(0), g.InFlight())

	assert.True(t, g.TryAcquire(), "released gate should admit again")
	g.Release()
}

func TestReleaseWithoutAcquire(t *testing.T) {
	t.Parallel()

	g := New()

	// Must not panic and must not create phantom capacity
	g.Release()
	g.Release()

	require.True(t, g.TryAcquire())
	assert.False(t, g.TryAcquire())
	g.Release()
}

func TestDoubleReleaseKeepsSingleSlot(t *testing.T) {
	t.Parallel()

	g := New()

	require.True(t, g.TryAcquire())
	g.Release()
	g.Release() // extra release is ignored

	require.True(t, g.TryAcquire())
	assert.False(t, g.TryAcquire(), "gate must stay single slot after a double release")
	g.Release()
}

func TestConcurrentAcquireAdmitsExactlyOne(t *testing.T) {
	t.Parallel()

	const attempts = 32

	g := New()

	var admitted atomic.Int32
	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(attempts)

	for i := 0; i < attempts; i++ {
		go func() {
			defer done.Done()
			start.Wait()
			if g.TryAcquire() {
				admitted.Add(1)
			}
		}()
	}

	start.Done()
	done.Wait()

	assert.Equal(t, int32(1), admitted.Load(), "exactly one caller may win the slot")
	assert.Equal(t, int64(1), g.InFlight())
	g.Release()
}

func TestAcquireReleaseCycles(t *testing.T) {
	t.Parallel()

	g := New()

	for i := 0; i < 1000; i++ {
		require.True(t, g.TryAcquire(), "cycle %d", i)
		g.Release()
	}
	assert.Equal(t, int64(0), g.InFlight())
}
