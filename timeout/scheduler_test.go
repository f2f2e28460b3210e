package timeout

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerFires(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Arm(KindIdle, "s1", 10*time.Millisecond, func() { fired.Add(1) })

	require.Eventually(t, func() bool {
		return fired.Load() == 1
	}, time.Second, 2*time.Millisecond)
	assert.False(t, s.Active(KindIdle, "s1"))
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Arm(KindIdle, "s1", 20*time.Millisecond, func() { fired.Add(1) })
	s.Cancel(KindIdle, "s1")

	assert.Never(t, func() bool {
		return fired.Load() > 0
	}, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 0, s.Len())
}

func TestSchedulerRearmReplaces(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var first, second atomic.Int32
	s.Arm(KindInactivity, "s1", 30*time.Millisecond, func() { first.Add(1) })
	s.Arm(KindInactivity, "s1", 30*time.Millisecond, func() { second.Add(1) })

	require.Eventually(t, func() bool {
		return second.Load() == 1
	}, time.Second, 2*time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, 0, s.Len())
}

func TestSchedulerKeysAreIndependent(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var idle, warn atomic.Int32
	s.Arm(KindIdle, "s1", 10*time.Millisecond, func() { idle.Add(1) })
	s.Arm(KindInactivity, "s1", 10*time.Millisecond, func() { warn.Add(1) })
	s.Arm(KindIdle, "s2", time.Minute, func() {})

	require.Eventually(t, func() bool {
		return idle.Load() == 1 && warn.Load() == 1
	}, time.Second, 2*time.Millisecond)
	assert.True(t, s.Active(KindIdle, "s2"))
}

func TestSchedulerCancelAll(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	s.Arm(KindIdle, "s1", time.Minute, func() {})
	s.Arm(KindInactivity, "s1", time.Minute, func() {})
	s.Arm(KindIdle, "s2", time.Minute, func() {})

	s.CancelAll("s1")

	assert.False(t, s.Active(KindIdle, "s1"))
	assert.False(t, s.Active(KindInactivity, "s1"))
	assert.True(t, s.Active(KindIdle, "s2"))
}

func TestSchedulerStopRejectsArming(t *testing.T) {
	s := NewScheduler()

	var fired atomic.Int32
	s.Arm(KindIdle, "s1", 10*time.Millisecond, func() { fired.Add(1) })
	s.Stop()
	s.Arm(KindIdle, "s2", 10*time.Millisecond, func() { fired.Add(1) })

	assert.Never(t, func() bool {
		return fired.Load() > 0
	}, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 0, s.Len())
}
