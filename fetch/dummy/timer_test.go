package dummy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerScheduleAndCancel(t *testing.T) {
	tm := NewTimer()
	fired := 0

	cancel := tm.Schedule(10*time.Millisecond, func() {
		fired++
	})
	tm.Schedule(20*time.Millisecond, func() {
		fired++
	})

	require.NoError(t, cancel())
	// A second cancel before the deadline reports the event gone.
	require.Error(t, cancel())

	tm.MoveForward(time.Second)
	require.Equal(t, 1, fired)
}

func TestTimerCancelFromCallback(t *testing.T) {
	tm := NewTimer()
	fired := 0

	var cancel func() error
	tm.Schedule(10*time.Millisecond, func() {
		require.NoError(t, cancel())
	})
	cancel = tm.Schedule(20*time.Millisecond, func() {
		fired++
	})

	// The first callback cancels the second within the same pass.
	tm.MoveForward(time.Second)
	require.Equal(t, 0, fired)
	tm.MoveForward(time.Second)
	require.Equal(t, 0, fired)
}

func TestTimerScheduleFromCallback(t *testing.T) {
	tm := NewTimer()
	fired := 0

	cancel := tm.Schedule(5*time.Millisecond, func() {})
	require.NoError(t, cancel())
	tm.Schedule(10*time.Millisecond, func() {
		// Lands in the freed slot; must survive the current pass.
		tm.Schedule(10*time.Millisecond, func() {
			fired++
		})
	})

	tm.MoveForward(20 * time.Millisecond)
	require.Equal(t, 0, fired)
	tm.MoveForward(20 * time.Millisecond)
	require.Equal(t, 1, fired)
}
