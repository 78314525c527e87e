package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-perigee/pkg/types"
)

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type delivered struct {
	at   types.Tick
	to   types.NodeID
	from types.NodeID
	ev   any
}

// recordingNodes 注册 n 个记录事件的节点
func recordingNodes(t *testing.T, s *Scheduler, n int) *[]delivered {
	t.Helper()
	log := &[]delivered{}
	for i := 0; i < n; i++ {
		id := types.NodeID(i)
		require.NoError(t, s.Register(id, HandlerFunc(func(from types.NodeID, ev any) error {
			*log = append(*log, delivered{at: s.Now(), to: id, from: from, ev: ev})
			return nil
		})))
	}
	return log
}

func TestScheduler_Ordering(t *testing.T) {
	s := New(testEpoch)
	log := recordingNodes(t, s, 2)

	require.NoError(t, s.Schedule(10, 0, 1, "c"))
	require.NoError(t, s.Schedule(5, 1, 0, "a"))
	require.NoError(t, s.Schedule(10, 1, 0, "d"))
	require.NoError(t, s.Schedule(5, 0, 1, "b"))
	assert.Equal(t, 4, s.Pending())

	require.NoError(t, s.Run(context.Background(), 0))

	var order []any
	for _, d := range *log {
		order = append(order, d.ev)
	}
	assert.Equal(t, []any{"a", "b", "c", "d"}, order, "同一时刻先进先出")
	assert.Equal(t, types.Tick(5), (*log)[0].at)
	assert.Equal(t, types.NodeID(0), (*log)[0].from)
	assert.Equal(t, types.Tick(10), s.Now())
	assert.Equal(t, uint64(4), s.Processed())
	assert.Zero(t, s.Pending())
}

func TestScheduler_ChainedEvents(t *testing.T) {
	s := New(testEpoch)
	var times []types.Tick
	require.NoError(t, s.Register(0, HandlerFunc(func(_ types.NodeID, ev any) error {
		times = append(times, s.Now())
		if n := ev.(int); n > 0 {
			return s.Schedule(3, 0, 0, n-1)
		}
		return nil
	})))

	require.NoError(t, s.Schedule(0, 0, 0, 3))
	require.NoError(t, s.Run(context.Background(), 0))
	assert.Equal(t, []types.Tick{0, 3, 6, 9}, times)
}

func TestScheduler_Controls(t *testing.T) {
	s := New(testEpoch)
	recordingNodes(t, s, 1)

	var ticks []types.Tick
	var stamps []time.Time
	require.NoError(t, s.AddControl("periodic", ControlFunc(func(now types.Tick) (bool, error) {
		ticks = append(ticks, now)
		stamps = append(stamps, s.Clock().Now())
		return now >= 300, nil
	}), 100, 100))

	once := 0
	require.NoError(t, s.AddControl("once", ControlFunc(func(types.Tick) (bool, error) {
		once++
		return false, nil
	}), 0, 0))

	require.NoError(t, s.Schedule(1000, 0, 0, "late"))
	require.NoError(t, s.Run(context.Background(), 0))

	assert.Equal(t, []types.Tick{100, 200, 300}, ticks)
	assert.Equal(t, 1, once)
	assert.True(t, s.Stopped())
	assert.Equal(t, 1, s.Pending(), "停止后剩余事件不再处理")
	assert.Equal(t, testEpoch.Add(200*time.Millisecond), stamps[1], "时钟与虚拟时间同步")

	more, err := s.Step()
	assert.NoError(t, err)
	assert.False(t, more)
}

func TestScheduler_Errors(t *testing.T) {
	t.Run("handler error aborts run", func(t *testing.T) {
		s := New(testEpoch)
		boom := errors.New("boom")
		require.NoError(t, s.Register(0, HandlerFunc(func(types.NodeID, any) error { return boom })))
		require.NoError(t, s.Schedule(7, 0, 0, nil))
		require.NoError(t, s.Schedule(8, 0, 0, nil))

		err := s.Run(context.Background(), 0)
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "7ms")
		assert.Equal(t, 1, s.Pending())
	})

	t.Run("control error aborts run", func(t *testing.T) {
		s := New(testEpoch)
		boom := errors.New("boom")
		require.NoError(t, s.AddControl("bad", ControlFunc(func(types.Tick) (bool, error) { return false, boom }), 0, 10))
		err := s.Run(context.Background(), 0)
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "bad")
	})

	t.Run("schedule validation", func(t *testing.T) {
		s := New(testEpoch)
		recordingNodes(t, s, 1)
		assert.ErrorIs(t, s.Schedule(-1, 0, 0, nil), ErrNegativeDelay)
		assert.ErrorIs(t, s.Schedule(1, 5, 0, nil), ErrUnknownNode)
		assert.ErrorIs(t, s.Register(0, HandlerFunc(func(types.NodeID, any) error { return nil })), ErrAlreadyRegistered)
		assert.ErrorIs(t, s.AddControl("neg", ControlFunc(func(types.Tick) (bool, error) { return false, nil }), 0, -1), ErrInvalidStep)
	})
}

func TestScheduler_Until(t *testing.T) {
	s := New(testEpoch)
	log := recordingNodes(t, s, 1)
	for _, d := range []types.Tick{10, 20, 30} {
		require.NoError(t, s.Schedule(d, 0, 0, d))
	}

	require.NoError(t, s.Run(context.Background(), 25))
	assert.Len(t, *log, 2)
	assert.Equal(t, types.Tick(25), s.Now())
	assert.Equal(t, testEpoch.Add(25*time.Millisecond), s.Clock().Now())

	require.NoError(t, s.Run(context.Background(), 0))
	assert.Len(t, *log, 3)
}

func TestScheduler_ContextCanceled(t *testing.T) {
	s := New(testEpoch)
	recordingNodes(t, s, 1)
	require.NoError(t, s.Schedule(1, 0, 0, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx, 0), context.Canceled)
	assert.Equal(t, 1, s.Pending())
}
