package eventbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgif "github.com/dep2p/go-perigee/pkg/interfaces"
	"github.com/dep2p/go-perigee/pkg/types"
)

// ============================================================================
// 基础功能测试
// ============================================================================

// TestBus_EmitAndReceive 测试事件发射和接收
func TestBus_EmitAndReceive(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(types.EvtBlockGenerated))
	require.NoError(t, err)
	defer sub.Close()

	em, err := bus.Emitter(new(types.EvtBlockGenerated))
	require.NoError(t, err)
	defer em.Close()

	evt := types.EvtBlockGenerated{
		BaseEvent: types.NewBaseEvent(types.EventTypeBlockGenerated, 1000),
		Block:     3,
		Miner:     7,
		OnChain:   true,
	}
	require.NoError(t, em.Emit(evt))

	got := (<-sub.Out()).(types.EvtBlockGenerated)
	assert.Equal(t, evt, got)
	assert.Equal(t, types.Tick(1000), got.At())
}

// TestBus_TypeSeparation 测试不同事件类型互不干扰
func TestBus_TypeSeparation(t *testing.T) {
	bus := NewBus()

	blocks, err := bus.Subscribe(new(types.EvtBlockGenerated))
	require.NoError(t, err)
	rounds, err := bus.Subscribe(new(types.EvtCalibrationRound))
	require.NoError(t, err)

	em, err := bus.Emitter(new(types.EvtCalibrationRound))
	require.NoError(t, err)
	require.NoError(t, em.Emit(types.EvtCalibrationRound{Round: 1, Dropped: 4}))

	assert.Len(t, blocks.Out(), 0)
	require.Len(t, rounds.Out(), 1)
	assert.Equal(t, 4, (<-rounds.Out()).(types.EvtCalibrationRound).Dropped)
	assert.Equal(t, []string{"types.EvtBlockGenerated", "types.EvtCalibrationRound"}, bus.Topics())
}

// TestBus_InvalidTypes 测试类型检查
func TestBus_InvalidTypes(t *testing.T) {
	bus := NewBus()

	_, err := bus.Subscribe(nil)
	assert.ErrorIs(t, err, ErrInvalidEventType)

	_, err = bus.Subscribe(types.EvtRunFinished{})
	assert.ErrorIs(t, err, ErrNonPointerType)

	_, err = bus.Emitter(types.EvtRunFinished{})
	assert.ErrorIs(t, err, ErrNonPointerType)

	em, err := bus.Emitter(new(types.EvtRunFinished))
	require.NoError(t, err)

	// 以指针或其他类型发射
	assert.ErrorIs(t, em.Emit(&types.EvtRunFinished{}), ErrInvalidEventType)
	assert.ErrorIs(t, em.Emit(types.EvtBlockGenerated{}), ErrInvalidEventType)
	assert.ErrorIs(t, em.Emit(nil), ErrInvalidEventType)

	require.NoError(t, em.Close())
	assert.ErrorIs(t, em.Emit(types.EvtRunFinished{}), ErrEmitterClosed)
}

// TestBus_SlowConsumer 测试缓冲区满时丢弃而不阻塞
func TestBus_SlowConsumer(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(types.EvtBlockGenerated), pkgif.BufSize(2), pkgif.Named("progress"))
	require.NoError(t, err)
	em, err := bus.Emitter(new(types.EvtBlockGenerated))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, em.Emit(types.EvtBlockGenerated{Block: types.BlockID(i)}))
	}

	assert.Equal(t, int64(3), sub.Dropped())
	assert.Equal(t, types.BlockID(0), (<-sub.Out()).(types.EvtBlockGenerated).Block)
	assert.Equal(t, types.BlockID(1), (<-sub.Out()).(types.EvtBlockGenerated).Block)
}

// TestBus_Stateful 测试晚到的订阅者收到最后一个事件
func TestBus_Stateful(t *testing.T) {
	bus := NewBus()

	em, err := bus.Emitter(new(types.EvtRunFinished), pkgif.Stateful())
	require.NoError(t, err)
	require.NoError(t, em.Emit(types.EvtRunFinished{RunID: "a"}))
	require.NoError(t, em.Emit(types.EvtRunFinished{RunID: "b"}))

	sub, err := bus.Subscribe(new(types.EvtRunFinished))
	require.NoError(t, err)
	require.Len(t, sub.Out(), 1)
	assert.Equal(t, "b", (<-sub.Out()).(types.EvtRunFinished).RunID)
}

// ============================================================================
// 关闭
// ============================================================================

// TestSubscription_Close 测试取消订阅
func TestSubscription_Close(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(types.EvtBlockGenerated))
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, ok := <-sub.Out()
	assert.False(t, ok)

	// 没有订阅者与发射器后类型被移除
	assert.Empty(t, bus.Topics())
}

// TestBus_Close 测试关闭总线
func TestBus_Close(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(types.EvtBlockGenerated))
	require.NoError(t, err)
	em, err := bus.Emitter(new(types.EvtBlockGenerated))
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	_, ok := <-sub.Out()
	assert.False(t, ok)

	// 关闭后发射不会 panic
	assert.NoError(t, em.Emit(types.EvtBlockGenerated{}))

	_, err = bus.Subscribe(new(types.EvtBlockGenerated))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = bus.Emitter(new(types.EvtBlockGenerated))
	assert.ErrorIs(t, err, ErrClosed)
}

// TestBus_Concurrent 测试并发订阅、发射与关闭
func TestBus_Concurrent(t *testing.T) {
	bus := NewBus()
	em, err := bus.Emitter(new(types.EvtCalibrationRound))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := bus.Subscribe(new(types.EvtCalibrationRound), pkgif.BufSize(4))
			if err != nil {
				return
			}
			for j := 0; j < 4; j++ {
				select {
				case <-sub.Out():
				default:
				}
			}
			sub.Close()
		}()
	}

	for i := 0; i < 100; i++ {
		assert.NoError(t, em.Emit(types.EvtCalibrationRound{Round: i}))
	}
	wg.Wait()
	assert.NoError(t, em.Close())
}
