package perigee

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/dep2p/go-perigee/config"
	"github.com/dep2p/go-perigee/internal/core/eventbus"
	"github.com/dep2p/go-perigee/pkg/types"
)

// smallConfig 40 个节点、4 个区块
func smallConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Run.Nodes = 40
	cfg.Run.Blocks = 4
	cfg.Run.BlockInterval = config.Millis(1000)
	cfg.Run.Drain = config.Millis(2000)
	cfg.Transport.Routers = 8
	cfg.Overlay.NumOutgoing = 4
	cfg.Overlay.NumIncoming = 8
	cfg.Overlay.WeakestLinks = 1
	cfg.Overlay.CalibrationInterval = config.Millis(2000)
	cfg.Bootstrap.Random = 4
	return cfg
}

func newSim(t *testing.T, opts ...Option) *Simulation {
	t.Helper()
	sim, err := New(append([]Option{WithConfig(smallConfig())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { sim.Close() })
	return sim
}

func TestSimulation_Run(t *testing.T) {
	reg := prometheus.NewRegistry()
	sim := newSim(t, WithRunID("e2e"), WithRegistry(reg))
	assert.Equal(t, "e2e", sim.RunID())
	assert.Equal(t, 40, sim.Size())

	r, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "e2e", r.RunID)
	assert.Equal(t, 4, r.Blocks)
	assert.Greater(t, r.Deliveries, uint64(4))
	assert.Greater(t, r.Rounds, 0)
	assert.Equal(t, r.SimTime, sim.Now())

	assert.Equal(t, float64(4), counterValue(t, reg, "perigee_sim_blocks_generated_total"))
	n, err := testutil.GatherAndCount(reg, "perigee_transport_sent_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, sim.Close())
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

// counterValue 按名称读取已注册计数器的值
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			require.Len(t, f.GetMetric(), 1)
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

// TestSimulation_Deterministic 相同配置与种子得到相同结果
func TestSimulation_Deterministic(t *testing.T) {
	run := func(seed int64) *Report {
		sim := newSim(t, WithSeed(seed))
		r, err := sim.Run(context.Background())
		require.NoError(t, err)
		return r
	}

	a, b := run(7), run(7)
	assert.Equal(t, a.Deliveries, b.Deliveries)
	assert.Equal(t, a.HeaderDeliveries, b.HeaderDeliveries)
	assert.Equal(t, a.MeanDelay, b.MeanDelay)
	assert.Equal(t, a.P90, b.P90)
	assert.Equal(t, a.Dropped, b.Dropped)
	assert.Equal(t, a.Events, b.Events)
}

// TestSimulation_Manual 测试手动出块、推进与校准
func TestSimulation_Manual(t *testing.T) {
	cfg := smallConfig()
	cfg.Run.Blocks = 0
	cfg.Run.Drain = config.Millis(60000)

	sim, err := New(WithConfig(cfg))
	require.NoError(t, err)
	defer sim.Close()

	require.NoError(t, sim.GenerateBlock(3, 100))
	assert.True(t, sim.Validated(3, 100))

	require.NoError(t, sim.Advance(context.Background(), 5000))
	assert.Equal(t, types.Tick(5000), sim.Now())

	validated := 0
	for i := 0; i < sim.Size(); i++ {
		if sim.Validated(types.NodeID(i), 100) {
			validated++
		}
	}
	assert.Greater(t, validated, 1)

	rounds := sim.Calibrate()
	assert.Len(t, rounds, sim.Size())
}

// TestSimulation_StaticPreset 静态拓扑不做校准
func TestSimulation_StaticPreset(t *testing.T) {
	sim := newSim(t, WithPreset(config.PresetCR), WithNodes(30))
	assert.Equal(t, config.OverlayStatic, sim.Config().Overlay.Kind)
	assert.Nil(t, sim.Calibrate())

	r, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, r.Nodes)
	assert.Zero(t, r.Rounds)
}

// TestSimulation_SharedEventBus 测试外部事件总线上的结束事件
func TestSimulation_SharedEventBus(t *testing.T) {
	bus := eventbus.NewBus()
	defer bus.Close()

	sub, err := bus.Subscribe(new(types.EvtRunFinished))
	require.NoError(t, err)
	defer sub.Close()

	sim := newSim(t, WithEventBus(bus), WithRunID("shared"))
	assert.Equal(t, bus, sim.EventBus())

	_, err = sim.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, sim.Close())

	evt := (<-sub.Out()).(types.EvtRunFinished)
	assert.Equal(t, "shared", evt.RunID)
	assert.Equal(t, 4, evt.Blocks)

	// 外部总线在仿真关闭后仍可使用
	_, err = bus.Subscribe(new(types.EvtBlockGenerated))
	assert.NoError(t, err)
}

func TestSimulation_Options(t *testing.T) {
	_, err := New(WithNodes(1))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = New(WithConfig(nil))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = New(WithRegistry(nil))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = New(WithConfig(smallConfig()), WithPreset("mesh"))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	bad := smallConfig()
	bad.Overlay.NumIncoming = 1
	_, err = New(WithConfig(bad))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

// TestSimulation_Epoch 自定义仿真起点决定报告中的时间戳
func TestSimulation_Epoch(t *testing.T) {
	epoch := time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC)
	sim := newSim(t, WithFxOptions(fx.Supply(fx.Annotated{Name: "sim_epoch", Target: epoch})))

	r, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, r.StartedAt.Equal(epoch), "%v", r.StartedAt)
	assert.True(t, r.FinishedAt.Equal(epoch.Add(r.SimTime.Duration())), "%v", r.FinishedAt)
}

func TestSimulation_Closed(t *testing.T) {
	sim, err := New(WithConfig(smallConfig()))
	require.NoError(t, err)
	require.NoError(t, sim.Close())
	assert.NoError(t, sim.Close())

	_, err = sim.Run(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, sim.GenerateBlock(0, 0), ErrClosed)
	assert.ErrorIs(t, sim.Advance(context.Background(), 10), ErrClosed)
	assert.Nil(t, sim.Calibrate())
}

func TestVersionInfo(t *testing.T) {
	assert.Contains(t, VersionInfo(), Version)
}
