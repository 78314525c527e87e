package perigee

import (
	"math/rand"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-perigee/internal/protocol/dissemination"
	"github.com/dep2p/go-perigee/pkg/types"
)

// fakePeers 记录转发集合
type fakePeers struct {
	set mapset.Set[types.NodeID]
}

func newFakePeers() *fakePeers {
	return &fakePeers{set: mapset.NewThreadUnsafeSet[types.NodeID]()}
}

func (f *fakePeers) AddPeer(p types.NodeID) bool    { return f.set.Add(p) }
func (f *fakePeers) RemovePeer(p types.NodeID) bool {
	if !f.set.Contains(p) {
		return false
	}
	f.set.Remove(p)
	return true
}

type testOverlay struct {
	*Overlay
	peers []*fakePeers
}

func newTestOverlay(t *testing.T, cfg *Config, size int, seed int64) *testOverlay {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	o, err := NewOverlay(cfg, size, rng, nil)
	require.NoError(t, err)

	to := &testOverlay{Overlay: o}
	for i := 0; i < size; i++ {
		ps := newFakePeers()
		_, err := o.Join(types.NodeID(i), ps)
		require.NoError(t, err)
		to.peers = append(to.peers, ps)
	}
	return to
}

// checkInvariants 检查关系集合的不变式
func (o *testOverlay) checkInvariants(t *testing.T, full bool) {
	t.Helper()
	cfg := o.Config()
	for i := 0; i < o.Size(); i++ {
		id := types.NodeID(i)
		c := o.Calibrator(id)
		sel := mapset.NewThreadUnsafeSet(c.Selected()...)
		acc := mapset.NewThreadUnsafeSet(c.Accepted()...)

		assert.Equal(t, len(c.Selected()), sel.Cardinality(), "selected 无重复")
		assert.Equal(t, len(c.Accepted()), acc.Cardinality(), "accepted 无重复")
		assert.True(t, sel.Intersect(acc).IsEmpty(), "节点 %s selected 与 accepted 相交", id)
		assert.False(t, sel.Contains(id) || acc.Contains(id), "节点 %s 包含自身", id)
		assert.LessOrEqual(t, sel.Cardinality(), cfg.NumOutgoing)
		assert.LessOrEqual(t, acc.Cardinality(), cfg.NumIncoming)
		if full {
			assert.Equal(t, cfg.NumOutgoing, sel.Cardinality(), "节点 %s 未补满", id)
		}

		for _, p := range c.Selected() {
			assert.Contains(t, o.Calibrator(p).Accepted(), id, "关系不对称")
		}
		for _, p := range c.Accepted() {
			assert.Contains(t, o.Calibrator(p).Selected(), id, "关系不对称")
		}
		assert.True(t, sel.Union(acc).Equal(o.peers[i].set), "节点 %s 转发集合不一致", id)
	}
}

func deliver(c *Calibrator, from types.NodeID, block types.BlockID, at types.Tick) {
	c.HeaderDelivered(dissemination.Delivery{
		Node:    c.ID(),
		BlockID: block,
		From:    from,
		At:      at,
	})
}

// ============================================================================
//                              关系建立
// ============================================================================

func TestCalibrator_Select(t *testing.T) {
	cfg := strategyConfig(StrategyRewardAllButLast, 2, 1)
	cfg.NumIncoming = 2
	o := newTestOverlay(t, cfg, 6, 1)
	c0, c1 := o.Calibrator(0), o.Calibrator(1)

	assert.False(t, c0.Select(0), "不能选择自身")
	assert.True(t, c0.Select(1))
	assert.False(t, c0.Select(1), "已存在关系")
	assert.False(t, c1.Select(0), "反方向已存在关系")
	assert.True(t, c1.Contains(0))

	assert.True(t, o.Calibrator(2).Select(1))
	assert.False(t, o.Calibrator(3).Select(1), "对端 accepted 已满")

	assert.True(t, c0.Select(2))
	assert.False(t, c0.Select(4), "selected 已满")

	assert.Equal(t, []types.NodeID{1, 2}, c0.Selected())
	assert.Equal(t, []types.NodeID{0, 2}, c1.Accepted())
	assert.False(t, c0.Select(99))
	o.checkInvariants(t, false)
}

// ============================================================================
//                              校准
// ============================================================================

func TestCalibrator_FirstRoundRefills(t *testing.T) {
	o := newTestOverlay(t, strategyConfig(StrategyRewardAllButLast, 3, 1), 10, 2)

	rounds := o.CalibrateAll()
	require.Len(t, rounds, 10)
	for _, r := range rounds {
		assert.Empty(t, r.Dropped, "首轮没有评分，不丢弃")
		assert.False(t, r.Starved)
		assert.GreaterOrEqual(t, r.Attempts, len(r.Added))
	}
	o.checkInvariants(t, true)
}

func TestCalibrator_DropsLastDeliverer(t *testing.T) {
	o := newTestOverlay(t, strategyConfig(StrategyRewardAllButLast, 3, 1), 8, 3)
	c := o.Calibrator(0)
	for _, p := range []types.NodeID{1, 2, 3} {
		require.True(t, c.Select(p))
	}
	r := c.Calibrate()
	assert.Empty(t, r.Dropped)
	assert.Empty(t, r.Added)
	assert.Equal(t, 1, c.Rounds())

	for b := 0; b < 3; b++ {
		deliver(c, 1, types.BlockID(b), 5)
		deliver(c, 2, types.BlockID(b), 5)
		deliver(c, 3, types.BlockID(b), 9)
		deliver(c, 4, types.BlockID(b), 1) // 非 selected，忽略
	}

	r = c.Calibrate()
	assert.Equal(t, []types.NodeID{3}, r.Dropped)
	assert.Len(t, r.Added, 1)
	assert.Len(t, c.Selected(), 3)
	assert.Contains(t, c.Selected(), types.NodeID(1))
	assert.Contains(t, c.Selected(), types.NodeID(2))
	o.checkInvariants(t, false)
}

// TestCalibrator_SubsetKeepsTwo numOutgoing=3, weakestLinks=1 的子集评分
func TestCalibrator_SubsetKeepsTwo(t *testing.T) {
	o := newTestOverlay(t, strategyConfig(StrategySubset, 3, 1), 8, 4)
	c := o.Calibrator(0)
	for _, p := range []types.NodeID{5, 6, 7} {
		require.True(t, c.Select(p))
	}
	c.Calibrate()

	sub, ok := c.Strategy().(*subsetScore)
	require.True(t, ok)
	assert.Equal(t, 3, sub.NumSubsets())

	for b := 0; b < 4; b++ {
		deliver(c, 7, types.BlockID(b), 0)
		deliver(c, 5, types.BlockID(b), 2)
		deliver(c, 6, types.BlockID(b), 80)
	}

	prior := c.Selected()
	r := c.Calibrate()
	assert.Equal(t, []types.NodeID{6}, r.Dropped)

	survivors := 0
	for _, p := range c.Selected() {
		for _, q := range prior {
			if p == q {
				survivors++
			}
		}
	}
	assert.GreaterOrEqual(t, survivors, 2)
	assert.Len(t, c.Selected(), 3)
	o.checkInvariants(t, false)
}

func TestCalibrator_Starved(t *testing.T) {
	cfg := strategyConfig(StrategyRewardFirst, 2, 1)
	cfg.NumIncoming = 0
	cfg.MaxRefillAttempts = 5
	o := newTestOverlay(t, cfg, 4, 5)

	r := o.Calibrator(0).Calibrate()
	assert.True(t, r.Starved)
	assert.Equal(t, 5, r.Attempts)
	assert.Empty(t, r.Added)
}

// TestCalibrator_RandomRounds 多轮随机交付后不变式保持
func TestCalibrator_RandomRounds(t *testing.T) {
	for _, kind := range []StrategyKind{StrategyRewardAllButLast, StrategyRewardFirst, StrategySubset} {
		t.Run(string(kind), func(t *testing.T) {
			cfg := strategyConfig(kind, 4, 2)
			o := newTestOverlay(t, cfg, 30, 6)
			rng := rand.New(rand.NewSource(7))

			o.CalibrateAll()
			o.checkInvariants(t, true)

			block := types.BlockID(0)
			for round := 0; round < 10; round++ {
				for b := 0; b < 5; b++ {
					for i := 0; i < o.Size(); i++ {
						c := o.Calibrator(types.NodeID(i))
						for _, p := range rng.Perm(o.Size()) {
							deliver(c, types.NodeID(p), block, types.Tick(rng.Intn(100)))
						}
					}
					block++
				}
				for _, r := range o.CalibrateAll() {
					if kind != StrategySubset {
						assert.Len(t, r.Dropped, cfg.WeakestLinks)
					}
				}
				o.checkInvariants(t, true)
			}
		})
	}
}

// ============================================================================
//                              配置
// ============================================================================

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		modify func(*Config)
		target error
	}{
		{"weakest exceeds outgoing", func(c *Config) { c.WeakestLinks = c.NumOutgoing + 1 }, ErrInvalidConfig},
		{"negative weakest", func(c *Config) { c.WeakestLinks = -1 }, ErrInvalidConfig},
		{"zero outgoing", func(c *Config) { c.NumOutgoing = 0; c.WeakestLinks = 0 }, ErrInvalidConfig},
		{"percentile above 100", func(c *Config) { c.SubsetPercentile = 101 }, ErrInvalidConfig},
		{"negative percentile", func(c *Config) { c.SubsetPercentile = -1 }, ErrInvalidConfig},
		{"unknown strategy", func(c *Config) { c.Strategy = "nope" }, ErrUnknownStrategy},
		{"negative refill", func(c *Config) { c.MaxRefillAttempts = -1 }, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.target)
		})
	}

	t.Run("accumulates", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SubsetPercentile = 200
		cfg.Strategy = "nope"
		err := cfg.Validate()
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.ErrorIs(t, err, ErrUnknownStrategy)
	})
}

func TestNewOverlay(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	cfg := strategyConfig(StrategyRewardAllButLast, 3, 1)
	_, err := NewOverlay(cfg, 3, rng, nil)
	assert.ErrorIs(t, err, ErrUnsatisfiable, "候选节点不足")

	cfg.NumIncoming = 2
	_, err = NewOverlay(cfg, 10, rng, nil)
	assert.ErrorIs(t, err, ErrUnsatisfiable, "总入度容量不足")

	cfg.MaxRefillAttempts = 10
	_, err = NewOverlay(cfg, 10, rng, nil)
	assert.NoError(t, err, "有抽样上限时允许饥饿")

	_, err = NewOverlay(cfg, 10, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	o, err := NewOverlay(strategyConfig(StrategySubset, 3, 1), 5, rng, nil)
	require.NoError(t, err)
	_, err = o.Join(5, nil)
	assert.ErrorIs(t, err, ErrNodeOutOfRange)
	_, err = o.Join(1, nil)
	require.NoError(t, err)
	_, err = o.Join(1, nil)
	assert.ErrorIs(t, err, ErrAlreadyJoined)
	assert.Nil(t, o.Calibrator(2))
}
