package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-perigee/internal/protocol/dissemination"
	"github.com/dep2p/go-perigee/pkg/types"
)

// validatedSet 以 (节点, 区块) 记录校验状态
type validatedSet map[[2]int]bool

func (v validatedSet) set(node types.NodeID, block types.BlockID) {
	v[[2]int{int(node), int(block)}] = true
}

func (v validatedSet) has(node types.NodeID, block types.BlockID) bool {
	return v[[2]int{int(node), int(block)}]
}

func delivery(node types.NodeID, block types.BlockID, elapsed types.Tick, hops int) dissemination.Delivery {
	return dissemination.Delivery{Node: node, BlockID: block, Elapsed: elapsed, Hops: hops}
}

// TestCollector_ChainTip 测试链头与分叉统计
func TestCollector_ChainTip(t *testing.T) {
	v := validatedSet{}
	c := NewCollector(3, v.has, nil)
	assert.Equal(t, types.BlockID(-1), c.ChainTip())

	// 第一个区块总是上链
	assert.True(t, c.ReportMiner(0, 0))
	v.set(0, 0)
	v.set(2, 0)

	// 节点 2 已校验链头，延长链
	assert.True(t, c.ReportMiner(1, 2))
	assert.Equal(t, types.BlockID(1), c.ChainTip())

	// 节点 1 没有链头，产生分叉
	assert.False(t, c.ReportMiner(2, 1))
	assert.Equal(t, types.BlockID(1), c.ChainTip())

	on, off := c.Throughput()
	assert.Equal(t, 2, on)
	assert.Equal(t, 1, off)
	assert.Equal(t, 3, c.Blocks())
}

// TestCollector_Deliveries 测试交付记录与汇总
func TestCollector_Deliveries(t *testing.T) {
	c := NewCollector(3, nil, nil)
	c.ReportMiner(0, 0)
	c.HeaderDelivered(delivery(1, 0, 20, 1))
	c.HeaderDelivered(delivery(2, 0, 40, 1))

	c.BodyValidated(delivery(0, 0, 0, 0))
	c.BodyValidated(delivery(1, 0, 30, 1))
	c.BodyValidated(delivery(2, 0, 60, 2))

	assert.Equal(t, []types.Tick{0, 30, 60}, c.Deliveries(0))
	assert.Nil(t, c.Deliveries(7))

	c.RecordRound(2, 2, false)
	c.RecordRound(1, 0, true)

	r := c.Report()
	assert.Equal(t, 3, r.Nodes)
	assert.Equal(t, 1, r.Blocks)
	assert.Equal(t, 1, r.Complete)
	assert.Equal(t, uint64(3), r.Deliveries)
	assert.Equal(t, uint64(2), r.HeaderDeliveries)
	assert.InDelta(t, 30.0, r.MeanDelay, 1e-9)
	assert.Equal(t, types.Tick(30), r.P50)
	assert.Equal(t, types.Tick(60), r.P90)
	assert.Equal(t, types.Tick(60), r.P99)
	assert.Equal(t, types.Tick(60), r.MaxDelay)
	assert.Equal(t, 2, r.Rounds)
	assert.Equal(t, 3, r.Dropped)
	assert.Equal(t, 2, r.Added)
	assert.Equal(t, 1, r.Starved)
}

// TestCollector_Reset 测试清空窗口保留累计值
func TestCollector_Reset(t *testing.T) {
	c := NewCollector(2, nil, nil)
	c.ReportMiner(0, 1)
	c.BodyValidated(delivery(1, 0, 0, 0))
	require.Equal(t, 1, c.Blocks())

	c.Reset()
	assert.Equal(t, 0, c.Blocks())
	assert.Nil(t, c.Deliveries(0))
	assert.Equal(t, types.BlockID(0), c.ChainTip())

	r := c.Report()
	assert.Equal(t, 1, r.Blocks)
	assert.Equal(t, uint64(1), r.Deliveries)
}

// TestCollector_EmptyReport 测试没有交付时的汇总
func TestCollector_EmptyReport(t *testing.T) {
	r := NewCollector(4, nil, nil).Report()
	assert.Equal(t, 4, r.Nodes)
	assert.Zero(t, r.MeanDelay)
	assert.Zero(t, r.MaxDelay)
}
