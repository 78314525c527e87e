package metrics

import (
	"slices"

	"github.com/dep2p/go-perigee/internal/protocol/dissemination"
	"github.com/dep2p/go-perigee/pkg/lib/log"
	"github.com/dep2p/go-perigee/pkg/types"
)

var logger = log.Logger("core/metrics")

// ValidatedFunc 查询节点是否已校验区块
type ValidatedFunc func(node types.NodeID, block types.BlockID) bool

// blockRecord 单个区块的交付记录
type blockRecord struct {
	id    types.BlockID
	times []types.Tick
	hops  map[int]int
}

type minerRecord struct {
	block types.BlockID
	miner types.NodeID
}

// Collector 区块传播统计
//
// 统计窗口（区块记录与出块节点）可通过 Reset 清空，累计值不受影响。
// Collector 在仿真线程中使用，不是并发安全的。
type Collector struct {
	dissemination.NopObserver

	size      int
	validated ValidatedFunc
	prom      *Prometheus

	// 统计窗口
	blocks  []*blockRecord
	byID    map[types.BlockID]*blockRecord
	miners  []minerRecord
	maxTime types.Tick
	maxHops int

	// 链头
	chainTip types.BlockID
	onChain  int
	offChain int

	// 累计值
	mined            int
	complete         int
	deliveries       uint64
	headerDeliveries uint64
	allTimes         []types.Tick
	rounds           int
	dropped          int
	added            int
	starved          int
}

var _ dissemination.Observer = (*Collector)(nil)

// NewCollector 创建统计收集器
//
// size 为网络规模，validated 用于判断出块节点是否持有链头，prom 可为 nil。
func NewCollector(size int, validated ValidatedFunc, prom *Prometheus) *Collector {
	c := &Collector{
		size:      size,
		validated: validated,
		prom:      prom,
		chainTip:  -1,
	}
	c.Reset()
	return c
}

// Size 网络规模
func (c *Collector) Size() int {
	return c.size
}

// Reset 清空统计窗口
func (c *Collector) Reset() {
	c.blocks = nil
	c.byID = make(map[types.BlockID]*blockRecord)
	c.miners = nil
	c.maxTime = -1
	c.maxHops = -1
}

func (c *Collector) record(block types.BlockID) *blockRecord {
	r, ok := c.byID[block]
	if !ok {
		r = &blockRecord{id: block, hops: make(map[int]int)}
		c.byID[block] = r
		c.blocks = append(c.blocks, r)
	}
	return r
}

// ReportMiner 记录出块节点，返回区块是否延长了链头
//
// 第一个区块或出块节点已校验当前链头时，新区块成为链头。
func (c *Collector) ReportMiner(block types.BlockID, miner types.NodeID) bool {
	c.miners = append(c.miners, minerRecord{block: block, miner: miner})
	c.record(block)
	c.mined++
	c.prom.blockGenerated()

	if c.chainTip < 0 || (c.validated != nil && c.validated(miner, c.chainTip)) {
		c.chainTip = block
		c.onChain++
		return true
	}
	c.offChain++
	return false
}

// HeaderDelivered 实现 dissemination.Observer
func (c *Collector) HeaderDelivered(dissemination.Delivery) {
	c.headerDeliveries++
	c.prom.headerDelivered()
}

// BodyValidated 实现 dissemination.Observer
func (c *Collector) BodyValidated(d dissemination.Delivery) {
	r := c.record(d.BlockID)
	r.times = append(r.times, d.Elapsed)
	r.hops[d.Hops]++
	c.maxTime = max(c.maxTime, d.Elapsed)
	c.maxHops = max(c.maxHops, d.Hops)

	c.deliveries++
	c.allTimes = append(c.allTimes, d.Elapsed)
	if len(r.times) == c.size {
		c.complete++
	}
	c.prom.bodyValidated(d.Elapsed, d.Hops)
}

// RecordRound 记录一轮校准
func (c *Collector) RecordRound(dropped, added int, starved bool) {
	c.rounds++
	c.dropped += dropped
	c.added += added
	if starved {
		c.starved++
	}
	c.prom.calibrationRound(dropped, added, starved)
}

// Blocks 统计窗口中的区块数
func (c *Collector) Blocks() int {
	return len(c.blocks)
}

// Deliveries 区块在统计窗口中的交付时间（按发生顺序）
func (c *Collector) Deliveries(block types.BlockID) []types.Tick {
	r, ok := c.byID[block]
	if !ok {
		return nil
	}
	return slices.Clone(r.times)
}

// ChainTip 当前链头，没有区块时为 -1
func (c *Collector) ChainTip() types.BlockID {
	return c.chainTip
}

// Throughput 上链与分叉区块数
func (c *Collector) Throughput() (on, off int) {
	return c.onChain, c.offChain
}
