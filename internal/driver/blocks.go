package driver

import (
	"fmt"
	"math/rand"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-perigee/internal/core/eventbus"
	"github.com/dep2p/go-perigee/pkg/types"
)

// minMinerPeers 出块节点至少需要的转发对象数
const minMinerPeers = 2

// MiningNetwork 出块所需的网络视图
type MiningNetwork interface {
	Size() int
	NumPeers(node types.NodeID) int
	GenerateBlock(node types.NodeID, block types.BlockID) error
}

// MinerReporter 记录出块节点，返回新区块是否延长了链头
type MinerReporter interface {
	ReportMiner(block types.BlockID, miner types.NodeID) bool
}

// BlockConfig 出块配置
type BlockConfig struct {
	// Blocks 生成的区块总数
	Blocks int

	// Skip 每 Skip 个出块时机跳过一个（0 表示不跳过）
	Skip int

	// Drain 最后一个区块生成后继续运行的时间
	Drain types.Tick
}

// BlockGenerator 出块控制器
//
// 出块节点由独立的随机数生成器挑选，不同实验在同一种子下得到相同的出块序列。
type BlockGenerator struct {
	cfg   BlockConfig
	net   MiningNetwork
	stats MinerReporter
	rng   *rand.Rand

	events *eventbus.RunEmitters
	clock  clock.Clock

	next        types.BlockID
	count       int
	completedAt types.Tick
}

// NewBlockGenerator 创建出块控制器，stats 可以为 nil
func NewBlockGenerator(cfg BlockConfig, net MiningNetwork, stats MinerReporter, rng *rand.Rand) (*BlockGenerator, error) {
	if cfg.Blocks < 0 || cfg.Skip < 0 || cfg.Skip == 1 || cfg.Drain < 0 {
		return nil, fmt.Errorf("%w: blocks=%d skip=%d drain=%s", ErrInvalidConfig, cfg.Blocks, cfg.Skip, cfg.Drain)
	}
	if net == nil || rng == nil {
		return nil, fmt.Errorf("%w: network and rng are required", ErrInvalidConfig)
	}
	return &BlockGenerator{
		cfg:         cfg,
		net:         net,
		stats:       stats,
		rng:         rng,
		completedAt: -1,
	}, nil
}

// Generated 已生成的区块数
func (g *BlockGenerator) Generated() int {
	return int(g.next)
}

// Execute 实现 scheduler.Control
func (g *BlockGenerator) Execute(now types.Tick) (bool, error) {
	if int(g.next) >= g.cfg.Blocks {
		if g.completedAt < 0 {
			g.completedAt = now
			logger.Info("出块完成，等待传播结束", "blocks", g.next, "at", now, "drain", g.cfg.Drain)
		}
		return now-g.completedAt > g.cfg.Drain, nil
	}

	if g.cfg.Skip > 0 {
		skip := g.count%g.cfg.Skip == 0
		g.count++
		if skip {
			return false, nil
		}
	}

	return false, g.generate(now)
}

func (g *BlockGenerator) generate(now types.Tick) error {
	miner, err := g.pickMiner()
	if err != nil {
		return err
	}
	block := g.next
	g.next++

	onChain := true
	if g.stats != nil {
		onChain = g.stats.ReportMiner(block, miner)
	}
	logger.Debug("出块", "block", block, "miner", miner, "at", now, "onChain", onChain)

	if err := g.net.GenerateBlock(miner, block); err != nil {
		return err
	}

	if err := g.events.BlockGenerated(types.EvtBlockGenerated{
		BaseEvent: stamp(g.clock, types.EventTypeBlockGenerated, now),
		Block:     block,
		Miner:     miner,
		OnChain:   onChain,
	}); err != nil {
		logger.Warn("发布出块事件失败", "block", block, "err", err)
	}
	return nil
}

// pickMiner 随机挑选拥有至少两个转发对象的节点
func (g *BlockGenerator) pickMiner() (types.NodeID, error) {
	n := g.net.Size()
	eligible := false
	for i := 0; i < n; i++ {
		if g.net.NumPeers(types.NodeID(i)) >= minMinerPeers {
			eligible = true
			break
		}
	}
	if !eligible {
		return types.NoNode, fmt.Errorf("%w: block %d", ErrNoEligibleMiner, g.next)
	}

	for {
		id := types.NodeID(g.rng.Intn(n))
		if g.net.NumPeers(id) >= minMinerPeers {
			return id, nil
		}
	}
}
