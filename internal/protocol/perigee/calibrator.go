package perigee

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/dep2p/go-perigee/internal/protocol/dissemination"
	"github.com/dep2p/go-perigee/pkg/types"
)

// Round 一轮校准的结果
type Round struct {
	// Node 节点 ID
	Node types.NodeID

	// Dropped 被丢弃的 selected 对端
	Dropped []types.NodeID

	// Added 新选择的对端
	Added []types.NodeID

	// Attempts 补足时的抽样次数
	Attempts int

	// Starved 达到抽样上限仍未补满
	Starved bool
}

// Calibrator 单节点的 Perigee 校准器
//
// 实现 dissemination.Observer，只关注来自 selected 对端的头部交付。
type Calibrator struct {
	dissemination.NopObserver

	id       types.NodeID
	overlay  *Overlay
	peers    PeerSet
	strategy Strategy

	selected    []types.NodeID
	selectedSet mapset.Set[types.NodeID]
	accepted    []types.NodeID
	acceptedSet mapset.Set[types.NodeID]

	rounds int
}

var _ dissemination.Observer = (*Calibrator)(nil)

func newCalibrator(id types.NodeID, o *Overlay, peers PeerSet, strategy Strategy) *Calibrator {
	return &Calibrator{
		id:          id,
		overlay:     o,
		peers:       peers,
		strategy:    strategy,
		selectedSet: mapset.NewThreadUnsafeSet[types.NodeID](),
		acceptedSet: mapset.NewThreadUnsafeSet[types.NodeID](),
	}
}

// ID 返回节点 ID
func (c *Calibrator) ID() types.NodeID {
	return c.id
}

// Strategy 返回评分策略
func (c *Calibrator) Strategy() Strategy {
	return c.strategy
}

// Selected 返回 selected 集合副本（选择顺序）
func (c *Calibrator) Selected() []types.NodeID {
	return slices.Clone(c.selected)
}

// Accepted 返回 accepted 集合副本
func (c *Calibrator) Accepted() []types.NodeID {
	return slices.Clone(c.accepted)
}

// Rounds 已执行的校准轮数
func (c *Calibrator) Rounds() int {
	return c.rounds
}

// Contains 对端是否与本节点存在任一方向的关系
func (c *Calibrator) Contains(peer types.NodeID) bool {
	return c.selectedSet.Contains(peer) || c.acceptedSet.Contains(peer)
}

// Select 主动选择对端
//
// 对端为自身、已存在关系、对端 accepted 已满或本节点 selected 已满时返回 false。
func (c *Calibrator) Select(peer types.NodeID) bool {
	if len(c.selected) >= c.overlay.cfg.NumOutgoing {
		return false
	}
	return c.propose(peer)
}

// AddNeighbor 同 Select，供拓扑初始化使用
func (c *Calibrator) AddNeighbor(peer types.NodeID) bool {
	return c.Select(peer)
}

// HeaderDelivered 实现 dissemination.Observer
func (c *Calibrator) HeaderDelivered(d dissemination.Delivery) {
	if !c.selectedSet.Contains(d.From) {
		return
	}
	c.strategy.Observe(d.From, d.BlockID, d.At)
}

// Calibrate 执行一轮校准：丢弃最弱对端、随机补足、重置评分
func (c *Calibrator) Calibrate() Round {
	cfg := c.overlay.cfg
	r := Round{Node: c.id}

	if cfg.WeakestLinks > 0 && c.strategy.HasScores() {
		for _, peer := range c.strategy.Weakest(c.Selected()) {
			if c.drop(peer) {
				r.Dropped = append(r.Dropped, peer)
			}
		}
	}

	for len(c.selected) < cfg.NumOutgoing {
		if cfg.MaxRefillAttempts > 0 && r.Attempts >= cfg.MaxRefillAttempts {
			r.Starved = true
			logger.Warn("补足 selected 对端失败",
				"node", c.id,
				"selected", len(c.selected),
				"want", cfg.NumOutgoing,
				"attempts", r.Attempts)
			break
		}
		r.Attempts++
		if candidate := c.overlay.sample(); c.propose(candidate) {
			r.Added = append(r.Added, candidate)
		}
	}

	c.strategy.Reset(c.Selected())
	c.rounds++

	logger.Debug("校准完成",
		"node", c.id,
		"round", c.rounds,
		"dropped", len(r.Dropped),
		"added", len(r.Added),
		"attempts", r.Attempts)
	return r
}

// ============================================================================
//                              关系建立与解除
// ============================================================================

// propose 向对端提出选择请求，对端确认后双方建立关系
func (c *Calibrator) propose(peer types.NodeID) bool {
	if peer == c.id || c.Contains(peer) {
		return false
	}
	other := c.overlay.Calibrator(peer)
	if other == nil || !other.acceptProposal(c.id) {
		return false
	}
	c.selected = append(c.selected, peer)
	c.selectedSet.Add(peer)
	if c.peers != nil {
		c.peers.AddPeer(peer)
	}
	return true
}

// acceptProposal 被选择方确认请求，检查 accepted 容量
func (c *Calibrator) acceptProposal(from types.NodeID) bool {
	if from == c.id || c.Contains(from) {
		return false
	}
	if len(c.accepted) >= c.overlay.cfg.NumIncoming {
		return false
	}
	c.accepted = append(c.accepted, from)
	c.acceptedSet.Add(from)
	if c.peers != nil {
		c.peers.AddPeer(from)
	}
	return true
}

// drop 解除与 selected 对端的双向关系
func (c *Calibrator) drop(peer types.NodeID) bool {
	if !c.selectedSet.Contains(peer) {
		return false
	}
	c.selectedSet.Remove(peer)
	c.selected = removeID(c.selected, peer)
	if c.peers != nil {
		c.peers.RemovePeer(peer)
	}
	if other := c.overlay.Calibrator(peer); other != nil {
		other.release(c.id)
	}
	return true
}

// release 对端解除对本节点的选择
func (c *Calibrator) release(from types.NodeID) {
	if !c.acceptedSet.Contains(from) {
		return
	}
	c.acceptedSet.Remove(from)
	c.accepted = removeID(c.accepted, from)
	if c.peers != nil {
		c.peers.RemovePeer(from)
	}
}

func removeID(ids []types.NodeID, id types.NodeID) []types.NodeID {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}
