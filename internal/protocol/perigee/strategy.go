package perigee

import (
	"fmt"

	"github.com/dep2p/go-perigee/internal/util/quickselect"
	"github.com/dep2p/go-perigee/pkg/types"
)

// Strategy 评分策略
//
// 把 selected 对端的头部到达顺序与时间转换为评分，并在校准时给出要丢弃的对端。
// 只会收到来自当前 selected 对端的交付。
type Strategy interface {
	// Kind 策略类型
	Kind() StrategyKind

	// Observe 记录一次来自 selected 对端的头部交付
	Observe(from types.NodeID, block types.BlockID, at types.Tick)

	// HasScores 本轮是否已有评分
	HasScores() bool

	// Weakest 返回应丢弃的 selected 对端
	Weakest(selected []types.NodeID) []types.NodeID

	// Reset 开始新一轮评分
	Reset(selected []types.NodeID)
}

// NewStrategy 根据配置创建评分策略
func NewStrategy(cfg *Config, sel *quickselect.Selector) (Strategy, error) {
	switch cfg.Strategy {
	case StrategyRewardAllButLast:
		return newRewardAllButLast(cfg, sel), nil
	case StrategyRewardFirst:
		return newRewardFirst(cfg, sel), nil
	case StrategySubset:
		return newSubsetScore(cfg, sel), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
	}
}

// ============================================================================
//                              单对端评分
// ============================================================================

// peerScores 按对端累积评分，分数越高越好
type peerScores struct {
	weakest int
	sel     *quickselect.Selector
	scores  map[types.NodeID]int
	buf     []int
}

func newPeerScores(weakest int, sel *quickselect.Selector) peerScores {
	return peerScores{
		weakest: weakest,
		sel:     sel,
		scores:  make(map[types.NodeID]int),
	}
}

func (p *peerScores) add(peer types.NodeID, delta int) {
	p.scores[peer] += delta
}

func (p *peerScores) HasScores() bool {
	return len(p.scores) > 0
}

// Weakest 选出评分最低的 weakest 个对端
//
// 先求第 weakest 小的分数作为阈值，低于阈值的对端全部入选，
// 剩余名额按 selected 顺序由等于阈值的对端补足，同分时排在前面的先被丢弃。
func (p *peerScores) Weakest(selected []types.NodeID) []types.NodeID {
	w := min(p.weakest, len(selected))
	if w == 0 {
		return nil
	}
	p.buf = p.buf[:0]
	for _, peer := range selected {
		p.buf = append(p.buf, p.scores[peer])
	}
	threshold := p.sel.Kth(p.buf, w)

	out := make([]types.NodeID, 0, w)
	for i, peer := range selected {
		if p.buf[i] < threshold {
			out = append(out, peer)
		}
	}
	for i, peer := range selected {
		if len(out) == w {
			break
		}
		if p.buf[i] == threshold {
			out = append(out, peer)
		}
	}
	return out
}

// Reset 清空评分，并为每个 selected 对端预置 0 分，保证从未得分的对端也能被替换
func (p *peerScores) Reset(selected []types.NodeID) {
	clear(p.scores)
	for _, peer := range selected {
		p.scores[peer] = 0
	}
}

// Score 返回对端当前评分
func (p *peerScores) Score(peer types.NodeID) int {
	return p.scores[peer]
}

// ----------------------------------------------------------------------------
// reward-all-but-last
// ----------------------------------------------------------------------------

// rewardAllButLast 每当下一个 selected 对端交付同一区块，上一个交付者 +1
type rewardAllButLast struct {
	peerScores
	last map[types.BlockID]types.NodeID
}

func newRewardAllButLast(cfg *Config, sel *quickselect.Selector) *rewardAllButLast {
	return &rewardAllButLast{
		peerScores: newPeerScores(cfg.WeakestLinks, sel),
		last:       make(map[types.BlockID]types.NodeID),
	}
}

func (s *rewardAllButLast) Kind() StrategyKind { return StrategyRewardAllButLast }

func (s *rewardAllButLast) Observe(from types.NodeID, block types.BlockID, _ types.Tick) {
	if prev, ok := s.last[block]; ok {
		s.add(prev, 1)
	}
	s.last[block] = from
}

func (s *rewardAllButLast) Reset(selected []types.NodeID) {
	s.peerScores.Reset(selected)
	clear(s.last)
}

// ----------------------------------------------------------------------------
// reward-first
// ----------------------------------------------------------------------------

type firstDelivery struct {
	peer     types.NodeID
	at       types.Tick
	rewarded bool
}

// rewardFirst 首个交付者在第二个交付者到达时获得一次时间差奖励
type rewardFirst struct {
	peerScores
	first map[types.BlockID]*firstDelivery
}

func newRewardFirst(cfg *Config, sel *quickselect.Selector) *rewardFirst {
	return &rewardFirst{
		peerScores: newPeerScores(cfg.WeakestLinks, sel),
		first:      make(map[types.BlockID]*firstDelivery),
	}
}

func (s *rewardFirst) Kind() StrategyKind { return StrategyRewardFirst }

func (s *rewardFirst) Observe(from types.NodeID, block types.BlockID, at types.Tick) {
	f, ok := s.first[block]
	if !ok {
		s.first[block] = &firstDelivery{peer: from, at: at}
		return
	}
	if f.rewarded {
		return
	}
	s.add(f.peer, int(at-f.at))
	f.rewarded = true
}

func (s *rewardFirst) Reset(selected []types.NodeID) {
	s.peerScores.Reset(selected)
	clear(s.first)
}
