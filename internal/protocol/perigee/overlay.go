package perigee

import (
	"fmt"
	"math/rand"

	"github.com/dep2p/go-perigee/internal/util/quickselect"
	"github.com/dep2p/go-perigee/pkg/lib/log"
	"github.com/dep2p/go-perigee/pkg/types"
)

var logger = log.Logger("protocol/perigee")

// PeerSet 节点的转发集合（由传播引擎实现）
type PeerSet interface {
	AddPeer(peer types.NodeID) bool
	RemovePeer(peer types.NodeID) bool
}

// Overlay 覆盖网络
//
// 以节点 ID 为下标保存全部校准器。节点之间只通过 propose/acceptProposal
// 与 release 修改彼此的关系集合。
type Overlay struct {
	cfg   *Config
	rng   *rand.Rand
	sel   *quickselect.Selector
	nodes []*Calibrator
}

// NewOverlay 创建覆盖网络
//
// rng 用于补足时的随机抽样，sel 为评分策略共享的选择器。
func NewOverlay(cfg *Config, size int, rng *rand.Rand, sel *quickselect.Selector) (*Overlay, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if size < 1 {
		return nil, fmt.Errorf("%w: network size %d < 1", ErrInvalidConfig, size)
	}
	if err := cfg.validateFor(size); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil rng", ErrInvalidConfig)
	}
	if sel == nil {
		sel = quickselect.New(rng)
	}
	return &Overlay{
		cfg:   cfg,
		rng:   rng,
		sel:   sel,
		nodes: make([]*Calibrator, size),
	}, nil
}

// Config 返回配置
func (o *Overlay) Config() *Config {
	return o.cfg
}

// Size 网络规模
func (o *Overlay) Size() int {
	return len(o.nodes)
}

// Join 为节点 id 创建校准器，peers 为该节点的转发集合
func (o *Overlay) Join(id types.NodeID, peers PeerSet) (*Calibrator, error) {
	if int(id) < 0 || int(id) >= len(o.nodes) {
		return nil, fmt.Errorf("%w: %s not in [0,%d)", ErrNodeOutOfRange, id, len(o.nodes))
	}
	if o.nodes[id] != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyJoined, id)
	}
	strategy, err := NewStrategy(o.cfg, o.sel)
	if err != nil {
		return nil, err
	}
	c := newCalibrator(id, o, peers, strategy)
	o.nodes[id] = c
	return c, nil
}

// Calibrator 返回节点的校准器，未加入时返回 nil
func (o *Overlay) Calibrator(id types.NodeID) *Calibrator {
	if int(id) < 0 || int(id) >= len(o.nodes) {
		return nil
	}
	return o.nodes[id]
}

// CalibrateAll 按节点 ID 顺序对每个节点执行一轮校准
func (o *Overlay) CalibrateAll() []Round {
	rounds := make([]Round, 0, len(o.nodes))
	for _, c := range o.nodes {
		if c == nil {
			continue
		}
		rounds = append(rounds, c.Calibrate())
	}
	return rounds
}

// sample 均匀随机抽取一个节点
func (o *Overlay) sample() types.NodeID {
	return types.NodeID(o.rng.Intn(len(o.nodes)))
}
