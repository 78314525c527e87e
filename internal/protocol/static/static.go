// Package static 实现不做校准的静态覆盖网络
//
// 节点 A 把 B 加为上游时，A 记录 B，并把自身加入 B 的转发集合；
// 区块沿上游 → 下游方向传播，拓扑在初始化后不再变化。
package static

import (
	"errors"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/dep2p/go-perigee/pkg/types"
)

// 错误定义
var (
	// ErrNodeOutOfRange 节点 ID 超出网络规模
	ErrNodeOutOfRange = errors.New("static: node id out of range")

	// ErrAlreadyJoined 节点已加入拓扑
	ErrAlreadyJoined = errors.New("static: node already joined")
)

// PeerSet 节点的转发集合（由传播引擎实现）
type PeerSet interface {
	AddPeer(peer types.NodeID) bool
}

// Topology 静态拓扑，以节点 ID 为下标保存全部 Linker
type Topology struct {
	nodes []*Linker
}

// NewTopology 创建静态拓扑
func NewTopology(size int) *Topology {
	return &Topology{nodes: make([]*Linker, size)}
}

// Size 网络规模
func (t *Topology) Size() int {
	return len(t.nodes)
}

// Join 为节点 id 创建 Linker，peers 为该节点的转发集合
func (t *Topology) Join(id types.NodeID, peers PeerSet) (*Linker, error) {
	if int(id) < 0 || int(id) >= len(t.nodes) {
		return nil, fmt.Errorf("%w: %s not in [0,%d)", ErrNodeOutOfRange, id, len(t.nodes))
	}
	if t.nodes[id] != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyJoined, id)
	}
	l := &Linker{
		id:    id,
		topo:  t,
		peers: peers,
		upSet: mapset.NewThreadUnsafeSet[types.NodeID](),
	}
	t.nodes[id] = l
	return l, nil
}

// Linker 返回节点的 Linker，未加入时返回 nil
func (t *Topology) Linker(id types.NodeID) *Linker {
	if int(id) < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// Linker 单节点的静态上游关系
type Linker struct {
	id    types.NodeID
	topo  *Topology
	peers PeerSet

	upstream []types.NodeID
	upSet    mapset.Set[types.NodeID]
}

// ID 返回节点 ID
func (l *Linker) ID() types.NodeID {
	return l.id
}

// AddNeighbor 把 peer 加为上游，本节点成为 peer 的下游转发对象
func (l *Linker) AddNeighbor(peer types.NodeID) bool {
	if peer == l.id || l.upSet.Contains(peer) {
		return false
	}
	other := l.topo.Linker(peer)
	if other == nil {
		return false
	}
	l.upstream = append(l.upstream, peer)
	l.upSet.Add(peer)
	if other.peers != nil {
		other.peers.AddPeer(l.id)
	}
	return true
}

// Contains peer 是否为上游
func (l *Linker) Contains(peer types.NodeID) bool {
	return l.upSet.Contains(peer)
}

// Upstream 返回上游列表副本
func (l *Linker) Upstream() []types.NodeID {
	return slices.Clone(l.upstream)
}
