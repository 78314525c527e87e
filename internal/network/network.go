package network

import (
	"fmt"
	"math/rand"

	"github.com/dep2p/go-perigee/internal/core/bootstrap"
	"github.com/dep2p/go-perigee/internal/core/scheduler"
	"github.com/dep2p/go-perigee/internal/core/transport"
	"github.com/dep2p/go-perigee/internal/protocol/dissemination"
	"github.com/dep2p/go-perigee/internal/protocol/perigee"
	"github.com/dep2p/go-perigee/internal/protocol/static"
	"github.com/dep2p/go-perigee/internal/util/quickselect"
	"github.com/dep2p/go-perigee/pkg/lib/log"
	"github.com/dep2p/go-perigee/pkg/types"
)

var logger = log.Logger("network")

// Runtime 调度器视图
type Runtime interface {
	Now() types.Tick
	Register(id types.NodeID, h scheduler.Handler) error
	Schedule(delay types.Tick, to, from types.NodeID, ev any) error
}

// Sender 传输层视图
type Sender interface {
	Send(from, to types.NodeID, p transport.Payload) error
}

// Config 网络组装配置
type Config struct {
	// Nodes 网络规模
	Nodes int

	// Dissemination 全网共享的传播配置
	Dissemination *dissemination.Config

	// Perigee 校准配置，nil 表示静态拓扑
	Perigee *perigee.Config

	// Bootstrap 初始连接配置
	Bootstrap *bootstrap.Config
}

// Network 仿真网络
type Network struct {
	nodes   []*Node
	overlay *perigee.Overlay
	topo    *static.Topology
	summary bootstrap.Summary

	observers []dissemination.Observer
}

// New 创建全部节点、注册到调度器并建立初始连接
//
// rtt 为 nil 时跳过近邻连接。rng 同时用于校准抽样与随机连接。
func New(cfg *Config, rt Runtime, tx Sender, rtt bootstrap.RTT, rng *rand.Rand) (*Network, error) {
	if cfg == nil || cfg.Dissemination == nil || cfg.Bootstrap == nil {
		return nil, fmt.Errorf("%w: missing section", ErrInvalidConfig)
	}
	if cfg.Nodes < 1 {
		return nil, fmt.Errorf("%w: nodes %d < 1", ErrInvalidConfig, cfg.Nodes)
	}
	if rt == nil || tx == nil || rng == nil {
		return nil, fmt.Errorf("%w: runtime, sender and rng are required", ErrInvalidConfig)
	}

	sel := quickselect.New(rng)
	n := &Network{nodes: make([]*Node, cfg.Nodes)}

	if cfg.Perigee != nil {
		overlay, err := perigee.NewOverlay(cfg.Perigee, cfg.Nodes, rng, sel)
		if err != nil {
			return nil, err
		}
		n.overlay = overlay
	} else {
		n.topo = static.NewTopology(cfg.Nodes)
	}

	links := make([]bootstrap.Linkable, cfg.Nodes)
	for i := range n.nodes {
		node, err := n.newNode(types.NodeID(i), cfg.Dissemination, rt, tx)
		if err != nil {
			return nil, err
		}
		if err := rt.Register(node.id, node); err != nil {
			return nil, err
		}
		n.nodes[i] = node
		links[i] = node.link
	}

	initializer, err := bootstrap.New(cfg.Bootstrap, rtt, rng, sel)
	if err != nil {
		return nil, err
	}
	n.summary = initializer.Run(links)

	logger.Info("网络已建立",
		"nodes", cfg.Nodes,
		"perigee", n.IsPerigee(),
		"closeLinks", n.summary.CloseLinks,
		"randomLinks", n.summary.RandomLinks)
	return n, nil
}

func (n *Network) newNode(id types.NodeID, dcfg *dissemination.Config, rt Runtime, tx Sender) (*Node, error) {
	e := &env{id: id, rt: rt, tx: tx}
	engine, err := dissemination.NewEngine(id, dcfg, e, nil)
	if err != nil {
		return nil, err
	}
	node := &Node{id: id, env: e, engine: engine}

	if n.overlay != nil {
		cal, err := n.overlay.Join(id, engine)
		if err != nil {
			return nil, err
		}
		node.cal = cal
		node.link = cal
	} else {
		linker, err := n.topo.Join(id, engine)
		if err != nil {
			return nil, err
		}
		node.link = linker
	}
	node.setObservers(nil)
	return node, nil
}

// Size 网络规模
func (n *Network) Size() int {
	return len(n.nodes)
}

// Node 返回节点，超出范围时返回 nil
func (n *Network) Node(id types.NodeID) *Node {
	if int(id) < 0 || int(id) >= len(n.nodes) {
		return nil
	}
	return n.nodes[id]
}

// IsPerigee 是否为 Perigee 覆盖网络
func (n *Network) IsPerigee() bool {
	return n.overlay != nil
}

// Overlay Perigee 覆盖网络，静态拓扑返回 nil
func (n *Network) Overlay() *perigee.Overlay {
	return n.overlay
}

// Bootstrap 初始连接结果
func (n *Network) Bootstrap() bootstrap.Summary {
	return n.summary
}

// AddObserver 为全部节点追加观察者
func (n *Network) AddObserver(obs dissemination.Observer) {
	n.observers = append(n.observers, obs)
	for _, node := range n.nodes {
		node.setObservers(n.observers)
	}
}

// Validated 节点是否已校验区块，可作为 metrics.ValidatedFunc
func (n *Network) Validated(node types.NodeID, block types.BlockID) bool {
	nd := n.Node(node)
	return nd != nil && nd.engine.Validated(block)
}

// NumPeers 节点转发集合大小
func (n *Network) NumPeers(node types.NodeID) int {
	nd := n.Node(node)
	if nd == nil {
		return 0
	}
	return nd.engine.NumPeers()
}

// GenerateBlock 在节点上生成区块
func (n *Network) GenerateBlock(node types.NodeID, block types.BlockID) error {
	nd := n.Node(node)
	if nd == nil {
		return fmt.Errorf("%w: %s", ErrNodeOutOfRange, node)
	}
	return nd.GenerateBlock(block)
}

// Calibrate 对全部节点执行一轮校准，静态拓扑返回 nil
func (n *Network) Calibrate() []perigee.Round {
	if n.overlay == nil {
		return nil
	}
	return n.overlay.CalibrateAll()
}
