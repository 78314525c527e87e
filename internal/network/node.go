package network

import (
	"fmt"

	"github.com/dep2p/go-perigee/internal/core/bootstrap"
	"github.com/dep2p/go-perigee/internal/core/transport"
	"github.com/dep2p/go-perigee/internal/protocol/dissemination"
	"github.com/dep2p/go-perigee/internal/protocol/perigee"
	"github.com/dep2p/go-perigee/pkg/types"
)

// ============================================================================
//                              env
// ============================================================================

// env 单节点的运行环境，把引擎的发送请求交给调度器与传输层
//
// 引擎接口不返回错误，env 记下第一个错误，由 Node 在事件处理结束时上报。
type env struct {
	id  types.NodeID
	rt  Runtime
	tx  Sender
	err error
}

var _ dissemination.Env = (*env)(nil)

func (e *env) Now() types.Tick {
	return e.rt.Now()
}

func (e *env) ScheduleLocal(delay types.Tick, msg *dissemination.Message) {
	e.keep(e.rt.Schedule(delay, e.id, e.id, msg))
}

func (e *env) SendTo(peer types.NodeID, msg *dissemination.Message) {
	e.keep(e.tx.Send(e.id, peer, msg))
}

func (e *env) keep(err error) {
	if err != nil && e.err == nil {
		e.err = err
	}
}

// take 取出并清除记下的错误
func (e *env) take() error {
	err := e.err
	e.err = nil
	return err
}

var _ transport.Payload = (*dissemination.Message)(nil)

// ============================================================================
//                              Node
// ============================================================================

// Node 仿真节点
type Node struct {
	id     types.NodeID
	env    *env
	engine *dissemination.Engine
	link   bootstrap.Linkable
	cal    *perigee.Calibrator
}

// ID 节点 ID
func (n *Node) ID() types.NodeID {
	return n.id
}

// Engine 传播引擎
func (n *Node) Engine() *dissemination.Engine {
	return n.engine
}

// Calibrator Perigee 校准器，静态拓扑返回 nil
func (n *Node) Calibrator() *perigee.Calibrator {
	return n.cal
}

// HandleEvent 实现 scheduler.Handler
func (n *Node) HandleEvent(from types.NodeID, ev any) error {
	msg, ok := ev.(*dissemination.Message)
	if !ok {
		return fmt.Errorf("%w: node %s got %T", ErrUnexpectedEvent, n.id, ev)
	}
	if err := n.engine.HandleMessage(from, msg); err != nil {
		return err
	}
	return n.env.take()
}

// GenerateBlock 在本节点生成区块
func (n *Node) GenerateBlock(block types.BlockID) error {
	if err := n.engine.GenerateBlock(block); err != nil {
		return err
	}
	return n.env.take()
}

// setObservers 重建引擎的观察者：校准器在前，其后是网络级观察者
func (n *Node) setObservers(shared []dissemination.Observer) {
	obs := make(dissemination.Observers, 0, len(shared)+1)
	if n.cal != nil {
		obs = append(obs, n.cal)
	}
	obs = append(obs, shared...)
	n.engine.SetObserver(obs)
}
