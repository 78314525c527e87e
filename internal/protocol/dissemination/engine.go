package dissemination

import (
	"fmt"
	"log/slog"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/dep2p/go-perigee/pkg/lib/log"
	"github.com/dep2p/go-perigee/pkg/types"
)

var logger = log.Logger("protocol/dissemination")

// Env 引擎依赖的调度与传输环境
type Env interface {
	// Now 当前虚拟时间
	Now() types.Tick

	// ScheduleLocal 在 delay 之后把 msg 重新投递给本节点
	ScheduleLocal(delay types.Tick, msg *Message)

	// SendTo 把 msg 交给传输层发往 peer，何时到达（或是否丢失）由传输层决定
	SendTo(peer types.NodeID, msg *Message)
}

// Engine 单节点区块传播状态机
type Engine struct {
	id  types.NodeID
	cfg *Config
	env Env
	obs Observer

	// 转发集合：按插入顺序保存，peerSet 用于去重
	peers   []types.NodeID
	peerSet mapset.Set[types.NodeID]

	state *deliveryState
}

// NewEngine 创建传播引擎
//
// cfg 在所有节点间共享，obs 为 nil 时使用 NopObserver。
func NewEngine(id types.NodeID, cfg *Config, env Env, obs Observer) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if env == nil {
		return nil, ErrNilEnv
	}
	if obs == nil {
		obs = NopObserver{}
	}

	state, err := newDeliveryState(cfg.Retention)
	if err != nil {
		return nil, fmt.Errorf("create delivery state: %w", err)
	}

	return &Engine{
		id:      id,
		cfg:     cfg,
		env:     env,
		obs:     obs,
		peerSet: mapset.NewThreadUnsafeSet[types.NodeID](),
		state:   state,
	}, nil
}

// ID 返回节点 ID
func (e *Engine) ID() types.NodeID {
	return e.id
}

// SetObserver 替换回调（用于装配阶段，运行中不应调用）
func (e *Engine) SetObserver(obs Observer) {
	if obs == nil {
		obs = NopObserver{}
	}
	e.obs = obs
}

// ============================================================================
//                              转发集合
// ============================================================================

// AddPeer 添加转发对象，已存在或为自身时返回 false
func (e *Engine) AddPeer(peer types.NodeID) bool {
	if peer == e.id || !peer.Valid() {
		return false
	}
	if !e.peerSet.Add(peer) {
		return false
	}
	e.peers = append(e.peers, peer)
	return true
}

// RemovePeer 移除转发对象
//
// 已经调度的消息不受影响。
func (e *Engine) RemovePeer(peer types.NodeID) bool {
	if !e.peerSet.Contains(peer) {
		return false
	}
	e.peerSet.Remove(peer)
	if i := slices.Index(e.peers, peer); i >= 0 {
		e.peers = slices.Delete(e.peers, i, i+1)
	}
	return true
}

// HasPeer 检查是否为转发对象
func (e *Engine) HasPeer(peer types.NodeID) bool {
	return e.peerSet.Contains(peer)
}

// Peers 返回转发集合的副本（插入顺序）
func (e *Engine) Peers() []types.NodeID {
	return slices.Clone(e.peers)
}

// NumPeers 返回转发对象数量
func (e *Engine) NumPeers() int {
	return len(e.peers)
}

// ============================================================================
//                              状态查询
// ============================================================================

// Validated 区块是否已在本节点完成校验
func (e *Engine) Validated(block types.BlockID) bool {
	return e.state.validated.Contains(block)
}

// HeaderReceived 是否已接受该区块的头部
func (e *Engine) HeaderReceived(block types.BlockID) bool {
	return e.state.headers.Contains(block)
}

// BodyReceived 是否已收到该区块的区块体
func (e *Engine) BodyReceived(block types.BlockID) bool {
	return e.state.bodies.Contains(block)
}

// NumValidated 返回当前保留的已校验区块数量
func (e *Engine) NumValidated() int {
	return e.state.validated.Cardinality()
}

// ============================================================================
//                              消息处理
// ============================================================================

// GenerateBlock 本节点出块，同步执行 Generate
func (e *Engine) GenerateBlock(block types.BlockID) error {
	return e.HandleMessage(types.NoNode, NewGenerateMessage(block, e.env.Now()))
}

// HandleMessage 处理一条来自 from 的消息（本地事件的 from 为自身或 NoNode）
func (e *Engine) HandleMessage(from types.NodeID, msg *Message) error {
	switch msg.Kind {
	case KindGenerate:
		return e.handleGenerate(msg)
	case KindReceiveHeader:
		e.handleHeader(from, msg)
	case KindSendBodyRequest:
		e.handleSendBodyRequest(msg)
	case KindReceiveBodyRequest:
		return e.handleBodyRequest(from, msg)
	case KindReceiveBody:
		e.handleBody(from, msg)
	case KindForward:
		e.handleForward(msg)
	default:
		return fmt.Errorf("%w: node=%s msg=%s", ErrUnknownKind, e.id, msg)
	}
	return nil
}

// handleGenerate 出块节点视头部与区块体均已校验，向全部转发对象推送头部
func (e *Engine) handleGenerate(msg *Message) error {
	s := e.state
	if s.validated.Contains(msg.BlockID) {
		return fmt.Errorf("%w: node %s generated already validated block %d",
			ErrProtocolViolation, e.id, msg.BlockID)
	}
	s.headers.Add(msg.BlockID)
	s.headerValidated.Add(msg.BlockID)
	s.bodies.Add(msg.BlockID)
	s.validated.Add(msg.BlockID)

	now := e.env.Now()
	e.obs.BodyValidated(Delivery{
		Node:    e.id,
		BlockID: msg.BlockID,
		Elapsed: now - msg.GenTime,
		Hops:    msg.Hops,
		From:    types.NoNode,
		At:      now,
	})

	e.fanOut(msg, types.NoNode)
	return nil
}

// handleHeader 收到头部
func (e *Engine) handleHeader(from types.NodeID, msg *Message) {
	now := e.env.Now()
	e.obs.HeaderDelivered(Delivery{
		Node:    e.id,
		BlockID: msg.BlockID,
		Elapsed: now - msg.GenTime,
		Hops:    msg.Hops,
		From:    from,
		At:      now,
	})

	if !e.shouldRequestBody(msg.BlockID) {
		return
	}
	e.state.headers.Add(msg.BlockID)

	if e.cfg.HeaderOnly {
		// 区块体随头部一起到达，校验完成后直接转发
		m := msg.clone(KindForward)
		m.ReplyTo = from
		e.env.ScheduleLocal(e.cfg.HeaderValidationDelay+e.cfg.BodyValidationDelay, m)
		return
	}

	m := msg.clone(KindSendBodyRequest)
	m.ReplyTo = from
	e.env.ScheduleLocal(e.cfg.HeaderValidationDelay, m)
}

// handleSendBodyRequest 头部校验完成，向上游拉取区块体
func (e *Engine) handleSendBodyRequest(msg *Message) {
	if e.state.headerValidated.Add(msg.BlockID) {
		now := e.env.Now()
		e.obs.HeaderValidated(Delivery{
			Node:    e.id,
			BlockID: msg.BlockID,
			Elapsed: now - msg.GenTime,
			Hops:    msg.Hops,
			From:    msg.ReplyTo,
			At:      now,
		})
	}
	e.env.SendTo(msg.ReplyTo, msg.clone(KindReceiveBodyRequest))
}

// handleBodyRequest 上游收到拉取请求，回复区块体
func (e *Engine) handleBodyRequest(from types.NodeID, msg *Message) error {
	if e.state.expired(msg.BlockID) && !e.state.validated.Contains(msg.BlockID) {
		// 区块已淘汰，请求方拿不到区块体
		logger.Debug("忽略已淘汰区块的拉取请求",
			"node", e.id,
			"from", from,
			"block", msg.BlockID)
		return nil
	}
	if !e.state.validated.Contains(msg.BlockID) {
		logger.Error("收到未校验区块的拉取请求",
			"node", e.id,
			"from", from,
			"block", msg.BlockID)
		return fmt.Errorf("%w: node %s asked by %s for body of unvalidated block %d",
			ErrProtocolViolation, e.id, from, msg.BlockID)
	}
	e.env.SendTo(from, msg.clone(KindReceiveBody))
	return nil
}

// handleBody 收到区块体，校验完成后转发
func (e *Engine) handleBody(from types.NodeID, msg *Message) {
	e.state.bodies.Add(msg.BlockID)
	m := msg.clone(KindForward)
	m.ReplyTo = from
	e.env.ScheduleLocal(e.cfg.BodyValidationDelay, m)
}

// handleForward 区块校验完成，只有首次 Forward 生效，窗口外的区块不再校验
func (e *Engine) handleForward(msg *Message) {
	s := e.state
	if s.expired(msg.BlockID) || !s.validated.Add(msg.BlockID) {
		return
	}
	now := e.env.Now()

	if e.cfg.HeaderOnly {
		s.bodies.Add(msg.BlockID)
		if s.headerValidated.Add(msg.BlockID) {
			e.obs.HeaderValidated(Delivery{
				Node:    e.id,
				BlockID: msg.BlockID,
				Elapsed: now - msg.GenTime - e.cfg.BodyValidationDelay,
				Hops:    msg.Hops,
				From:    msg.ReplyTo,
				At:      now - e.cfg.BodyValidationDelay,
			})
		}
	}

	e.obs.BodyValidated(Delivery{
		Node:    e.id,
		BlockID: msg.BlockID,
		Elapsed: now - msg.GenTime,
		Hops:    msg.Hops,
		From:    msg.ReplyTo,
		At:      now,
	})

	e.fanOut(msg, msg.ReplyTo)
}

// fanOut 向除 exclude 以外的全部转发对象推送头部，跳数加一
func (e *Engine) fanOut(msg *Message, exclude types.NodeID) {
	if logger.Enabled(slog.LevelDebug) {
		logger.Debug("转发区块头部",
			"node", e.id,
			"block", msg.BlockID,
			"hops", msg.Hops+1,
			"peers", len(e.peers))
	}
	for _, peer := range e.peers {
		if peer == exclude {
			continue
		}
		m := msg.clone(KindReceiveHeader)
		m.Hops++
		m.ReplyTo = types.NoNode
		e.env.SendTo(peer, m)
	}
}

// shouldRequestBody 是否为该区块拉取区块体
//
// 区块已校验或已淘汰时永远返回 false；否则累加拉取次数，达到 BodyRequests 后不再拉取。
func (e *Engine) shouldRequestBody(block types.BlockID) bool {
	s := e.state
	if s.validated.Contains(block) || s.expired(block) {
		return false
	}
	n := s.requests.get(block)
	if n >= e.cfg.BodyRequests {
		return false
	}
	s.requests.set(block, n+1)
	return true
}
