package dissemination

import (
	"fmt"

	"github.com/dep2p/go-perigee/pkg/types"
)

// ============================================================================
//                              消息类型
// ============================================================================

// Kind 消息类型
//
// 六种类型构成严格的逐跳流水线，类型名说明由哪个节点执行什么动作。
type Kind uint8

const (
	// KindGenerate 本地出块：出块节点视头部与区块体已校验（hops=0）
	KindGenerate Kind = iota + 1

	// KindReceiveHeader 下游收到头部
	KindReceiveHeader

	// KindSendBodyRequest 下游完成头部校验，向上游发送区块体请求
	KindSendBodyRequest

	// KindReceiveBodyRequest 上游收到区块体请求，回复区块体
	KindReceiveBodyRequest

	// KindReceiveBody 下游收到区块体
	KindReceiveBody

	// KindForward 下游完成区块体校验，向其余转发对象推送头部
	KindForward
)

// String 返回消息类型的字符串表示
func (k Kind) String() string {
	switch k {
	case KindGenerate:
		return "generate"
	case KindReceiveHeader:
		return "receive-header"
	case KindSendBodyRequest:
		return "send-body-request"
	case KindReceiveBodyRequest:
		return "receive-body-request"
	case KindReceiveBody:
		return "receive-body"
	case KindForward:
		return "forward"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ============================================================================
//                              Message
// ============================================================================

// Message 区块传播消息
//
// 每一跳都会克隆出新实例再修改，已发送的消息不会被复用。
type Message struct {
	// BlockID 区块 ID
	BlockID types.BlockID

	// Kind 消息类型
	Kind Kind

	// Hops 已转发的跳数（出块节点为 0）
	Hops int

	// GenTime 区块生成时间
	GenTime types.Tick

	// ReplyTo 临时字段：拉取区块体的对象，同时用于避免回传给发送方
	ReplyTo types.NodeID
}

// NewGenerateMessage 创建出块消息
func NewGenerateMessage(block types.BlockID, now types.Tick) *Message {
	return &Message{
		BlockID: block,
		Kind:    KindGenerate,
		Hops:    0,
		GenTime: now,
		ReplyTo: types.NoNode,
	}
}

// clone 克隆消息并设置新类型
func (m *Message) clone(kind Kind) *Message {
	c := *m
	c.Kind = kind
	return &c
}

// CarriesBody 是否携带区块体（传输层据此按大消息计算时延）
func (m *Message) CarriesBody() bool {
	return m.Kind == KindReceiveBody
}

// String 返回消息的字符串表示
func (m *Message) String() string {
	return fmt.Sprintf("<%s,%d,%d,%s,%d>", m.Kind, m.BlockID, m.GenTime, m.ReplyTo, m.Hops)
}
