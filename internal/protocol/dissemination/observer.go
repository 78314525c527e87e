package dissemination

import "github.com/dep2p/go-perigee/pkg/types"

// Delivery 一次交付事件
type Delivery struct {
	// Node 交付发生的节点
	Node types.NodeID

	// BlockID 区块 ID
	BlockID types.BlockID

	// Elapsed 自区块生成以来经过的时间
	Elapsed types.Tick

	// Hops 跳数
	Hops int

	// From 发送方（出块节点为 types.NoNode）
	From types.NodeID

	// At 事件发生的虚拟时间
	At types.Tick
}

// Observer 传播引擎对外暴露的回调
//
// 回调在引擎的事件处理过程中同步执行，实现不得阻塞，也不得重入同一个引擎。
type Observer interface {
	// HeaderDelivered 每次头部到达都会触发（包括重复头部与校验完成后到达的头部）
	HeaderDelivered(d Delivery)

	// HeaderValidated 头部校验完成，每个 (节点, 区块) 至多一次
	HeaderValidated(d Delivery)

	// BodyValidated 区块体校验完成，每个 (节点, 区块) 至多一次
	BodyValidated(d Delivery)
}

// NopObserver 空实现，可嵌入以只覆盖需要的回调
type NopObserver struct{}

var _ Observer = NopObserver{}

// HeaderDelivered 实现 Observer
func (NopObserver) HeaderDelivered(Delivery) {}

// HeaderValidated 实现 Observer
func (NopObserver) HeaderValidated(Delivery) {}

// BodyValidated 实现 Observer
func (NopObserver) BodyValidated(Delivery) {}

// Observers 按顺序分发给多个 Observer
type Observers []Observer

var _ Observer = Observers(nil)

// HeaderDelivered 实现 Observer
func (os Observers) HeaderDelivered(d Delivery) {
	for _, o := range os {
		o.HeaderDelivered(d)
	}
}

// HeaderValidated 实现 Observer
func (os Observers) HeaderValidated(d Delivery) {
	for _, o := range os {
		o.HeaderValidated(d)
	}
}

// BodyValidated 实现 Observer
func (os Observers) BodyValidated(d Delivery) {
	for _, o := range os {
		o.BodyValidated(d)
	}
}
