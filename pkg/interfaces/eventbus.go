// Package interfaces 定义 go-perigee 对外暴露的接口
//
// 本文件定义仿真运行事件的发布订阅接口。一次运行发布三类事件：
//
//	types.EvtBlockGenerated    每个出块时机
//	types.EvtCalibrationRound  每轮全网校准
//	types.EvtRunFinished       运行结束（有状态，晚到的订阅者也能收到）
//
// 事件以值发布，以指针原型订阅：
//
//	sub, err := bus.Subscribe(new(types.EvtRunFinished), interfaces.BufSize(1))
package interfaces

// EventBus 运行事件总线
//
// 发布方是仿真线程，发布从不阻塞；订阅方在各自的 goroutine 中消费。
type EventBus interface {
	// Subscribe 以指针原型订阅一类事件
	Subscribe(eventType any, opts ...SubscriptionOpt) (Subscription, error)

	// Emitter 以指针原型获取一类事件的发射器
	Emitter(eventType any, opts ...EmitterOpt) (Emitter, error)

	// Topics 当前仍有订阅者或发射器的事件类型名，按名称排序
	Topics() []string
}

// Subscription 一类事件的订阅
type Subscription interface {
	// Out 事件通道，订阅或总线关闭后通道关闭
	Out() <-chan any

	// Dropped 通道已满而未能送达的事件数
	Dropped() int64

	// Close 取消订阅，可重复调用
	Close() error
}

// Emitter 一类事件的发射器
type Emitter interface {
	// Emit 发布事件，事件的动态类型必须与原型的元素类型一致
	Emit(event any) error

	// Close 关闭发射器，可重复调用
	Close() error
}

// SubscriptionOpt 订阅选项
type SubscriptionOpt func(*SubscriptionSettings)

// EmitterOpt 发射器选项
type EmitterOpt func(*EmitterSettings)

// SubscriptionSettings 订阅设置
type SubscriptionSettings struct {
	// Buffer 通道容量，满时新事件被丢弃
	Buffer int

	// Name 订阅者名称，出现在丢弃告警中
	Name string
}

// EmitterSettings 发射器设置
type EmitterSettings struct {
	// Stateful 保留最后一个事件并补发给之后的订阅者
	Stateful bool
}

// BufSize 设置订阅通道容量
func BufSize(size int) SubscriptionOpt {
	return func(s *SubscriptionSettings) {
		s.Buffer = size
	}
}

// Named 设置订阅者名称
func Named(name string) SubscriptionOpt {
	return func(s *SubscriptionSettings) {
		s.Name = name
	}
}

// Stateful 发射器保留最后一个事件
func Stateful() EmitterOpt {
	return func(s *EmitterSettings) {
		s.Stateful = true
	}
}
