package eventbus

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Subscription 一类事件的订阅
type Subscription struct {
	bus  *Bus
	typ  reflect.Type
	name string
	ch   chan any

	once    sync.Once
	dropped atomic.Int64
}

// Out 事件通道
func (s *Subscription) Out() <-chan any {
	return s.ch
}

// Dropped 通道已满而未能送达的事件数
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// offer 非阻塞投递，调用方持有 topic 锁
func (s *Subscription) offer(event any) bool {
	select {
	case s.ch <- event:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Close 取消订阅并关闭通道
//
// 投递只发生在 topic 锁内，先从 topic 移除再关闭通道，关闭后不会再有投递。
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.bus.unsubscribe(s)
		close(s.ch)
	})
	return nil
}

// Emitter 一类事件的发射器
type Emitter struct {
	bus    *Bus
	typ    reflect.Type
	topic  *topic
	closed atomic.Bool
}

// Emit 发布事件，事件以值发布，类型必须与原型的元素类型一致
func (e *Emitter) Emit(event any) error {
	if e.closed.Load() {
		return ErrEmitterClosed
	}
	if got := reflect.TypeOf(event); got != e.typ {
		return fmt.Errorf("%w: emitter for %s got %T", ErrInvalidEventType, e.typ, event)
	}
	e.topic.publish(event)
	return nil
}

// Close 关闭发射器，topic 空闲时回收
func (e *Emitter) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	e.topic.mu.Lock()
	e.topic.emitters--
	idle := e.topic.idle()
	e.topic.mu.Unlock()

	if idle {
		e.bus.reclaim(e.typ)
	}
	return nil
}
