package eventbus

import (
	"errors"
	"reflect"
	"slices"
	"sync"

	pkgif "github.com/dep2p/go-perigee/pkg/interfaces"
	"github.com/dep2p/go-perigee/pkg/lib/log"
)

var logger = log.Logger("core/eventbus")

// defaultBuffer 默认订阅通道容量
const defaultBuffer = 16

// dropWarnEvery 每个订阅者每丢弃多少个事件告警一次
const dropWarnEvery = 100

var (
	// ErrClosed 总线已关闭
	ErrClosed = errors.New("eventbus: closed")
	// ErrInvalidEventType 原型为 nil，或发布的事件与发射器类型不符
	ErrInvalidEventType = errors.New("eventbus: invalid event type")
	// ErrNonPointerType 原型不是指针
	ErrNonPointerType = errors.New("eventbus: event prototype must be a pointer")
	// ErrEmitterClosed 发射器已关闭
	ErrEmitterClosed = errors.New("eventbus: emitter closed")
)

// ============================================================================
//                              Bus
// ============================================================================

// Bus 进程内运行事件总线
//
// 每种事件类型对应一个 topic，topic 在最后一个订阅者与发射器离开后回收。
type Bus struct {
	mu     sync.Mutex
	closed bool
	topics map[reflect.Type]*topic
}

var _ pkgif.EventBus = (*Bus)(nil)

// topic 一种事件类型的订阅者与发射器
type topic struct {
	mu       sync.Mutex
	typ      reflect.Type
	subs     []*Subscription
	emitters int

	// stateful 为 true 时保留最后一个事件
	stateful bool
	last     any
}

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{topics: make(map[reflect.Type]*topic)}
}

// prototypeType 取指针原型的元素类型
func prototypeType(proto any) (reflect.Type, error) {
	if proto == nil {
		return nil, ErrInvalidEventType
	}
	typ := reflect.TypeOf(proto)
	if typ.Kind() != reflect.Pointer {
		return nil, ErrNonPointerType
	}
	return typ.Elem(), nil
}

// Subscribe 订阅事件，有状态 topic 会立即补发最后一个事件
func (b *Bus) Subscribe(eventType any, opts ...pkgif.SubscriptionOpt) (pkgif.Subscription, error) {
	typ, err := prototypeType(eventType)
	if err != nil {
		return nil, err
	}
	settings := pkgif.SubscriptionSettings{Buffer: defaultBuffer}
	for _, opt := range opts {
		opt(&settings)
	}

	sub := &Subscription{
		bus:  b,
		typ:  typ,
		name: settings.Name,
		ch:   make(chan any, max(settings.Buffer, 0)),
	}
	err = b.lockTopic(typ, func(t *topic) {
		t.subs = append(t.subs, sub)
		if t.stateful && t.last != nil {
			sub.offer(t.last)
		}
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Emitter 获取发射器；任一发射器以 Stateful 打开后 topic 保留最后一个事件
func (b *Bus) Emitter(eventType any, opts ...pkgif.EmitterOpt) (pkgif.Emitter, error) {
	typ, err := prototypeType(eventType)
	if err != nil {
		return nil, err
	}
	var settings pkgif.EmitterSettings
	for _, opt := range opts {
		opt(&settings)
	}

	em := &Emitter{bus: b, typ: typ}
	err = b.lockTopic(typ, func(t *topic) {
		t.emitters++
		t.stateful = t.stateful || settings.Stateful
		em.topic = t
	})
	if err != nil {
		return nil, err
	}
	return em, nil
}

// Topics 当前活跃的事件类型名
func (b *Bus) Topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.topics))
	for typ := range b.topics {
		names = append(names, typ.String())
	}
	slices.Sort(names)
	return names
}

// Close 关闭总线及全部订阅；已有发射器的 Emit 之后不再投递
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var subs []*Subscription
	for _, t := range b.topics {
		t.mu.Lock()
		subs = append(subs, t.subs...)
		t.mu.Unlock()
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	return nil
}

// lockTopic 在 topic 锁内执行 fn，topic 不存在时创建
func (b *Bus) lockTopic(typ reflect.Type, fn func(*topic)) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	t, ok := b.topics[typ]
	if !ok {
		t = &topic{typ: typ}
		b.topics[typ] = t
	}
	t.mu.Lock()
	b.mu.Unlock()

	defer t.mu.Unlock()
	fn(t)
	return nil
}

// unsubscribe 从 topic 移除订阅
func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	t, ok := b.topics[sub.typ]
	if !ok {
		b.mu.Unlock()
		return
	}
	t.mu.Lock()
	b.mu.Unlock()

	t.subs = slices.DeleteFunc(t.subs, func(s *Subscription) bool { return s == sub })
	idle := t.idle()
	t.mu.Unlock()

	if idle {
		b.reclaim(sub.typ)
	}
}

// reclaim 回收没有订阅者与发射器的 topic
func (b *Bus) reclaim(typ reflect.Type) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[typ]
	if !ok {
		return
	}
	t.mu.Lock()
	idle := t.idle()
	t.mu.Unlock()
	if idle {
		delete(b.topics, typ)
	}
}

// ============================================================================
//                              topic
// ============================================================================

// idle 调用方持有 t.mu
func (t *topic) idle() bool {
	return len(t.subs) == 0 && t.emitters == 0
}

// publish 向全部订阅者投递，慢订阅者丢弃事件
func (t *topic) publish(event any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stateful {
		t.last = event
	}
	for _, sub := range t.subs {
		if sub.offer(event) {
			continue
		}
		if n := sub.Dropped(); n%dropWarnEvery == 1 {
			logger.Warn("订阅者处理过慢，事件被丢弃",
				"type", t.typ,
				"subscriber", sub.name,
				"dropped", n)
		}
	}
}
