package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/emirpasic/gods/queues/priorityqueue"

	"github.com/dep2p/go-perigee/pkg/lib/log"
	"github.com/dep2p/go-perigee/pkg/types"
)

var logger = log.Logger("core/scheduler")

// ctxCheckInterval 每处理多少个事件检查一次 ctx
const ctxCheckInterval = 4096

// Handler 节点事件处理器
type Handler interface {
	// HandleEvent 处理来自 from 的事件，返回错误将终止运行
	HandleEvent(from types.NodeID, ev any) error
}

// HandlerFunc 函数形式的 Handler
type HandlerFunc func(from types.NodeID, ev any) error

// HandleEvent 实现 Handler
func (f HandlerFunc) HandleEvent(from types.NodeID, ev any) error {
	return f(from, ev)
}

// Control 周期性驱动逻辑
type Control interface {
	// Execute 在虚拟时间 now 执行，返回 stop=true 结束运行
	Execute(now types.Tick) (stop bool, err error)
}

// ControlFunc 函数形式的 Control
type ControlFunc func(now types.Tick) (bool, error)

// Execute 实现 Control
func (f ControlFunc) Execute(now types.Tick) (bool, error) {
	return f(now)
}

// control 已注册的 Control
type control struct {
	name string
	c    Control
	step types.Tick
}

// item 队列中的事件
type item struct {
	at      types.Tick
	seq     uint64
	to      types.NodeID
	from    types.NodeID
	payload any
	ctl     *control
}

// byTimeThenSeq 按 (时间, 序号) 升序
func byTimeThenSeq(a, b interface{}) int {
	x, y := a.(*item), b.(*item)
	switch {
	case x.at < y.at:
		return -1
	case x.at > y.at:
		return 1
	case x.seq < y.seq:
		return -1
	case x.seq > y.seq:
		return 1
	default:
		return 0
	}
}

// Scheduler 离散事件调度器
type Scheduler struct {
	epoch time.Time
	clock *clock.Mock
	now   types.Tick

	queue    *priorityqueue.Queue
	seq      uint64
	handlers map[types.NodeID]Handler

	processed uint64
	stopped   bool
}

// New 创建调度器，epoch 为虚拟时间 0 对应的时间戳
func New(epoch time.Time) *Scheduler {
	mock := clock.NewMock()
	mock.Set(epoch)
	return &Scheduler{
		epoch:    epoch,
		clock:    mock,
		queue:    priorityqueue.NewWith(byTimeThenSeq),
		handlers: make(map[types.NodeID]Handler),
	}
}

// Now 当前虚拟时间
func (s *Scheduler) Now() types.Tick {
	return s.now
}

// Clock 返回与虚拟时间同步的时钟
//
// 时钟只在 Control 执行前和运行结束时同步，事件处理期间读取的是上一次同步的时间。
func (s *Scheduler) Clock() clock.Clock {
	return s.clock
}

// Register 注册节点处理器
func (s *Scheduler) Register(id types.NodeID, h Handler) error {
	if _, ok := s.handlers[id]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
	}
	s.handlers[id] = h
	return nil
}

// Schedule 在 delay 之后把 ev 投递给节点 to
func (s *Scheduler) Schedule(delay types.Tick, to, from types.NodeID, ev any) error {
	if delay < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeDelay, delay)
	}
	if _, ok := s.handlers[to]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, to)
	}
	s.push(&item{at: s.now + delay, to: to, from: from, payload: ev})
	return nil
}

// AddControl 注册 Control，首次在 start 执行，此后每 step 执行一次
//
// step 为 0 表示只执行一次。
func (s *Scheduler) AddControl(name string, c Control, start, step types.Tick) error {
	if step < 0 || start < s.now {
		return fmt.Errorf("%w: %s start=%d step=%d", ErrInvalidStep, name, start, step)
	}
	s.push(&item{at: start, to: types.NoNode, from: types.NoNode, ctl: &control{name: name, c: c, step: step}})
	return nil
}

func (s *Scheduler) push(it *item) {
	s.seq++
	it.seq = s.seq
	s.queue.Enqueue(it)
}

// Pending 队列中尚未处理的事件数
func (s *Scheduler) Pending() int {
	return s.queue.Size()
}

// Processed 已处理的事件数（含 Control）
func (s *Scheduler) Processed() uint64 {
	return s.processed
}

// Stopped 是否已被 Control 停止
func (s *Scheduler) Stopped() bool {
	return s.stopped
}

// Step 处理一个事件，队列为空或已停止时返回 false
func (s *Scheduler) Step() (bool, error) {
	if s.stopped {
		return false, nil
	}
	v, ok := s.queue.Dequeue()
	if !ok {
		return false, nil
	}
	it := v.(*item)
	s.now = it.at
	s.processed++

	if it.ctl != nil {
		return true, s.runControl(it)
	}

	h, ok := s.handlers[it.to]
	if !ok {
		return true, fmt.Errorf("%w: %s", ErrUnknownNode, it.to)
	}
	if err := h.HandleEvent(it.from, it.payload); err != nil {
		return true, fmt.Errorf("event at %s from %s to %s: %w", it.at, it.from, it.to, err)
	}
	return true, nil
}

func (s *Scheduler) runControl(it *item) error {
	s.syncClock()
	stop, err := it.ctl.c.Execute(s.now)
	if err != nil {
		return fmt.Errorf("control %s at %s: %w", it.ctl.name, s.now, err)
	}
	if stop {
		logger.Debug("控制器结束运行", "control", it.ctl.name, "at", s.now)
		s.stopped = true
		return nil
	}
	if it.ctl.step > 0 {
		s.push(&item{at: s.now + it.ctl.step, to: types.NoNode, from: types.NoNode, ctl: it.ctl})
	}
	return nil
}

func (s *Scheduler) syncClock() {
	s.clock.Set(s.epoch.Add(s.now.Duration()))
}

// Run 处理事件直到队列为空、被 Control 停止、超过 until 或 ctx 取消
//
// until <= 0 表示不限时间。
func (s *Scheduler) Run(ctx context.Context, until types.Tick) error {
	defer s.syncClock()

	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if s.stopped {
			return nil
		}
		if until > 0 {
			v, ok := s.queue.Peek()
			if !ok {
				return nil
			}
			if v.(*item).at > until {
				s.now = until
				return nil
			}
		}
		more, err := s.Step()
		if err != nil {
			logger.Error("事件处理失败", "at", s.now, "err", err)
			return err
		}
		if !more {
			return nil
		}
	}
}
