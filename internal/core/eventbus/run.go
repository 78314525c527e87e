package eventbus

import (
	"context"
	"sync"

	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-perigee/pkg/interfaces"
	"github.com/dep2p/go-perigee/pkg/types"
)

// ============================================================================
//                              发布
// ============================================================================

// RunEmitters 一次运行的事件发射器
//
// 方法对 nil 接收者安全，未配置事件总线时可以直接持有 nil。
type RunEmitters struct {
	blocks   pkgif.Emitter
	rounds   pkgif.Emitter
	finished pkgif.Emitter
}

// OpenRunEmitters 打开运行事件发射器
//
// calibration 为 false 时不发布校准事件。结束事件以有状态方式发布。
func OpenRunEmitters(bus pkgif.EventBus, calibration bool) (*RunEmitters, error) {
	e := &RunEmitters{}
	var err error
	if e.blocks, err = bus.Emitter(new(types.EvtBlockGenerated)); err != nil {
		return nil, err
	}
	if calibration {
		if e.rounds, err = bus.Emitter(new(types.EvtCalibrationRound)); err != nil {
			e.Close()
			return nil, err
		}
	}
	if e.finished, err = bus.Emitter(new(types.EvtRunFinished), pkgif.Stateful()); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// BlockGenerated 发布出块事件
func (e *RunEmitters) BlockGenerated(evt types.EvtBlockGenerated) error {
	if e == nil {
		return nil
	}
	return emit(e.blocks, evt)
}

// CalibrationRound 发布校准事件
func (e *RunEmitters) CalibrationRound(evt types.EvtCalibrationRound) error {
	if e == nil {
		return nil
	}
	return emit(e.rounds, evt)
}

// RunFinished 发布结束事件
func (e *RunEmitters) RunFinished(evt types.EvtRunFinished) error {
	if e == nil {
		return nil
	}
	return emit(e.finished, evt)
}

// Close 关闭全部发射器
func (e *RunEmitters) Close() error {
	if e == nil {
		return nil
	}
	var err error
	for _, em := range []pkgif.Emitter{e.blocks, e.rounds, e.finished} {
		if em != nil {
			err = multierr.Append(err, em.Close())
		}
	}
	return err
}

func emit(em pkgif.Emitter, evt any) error {
	if em == nil {
		return nil
	}
	return em.Emit(evt)
}

// ============================================================================
//                              订阅
// ============================================================================

// RunHandlers 运行事件回调，回调为 nil 的事件类型不订阅
type RunHandlers struct {
	OnBlock    func(types.EvtBlockGenerated)
	OnRound    func(types.EvtCalibrationRound)
	OnFinished func(types.EvtRunFinished)
}

// WatchRun 订阅运行事件，在单独的 goroutine 中按到达顺序回调
//
// ctx 结束、总线关闭或调用返回的 stop 后停止回调。stop 取消订阅并等待
// goroutine 退出，可重复调用。opts 作用于每一个订阅。
func WatchRun(ctx context.Context, bus pkgif.EventBus, h RunHandlers, opts ...pkgif.SubscriptionOpt) (stop func(), err error) {
	var subs []pkgif.Subscription
	closeAll := func() {
		for _, s := range subs {
			s.Close()
		}
	}
	subscribe := func(proto any, enabled bool) (<-chan any, error) {
		if !enabled {
			return nil, nil
		}
		sub, err := bus.Subscribe(proto, opts...)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
		return sub.Out(), nil
	}

	blocks, err := subscribe(new(types.EvtBlockGenerated), h.OnBlock != nil)
	if err != nil {
		closeAll()
		return nil, err
	}
	rounds, err := subscribe(new(types.EvtCalibrationRound), h.OnRound != nil)
	if err != nil {
		closeAll()
		return nil, err
	}
	finished, err := subscribe(new(types.EvtRunFinished), h.OnFinished != nil)
	if err != nil {
		closeAll()
		return nil, err
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		for {
			// 未订阅的通道为 nil，select 永远不会选中它
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case ev, ok := <-blocks:
				if !ok {
					return
				}
				h.OnBlock(ev.(types.EvtBlockGenerated))
			case ev, ok := <-rounds:
				if !ok {
					return
				}
				h.OnRound(ev.(types.EvtCalibrationRound))
			case ev, ok := <-finished:
				if !ok {
					return
				}
				h.OnFinished(ev.(types.EvtRunFinished))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-exited
			closeAll()
		})
	}, nil
}
