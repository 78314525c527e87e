// Package eventbus 发布仿真运行事件
//
// 仿真线程是唯一的发布者，订阅者（命令行进度日志、测试）在其他 goroutine
// 中消费。发布从不阻塞仿真：订阅通道已满时事件被丢弃并计数。
//
// # 运行事件
//
// 运行器通过 RunEmitters 发布出块、校准与结束事件：
//
//	em, _ := eventbus.OpenRunEmitters(bus, true)
//	defer em.Close()
//	em.BlockGenerated(types.EvtBlockGenerated{Block: 3, Miner: 7})
//
// 消费方通过 WatchRun 注册回调：
//
//	stop, _ := eventbus.WatchRun(ctx, bus, eventbus.RunHandlers{
//	    OnFinished: func(e types.EvtRunFinished) { ... },
//	})
//	defer stop()
//
// # 通用接口
//
// Subscribe / Emitter 以指针原型标识事件类型，事件以值发布；发布与原型
// 类型不一致的事件返回 ErrInvalidEventType。以 Stateful() 打开发射器后，
// topic 保留最后一个事件并补发给之后的订阅者，结束事件使用该模式。
package eventbus
