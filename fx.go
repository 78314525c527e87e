package perigee

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-perigee/config"
	"github.com/dep2p/go-perigee/internal/core/eventbus"
	"github.com/dep2p/go-perigee/internal/core/metrics"
	"github.com/dep2p/go-perigee/internal/core/scheduler"
	"github.com/dep2p/go-perigee/internal/core/transport"
	"github.com/dep2p/go-perigee/internal/driver"
	"github.com/dep2p/go-perigee/internal/network"
	pkgif "github.com/dep2p/go-perigee/pkg/interfaces"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置与运行 ID
//  2. Core: EventBus → Scheduler → Transport（以调度器为投递目标）
//  3. Network: 传播引擎 + 覆盖网络 + 初始连接
//  4. Metrics → Driver
func buildFxApp(o *options, cfg *config.Config, sim *Simulation) *fx.App {
	modules := []fx.Option{
		// 配置注入
		fx.Supply(cfg),
		fx.Provide(fx.Annotate(
			func() string { return sim.runID },
			fx.ResultTags(`name:"run_id"`),
		)),

		// 核心组件
		eventbus.Module(),
		scheduler.Module,
		fx.Provide(provideSink),
		transport.Module,

		// 网络
		network.Module,

		// 统计与运行
		metrics.Module,
		driver.Module,
	}

	// 外部事件总线
	if o.bus != nil {
		bus := o.bus
		modules = append(modules, fx.Provide(fx.Annotate(
			func() pkgif.EventBus { return bus },
			fx.ResultTags(`name:"shared_eventbus"`),
		)))
	}

	// 指标注册表
	if o.registry != nil {
		reg := o.registry
		modules = append(modules, fx.Provide(func() prometheus.Registerer { return reg }))
	}

	// 用户扩展
	modules = append(modules, o.fxOptions...)

	// 组件注入
	modules = append(modules,
		fx.Populate(&sim.sched, &sim.net, &sim.coll, &sim.drv, &sim.bus),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	return fx.New(modules...)
}

// provideSink 传输层把到达的消息交给调度器
func provideSink(s *scheduler.Scheduler) transport.Sink {
	return s
}
