package driver

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-perigee/config"
	"github.com/dep2p/go-perigee/internal/core/metrics"
	"github.com/dep2p/go-perigee/internal/core/scheduler"
	"github.com/dep2p/go-perigee/internal/core/transport"
	"github.com/dep2p/go-perigee/internal/network"
	pkgif "github.com/dep2p/go-perigee/pkg/interfaces"
)

// Params 运行器依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config
	Scheduler  *scheduler.Scheduler
	Network    *network.Network
	Collector  *metrics.Collector
	Output     *metrics.Output      `optional:"true"`
	Prometheus *metrics.Prometheus  `optional:"true"`
	Transport  *transport.Transport `optional:"true"`
	EventBus   pkgif.EventBus       `optional:"true"`
	RunID      string               `name:"run_id" optional:"true"`
}

// Module 是 driver 的 Fx 模块
//
// 同时向 metrics 模块提供链头判断所需的 ValidatedFunc。
var Module = fx.Module("driver",
	fx.Provide(
		ProvideValidated,
		ProvideDriver,
	),
	fx.Invoke(registerLifecycle),
)

// ProvideValidated 以网络的校验状态判断出块节点是否持有链头
func ProvideValidated(net *network.Network) metrics.ValidatedFunc {
	return net.Validated
}

// ProvideDriver 创建运行器
func ProvideDriver(p Params) (*Driver, error) {
	if p.Transport != nil {
		if err := p.Prometheus.WatchTransport(p.Transport.Stats); err != nil {
			return nil, err
		}
	}
	return New(Deps{
		RunID:     p.RunID,
		Config:    p.UnifiedCfg,
		Scheduler: p.Scheduler,
		Network:   p.Network,
		Collector: p.Collector,
		Output:    p.Output,
		Bus:       p.EventBus,
	})
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In

	LC     fx.Lifecycle
	Driver *Driver
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return input.Driver.Close()
		},
	})
}
