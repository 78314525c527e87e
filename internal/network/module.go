package network

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-perigee/config"
	"github.com/dep2p/go-perigee/internal/core/bootstrap"
	"github.com/dep2p/go-perigee/internal/core/scheduler"
	"github.com/dep2p/go-perigee/internal/core/transport"
	"github.com/dep2p/go-perigee/internal/protocol/dissemination"
	"github.com/dep2p/go-perigee/internal/protocol/perigee"
)

// ConfigFromUnified 从统一配置创建组装配置
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Config{
		Nodes:         cfg.Run.Nodes,
		Dissemination: dissemination.ConfigFromUnified(cfg),
		Perigee:       perigee.ConfigFromUnified(cfg),
		Bootstrap:     bootstrap.ConfigFromUnified(cfg),
	}
}

// Params 网络模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config
	Scheduler  *scheduler.Scheduler
	Transport  *transport.Transport
}

// Module 是 network 的 Fx 模块
var Module = fx.Module("network",
	fx.Provide(ProvideNetwork),
)

// ProvideNetwork 组装网络
func ProvideNetwork(p Params) (*Network, error) {
	return New(
		ConfigFromUnified(p.UnifiedCfg),
		p.Scheduler,
		p.Transport,
		p.Transport.Matrix(),
		p.UnifiedCfg.Run.Rand(config.StreamOverlay),
	)
}
