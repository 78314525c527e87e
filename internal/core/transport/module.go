package transport

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-perigee/config"
)

// ConfigFromUnified 从统一配置创建传输层配置
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	t := cfg.Transport
	return &Config{
		MatrixFile:      t.MatrixFile,
		Routers:         t.Routers,
		MinLatency:      t.MinLatency.Ticks(),
		MaxLatency:      t.MaxLatency.Ticks(),
		ExtraRoundTrips: t.ExtraRoundTrips,
		FailurePercent:  t.FailurePercent,
		ProcessingMin:   t.ProcessingMin.Ticks(),
		ProcessingMax:   t.ProcessingMax.Ticks(),
	}
}

// Params 传输层依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config
	Sink       Sink
}

// Module 是 transport 的 Fx 模块
//
// Sink 由外部提供（通常是调度器）。
var Module = fx.Module("transport",
	fx.Provide(ProvideTransport),
)

// ProvideTransport 按配置加载或合成时延矩阵并创建传输层
func ProvideTransport(p Params) (*Transport, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	rng := p.UnifiedCfg.Run.Rand(config.StreamTransport)

	matrix, err := BuildMatrix(cfg, rng)
	if err != nil {
		return nil, err
	}
	return New(cfg, matrix, p.Sink, rng)
}
