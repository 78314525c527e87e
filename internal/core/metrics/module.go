package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-perigee/config"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Params 指标模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config        `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
	RunID      string                `name:"run_id" optional:"true"`
	Validated  ValidatedFunc         `optional:"true"`
}

// Result 指标模块输出
type Result struct {
	fx.Out

	Collector  *Collector
	Prometheus *Prometheus
	Output     *Output
}

// Module 是 metrics 的 Fx 模块
var Module = fx.Module("metrics",
	fx.Provide(ProvideMetrics),
	fx.Invoke(registerLifecycle),
)

// ProvideMetrics 从参数创建统计组件
//
// 未注入 Registerer 或配置关闭指标时 Prometheus 为 nil；
// 配置没有输出目的地时 Output 为 nil。
func ProvideMetrics(p Params) (Result, error) {
	cfg := p.UnifiedCfg
	if cfg == nil {
		cfg = config.NewConfig()
	}

	var prom *Prometheus
	if cfg.Stats.Metrics && p.Registerer != nil {
		var err error
		prom, err = NewPrometheus(p.Registerer, runLabels(p.RunID))
		if err != nil {
			return Result{}, err
		}
	}

	var out *Output
	if cfg.Stats.Enabled() {
		out = NewOutput(cfg.Stats.OutputBase, nil)
	}

	return Result{
		Collector:  NewCollector(cfg.Run.Nodes, p.Validated, prom),
		Prometheus: prom,
		Output:     out,
	}, nil
}

func runLabels(runID string) prometheus.Labels {
	if runID == "" {
		return nil
	}
	return prometheus.Labels{"run": runID}
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In

	LC         fx.Lifecycle
	Prometheus *Prometheus
}

// registerLifecycle 停止时注销指标，使同一 Registerer 可被后续运行复用
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return input.Prometheus.Unregister()
		},
	})
}
