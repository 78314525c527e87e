package perigee

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-perigee/config"
	pkgif "github.com/dep2p/go-perigee/pkg/interfaces"
)

// Option 仿真配置选项
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 基础配置，nil 时使用默认配置
	config *config.Config

	// 在基础配置上应用的预设
	preset string

	// 单项覆盖
	seed       *int64
	nodes      int
	outputBase *string

	runID    string
	registry prometheus.Registerer
	bus      pkgif.EventBus

	// 用户扩展
	fxOptions []fx.Option
}

func newOptions() *options {
	return &options{}
}

// toConfig 合并选项：基础配置 → 预设 → 单项覆盖，然后验证
func (o *options) toConfig() (*config.Config, error) {
	var cfg *config.Config
	if o.config != nil {
		cfg = o.config.Clone()
	} else {
		cfg = config.NewConfig()
	}

	if o.preset != "" {
		if err := config.ApplyPreset(cfg, o.preset); err != nil {
			return nil, err
		}
	}
	if o.seed != nil {
		cfg.Run.Seed = *o.seed
	}
	if o.nodes > 0 {
		cfg.Run.Nodes = o.nodes
	}
	if o.outputBase != nil {
		cfg.Stats.OutputBase = *o.outputBase
	}

	if err := config.ValidateAll(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ============================================================================
//                              配置选项
// ============================================================================

// WithConfig 使用完整配置作为基础，配置会被复制
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil config", ErrInvalidOption)
		}
		o.config = cfg
		return nil
	}
}

// WithPreset 在基础配置上应用预设
//
// 可用预设见 config.Presets()：
//   - cr: 静态拓扑，近邻与随机连接各 8 个
//   - perigee-last / perigee-first / perigee-subset: 三种评分策略的 Perigee 拓扑
func WithPreset(name string) Option {
	return func(o *options) error {
		o.preset = name
		return nil
	}
}

// WithSeed 设置网络、拓扑与传输的随机种子
//
// 出块节点序列由 Run.MinerSeed 决定，不受此选项影响。
func WithSeed(seed int64) Option {
	return func(o *options) error {
		o.seed = &seed
		return nil
	}
}

// WithNodes 设置网络规模
func WithNodes(n int) Option {
	return func(o *options) error {
		if n < 2 {
			return fmt.Errorf("%w: nodes %d < 2", ErrInvalidOption, n)
		}
		o.nodes = n
		return nil
	}
}

// WithOutputBase 设置统计文件前缀，空字符串表示不写文件
func WithOutputBase(base string) Option {
	return func(o *options) error {
		o.outputBase = &base
		return nil
	}
}

// ============================================================================
//                              运行环境选项
// ============================================================================

// WithRunID 设置运行 ID，默认随机生成
func WithRunID(id string) Option {
	return func(o *options) error {
		o.runID = id
		return nil
	}
}

// WithRegistry 在 reg 上注册仿真指标
//
// 指标带有 run=<运行 ID> 常量标签，多个仿真可以共享同一个 Registerer。
// Close 时注销。
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) error {
		if reg == nil {
			return fmt.Errorf("%w: nil registerer", ErrInvalidOption)
		}
		o.registry = reg
		return nil
	}
}

// WithEventBus 使用外部事件总线，仿真关闭时不关闭它
func WithEventBus(bus pkgif.EventBus) Option {
	return func(o *options) error {
		if bus == nil {
			return fmt.Errorf("%w: nil event bus", ErrInvalidOption)
		}
		o.bus = bus
		return nil
	}
}

// WithFxOptions 追加 Fx 选项
//
// 用于替换或装饰内部组件，例如注入自定义的时间起点：
//
//	perigee.WithFxOptions(fx.Supply(fx.Annotated{Name: "sim_epoch", Target: epoch}))
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
