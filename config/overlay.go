package config

import (
	"fmt"

	"go.uber.org/multierr"
)

// 覆盖网络类型
const (
	// OverlayStatic 静态拓扑（CR 模型），不校准
	OverlayStatic = "static"

	// OverlayPerigee Perigee 周期校准
	OverlayPerigee = "perigee"
)

// 评分策略
const (
	StrategyRewardAllButLast = "reward-all-but-last"
	StrategyRewardFirst      = "reward-first"
	StrategySubset           = "subset"
)

// OverlayConfig 覆盖网络配置
type OverlayConfig struct {
	// Kind 覆盖网络类型：static 或 perigee
	Kind string `json:"kind" toml:"kind" yaml:"kind"`

	// NumOutgoing 每个节点主动选择的对端数量
	NumOutgoing int `json:"num_outgoing" toml:"num_outgoing" yaml:"num_outgoing"`

	// NumIncoming 每个节点接受的被选择数量上限
	NumIncoming int `json:"num_incoming" toml:"num_incoming" yaml:"num_incoming"`

	// WeakestLinks 每轮丢弃的最弱对端数量
	WeakestLinks int `json:"weakest_links" toml:"weakest_links" yaml:"weakest_links"`

	// Strategy 评分策略
	Strategy string `json:"strategy" toml:"strategy" yaml:"strategy"`

	// SubsetPercentile subset 策略的百分位
	SubsetPercentile int `json:"subset_percentile" toml:"subset_percentile" yaml:"subset_percentile"`

	// MaxRefillAttempts 每轮补足的最大抽样次数（0 表示不限）
	MaxRefillAttempts int `json:"max_refill_attempts,omitempty" toml:"max_refill_attempts,omitempty" yaml:"max_refill_attempts,omitempty"`

	// CalibrationInterval 校准周期（虚拟时间）
	CalibrationInterval Duration `json:"calibration_interval" toml:"calibration_interval" yaml:"calibration_interval"`
}

// DefaultOverlayConfig 返回默认覆盖网络配置
func DefaultOverlayConfig() OverlayConfig {
	return OverlayConfig{
		Kind:                OverlayPerigee,
		NumOutgoing:         8,
		NumIncoming:         20,
		WeakestLinks:        2,
		Strategy:            StrategyRewardAllButLast,
		SubsetPercentile:    90,
		MaxRefillAttempts:   0,
		CalibrationInterval: Millis(100000),
	}
}

// IsPerigee 是否为 Perigee 覆盖网络
func (c OverlayConfig) IsPerigee() bool {
	return c.Kind == OverlayPerigee
}

// Validate 验证覆盖网络配置
//
// 静态拓扑不使用校准参数，因此只检查类型。
func (c OverlayConfig) Validate() error {
	switch c.Kind {
	case OverlayStatic:
		return nil
	case OverlayPerigee:
	default:
		return fmt.Errorf("%w: overlay.kind %q", ErrInvalidConfig, c.Kind)
	}

	var err error
	if c.NumOutgoing < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: overlay.num_outgoing %d < 1", ErrInvalidConfig, c.NumOutgoing))
	}
	if c.NumIncoming < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: overlay.num_incoming %d < 0", ErrInvalidConfig, c.NumIncoming))
	}
	if c.WeakestLinks < 0 || c.WeakestLinks > c.NumOutgoing {
		err = multierr.Append(err, fmt.Errorf("%w: overlay.weakest_links %d not in [0,%d]",
			ErrInvalidConfig, c.WeakestLinks, c.NumOutgoing))
	}
	switch c.Strategy {
	case StrategyRewardAllButLast, StrategyRewardFirst, StrategySubset:
	default:
		err = multierr.Append(err, fmt.Errorf("%w: overlay.strategy %q", ErrInvalidConfig, c.Strategy))
	}
	if c.SubsetPercentile < 0 || c.SubsetPercentile > 100 {
		err = multierr.Append(err, fmt.Errorf("%w: overlay.subset_percentile %d not in [0,100]",
			ErrInvalidConfig, c.SubsetPercentile))
	}
	if c.MaxRefillAttempts < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: overlay.max_refill_attempts %d < 0",
			ErrInvalidConfig, c.MaxRefillAttempts))
	}
	if c.CalibrationInterval.Ticks() < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: overlay.calibration_interval %s below 1ms",
			ErrInvalidConfig, c.CalibrationInterval))
	}
	return err
}
