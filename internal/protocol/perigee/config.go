package perigee

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/dep2p/go-perigee/config"
)

// StrategyKind 评分策略类型
type StrategyKind string

const (
	// StrategyRewardAllButLast 除最后一个交付者外均 +1
	StrategyRewardAllButLast StrategyKind = "reward-all-but-last"

	// StrategyRewardFirst 首个交付者获得领先第二名的时间差
	StrategyRewardFirst StrategyKind = "reward-first"

	// StrategySubset 子集组合评分
	StrategySubset StrategyKind = "subset"
)

// Valid 检查策略类型是否已知
func (k StrategyKind) Valid() bool {
	switch k {
	case StrategyRewardAllButLast, StrategyRewardFirst, StrategySubset:
		return true
	default:
		return false
	}
}

// Config 覆盖网络校准配置
//
// 全网共享同一个不可变实例。
type Config struct {
	// NumOutgoing selected 集合容量
	NumOutgoing int

	// NumIncoming accepted 集合容量
	NumIncoming int

	// WeakestLinks 每轮丢弃的最弱对端数量
	WeakestLinks int

	// Strategy 评分策略
	Strategy StrategyKind

	// SubsetPercentile subset 策略使用的百分位 [0,100]
	SubsetPercentile int

	// MaxRefillAttempts 每轮补足时的最大抽样次数（0 表示不限）
	MaxRefillAttempts int
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		NumOutgoing:       8,
		NumIncoming:       20,
		WeakestLinks:      2,
		Strategy:          StrategyRewardAllButLast,
		SubsetPercentile:  90,
		MaxRefillAttempts: 0,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	var err error
	if c.NumOutgoing < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: num outgoing %d < 1", ErrInvalidConfig, c.NumOutgoing))
	}
	if c.NumIncoming < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: num incoming %d < 0", ErrInvalidConfig, c.NumIncoming))
	}
	if c.WeakestLinks < 0 || c.WeakestLinks > c.NumOutgoing {
		err = multierr.Append(err, fmt.Errorf("%w: weakest links %d not in [0,%d]",
			ErrInvalidConfig, c.WeakestLinks, c.NumOutgoing))
	}
	if !c.Strategy.Valid() {
		err = multierr.Append(err, fmt.Errorf("%w: %q", ErrUnknownStrategy, c.Strategy))
	}
	if c.SubsetPercentile < 0 || c.SubsetPercentile > 100 {
		err = multierr.Append(err, fmt.Errorf("%w: subset percentile %d not in [0,100]",
			ErrInvalidConfig, c.SubsetPercentile))
	}
	if c.MaxRefillAttempts < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: max refill attempts %d < 0",
			ErrInvalidConfig, c.MaxRefillAttempts))
	}
	return err
}

// validateFor 检查配置在给定网络规模下是否可满足
//
// 只有不限抽样次数时才拒绝：此时不可满足的容量会让补足循环永不结束。
func (c *Config) validateFor(size int) error {
	if c.MaxRefillAttempts > 0 {
		return nil
	}
	if c.NumOutgoing > size-1 {
		return fmt.Errorf("%w: num outgoing %d exceeds %d candidate peers",
			ErrUnsatisfiable, c.NumOutgoing, size-1)
	}
	if c.NumIncoming < c.NumOutgoing {
		return fmt.Errorf("%w: num incoming %d < num outgoing %d",
			ErrUnsatisfiable, c.NumIncoming, c.NumOutgoing)
	}
	return nil
}

// ConfigFromUnified 从统一配置创建校准配置，静态拓扑返回 nil
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	if !cfg.Overlay.IsPerigee() {
		return nil
	}
	o := cfg.Overlay
	return &Config{
		NumOutgoing:       o.NumOutgoing,
		NumIncoming:       o.NumIncoming,
		WeakestLinks:      o.WeakestLinks,
		Strategy:          StrategyKind(o.Strategy),
		SubsetPercentile:  o.SubsetPercentile,
		MaxRefillAttempts: o.MaxRefillAttempts,
	}
}
