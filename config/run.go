package config

import (
	"fmt"
	"math/rand"

	"go.uber.org/multierr"
)

// RunConfig 运行配置
type RunConfig struct {
	// Nodes 网络规模
	Nodes int `json:"nodes" toml:"nodes" yaml:"nodes"`

	// Blocks 生成的区块总数
	Blocks int `json:"blocks" toml:"blocks" yaml:"blocks"`

	// BlockInterval 出块间隔（虚拟时间）
	BlockInterval Duration `json:"block_interval" toml:"block_interval" yaml:"block_interval"`

	// Skip 每 Skip 个出块时机跳过一个（0 表示不跳过）
	Skip int `json:"skip" toml:"skip" yaml:"skip"`

	// Drain 最后一个区块生成后继续运行的时间
	Drain Duration `json:"drain" toml:"drain" yaml:"drain"`

	// Until 虚拟时间上限（0 表示直到出块结束）
	Until Duration `json:"until,omitempty" toml:"until,omitempty" yaml:"until,omitempty"`

	// Seed 网络、拓扑与传输的随机种子
	Seed int64 `json:"seed" toml:"seed" yaml:"seed"`

	// MinerSeed 出块节点选择的随机种子
	//
	// 与 Seed 分离，使不同覆盖网络的实验选中相同的出块节点序列。
	MinerSeed int64 `json:"miner_seed" toml:"miner_seed" yaml:"miner_seed"`
}

// DefaultRunConfig 返回默认运行配置
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Nodes:         1000,
		Blocks:        1000,
		BlockInterval: Millis(10000),
		Skip:          0,
		Drain:         Millis(10000),
		Seed:          1,
		MinerSeed:     0,
	}
}

// Validate 验证运行配置
func (c RunConfig) Validate() error {
	var err error
	if c.Nodes < 2 {
		err = multierr.Append(err, fmt.Errorf("%w: run.nodes %d < 2", ErrInvalidConfig, c.Nodes))
	}
	if c.Blocks < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: run.blocks %d < 0", ErrInvalidConfig, c.Blocks))
	}
	if c.BlockInterval.Ticks() < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: run.block_interval %s below 1ms", ErrInvalidConfig, c.BlockInterval))
	}
	if c.Skip < 0 || c.Skip == 1 {
		err = multierr.Append(err, fmt.Errorf("%w: run.skip %d would skip every step", ErrInvalidConfig, c.Skip))
	}
	if c.Drain < 0 || c.Until < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: run.drain and run.until must not be negative", ErrInvalidConfig))
	}
	return err
}

// 随机数流，各组件使用互不相关的序列
const (
	StreamTransport int64 = iota + 1
	StreamOverlay
)

// Rand 返回 Seed 派生的随机数流
func (c RunConfig) Rand(stream int64) *rand.Rand {
	return rand.New(rand.NewSource(c.Seed ^ stream<<40))
}

// MinerRand 返回出块节点选择的随机数源
func (c RunConfig) MinerRand() *rand.Rand {
	return rand.New(rand.NewSource(c.MinerSeed))
}
