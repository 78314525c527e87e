package config

import (
	"fmt"
)

// StatsConfig 统计配置
type StatsConfig struct {
	// OutputBase 输出文件前缀（为空时不写文件）
	OutputBase string `json:"output_base,omitempty" toml:"output_base,omitempty" yaml:"output_base,omitempty"`

	// Stdout 输出到标准输出（OutputBase 为空时生效）
	Stdout bool `json:"stdout,omitempty" toml:"stdout,omitempty" yaml:"stdout,omitempty"`

	// FlushInterval 周期输出垂直平均并清空统计窗口（0 表示只在结束时输出）
	FlushInterval Duration `json:"flush_interval,omitempty" toml:"flush_interval,omitempty" yaml:"flush_interval,omitempty"`

	// Metrics 是否导出 Prometheus 指标
	Metrics bool `json:"metrics" toml:"metrics" yaml:"metrics"`
}

// DefaultStatsConfig 返回默认统计配置
func DefaultStatsConfig() StatsConfig {
	return StatsConfig{
		Metrics: true,
	}
}

// Enabled 是否有统计输出目的地
func (c StatsConfig) Enabled() bool {
	return c.OutputBase != "" || c.Stdout
}

// Validate 验证统计配置
func (c StatsConfig) Validate() error {
	if c.FlushInterval < 0 {
		return fmt.Errorf("%w: stats.flush_interval %s < 0", ErrInvalidConfig, c.FlushInterval)
	}
	return nil
}
