package transport

import (
	"fmt"

	"github.com/dep2p/go-perigee/pkg/types"
)

// Config 传输层配置
type Config struct {
	// MatrixFile 路由器时延矩阵文件，为空时按 Routers 生成合成矩阵
	MatrixFile string

	// Routers 合成矩阵的路由器数量
	Routers int

	// MinLatency 合成矩阵的最小单向时延
	MinLatency types.Tick

	// MaxLatency 合成矩阵的最大单向时延
	MaxLatency types.Tick

	// ExtraRoundTrips 区块体传输额外的 TCP 往返次数
	ExtraRoundTrips int

	// FailurePercent 随机丢弃消息的百分比
	FailurePercent int

	// ProcessingMin 区块体发送方处理时间下限（含）
	ProcessingMin types.Tick

	// ProcessingMax 区块体发送方处理时间上限（不含），不大于 ProcessingMin 时不计处理时间
	ProcessingMax types.Tick
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Routers:         1000,
		MinLatency:      5,
		MaxLatency:      150,
		ExtraRoundTrips: 0,
		FailurePercent:  0,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.MatrixFile == "" {
		if c.Routers < 1 {
			return fmt.Errorf("%w: routers %d < 1", ErrInvalidConfig, c.Routers)
		}
		if c.MinLatency < 0 || c.MaxLatency < c.MinLatency {
			return fmt.Errorf("%w: latency range [%d,%d]", ErrInvalidConfig, c.MinLatency, c.MaxLatency)
		}
	}
	if c.ExtraRoundTrips < 0 {
		return fmt.Errorf("%w: extra round trips %d < 0", ErrInvalidConfig, c.ExtraRoundTrips)
	}
	if c.FailurePercent < 0 || c.FailurePercent > 100 {
		return fmt.Errorf("%w: failure percent %d not in [0,100]", ErrInvalidConfig, c.FailurePercent)
	}
	if c.ProcessingMin < 0 {
		return fmt.Errorf("%w: processing min %d < 0", ErrInvalidConfig, c.ProcessingMin)
	}
	return nil
}

// processingEnabled 是否计入发送方处理时间
func (c *Config) processingEnabled() bool {
	return c.ProcessingMax > c.ProcessingMin
}
