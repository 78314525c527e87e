package config

import (
	"fmt"

	"go.uber.org/multierr"
)

// TransportConfig 传输层（时延模型）配置
type TransportConfig struct {
	// MatrixFile 路由器时延矩阵文件（毫秒，空白分隔）
	MatrixFile string `json:"matrix_file,omitempty" toml:"matrix_file,omitempty" yaml:"matrix_file,omitempty"`

	// Routers 合成矩阵的路由器数量
	Routers int `json:"routers" toml:"routers" yaml:"routers"`

	// MinLatency 合成矩阵的最小单向时延
	MinLatency Duration `json:"min_latency" toml:"min_latency" yaml:"min_latency"`

	// MaxLatency 合成矩阵的最大单向时延
	MaxLatency Duration `json:"max_latency" toml:"max_latency" yaml:"max_latency"`

	// ExtraRoundTrips 区块体额外的 TCP 往返次数
	ExtraRoundTrips int `json:"extra_round_trips" toml:"extra_round_trips" yaml:"extra_round_trips"`

	// FailurePercent 随机丢包百分比
	FailurePercent int `json:"failure_percent" toml:"failure_percent" yaml:"failure_percent"`

	// ProcessingMin 区块体发送处理时间下限
	ProcessingMin Duration `json:"processing_min" toml:"processing_min" yaml:"processing_min"`

	// ProcessingMax 区块体发送处理时间上限（不大于下限时不计处理时间）
	ProcessingMax Duration `json:"processing_max" toml:"processing_max" yaml:"processing_max"`
}

// DefaultTransportConfig 返回默认传输层配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Routers:    1000,
		MinLatency: Millis(5),
		MaxLatency: Millis(150),
	}
}

// Validate 验证传输层配置
func (c TransportConfig) Validate() error {
	var err error
	if c.MatrixFile == "" {
		if c.Routers < 1 {
			err = multierr.Append(err, fmt.Errorf("%w: transport.routers %d < 1", ErrInvalidConfig, c.Routers))
		}
		if c.MinLatency < 0 || c.MaxLatency < c.MinLatency {
			err = multierr.Append(err, fmt.Errorf("%w: transport latency range [%s,%s]",
				ErrInvalidConfig, c.MinLatency, c.MaxLatency))
		}
	}
	if c.ExtraRoundTrips < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: transport.extra_round_trips %d < 0", ErrInvalidConfig, c.ExtraRoundTrips))
	}
	if c.FailurePercent < 0 || c.FailurePercent > 100 {
		err = multierr.Append(err, fmt.Errorf("%w: transport.failure_percent %d not in [0,100]",
			ErrInvalidConfig, c.FailurePercent))
	}
	if c.ProcessingMin < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: transport.processing_min %s < 0", ErrInvalidConfig, c.ProcessingMin))
	}
	return err
}
