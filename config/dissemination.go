package config

import (
	"fmt"

	"go.uber.org/multierr"
)

// DisseminationConfig 区块传播配置
type DisseminationConfig struct {
	// HeaderValidation 头部校验耗时
	HeaderValidation Duration `json:"header_validation" toml:"header_validation" yaml:"header_validation"`

	// BodyValidation 区块体校验耗时
	BodyValidation Duration `json:"body_validation" toml:"body_validation" yaml:"body_validation"`

	// HeaderOnly 仅头部模式
	HeaderOnly bool `json:"header_only" toml:"header_only" yaml:"header_only"`

	// BodyRequests 同一区块最多拉取区块体的次数
	BodyRequests int `json:"body_requests" toml:"body_requests" yaml:"body_requests"`

	// Retention 每个节点保留的区块状态数量（0 表示不淘汰）
	Retention int `json:"retention,omitempty" toml:"retention,omitempty" yaml:"retention,omitempty"`
}

// DefaultDisseminationConfig 返回默认传播配置
func DefaultDisseminationConfig() DisseminationConfig {
	return DisseminationConfig{
		HeaderValidation: 0,
		BodyValidation:   Millis(100),
		HeaderOnly:       false,
		BodyRequests:     1,
	}
}

// Validate 验证传播配置
func (c DisseminationConfig) Validate() error {
	var err error
	if c.HeaderValidation < 0 || c.BodyValidation < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: dissemination validation delays must not be negative", ErrInvalidConfig))
	}
	if c.BodyRequests < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: dissemination.body_requests %d < 1", ErrInvalidConfig, c.BodyRequests))
	}
	if c.Retention < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: dissemination.retention %d < 0", ErrInvalidConfig, c.Retention))
	}
	return err
}
