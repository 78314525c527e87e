package config

import (
	"fmt"
)

// BootstrapConfig 初始拓扑配置
type BootstrapConfig struct {
	// Close 每个节点连接的近邻数量
	Close int `json:"close" toml:"close" yaml:"close"`

	// Random 每个节点连接的随机节点数量
	Random int `json:"random" toml:"random" yaml:"random"`
}

// DefaultBootstrapConfig 返回默认初始拓扑配置
//
// Perigee 节点从随机邻居开始校准。
func DefaultBootstrapConfig() BootstrapConfig {
	return BootstrapConfig{
		Close:  0,
		Random: DefaultOverlayConfig().NumOutgoing,
	}
}

// Validate 验证初始拓扑配置
func (c BootstrapConfig) Validate() error {
	if c.Close < 0 || c.Random < 0 {
		return fmt.Errorf("%w: bootstrap close=%d random=%d", ErrInvalidConfig, c.Close, c.Random)
	}
	return nil
}
