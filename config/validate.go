package config

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ValidateAll 验证整个配置的有效性
//
// 包括各子配置与 ValidateCompatibility 的跨段检查。
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return multierr.Append(c.Validate(), ValidateCompatibility(c))
}

// MustValidate 验证配置，如果失败则 panic
//
// 仅用于初始化阶段或测试代码。
func MustValidate(c *Config) {
	if err := ValidateAll(c); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}
}

// ValidateCompatibility 验证配置各段之间的兼容性
//
// 检查：
//   - 初始连接数不超过候选节点数
//   - 不限补足次数时，Perigee 容量在该网络规模下可满足
func ValidateCompatibility(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}

	var err error
	candidates := c.Run.Nodes - 1
	if c.Bootstrap.Close > candidates {
		err = multierr.Append(err, fmt.Errorf("%w: bootstrap.close %d exceeds %d candidate peers",
			ErrInvalidConfig, c.Bootstrap.Close, candidates))
	}

	if c.Overlay.IsPerigee() && c.Overlay.MaxRefillAttempts == 0 {
		if c.Overlay.NumOutgoing > candidates {
			err = multierr.Append(err, fmt.Errorf("%w: overlay.num_outgoing %d exceeds %d candidate peers",
				ErrInvalidConfig, c.Overlay.NumOutgoing, candidates))
		}
		if c.Overlay.NumIncoming < c.Overlay.NumOutgoing {
			err = multierr.Append(err, fmt.Errorf("%w: overlay.num_incoming %d < num_outgoing %d",
				ErrInvalidConfig, c.Overlay.NumIncoming, c.Overlay.NumOutgoing))
		}
	}
	return err
}
