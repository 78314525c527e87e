package dissemination

import (
	"fmt"

	"github.com/dep2p/go-perigee/config"
	"github.com/dep2p/go-perigee/pkg/types"
)

// Config 传播引擎配置
//
// 全网共享同一个不可变实例（按指针传递），构造后不得修改。
type Config struct {
	// HeaderValidationDelay 头部校验耗时
	HeaderValidationDelay types.Tick

	// BodyValidationDelay 区块体校验耗时
	BodyValidationDelay types.Tick

	// HeaderOnly 仅头部模式：假设区块体随头部一起到达，跳过拉取
	HeaderOnly bool

	// BodyRequests 同一区块最多向多少个上游发起区块体拉取
	BodyRequests int

	// Retention 每个节点保留的区块状态数量上限（0 表示不淘汰）
	//
	// 启用后不大于已淘汰区块 ID 的区块落在窗口之外：迟到的头部被忽略，
	// 拉取请求不再应答。窗口小于同时在途的区块数时部分节点会收不到区块，
	// 但任何区块都不会被同一节点校验两次。
	Retention int
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		HeaderValidationDelay: 0,
		BodyValidationDelay:   100,
		HeaderOnly:            false,
		BodyRequests:          1,
		Retention:             0,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.HeaderValidationDelay < 0 {
		return fmt.Errorf("%w: header validation delay %d < 0", ErrInvalidConfig, c.HeaderValidationDelay)
	}
	if c.BodyValidationDelay < 0 {
		return fmt.Errorf("%w: body validation delay %d < 0", ErrInvalidConfig, c.BodyValidationDelay)
	}
	if c.BodyRequests < 1 {
		return fmt.Errorf("%w: body requests %d < 1", ErrInvalidConfig, c.BodyRequests)
	}
	if c.Retention < 0 {
		return fmt.Errorf("%w: retention %d < 0", ErrInvalidConfig, c.Retention)
	}
	return nil
}

// ConfigFromUnified 从统一配置创建传播引擎配置
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	d := cfg.Dissemination
	return &Config{
		HeaderValidationDelay: d.HeaderValidation.Ticks(),
		BodyValidationDelay:   d.BodyValidation.Ticks(),
		HeaderOnly:            d.HeaderOnly,
		BodyRequests:          d.BodyRequests,
		Retention:             d.Retention,
	}
}
