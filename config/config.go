// Package config 提供仿真的统一配置管理
//
// 本包采用分段配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON、TOML、YAML 加载
//   - 支持预设配置（cr/perigee-last/perigee-first/perigee-subset）
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Run.Nodes = 200
//
//	// 应用预设
//	config.ApplyPreset(cfg, "perigee-subset")
//
//	// 从文件加载（按扩展名选择格式）
//	cfg, err := config.Load("exp.toml")
package config

import (
	"errors"

	"go.uber.org/multierr"
)

// ErrInvalidConfig 配置无效
var ErrInvalidConfig = errors.New("config: invalid")

// Config 仿真的完整配置结构
//
// 配置按照功能模块组织：
//   - Run: 规模、出块节奏与随机种子
//   - Dissemination: 区块传播协议
//   - Overlay: 覆盖网络（静态或 Perigee）
//   - Bootstrap: 初始拓扑
//   - Transport: 时延模型
//   - Stats: 统计输出
type Config struct {
	// Preset 加载后应用的预设名（为空时不应用）
	Preset string `json:"preset,omitempty" toml:"preset,omitempty" yaml:"preset,omitempty"`

	// Run 运行配置
	Run RunConfig `json:"run" toml:"run" yaml:"run"`

	// Dissemination 区块传播配置
	Dissemination DisseminationConfig `json:"dissemination" toml:"dissemination" yaml:"dissemination"`

	// Overlay 覆盖网络配置
	Overlay OverlayConfig `json:"overlay" toml:"overlay" yaml:"overlay"`

	// Bootstrap 初始拓扑配置
	Bootstrap BootstrapConfig `json:"bootstrap" toml:"bootstrap" yaml:"bootstrap"`

	// Transport 传输层配置
	Transport TransportConfig `json:"transport" toml:"transport" yaml:"transport"`

	// Stats 统计配置
	Stats StatsConfig `json:"stats" toml:"stats" yaml:"stats"`
}

// NewConfig 创建默认配置
//
// 默认配置为 Perigee（reward-all-but-last）覆盖网络上的 1000 节点实验。
func NewConfig() *Config {
	return &Config{
		Run:           DefaultRunConfig(),
		Dissemination: DefaultDisseminationConfig(),
		Overlay:       DefaultOverlayConfig(),
		Bootstrap:     DefaultBootstrapConfig(),
		Transport:     DefaultTransportConfig(),
		Stats:         DefaultStatsConfig(),
	}
}

// Validate 验证配置的有效性
//
// 汇总所有子配置的错误，而不是在第一个错误处返回。
func (c *Config) Validate() error {
	return multierr.Combine(
		c.Run.Validate(),
		c.Dissemination.Validate(),
		c.Overlay.Validate(),
		c.Bootstrap.Validate(),
		c.Transport.Validate(),
		c.Stats.Validate(),
	)
}

// Clone 深拷贝配置
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
