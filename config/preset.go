package config

import (
	"errors"
	"fmt"
)

// 预设名
const (
	PresetCR            = "cr"
	PresetPerigeeLast   = "perigee-last"
	PresetPerigeeFirst  = "perigee-first"
	PresetPerigeeSubset = "perigee-subset"
)

// Presets 返回所有预设名
func Presets() []string {
	return []string{PresetCR, PresetPerigeeLast, PresetPerigeeFirst, PresetPerigeeSubset}
}

// ApplyPreset 应用预设配置
//
// 支持的预设：
//   - "cr": 静态拓扑，8 个近邻加 8 个随机节点
//   - "perigee-last": Perigee，除最后交付者外奖励
//   - "perigee-first": Perigee，奖励首个交付者的领先时间
//   - "perigee-subset": Perigee，子集百分位评分
func ApplyPreset(cfg *Config, presetName string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	switch presetName {
	case PresetCR:
		applyCRPreset(cfg)
	case PresetPerigeeLast:
		applyPerigeePreset(cfg, StrategyRewardAllButLast)
	case PresetPerigeeFirst:
		applyPerigeePreset(cfg, StrategyRewardFirst)
	case PresetPerigeeSubset:
		applyPerigeePreset(cfg, StrategySubset)
	case "":
		// 空预设，不做任何操作
		return nil
	default:
		return fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, presetName)
	}
	cfg.Preset = presetName
	return nil
}

func applyCRPreset(cfg *Config) {
	cfg.Overlay.Kind = OverlayStatic
	cfg.Bootstrap.Close = 8
	cfg.Bootstrap.Random = 8
}

// applyPerigeePreset Perigee 节点从随机邻居开始，selected 集合一次填满
func applyPerigeePreset(cfg *Config, strategy string) {
	cfg.Overlay.Kind = OverlayPerigee
	cfg.Overlay.Strategy = strategy
	cfg.Bootstrap.Close = 0
	cfg.Bootstrap.Random = cfg.Overlay.NumOutgoing
}
