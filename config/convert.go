package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// 配置文件格式
const (
	FormatJSON = "json"
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// presetHeader 只解码预设名
type presetHeader struct {
	Preset string `json:"preset" toml:"preset" yaml:"preset"`
}

// Load 从文件加载配置，格式由扩展名决定（.json/.toml/.yaml/.yml）
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// FormatOf 根据扩展名判断配置格式
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unsupported config file extension %q", ErrInvalidConfig, filepath.Ext(path))
	}
}

// Decode 按格式解码配置
//
// 解码从默认配置开始；若数据中指定了 preset，先应用预设再覆盖显式字段，
// 因此文件中的字段总是优先于预设。
func Decode(data []byte, format string) (*Config, error) {
	var decode func(v any) error
	switch format {
	case FormatJSON:
		decode = func(v any) error { return json.Unmarshal(data, v) }
	case FormatTOML:
		decode = func(v any) error {
			_, err := toml.NewDecoder(bytes.NewReader(data)).Decode(v)
			return err
		}
	case FormatYAML:
		decode = func(v any) error { return yaml.Unmarshal(data, v) }
	default:
		return nil, fmt.Errorf("%w: unknown config format %q", ErrInvalidConfig, format)
	}

	var hdr presetHeader
	if err := decode(&hdr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg := NewConfig()
	if err := ApplyPreset(cfg, hdr.Preset); err != nil {
		return nil, err
	}
	if err := decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// FromJSON 从 JSON 数据创建配置
//
// 示例 JSON:
//
//	{
//	  "preset": "cr",
//	  "run": {"nodes": 500, "block_interval": "5s"},
//	  "dissemination": {"body_validation": "200ms"}
//	}
func FromJSON(data []byte) (*Config, error) {
	return Decode(data, FormatJSON)
}

// FromTOML 从 TOML 数据创建配置
func FromTOML(data []byte) (*Config, error) {
	return Decode(data, FormatTOML)
}

// FromYAML 从 YAML 数据创建配置
func FromYAML(data []byte) (*Config, error) {
	return Decode(data, FormatYAML)
}

// ToJSON 序列化为带缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
