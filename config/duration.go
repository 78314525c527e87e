package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dep2p/go-perigee/pkg/types"
)

// Duration 支持字符串解析的 time.Duration 包装类型
//
// 支持的格式:
//   - 字符串: "30s", "5m", "100ms" 等（JSON、TOML、YAML 均可）
//   - 数字: 毫秒数，即仿真 Tick
//
// 使用示例:
//
//	type Config struct {
//	    Interval Duration `json:"interval"`
//	}
//
//	// JSON: {"interval": "10s"} 或 {"interval": 10000}
type Duration time.Duration

// Millis 以毫秒构造 Duration
func Millis(ms int64) Duration {
	return Duration(time.Duration(ms) * time.Millisecond)
}

func parseDuration(s string) (Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration string %q: %w", s, err)
	}
	return Duration(d), nil
}

// UnmarshalJSON 实现 json.Unmarshaler 接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := parseDuration(s)
		if err != nil {
			return err
		}
		*d = v
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*d = Millis(n)
		return nil
	}

	return fmt.Errorf("duration must be a string (e.g., \"10s\") or number (milliseconds)")
}

// MarshalJSON 实现 json.Marshaler 接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalTOML 实现 toml.Unmarshaler 接口
func (d *Duration) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case string:
		return d.UnmarshalText([]byte(x))
	case int64:
		*d = Millis(x)
		return nil
	default:
		return fmt.Errorf("duration must be a string (e.g., \"10s\") or integer (milliseconds), got %T", v)
	}
}

// UnmarshalText 实现 encoding.TextUnmarshaler 接口
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalText 实现 encoding.TextMarshaler 接口
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalYAML 实现 yaml.Unmarshaler 接口
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		var n int64
		if err := node.Decode(&n); err != nil {
			return err
		}
		*d = Millis(n)
		return nil
	}
	return d.UnmarshalText([]byte(node.Value))
}

// Duration 返回底层的 time.Duration 值
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Ticks 转换为仿真 Tick
func (d Duration) Ticks() types.Tick {
	return types.TicksFromDuration(time.Duration(d))
}

// String 返回字符串表示
func (d Duration) String() string {
	return time.Duration(d).String()
}
