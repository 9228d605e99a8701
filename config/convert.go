package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保留默认值。
//
// 示例 JSON:
//
//	{
//	  "debug": true,
//	  "defaults": {"factory": "lru", "lru_size": 16},
//	  "dispatch": {"stale_log_interval": "30s"}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载并验证配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := FromJSON(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ToJSON 把配置序列化为带缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ApplyPreset 应用预设配置
//
// 支持的预设：
//   - "default": 默认配置
//   - "debug": 调试模式 + debug 日志
//   - "minimal": 关闭指标与粘性触发，默认流不缓存
func ApplyPreset(cfg *Config, presetName string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	switch presetName {
	case "", "default":
		return nil
	case "debug":
		cfg.Debug = true
		cfg.Log.Level = "debug"
		return nil
	case "minimal":
		cfg.Metrics.Enabled = false
		cfg.Sticky.Enabled = false
		cfg.Defaults.Factory = FactorySimple
		return nil
	default:
		return fmt.Errorf("unknown preset: %s", presetName)
	}
}
