// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义，带默认值和 Validate
//   - 支持从 JSON 加载和保存配置
//   - 支持预设配置（default/debug/minimal）
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Defaults.Factory = config.FactoryLRU
//
//	// 从 JSON 文件加载
//	cfg, err := config.LoadFile("stream.json")
package config

import "go.uber.org/multierr"

// Config 是 go-stream 的完整配置结构
//
// 配置按照功能模块组织：
//   - Log: 日志级别与格式
//   - Dispatch: 分发器
//   - Sticky: 粘性触发
//   - Defaults: 默认流对象
//   - Metrics: 指标采集
type Config struct {
	// Debug 调试模式，打开后逐次记录分发细节
	Debug bool `json:"debug"`

	// Log 日志配置
	Log LogConfig `json:"log"`

	// Dispatch 分发器配置
	Dispatch DispatchConfig `json:"dispatch"`

	// Sticky 粘性触发配置
	Sticky StickyConfig `json:"sticky"`

	// Defaults 默认流对象配置
	Defaults DefaultsConfig `json:"defaults"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Log:      DefaultLogConfig(),
		Dispatch: DefaultDispatchConfig(),
		Sticky:   DefaultStickyConfig(),
		Defaults: DefaultDefaultsConfig(),
		Metrics:  DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
//
// 所有子配置的错误会被合并返回，可用 multierr.Errors 拆分。
func (c *Config) Validate() error {
	return multierr.Combine(
		c.Log.Validate(),
		c.Dispatch.Validate(),
		c.Sticky.Validate(),
		c.Defaults.Validate(),
		c.Metrics.Validate(),
	)
}

// Clone 返回配置的副本
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
