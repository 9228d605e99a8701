package config

import (
	"errors"
	"time"
)

// DispatchConfig 分发器配置
type DispatchConfig struct {
	// StaleLogInterval 过期连接告警的最小间隔
	//
	// 分发时遇到已取消注册的流对象会跳过并告警，该间隔内最多告警一次。
	StaleLogInterval Duration `json:"stale_log_interval"`
}

// DefaultDispatchConfig 返回默认分发器配置
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		StaleLogInterval: Duration(10 * time.Second),
	}
}

// Validate 验证分发器配置
func (c DispatchConfig) Validate() error {
	if c.StaleLogInterval < 0 {
		return errors.New("dispatch.stale_log_interval: must not be negative")
	}
	return nil
}

// StickyConfig 粘性触发配置
type StickyConfig struct {
	// Enabled 是否允许创建粘性代理
	Enabled bool `json:"enabled"`
}

// DefaultStickyConfig 返回默认粘性触发配置
func DefaultStickyConfig() StickyConfig {
	return StickyConfig{
		Enabled: true,
	}
}

// Validate 验证粘性触发配置
func (c StickyConfig) Validate() error {
	return nil
}
