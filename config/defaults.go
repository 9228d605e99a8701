package config

import "fmt"

// 默认流对象工厂类型
const (
	// FactoryWeak 弱引用缓存（默认）
	FactoryWeak = "weak"

	// FactorySimple 每次创建新对象
	FactorySimple = "simple"

	// FactoryLRU 容量受限的强引用缓存
	FactoryLRU = "lru"
)

// DefaultsConfig 默认流对象配置
type DefaultsConfig struct {
	// Factory 工厂类型：weak/simple/lru
	Factory string `json:"factory"`

	// LRUSize Factory 为 lru 时的缓存容量
	LRUSize int `json:"lru_size"`
}

// DefaultDefaultsConfig 返回默认流对象配置
func DefaultDefaultsConfig() DefaultsConfig {
	return DefaultsConfig{
		Factory: FactoryWeak,
		LRUSize: 64,
	}
}

// Validate 验证默认流对象配置
func (c DefaultsConfig) Validate() error {
	switch c.Factory {
	case "", FactoryWeak, FactorySimple:
	case FactoryLRU:
		if c.LRUSize <= 0 {
			return fmt.Errorf("defaults.lru_size: must be positive, got %d", c.LRUSize)
		}
	default:
		return fmt.Errorf("defaults.factory: unknown factory %q", c.Factory)
	}
	return nil
}
