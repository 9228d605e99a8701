package defaults

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-stream/config"
	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
)

// Params Defaults 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config       `optional:"true"`
	Factory    pkgif.DefaultFactory `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("defaults",
		fx.Provide(ProvideManager),
	)
}

// ProvideManager 提供默认流对象管理器
//
// 容器中提供了 DefaultFactory 时优先使用，否则按配置延迟创建。
func ProvideManager(p Params) *Manager {
	cfg := config.DefaultDefaultsConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Defaults
	}
	m := NewManager(cfg)
	if p.Factory != nil {
		m.SetFactory(p.Factory)
	}
	return m
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "defaults"
	// Description 模块描述
	Description = "默认流对象模块，在没有订阅者时提供兜底实例"
)
