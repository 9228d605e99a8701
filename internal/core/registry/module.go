package registry

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-stream/config"
	"github.com/dep2p/go-stream/internal/core/metrics"
	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Params Registry 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config    `optional:"true"`
	Metrics    *metrics.Recorder `optional:"true"`
	EventBus   pkgif.EventBus    `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("registry",
		fx.Provide(ProvideRegistry),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideRegistry 提供 Registry 实例
func ProvideRegistry(p Params) *Registry {
	debug := p.UnifiedCfg != nil && p.UnifiedCfg.Debug
	opts := []Option{WithDebug(debug), WithMetrics(p.Metrics)}
	if p.EventBus != nil {
		opts = append(opts, WithEventBus(p.EventBus))
	}
	return New(opts...)
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC       fx.Lifecycle
	Registry *Registry
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			// 关闭时注销所有流对象
			input.Registry.Reset()
			return input.Registry.Close()
		},
	})
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "registry"
	// Description 模块描述
	Description = "流对象注册表模块，按能力接口维护有序订阅者集合与连接状态"
)
