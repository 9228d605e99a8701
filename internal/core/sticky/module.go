package sticky

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-stream/internal/core/metrics"
	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
)

// Params Sticky 依赖参数
type Params struct {
	fx.In

	Metrics  *metrics.Recorder `optional:"true"`
	EventBus pkgif.EventBus    `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("sticky",
		fx.Provide(ProvideCache),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideCache 提供粘性缓存
func ProvideCache(p Params) *Cache {
	return NewCache(p.Metrics, WithEventBus(p.EventBus))
}

// registerLifecycle 注册生命周期
func registerLifecycle(lc fx.Lifecycle, c *Cache) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return c.Close()
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
	Name = "sticky"
	// Description 模块描述
	Description = "粘性调用缓存模块，保存最近的通知以便新订阅者补收"
)
