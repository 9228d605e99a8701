package dispatch

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-stream/config"
	"github.com/dep2p/go-stream/internal/core/defaults"
	"github.com/dep2p/go-stream/internal/core/metrics"
	"github.com/dep2p/go-stream/internal/core/registry"
	"github.com/dep2p/go-stream/internal/core/sticky"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Params Dispatcher 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Registry   *registry.Registry
	Sticky     *sticky.Cache
	Defaults   *defaults.Manager
	Metrics    *metrics.Recorder `optional:"true"`
	Clock      clock.Clock       `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("dispatch",
		fx.Provide(ProvideDispatcher),
	)
}

// ProvideDispatcher 提供分发器
func ProvideDispatcher(p Params) (*Dispatcher, error) {
	return New(p.UnifiedCfg, Deps{
		Registry: p.Registry,
		Sticky:   p.Sticky,
		Defaults: p.Defaults,
		Metrics:  p.Metrics,
		Clock:    p.Clock,
	})
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "dispatch"
	// Description 模块描述
	Description = "分发模块，将代理方法调用扇出到匹配的流对象并聚合返回值"
)
