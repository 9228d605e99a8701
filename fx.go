package stream

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/dep2p/go-stream/internal/core/defaults"
	"github.com/dep2p/go-stream/internal/core/dispatch"
	"github.com/dep2p/go-stream/internal/core/eventbus"
	"github.com/dep2p/go-stream/internal/core/metrics"
	"github.com/dep2p/go-stream/internal/core/registry"
	"github.com/dep2p/go-stream/internal/core/sticky"
	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
	"github.com/dep2p/go-stream/pkg/lib/log"
)

var fxLogger = log.Logger("stream/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置注入
//  2. EventBus、Metrics（关闭时提供 nil）
//  3. Registry → Sticky → Defaults
//  4. Dispatcher
func buildFxApp(opts *options, hub *Hub) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := opts.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(opts.config),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 可替换依赖
	// ════════════════════════════════════════════════════════════════════════
	registerer := opts.registerer
	if registerer == nil {
		reg := prometheus.NewRegistry()
		registerer = reg
		opts.gatherer = reg
	}
	modules = append(modules,
		fx.Provide(func() prometheus.Registerer { return registerer }),
	)
	if opts.clock != nil {
		modules = append(modules, fx.Provide(func() clock.Clock { return opts.clock }))
	}
	if opts.factory != nil {
		modules = append(modules, fx.Provide(func() pkgif.DefaultFactory { return opts.factory }))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 核心模块
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		eventbus.Module(),
		metrics.Module(),
		registry.Module(),
		sticky.Module(),
		defaults.Module(),
		dispatch.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 4. 注入 Hub
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		fx.Populate(
			&hub.registry,
			&hub.dispatcher,
			&hub.sticky,
			&hub.defaults,
			&hub.bus,
		),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 5. Fx 日志
	// ════════════════════════════════════════════════════════════════════════
	if opts.fxLogger != nil {
		l := opts.fxLogger
		modules = append(modules, fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l}
		}))
	} else {
		// 禁用 Fx 日志输出（避免干扰用户日志）
		modules = append(modules, fx.NopLogger)
	}

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		fxLogger.Error("build fx app failed", "error", err)
		return nil, err
	}
	return app, nil
}
