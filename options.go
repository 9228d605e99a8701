package stream

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dep2p/go-stream/config"
)

// Option Hub 配置选项
type Option func(*options) error

// options 内部选项结构
type options struct {
	config *config.Config

	// 指标注册
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer

	clock    clock.Clock
	factory  DefaultFactory
	fxLogger *zap.Logger
}

func newOptions() *options {
	return &options{
		config: config.NewConfig(),
	}
}

// WithConfig 使用完整配置
//
// 配置会被复制，之后修改 cfg 不影响 Hub。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("config is nil")
		}
		o.config = cfg.Clone()
		return nil
	}
}

// WithPreset 应用预设配置（default / debug / minimal）
func WithPreset(name string) Option {
	return func(o *options) error {
		return config.ApplyPreset(o.config, name)
	}
}

// WithDebug 开启调试日志
func WithDebug(debug bool) Option {
	return func(o *options) error {
		o.config.Debug = debug
		return nil
	}
}

// WithStickyProxies 启用或禁用粘性代理
func WithStickyProxies(enabled bool) Option {
	return func(o *options) error {
		o.config.Sticky.Enabled = enabled
		return nil
	}
}

// WithMetrics 启用或禁用指标
func WithMetrics(enabled bool) Option {
	return func(o *options) error {
		o.config.Metrics.Enabled = enabled
		return nil
	}
}

// WithDefaultFactory 设置默认流对象工厂
//
// 不设置时按 config.Defaults.Factory 创建。
func WithDefaultFactory(f DefaultFactory) Option {
	return func(o *options) error {
		if f == nil {
			return fmt.Errorf("default factory is nil")
		}
		o.factory = f
		return nil
	}
}

// WithRegisterer 把指标注册到 reg
//
// reg 同时实现 prometheus.Gatherer 时 Hub.Gatherer 返回它。
// 不设置时每个 Hub 使用独立的 Registry。
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		if reg == nil {
			return fmt.Errorf("registerer is nil")
		}
		o.registerer = reg
		o.gatherer, _ = reg.(prometheus.Gatherer)
		return nil
	}
}

// WithClock 设置计时时钟，测试中可传入 clock.NewMock()
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		if c == nil {
			return fmt.Errorf("clock is nil")
		}
		o.clock = c
		return nil
	}
}

// WithFxLogger 输出 Fx 依赖注入日志，默认关闭
func WithFxLogger(l *zap.Logger) Option {
	return func(o *options) error {
		o.fxLogger = l
		return nil
	}
}
