package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-stream/config"
)

// Config 指标配置
type Config struct {
	// Enabled 是否启用指标收集
	Enabled bool

	// Namespace 指标名前缀
	Namespace string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	def := config.DefaultMetricsConfig()
	return Config{
		Enabled:   def.Enabled,
		Namespace: def.Namespace,
	}
}

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		Enabled:   cfg.Metrics.Enabled,
		Namespace: cfg.Metrics.Namespace,
	}
}

// Params Metrics 依赖参数
type Params struct {
	fx.In

	LC         fx.Lifecycle          `optional:"true"`
	UnifiedCfg *config.Config        `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// Module 返回 metrics 的 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(NewRecorderFromParams),
	)
}

// NewRecorderFromParams 从参数创建 Recorder
//
// 指标关闭时返回 nil，各组件对 nil *Recorder 安全。
func NewRecorderFromParams(p Params) (*Recorder, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	if !cfg.Enabled {
		return nil, nil
	}

	r, err := NewRecorder(p.Registerer, cfg.Namespace)
	if err != nil {
		return nil, err
	}

	if p.LC != nil {
		p.LC.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return r.Close()
			},
		})
	}
	return r, nil
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "metrics"
	// Description 模块描述
	Description = "分发指标模块，基于 Prometheus 采集调用次数、耗时与停止原因"
)
