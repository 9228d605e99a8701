package config

import (
	"fmt"
	"regexp"
)

var metricNamespaceRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enabled 是否采集 Prometheus 指标
	Enabled bool `json:"enabled"`

	// Namespace 指标名前缀
	Namespace string `json:"namespace"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "stream",
	}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if c.Namespace != "" && !metricNamespaceRe.MatchString(c.Namespace) {
		return fmt.Errorf("metrics.namespace: invalid namespace %q", c.Namespace)
	}
	return nil
}
