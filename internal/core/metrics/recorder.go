package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "dispatch"

// 停止分发的原因
const (
	StopBefore = "before"
	StopAfter  = "after"
	StopBreak  = "break"
)

// 跳过流对象的原因
const (
	SkipTag   = "tag"
	SkipStale = "stale"
)

// Recorder 分发指标记录器
//
// 所有方法对 nil 接收者安全：指标关闭时组件持有 nil *Recorder。
type Recorder struct {
	registerer prometheus.Registerer

	dispatches     *prometheus.CounterVec
	invocations    *prometheus.CounterVec
	stops          *prometheus.CounterVec
	skips          *prometheus.CounterVec
	defaults       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	streams        *prometheus.GaugeVec
	stickyRecorded *prometheus.CounterVec
	stickyReplayed *prometheus.CounterVec
}

// NewRecorder 创建记录器并注册到 reg
//
// reg 为 nil 时使用新建的独立 Registry。
func NewRecorder(reg prometheus.Registerer, namespace string) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := &Recorder{
		registerer: reg,
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "calls_total",
				Help:      "Count of proxy method calls.",
			},
			[]string{"capability"},
		),
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "invocations_total",
				Help:      "Count of stream method invocations made by proxies.",
			},
			[]string{"capability"},
		),
		stops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stopped_total",
				Help:      "Count of dispatches stopped early, by reason.",
			},
			[]string{"capability", "reason"},
		),
		skips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "skipped_total",
				Help:      "Count of streams skipped during dispatch, by reason.",
			},
			[]string{"capability", "reason"},
		),
		defaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "default_stream_total",
				Help:      "Count of dispatches served by a default stream.",
			},
			[]string{"capability"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "duration_seconds",
				Help:      "Proxy method call latency distribution in seconds.",
				Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"capability"},
		),
		streams: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registered_streams",
				Help:      "Number of registered streams per capability.",
			},
			[]string{"capability"},
		),
		stickyRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sticky",
				Name:      "recorded_total",
				Help:      "Count of sticky method calls recorded.",
			},
			[]string{"capability"},
		),
		stickyReplayed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sticky",
				Name:      "replayed_total",
				Help:      "Count of sticky method calls replayed to streams.",
			},
			[]string{"capability"},
		),
	}

	registered := make([]prometheus.Collector, 0, 9)
	for _, c := range r.collectors() {
		if err := reg.Register(c); err != nil {
			// 只回滚本次注册成功的，Unregister 按描述符匹配
			for _, done := range registered {
				reg.Unregister(done)
			}
			return nil, err
		}
		registered = append(registered, c)
	}
	return r, nil
}

func (r *Recorder) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		r.dispatches,
		r.invocations,
		r.stops,
		r.skips,
		r.defaults,
		r.duration,
		r.streams,
		r.stickyRecorded,
		r.stickyReplayed,
	}
}

func (r *Recorder) unregister() {
	for _, c := range r.collectors() {
		r.registerer.Unregister(c)
	}
}

// Close 从 Registerer 注销所有指标
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.unregister()
	return nil
}

// ObserveDispatch 记录一次代理方法调用及其耗时
func (r *Recorder) ObserveDispatch(capability string, d time.Duration) {
	if r == nil {
		return
	}
	r.dispatches.WithLabelValues(capability).Inc()
	r.duration.WithLabelValues(capability).Observe(d.Seconds())
}

// RecordInvocation 记录一次流对象方法调用
func (r *Recorder) RecordInvocation(capability string) {
	if r == nil {
		return
	}
	r.invocations.WithLabelValues(capability).Inc()
}

// RecordStop 记录一次提前停止分发
func (r *Recorder) RecordStop(capability, reason string) {
	if r == nil {
		return
	}
	r.stops.WithLabelValues(capability, reason).Inc()
}

// RecordSkip 记录一次跳过流对象
func (r *Recorder) RecordSkip(capability, reason string) {
	if r == nil {
		return
	}
	r.skips.WithLabelValues(capability, reason).Inc()
}

// RecordDefaultStream 记录一次由默认流对象处理的分发
func (r *Recorder) RecordDefaultStream(capability string) {
	if r == nil {
		return
	}
	r.defaults.WithLabelValues(capability).Inc()
}

// SetStreams 设置能力接口下已注册的流对象数量
func (r *Recorder) SetStreams(capability string, n int) {
	if r == nil {
		return
	}
	if n == 0 {
		r.streams.DeleteLabelValues(capability)
		return
	}
	r.streams.WithLabelValues(capability).Set(float64(n))
}

// RecordStickyRecorded 记录一次粘性调用保存
func (r *Recorder) RecordStickyRecorded(capability string) {
	if r == nil {
		return
	}
	r.stickyRecorded.WithLabelValues(capability).Inc()
}

// RecordStickyReplayed 记录粘性调用重放次数
func (r *Recorder) RecordStickyReplayed(capability string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.stickyReplayed.WithLabelValues(capability).Add(float64(n))
}

// IsAlreadyRegistered 检查错误是否为重复注册
func IsAlreadyRegistered(err error) bool {
	var are prometheus.AlreadyRegisteredError
	return errors.As(err, &are)
}
