// Package metrics 提供分发指标收集
//
// 基于 prometheus/client_golang 采集：
//   - <ns>_dispatch_calls_total / duration_seconds：代理方法调用次数与耗时
//   - <ns>_dispatch_invocations_total：流对象方法被调用次数
//   - <ns>_dispatch_stopped_total{reason}：before/after/break 提前停止
//   - <ns>_dispatch_skipped_total{reason}：tag 不匹配或连接过期
//   - <ns>_dispatch_default_stream_total：默认流对象兜底
//   - <ns>_registered_streams：每个能力接口的注册数量
//   - <ns>_sticky_recorded_total / replayed_total：粘性调用
//
// # 快速开始
//
//	reg := prometheus.NewRegistry()
//	rec, _ := metrics.NewRecorder(reg, "stream")
//	rec.ObserveDispatch("app.Greeter", time.Millisecond)
//
// 指标关闭时各组件持有 nil *Recorder，所有方法对 nil 安全。
package metrics
