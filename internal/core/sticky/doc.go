// Package sticky 实现粘性调用缓存
//
// 粘性代理上的无返回值方法调用按 (能力接口, tag) 记录，每个方法只保留最近一次。
// 之后注册的流对象可以调用 Replay 补收这些调用：
//
//	cache.ProxyCreated(notifierCap)
//	cache.Record(notifierCap, nil, method, args, invoke)
//	replayed, err := cache.Replay(s, notifierCap)
//
// Replay 不会自动触发，由调用方显式发起。
package sticky
