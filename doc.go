// Package stream 提供进程内、按接口划分的扇出分发
//
// 生产方为某个能力接口创建代理对象，调用代理对象的方法时，调用被扇出到所有
// 实现了该接口、且路由标签匹配的已注册流对象，各自的返回值再聚合为一个返回值。
//
// # 核心概念
//
//   - 能力接口（Capability）: 嵌入 Stream 的 Go 接口，用 Declare 声明
//   - 流对象（Stream）: 实现一个或多个能力接口的对象，注册到 Hub 后接收调用
//   - 代理对象（Proxy）: 能力接口的分发入口，可设置 tag、回调、返回值过滤、粘性
//   - 连接（Connection）: 注册中的流对象的优先级与中断控制
//
// # 快速开始
//
//	type Greeter interface {
//	    stream.Stream
//	    Greet(name string) string
//	}
//
//	var GreeterCap = stream.Declare[Greeter]()
//
//	type greeterProxy struct{ *stream.Proxy[Greeter] }
//
//	func (p greeterProxy) Greet(name string) string {
//	    return stream.Call(p.Proxy, "Greet", func(g Greeter) string { return g.Greet(name) }, name)
//	}
//
//	hub, _ := stream.New(ctx)
//	defer hub.Close()
//
//	hub.Register(&englishGreeter{})
//	p, _ := stream.NewProxy[Greeter](hub)
//	var g Greeter = greeterProxy{p}
//	g.Greet("bob")
//
// # 分发规则
//
//   - 优先级高的流对象先被调用，同优先级按注册顺序
//   - 流对象的 tag 与代理对象的 tag 相等才会被调用，nil 只匹配 nil
//   - 没有返回值过滤时返回最后一个被调用流对象的结果
//   - BeforeDispatch / AfterDispatch 返回 true 或流对象调用 BreakDispatch 时停止
//   - 没有流对象时使用默认流对象（RegisterDefault），都没有时返回零值
//
// # 粘性与事件
//
// WithSticky 代理对象记录无返回值方法的最近一次调用，后注册的流对象用
// Hub.Replay 补收。Hub.Subscribe 订阅 EvtStreamRegistered 等事件，可以在
// 收到注册事件时调用 Replay。
//
// # 并发
//
// 分发是同步的。分发期间可以注册/注销流对象，本次分发使用调用开始时的快照。
// 流对象方法内可以在同一能力接口上再次分发，内层分发的 BreakDispatch 只作用于内层。
// 不同 goroutine 在同一能力接口上的分发互斥。
package stream
