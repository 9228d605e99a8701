// Package mocks 提供统一的测试 Mock 实现
//
// # Mock 列表
//
//   - MockStream: 模拟 interfaces.Stream，嵌入到测试流对象中提供 tag
//   - MockDispatchCallback: 模拟 interfaces.DispatchCallback，记录 Before/After 调用
//   - MockResultFilter: 模拟 interfaces.ResultFilter，记录收到的结果列表
//   - MockDefaultFactory: 模拟 interfaces.DefaultFactory，记录创建请求
//
// # 设计原则
//
// 1. 函数式注入: 每个 Mock 都支持通过 XxxFunc 字段注入自定义行为
// 2. 调用记录: 记录调用历史，便于验证分发顺序与参数
//
// # 使用示例
//
//	cb := &mocks.MockDispatchCallback{
//	    BeforeFunc: func(s interfaces.Stream, m interfaces.Method, args []any) bool {
//	        return m.Name == "Stop"
//	    },
//	}
//	proxy, _ := stream.NewProxy[Greeter](hub, stream.WithDispatchCallback(cb))
package mocks
