// Package interfaces 定义 go-stream 的公共接口
//
// # 能力接口
//
//   - capability.go - Stream、Proxy、Capability 与能力接口目录
//
// # 分发
//
//   - dispatch.go   - Method、DispatchCallback、ResultFilter、Invoker
//   - defaults.go   - DefaultFactory、Implementation、WeakRef
//
// # 事件
//
//   - events.go     - EventBus 与注册表/粘性缓存发布的事件类型
//
// # 错误
//
//   - errors.go     - 所有公共错误，使用 errors.Is 判断
package interfaces
