// Package dispatch 实现流对象方法的扇出分发
//
// # 分发流程
//
// Facade.Dispatch 对一次代理方法调用：
//
//  1. 拒绝 StreamTag 方法
//  2. 取注册表快照，为空时使用默认流对象，没有默认流对象时返回 nil
//  3. 按快照顺序遍历：跳过已注销的流对象与 tag 不匹配的流对象；
//     BeforeDispatch 返回 true 时停止；在分发会话内调用流对象；
//     AfterDispatch 返回 true 或流对象调用了 BreakDispatch 时停止
//  4. 设置了 ResultFilter 时由它聚合返回值，否则取最后一个结果
//  5. 无返回值方法返回 nil
//  6. 粘性 Facade 记录有参数的无返回值方法调用
//
// 分发是同步的，不跨 goroutine，不重试。
//
// Debug 模式下每次分发分配一个 uuid 作为 trace，逐个记录流对象的调用结果。
package dispatch
