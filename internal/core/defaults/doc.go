// Package defaults 实现默认流对象
//
// 能力接口没有任何注册的流对象时，分发器向 Manager 请求一个默认流对象。
// 默认实现通过 interfaces.Implement 声明，工厂负责实例化：
//
//   - SimpleFactory：每次创建新实例
//   - CacheableFactory + WeakCache：弱引用缓存，实例没有外部引用后可被 GC 回收
//   - CacheableFactory + LRUCache：基于 golang-lru 的有界强引用缓存
//
// 工厂类型由 config.DefaultsConfig.Factory 决定，默认为弱引用缓存。
package defaults
