// Package registry 实现流对象注册表
//
// Registry 按能力接口维护注册中的流对象：
//   - 注册时自动发现流对象实现的所有已声明能力接口
//   - 每个能力接口一个有序集合，按优先级降序、同优先级按注册顺序
//   - 每个流对象一个 Connection，保存优先级与中断标记
//
// # 并发
//
// 结构变更与重排由一把 RWMutex 保护，Snapshot 返回副本，因此分发过程中
// 可以安全地注册/注销。Connection.Session 使用按能力接口划分的分发锁，
// 保证中断标记在 重置-调用-读取-恢复 窗口内不被其他 goroutine 的分发干扰。
//
// 分发锁按 goroutine 可重入。流对象方法内再次分发时，嵌套的 Session 保存并在
// 退出时恢复外层的中断标记。
package registry
