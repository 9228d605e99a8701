// Package interfaces 定义 go-stream 的公共接口
//
// 本文件定义公共错误。所有错误都是配置错误（调用方的 bug），不应重试。
package interfaces

import "errors"

var (
	// ────────────────────────────────────────────────────────────────────────
	// 能力接口声明错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotInterface 声明的能力接口不是接口类型
	ErrNotInterface = errors.New("capability must be an interface type")

	// ErrMarkerCapability 不能把 Stream 本身声明为能力接口
	ErrMarkerCapability = errors.New("capability must not be the Stream marker interface")

	// ErrUnknownCapability 能力接口未声明
	ErrUnknownCapability = errors.New("unknown capability")

	// ────────────────────────────────────────────────────────────────────────
	// 注册错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNilStream 流对象为 nil
	ErrNilStream = errors.New("stream is nil")

	// ErrNoCapability 流对象没有实现任何已声明的能力接口
	ErrNoCapability = errors.New("stream implements no declared capability")

	// ErrNotComparable 流对象或 tag 的类型不可比较
	ErrNotComparable = errors.New("value is not comparable")

	// ErrProxyRegistration 代理对象不能作为流对象注册
	ErrProxyRegistration = errors.New("proxy can not be registered as stream")

	// ErrNotAssignable 流对象没有实现指定的能力接口
	ErrNotAssignable = errors.New("capability is not assignable from stream")

	// ────────────────────────────────────────────────────────────────────────
	// 分发错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrTagMethod 代理对象不允许转发 tag 访问方法
	ErrTagMethod = errors.New("StreamTag must not be invoked through proxy")

	// ErrNilInvoker 分发调用缺少调用函数
	ErrNilInvoker = errors.New("invocation has no invoker")

	// ErrResultType 聚合后的返回值类型与方法返回类型不一致
	ErrResultType = errors.New("dispatch result type mismatch")

	// ErrProxyClosed 代理对象已关闭
	ErrProxyClosed = errors.New("proxy closed")

	// ErrHubClosed 分发中心已关闭
	ErrHubClosed = errors.New("hub closed")

	// ────────────────────────────────────────────────────────────────────────
	// 粘性与默认流错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrStickyDisabled 配置禁用了粘性代理
	ErrStickyDisabled = errors.New("sticky proxy disabled by config")

	// ErrStickyUnbalanced 粘性代理销毁次数多于创建次数
	ErrStickyUnbalanced = errors.New("sticky proxy destroyed without create")

	// ErrNilDefaultStream 默认流工厂返回了 nil
	ErrNilDefaultStream = errors.New("default stream factory returned nil")

	// ErrNilImplementation 默认实现为 nil
	ErrNilImplementation = errors.New("default implementation is nil")
)
