package stream

import pkgif "github.com/dep2p/go-stream/pkg/interfaces"

// 公共错误定义
//
// 都是配置错误（调用方的 bug），用 errors.Is 判断。
var (
	// ────────────────────────────────────────────────────────────────────────
	// 能力接口与注册错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotInterface 能力接口不是接口类型
	ErrNotInterface = pkgif.ErrNotInterface

	// ErrMarkerCapability 不能把 Stream 本身作为能力接口
	ErrMarkerCapability = pkgif.ErrMarkerCapability

	// ErrUnknownCapability 能力接口未声明
	ErrUnknownCapability = pkgif.ErrUnknownCapability

	// ErrNilStream 流对象为 nil
	ErrNilStream = pkgif.ErrNilStream

	// ErrNoCapability 流对象没有实现任何已声明的能力接口
	ErrNoCapability = pkgif.ErrNoCapability

	// ErrNotComparable 流对象或 tag 不可比较
	ErrNotComparable = pkgif.ErrNotComparable

	// ErrProxyRegistration 代理对象不能注册为流对象
	ErrProxyRegistration = pkgif.ErrProxyRegistration

	// ErrNotAssignable 流对象没有实现指定的能力接口
	ErrNotAssignable = pkgif.ErrNotAssignable

	// ────────────────────────────────────────────────────────────────────────
	// 分发错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrTagMethod 代理对象不允许调用 StreamTag
	ErrTagMethod = pkgif.ErrTagMethod

	// ErrNilInvoker 分发调用缺少调用函数
	ErrNilInvoker = pkgif.ErrNilInvoker

	// ErrResultType 返回值类型不匹配
	ErrResultType = pkgif.ErrResultType

	// ErrProxyClosed 代理对象已关闭
	ErrProxyClosed = pkgif.ErrProxyClosed

	// ErrHubClosed 分发中心已关闭
	ErrHubClosed = pkgif.ErrHubClosed

	// ────────────────────────────────────────────────────────────────────────
	// 粘性与默认流错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrStickyDisabled 配置禁用了粘性代理
	ErrStickyDisabled = pkgif.ErrStickyDisabled

	// ErrStickyUnbalanced 粘性代理销毁次数多于创建次数
	ErrStickyUnbalanced = pkgif.ErrStickyUnbalanced

	// ErrNilDefaultStream 默认流工厂返回了 nil
	ErrNilDefaultStream = pkgif.ErrNilDefaultStream

	// ErrNilImplementation 默认实现为 nil
	ErrNilImplementation = pkgif.ErrNilImplementation
)
