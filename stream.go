package stream

import (
	"github.com/dep2p/go-stream/internal/core/defaults"
	"github.com/dep2p/go-stream/internal/core/registry"
	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
)

// ════════════════════════════════════════════════════════════════════════════
// 类型别名
// ════════════════════════════════════════════════════════════════════════════

type (
	// Stream 流接口，所有能力接口都必须嵌入它
	Stream = pkgif.Stream

	// Capability 能力接口描述
	Capability = pkgif.Capability

	// Method 代理方法描述
	Method = pkgif.Method

	// DispatchCallback 分发回调
	DispatchCallback = pkgif.DispatchCallback

	// DispatchCallbackFuncs 函数形式的分发回调
	DispatchCallbackFuncs = pkgif.DispatchCallbackFuncs

	// ResultFilter 返回值过滤
	ResultFilter = pkgif.ResultFilter

	// ResultFilterFunc 函数形式的返回值过滤
	ResultFilterFunc = pkgif.ResultFilterFunc

	// DefaultFactory 默认流对象工厂
	DefaultFactory = pkgif.DefaultFactory

	// DefaultFactoryFunc 函数形式的默认流对象工厂
	DefaultFactoryFunc = pkgif.DefaultFactoryFunc

	// CreateParam 创建默认流对象的参数
	CreateParam = pkgif.CreateParam

	// Implementation 默认流实现
	Implementation = pkgif.Implementation

	// Connection 已注册流对象的连接，用于设置优先级和中断分发
	Connection = registry.Connection

	// Cache 默认流对象缓存
	Cache = defaults.Cache

	// Subscription 事件订阅
	Subscription = pkgif.Subscription

	// SubscriptionOpt 订阅选项
	SubscriptionOpt = pkgif.SubscriptionOpt

	// EvtStreamRegistered 流对象注册事件
	EvtStreamRegistered = pkgif.EvtStreamRegistered

	// EvtStreamUnregistered 流对象注销事件
	EvtStreamUnregistered = pkgif.EvtStreamUnregistered

	// EvtPriorityChanged 优先级变化事件
	EvtPriorityChanged = pkgif.EvtPriorityChanged

	// EvtStickyRecorded 粘性调用记录事件
	EvtStickyRecorded = pkgif.EvtStickyRecorded
)

// BufSize 设置订阅缓冲区大小
func BufSize(size int) SubscriptionOpt {
	return pkgif.BufSize(size)
}

// ════════════════════════════════════════════════════════════════════════════
// 能力接口
// ════════════════════════════════════════════════════════════════════════════

// Declare 声明能力接口 T，T 不是嵌入 Stream 的接口时 panic
//
// 流对象注册时只会加入已声明的能力接口，应在包初始化时声明：
//
//	type Greeter interface {
//	    stream.Stream
//	    Greet(name string) string
//	}
//
//	var GreeterCap = stream.Declare[Greeter]()
func Declare[T Stream]() *Capability {
	return pkgif.Declare[T]()
}

// NewCapability 声明能力接口 T，失败时返回错误
func NewCapability[T Stream]() (*Capability, error) {
	return pkgif.NewCapability[T]()
}

// Lookup 返回已声明的能力接口 T，未声明时返回 nil
func Lookup[T Stream]() *Capability {
	return pkgif.Lookup[T]()
}

// Capabilities 返回所有已声明的能力接口
func Capabilities() []*Capability {
	return pkgif.Capabilities()
}

// CapabilitiesOf 返回 v 实现的所有已声明能力接口
func CapabilitiesOf(v any) []*Capability {
	return pkgif.CapabilitiesOf(v)
}

// ════════════════════════════════════════════════════════════════════════════
// 默认流对象
// ════════════════════════════════════════════════════════════════════════════

// Implement 声明默认流实现
//
//	var defaultGreeter = stream.Implement(func() *greeter { return &greeter{} })
//	hub.RegisterDefault(defaultGreeter)
func Implement[X any, D interface {
	*X
	Stream
}](newFunc func() D) *Implementation {
	return pkgif.Implement[X, D](newFunc)
}

// NewSimpleFactory 每次创建新实例的工厂
func NewSimpleFactory() DefaultFactory {
	return defaults.NewSimpleFactory()
}

// NewWeakCacheFactory 弱引用缓存工厂
//
// 默认流对象在仍被使用时复用，不再被引用后可被 GC 回收。
func NewWeakCacheFactory() DefaultFactory {
	return defaults.NewWeakCacheFactory()
}

// NewLRUCacheFactory 容量为 size 的 LRU 缓存工厂
func NewLRUCacheFactory(size int) (DefaultFactory, error) {
	return defaults.NewLRUCacheFactory(size)
}

// NewCacheableFactory 使用自定义缓存的工厂
func NewCacheableFactory(cache Cache) DefaultFactory {
	return defaults.NewCacheableFactory(cache)
}
