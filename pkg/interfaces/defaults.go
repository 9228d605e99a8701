// Package interfaces 定义 go-stream 的公共接口
//
// 本文件定义默认流对象相关接口。
package interfaces

import (
	"fmt"
	"runtime"
	"weak"
)

// DefaultFactory 默认流对象工厂
//
// 当某个能力接口没有已注册的流对象时，分发器通过工厂创建默认流对象。
// 工厂不允许返回 nil。
type DefaultFactory interface {
	// Create 创建流对象
	Create(param CreateParam) Stream
}

// DefaultFactoryFunc 函数形式的 DefaultFactory
type DefaultFactoryFunc func(param CreateParam) Stream

// Create 实现 DefaultFactory
func (f DefaultFactoryFunc) Create(param CreateParam) Stream {
	return f(param)
}

// CreateParam 创建默认流对象的参数
type CreateParam struct {
	// Capability 需要默认流对象的能力接口
	Capability *Capability

	// Implementation 注册的默认实现
	Implementation *Implementation
}

// WeakRef 默认流对象的弱引用
type WeakRef struct {
	// Value 返回流对象，已被回收时返回 nil
	Value func() Stream
}

// ============================================================================
// Implementation 默认实现
// ============================================================================

// Implementation 默认流实现
//
// 通过 Implement 声明，持有构造函数和用于能力发现的类型化零值。
type Implementation struct {
	name    string
	newFunc func() Stream
	zero    any
	weakRef func(s Stream, onReclaim func()) (WeakRef, bool)
}

// Implement 声明默认流实现
//
// newFunc 返回指针类型的流对象，以便默认工厂按弱引用缓存：
//
//	var defaultGreeter = interfaces.Implement(func() *greeter { return &greeter{} })
func Implement[X any, D interface {
	*X
	Stream
}](newFunc func() D) *Implementation {
	var zero D
	return &Implementation{
		name: fmt.Sprintf("%T", zero),
		newFunc: func() Stream {
			d := newFunc()
			if (*X)(d) == nil {
				return nil
			}
			return d
		},
		zero: zero,
		weakRef: func(s Stream, onReclaim func()) (WeakRef, bool) {
			d, ok := s.(D)
			if !ok || (*X)(d) == nil {
				return WeakRef{}, false
			}
			p := (*X)(d)
			wp := weak.Make(p)
			if onReclaim != nil {
				runtime.AddCleanup(p, func(fn func()) { fn() }, onReclaim)
			}
			return WeakRef{
				Value: func() Stream {
					if v := wp.Value(); v != nil {
						return D(v)
					}
					return nil
				},
			}, true
		},
	}
}

// Name 返回实现类型名称
func (i *Implementation) Name() string {
	return i.name
}

// String 实现 fmt.Stringer
func (i *Implementation) String() string {
	return i.name
}

// New 创建新的流对象
func (i *Implementation) New() Stream {
	return i.newFunc()
}

// Implements 检查实现是否满足能力接口 c
func (i *Implementation) Implements(c *Capability) bool {
	return c.ImplementedBy(i.zero)
}

// Capabilities 返回实现满足的所有已声明能力接口
func (i *Implementation) Capabilities() []*Capability {
	return CapabilitiesOf(i.zero)
}

// WeakRef 为 s 创建弱引用
//
// s 被回收后 onReclaim 会在运行时的清理协程中被调用（可能延迟）。
// s 不是该实现的实例时返回 false。
func (i *Implementation) WeakRef(s Stream, onReclaim func()) (WeakRef, bool) {
	return i.weakRef(s, onReclaim)
}
