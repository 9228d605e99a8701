// Package interfaces 定义 go-stream 的公共接口
//
// 本文件定义流接口（Stream）与能力接口描述（Capability）。
package interfaces

import (
	"fmt"
	"reflect"
	"sync"
)

// TagMethodName 流接口中保留的 tag 访问方法名
//
// 代理对象不允许转发该方法。
const TagMethodName = "StreamTag"

// Stream 流接口
//
// 所有能力接口都必须嵌入 Stream。流对象通过 StreamTag 返回自己在某个
// 能力接口上的路由标签，只有标签和代理对象标签相等的流对象才会被通知。
//
// 流对象的身份由 Go 的 == 决定，因此其动态类型必须可比较（通常是指针）。
type Stream interface {
	// StreamTag 返回流对象在 c 上的标签，nil 表示全局
	StreamTag(c *Capability) any
}

// Proxy 代理对象标记接口
//
// 代理对象实现了能力接口，但不能作为流对象注册。
type Proxy interface {
	Stream

	// ProxyCapability 返回代理对象绑定的能力接口
	ProxyCapability() *Capability
}

// ============================================================================
// Capability 能力接口描述
// ============================================================================

// Capability 能力接口描述
//
// 一个 Capability 对应一个嵌入了 Stream 的 Go 接口类型，是注册和分发的单位。
// 通过 Declare 获取，同一接口类型始终返回同一个 *Capability。
type Capability struct {
	typ           reflect.Type
	implementedBy func(v any) bool
}

// Name 返回能力接口名称
func (c *Capability) Name() string {
	if c == nil {
		return "<nil>"
	}
	return c.typ.String()
}

// String 实现 fmt.Stringer
func (c *Capability) String() string {
	return c.Name()
}

// Type 返回能力接口的类型
func (c *Capability) Type() reflect.Type {
	return c.typ
}

// ImplementedBy 检查 v 的动态类型是否实现了该能力接口
//
// v 可以是带类型的 nil 指针，此时按其动态类型判断。
func (c *Capability) ImplementedBy(v any) bool {
	if c == nil || v == nil {
		return false
	}
	return c.implementedBy(v)
}

// catalog 已声明的能力接口目录
//
// 目录只增不减：能力接口和类型一样是静态身份。
var catalog = struct {
	mu      sync.RWMutex
	byType  map[reflect.Type]*Capability
	ordered []*Capability
}{
	byType: make(map[reflect.Type]*Capability),
}

var streamType = reflect.TypeFor[Stream]()

// NewCapability 声明能力接口 T
//
// T 必须是接口类型，且不能是 Stream 本身。重复声明返回同一个实例。
func NewCapability[T Stream]() (*Capability, error) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Interface {
		return nil, fmt.Errorf("%w: %s", ErrNotInterface, typ)
	}
	if typ == streamType {
		return nil, fmt.Errorf("%w: %s", ErrMarkerCapability, typ)
	}

	catalog.mu.RLock()
	c, ok := catalog.byType[typ]
	catalog.mu.RUnlock()
	if ok {
		return c, nil
	}

	catalog.mu.Lock()
	defer catalog.mu.Unlock()

	if c, ok := catalog.byType[typ]; ok {
		return c, nil
	}

	c = &Capability{
		typ: typ,
		implementedBy: func(v any) bool {
			_, ok := v.(T)
			return ok
		},
	}
	catalog.byType[typ] = c
	catalog.ordered = append(catalog.ordered, c)
	return c, nil
}

// Declare 声明能力接口 T，失败时 panic
//
// 用于包级变量初始化：
//
//	var greeterCap = interfaces.Declare[Greeter]()
func Declare[T Stream]() *Capability {
	c, err := NewCapability[T]()
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup 返回已声明的能力接口 T，未声明时返回 nil
func Lookup[T Stream]() *Capability {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	return catalog.byType[reflect.TypeFor[T]()]
}

// IsDeclared 检查 c 是否已在目录中
func IsDeclared(c *Capability) bool {
	if c == nil {
		return false
	}
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	return catalog.byType[c.typ] == c
}

// Capabilities 返回所有已声明的能力接口（按声明顺序）
func Capabilities() []*Capability {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	out := make([]*Capability, len(catalog.ordered))
	copy(out, catalog.ordered)
	return out
}

// CapabilitiesOf 返回 v 实现的所有已声明能力接口
func CapabilitiesOf(v any) []*Capability {
	if v == nil {
		return nil
	}
	var out []*Capability
	for _, c := range Capabilities() {
		if c.ImplementedBy(v) {
			out = append(out, c)
		}
	}
	return out
}

// IsComparable 检查 v 能否作为 map 键或用 == 比较
func IsComparable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}
