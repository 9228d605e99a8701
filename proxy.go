package stream

import (
	"fmt"

	"github.com/dep2p/go-stream/internal/core/dispatch"
	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
)

// ════════════════════════════════════════════════════════════════════════════
// Proxy 代理对象
// ════════════════════════════════════════════════════════════════════════════

// Proxy 能力接口 T 的代理对象
//
// Proxy 本身不实现 T。使用方定义一个嵌入 *Proxy[T] 的类型，每个方法调用一次
// Call 或 Notify：
//
//	type greeterProxy struct {
//	    *stream.Proxy[Greeter]
//	}
//
//	func (p greeterProxy) Greet(name string) string {
//	    return stream.Call(p.Proxy, "Greet", func(g Greeter) string {
//	        return g.Greet(name)
//	    }, name)
//	}
//
// 嵌入 Proxy 的类型不能注册为流对象。
type Proxy[T Stream] struct {
	hub    *Hub
	facade *dispatch.Facade
}

// ProxyOption 代理对象选项
type ProxyOption func(*proxyOptions)

type proxyOptions struct {
	tag       any
	callbacks []DispatchCallback
	filter    ResultFilter
	sticky    bool
}

// WithTag 设置路由标签
//
// 只有 StreamTag 返回值与之相等的流对象会被通知，nil 只匹配 nil。
// tag 必须可比较。
func WithTag(tag any) ProxyOption {
	return func(o *proxyOptions) {
		o.tag = tag
	}
}

// WithBefore 设置分发前回调，返回 true 停止分发
func WithBefore(fn func(s Stream, m Method, args []any) bool) ProxyOption {
	return func(o *proxyOptions) {
		if fn != nil {
			o.callbacks = append(o.callbacks, DispatchCallbackFuncs{Before: fn})
		}
	}
}

// WithAfter 设置分发后回调，返回 true 停止分发
func WithAfter(fn func(s Stream, m Method, args []any, result any) bool) ProxyOption {
	return func(o *proxyOptions) {
		if fn != nil {
			o.callbacks = append(o.callbacks, DispatchCallbackFuncs{After: fn})
		}
	}
}

// WithDispatchCallback 设置分发回调
//
// 可以与 WithBefore/WithAfter 同时使用，按设置顺序调用，任一返回 true 即停止。
func WithDispatchCallback(cb DispatchCallback) ProxyOption {
	return func(o *proxyOptions) {
		if cb != nil {
			o.callbacks = append(o.callbacks, cb)
		}
	}
}

// WithResultFilter 设置返回值过滤
func WithResultFilter(f ResultFilter) ProxyOption {
	return func(o *proxyOptions) {
		o.filter = f
	}
}

// WithSticky 设置为粘性代理
//
// 粘性代理上有参数的无返回值方法调用会被记录，新流对象可通过 Hub.Replay 补收。
func WithSticky() ProxyOption {
	return func(o *proxyOptions) {
		o.sticky = true
	}
}

// callbackChain 多个回调按顺序组合
type callbackChain []DispatchCallback

func (c callbackChain) BeforeDispatch(s Stream, m Method, args []any) bool {
	for _, cb := range c {
		if cb.BeforeDispatch(s, m, args) {
			return true
		}
	}
	return false
}

func (c callbackChain) AfterDispatch(s Stream, m Method, args []any, result any) bool {
	for _, cb := range c {
		if cb.AfterDispatch(s, m, args, result) {
			return true
		}
	}
	return false
}

// NewProxy 在 hub 上创建能力接口 T 的代理对象
//
// T 会被自动声明；已注册的流对象只会加入注册时已声明的能力接口，
// 因此能力接口应在注册流对象之前用 Declare 声明。
func NewProxy[T Stream](h *Hub, opts ...ProxyOption) (*Proxy[T], error) {
	if h == nil || h.closed.Load() {
		return nil, ErrHubClosed
	}

	c, err := pkgif.NewCapability[T]()
	if err != nil {
		return nil, err
	}

	po := &proxyOptions{}
	for _, opt := range opts {
		opt(po)
	}

	var cb DispatchCallback
	switch len(po.callbacks) {
	case 0:
	case 1:
		cb = po.callbacks[0]
	default:
		cb = callbackChain(po.callbacks)
	}

	facade, err := h.dispatcher.NewFacade(dispatch.Options{
		Capability:   c,
		Tag:          po.tag,
		Callback:     cb,
		ResultFilter: po.filter,
		Sticky:       po.sticky,
	})
	if err != nil {
		return nil, err
	}
	if !h.track(facade) {
		_ = facade.Close()
		return nil, ErrHubClosed
	}
	return &Proxy[T]{hub: h, facade: facade}, nil
}

// MustProxy 同 NewProxy，失败时 panic
func MustProxy[T Stream](h *Hub, opts ...ProxyOption) *Proxy[T] {
	p, err := NewProxy[T](h, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// StreamTag 代理对象不允许调用 StreamTag
func (p *Proxy[T]) StreamTag(*Capability) any {
	panic(ErrTagMethod)
}

// ProxyCapability 返回代理的能力接口
func (p *Proxy[T]) ProxyCapability() *Capability {
	return p.facade.Capability()
}

// Tag 返回路由标签
func (p *Proxy[T]) Tag() any {
	return p.facade.Tag()
}

// Sticky 是否为粘性代理
func (p *Proxy[T]) Sticky() bool {
	return p.facade.Sticky()
}

// Close 关闭代理对象
//
// 粘性代理关闭时释放粘性引用，最后一个粘性代理关闭后记录被清空。
func (p *Proxy[T]) Close() error {
	p.hub.untrack(p.facade)
	return p.facade.Close()
}

// ════════════════════════════════════════════════════════════════════════════
// 类型化分发
// ════════════════════════════════════════════════════════════════════════════

// Dispatch 在代理对象上分发有返回值的方法
//
// fn 对每个匹配的流对象调用一次。没有流对象被调用时返回 R 的零值。
// 设置了 ResultFilter 时其返回值必须是 R 或 nil，否则返回 ErrResultType。
func Dispatch[T Stream, R any](p *Proxy[T], name string, fn func(T) R, args ...any) (R, error) {
	var zero R
	res, err := p.facade.Dispatch(dispatch.Invocation{
		Method: Method{Name: name},
		Args:   args,
		Invoke: func(s Stream) any {
			return fn(s.(T))
		},
	})
	if err != nil || res == nil {
		return zero, err
	}
	r, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T, want %T", ErrResultType, name, res, zero)
	}
	return r, nil
}

// DispatchVoid 在代理对象上分发无返回值的方法
func DispatchVoid[T Stream](p *Proxy[T], name string, fn func(T), args ...any) error {
	_, err := p.facade.Dispatch(dispatch.Invocation{
		Method: Method{Name: name, Void: true},
		Args:   args,
		Invoke: func(s Stream) any {
			fn(s.(T))
			return nil
		},
	})
	return err
}

// Call 同 Dispatch，出错时 panic
//
// 用于实现能力接口的方法，分发错误都是配置错误。
func Call[T Stream, R any](p *Proxy[T], name string, fn func(T) R, args ...any) R {
	r, err := Dispatch(p, name, fn, args...)
	if err != nil {
		panic(err)
	}
	return r
}

// Notify 同 DispatchVoid，出错时 panic
func Notify[T Stream](p *Proxy[T], name string, fn func(T), args ...any) {
	if err := DispatchVoid(p, name, fn, args...); err != nil {
		panic(err)
	}
}

// FilterFunc 类型化的返回值过滤
//
// results 中的 nil 转换为 R 的零值。
func FilterFunc[R any](fn func(m Method, results []R) R) ResultFilter {
	return ResultFilterFunc(func(m Method, _ []any, results []any) any {
		typed := make([]R, len(results))
		for i, r := range results {
			if v, ok := r.(R); ok {
				typed[i] = v
			}
		}
		return fn(m, typed)
	})
}
