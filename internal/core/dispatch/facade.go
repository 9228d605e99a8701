package dispatch

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dep2p/go-stream/internal/core/metrics"
	"github.com/dep2p/go-stream/internal/core/registry"
	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
)

// Options Facade 选项
type Options struct {
	// Capability 目标能力接口
	Capability *pkgif.Capability

	// Tag 路由标签，nil 只匹配 tag 为 nil 的流对象
	Tag any

	// Callback 分发回调，可选
	Callback pkgif.DispatchCallback

	// ResultFilter 返回值过滤，可选
	ResultFilter pkgif.ResultFilter

	// Sticky 是否记录无返回值方法的调用以便重放
	Sticky bool
}

// Invocation 一次代理方法调用
type Invocation struct {
	Method pkgif.Method
	Args   []any

	// Invoke 在单个流对象上执行调用
	Invoke pkgif.Invoker
}

// Facade 能力接口的分发入口
//
// 多个 Facade 可以同时指向同一能力接口。
type Facade struct {
	d      *Dispatcher
	opts   Options
	closed atomic.Bool
}

// Capability 返回目标能力接口
func (f *Facade) Capability() *pkgif.Capability {
	return f.opts.Capability
}

// Tag 返回路由标签
func (f *Facade) Tag() any {
	return f.opts.Tag
}

// Sticky 是否为粘性 Facade
func (f *Facade) Sticky() bool {
	return f.opts.Sticky
}

// Closed 是否已关闭
func (f *Facade) Closed() bool {
	return f.closed.Load()
}

// Close 关闭 Facade
//
// 粘性 Facade 关闭时释放粘性引用。重复关闭是空操作。
func (f *Facade) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	if f.opts.Sticky {
		return f.d.sticky.ProxyDestroyed(f.opts.Capability)
	}
	return nil
}

// Dispatch 执行一次分发
//
// 无返回值方法返回 nil；有返回值方法返回最后一个被调用流对象的结果，
// 设置了 ResultFilter 时返回过滤结果。没有任何流对象被调用时返回 nil。
func (f *Facade) Dispatch(inv Invocation) (any, error) {
	if f.closed.Load() {
		return nil, pkgif.ErrProxyClosed
	}
	if inv.Method.Name == pkgif.TagMethodName {
		return nil, pkgif.ErrTagMethod
	}
	if inv.Invoke == nil {
		return nil, fmt.Errorf("%w: %s", pkgif.ErrNilInvoker, inv.Method)
	}

	d := f.d
	c := f.opts.Capability
	name := c.Name()

	start := d.clock.Now()
	defer func() {
		d.metrics.ObserveDispatch(name, d.clock.Since(start))
	}()

	var trace string
	if d.debug {
		trace = uuid.NewString()
		logger.Debug("dispatch start",
			"trace", trace,
			"capability", name,
			"method", inv.Method.Name,
			"tag", f.opts.Tag)
	}

	streams := d.registry.Snapshot(c)
	usingDefault := false
	if len(streams) == 0 {
		s, err := d.defaults.Stream(c)
		if err != nil {
			return nil, err
		}
		if s == nil {
			if d.debug {
				logger.Debug("dispatch no stream", "trace", trace, "capability", name)
			}
			f.record(inv)
			return nil, nil
		}
		streams = []pkgif.Stream{s}
		usingDefault = true
		d.metrics.RecordDefaultStream(name)
	}

	cb := f.opts.Callback
	filter := f.opts.ResultFilter
	collect := filter != nil && !inv.Method.Void

	var (
		result  any
		results []any
	)
	for i, s := range streams {
		var conn *registry.Connection
		if !usingDefault {
			if conn = d.registry.Connection(s); conn == nil {
				d.staleSkipped(c, s)
				continue
			}
		}

		if s.StreamTag(c) != f.opts.Tag {
			d.metrics.RecordSkip(name, metrics.SkipTag)
			continue
		}

		if cb != nil && cb.BeforeDispatch(s, inv.Method, inv.Args) {
			d.metrics.RecordStop(name, metrics.StopBefore)
			if d.debug {
				logger.Debug("dispatch stopped before", "trace", trace, "index", i)
			}
			break
		}

		var (
			r      any
			broken bool
		)
		if usingDefault {
			r = inv.Invoke(s)
		} else {
			broken = conn.Session(c, func() {
				r = inv.Invoke(s)
			})
		}
		d.metrics.RecordInvocation(name)

		result = r
		if collect {
			results = append(results, r)
		}

		if d.debug {
			logger.Debug("dispatch invoked",
				"trace", trace,
				"index", i,
				"stream", fmt.Sprintf("%T", s),
				"default", usingDefault,
				"result", r,
				"break", broken)
		}

		if cb != nil && cb.AfterDispatch(s, inv.Method, inv.Args, r) {
			d.metrics.RecordStop(name, metrics.StopAfter)
			break
		}
		if broken {
			d.metrics.RecordStop(name, metrics.StopBreak)
			break
		}
	}

	if collect && len(results) > 0 {
		result = filter.Filter(inv.Method, inv.Args, results)
	}
	if inv.Method.Void {
		result = nil
	}

	f.record(inv)
	return result, nil
}

// record 粘性 Facade 记录无返回值方法的调用
func (f *Facade) record(inv Invocation) {
	if !f.opts.Sticky || !inv.Method.Void || len(inv.Args) == 0 {
		return
	}
	f.d.sticky.Record(f.opts.Capability, f.opts.Tag, inv.Method, inv.Args, inv.Invoke)
}
