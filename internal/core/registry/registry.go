package registry

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/dep2p/go-stream/internal/core/eventbus"
	"github.com/dep2p/go-stream/internal/core/metrics"
	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
	"github.com/dep2p/go-stream/pkg/lib/log"
)

var logger = log.Logger("core/registry")

// ============================================================================
// Registry 实现
// ============================================================================

// Registry 流对象注册表
//
// 按能力接口维护有序的流对象集合，并为每个注册中的流对象维护 Connection。
type Registry struct {
	mu sync.RWMutex

	// holders 能力接口 -> 有序集合，集合为空时移除
	holders map[*pkgif.Capability]*holder

	// connections 流对象 -> 连接
	connections map[pkgif.Stream]*Connection

	locksMu sync.Mutex
	locks   map[*pkgif.Capability]*dispatchMutex

	metrics *metrics.Recorder
	debug   bool

	// 事件发布者，未设置事件总线时为 nil
	bus          pkgif.EventBus
	onRegister   *eventbus.Publisher[pkgif.EvtStreamRegistered]
	onUnregister *eventbus.Publisher[pkgif.EvtStreamUnregistered]
	onPriority   *eventbus.Publisher[pkgif.EvtPriorityChanged]
}

// Option 注册表选项
type Option func(*Registry)

// WithMetrics 设置指标记录器
func WithMetrics(rec *metrics.Recorder) Option {
	return func(r *Registry) {
		r.metrics = rec
	}
}

// WithDebug 开启注册/注销与排序的调试日志
func WithDebug(debug bool) Option {
	return func(r *Registry) {
		r.debug = debug
	}
}

// WithEventBus 在 bus 上发布注册、注销与优先级变化事件
func WithEventBus(bus pkgif.EventBus) Option {
	return func(r *Registry) {
		r.bus = bus
	}
}

// New 创建注册表
func New(opts ...Option) *Registry {
	r := &Registry{
		holders:     make(map[*pkgif.Capability]*holder),
		connections: make(map[pkgif.Stream]*Connection),
		locks:       make(map[*pkgif.Capability]*dispatchMutex),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.onRegister = newPublisher[pkgif.EvtStreamRegistered](r.bus)
	r.onUnregister = newPublisher[pkgif.EvtStreamUnregistered](r.bus)
	r.onPriority = newPublisher[pkgif.EvtPriorityChanged](r.bus)
	return r
}

// newPublisher 创建发布者，失败时不发布该类事件
func newPublisher[E any](bus pkgif.EventBus) *eventbus.Publisher[E] {
	p, err := eventbus.NewPublisher[E](bus)
	if err != nil {
		logger.Warn("create publisher failed", "error", err)
		return nil
	}
	return p
}

// Close 关闭事件发布者
func (r *Registry) Close() error {
	return multierr.Combine(
		r.onRegister.Close(),
		r.onUnregister.Close(),
		r.onPriority.Close(),
	)
}

// Register 注册流对象
//
// 流对象会加入它实现的所有已声明能力接口。重复注册返回已有的 Connection。
func (r *Registry) Register(s pkgif.Stream) (*Connection, error) {
	if s == nil {
		return nil, pkgif.ErrNilStream
	}
	if _, ok := s.(pkgif.Proxy); ok {
		return nil, fmt.Errorf("%w: %T", pkgif.ErrProxyRegistration, s)
	}
	if !pkgif.IsComparable(s) {
		return nil, fmt.Errorf("%w: stream %T", pkgif.ErrNotComparable, s)
	}

	caps := pkgif.CapabilitiesOf(s)
	if len(caps) == 0 {
		return nil, fmt.Errorf("%w: %T", pkgif.ErrNoCapability, s)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.connections[s]; ok {
		return conn, nil
	}

	conn := newConnection(r, s, caps)
	r.connections[s] = conn
	for _, c := range caps {
		h, ok := r.holders[c]
		if !ok {
			h = newHolder(c)
			r.holders[c] = h
		}
		h.add(s)
		r.metrics.SetStreams(c.Name(), h.len())

		if r.debug {
			logger.Debug("+++++ register", "capability", c.Name(), "stream", fmt.Sprintf("%T", s), "count", h.len())
		}
	}
	r.onRegister.Publish(pkgif.EvtStreamRegistered{Stream: s, Capabilities: conn.Capabilities()})
	return conn, nil
}

// Unregister 注销流对象
//
// 流对象从所有能力接口中移除，其 Connection 失效。未注册时返回 false。
func (r *Registry) Unregister(s pkgif.Stream) bool {
	if s == nil || !pkgif.IsComparable(s) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.unregisterLocked(s)
}

func (r *Registry) unregisterLocked(s pkgif.Stream) bool {
	conn, ok := r.connections[s]
	if !ok {
		return false
	}
	delete(r.connections, s)

	for _, c := range conn.caps {
		h, ok := r.holders[c]
		if !ok {
			continue
		}
		h.remove(s)
		if h.empty() {
			delete(r.holders, c)
		}
		r.metrics.SetStreams(c.Name(), h.len())

		if r.debug {
			logger.Debug("----- unregister", "capability", c.Name(), "stream", fmt.Sprintf("%T", s), "count", h.len())
		}
	}
	r.onUnregister.Publish(pkgif.EvtStreamUnregistered{Stream: s, Capabilities: conn.Capabilities()})
	return true
}

// Connection 返回流对象的连接，未注册时返回 nil
func (r *Registry) Connection(s pkgif.Stream) *Connection {
	if s == nil || !pkgif.IsComparable(s) {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connections[s]
}

// Snapshot 返回能力接口 c 当前的分发顺序
//
// 返回的是副本，分发过程中的注册/注销不影响本次遍历。
func (r *Registry) Snapshot(c *pkgif.Capability) []pkgif.Stream {
	r.mu.RLock()
	h, ok := r.holders[c]
	if !ok {
		r.mu.RUnlock()
		return nil
	}
	if !h.needsSort() {
		out := h.snapshot()
		r.mu.RUnlock()
		return out
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// 升级锁期间可能已被注销
	h, ok = r.holders[c]
	if !ok {
		return nil
	}
	if h.sort() && r.debug {
		logger.Debug("sort streams", "capability", c.Name(), "count", h.len())
	}
	return h.snapshot()
}

// Size 返回能力接口 c 上注册的流对象数量
func (r *Registry) Size(c *pkgif.Capability) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.holders[c]; ok {
		return h.len()
	}
	return 0
}

// Capabilities 返回当前至少有一个流对象的能力接口（按名称排序）
func (r *Registry) Capabilities() []*pkgif.Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*pkgif.Capability, 0, len(r.holders))
	for c := range r.holders {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *pkgif.Capability) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return out
}

// Len 返回注册中的流对象数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// Reset 注销所有流对象
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for s := range r.connections {
		r.unregisterLocked(s)
	}
}

// priorityChanged 优先级变化时标记集合需要重排
func (r *Registry) priorityChanged(conn *Connection, c *pkgif.Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 连接已失效
	if r.connections[conn.stream] != conn {
		return
	}
	// 并发的 SetPriority 可能乱序到达，以最后写入的值为准
	p := conn.Priority(c)
	if h, ok := r.holders[c]; ok {
		h.setPriority(conn.stream, p)
	}
	if r.debug {
		logger.Debug("priority changed", "capability", c.Name(), "stream", fmt.Sprintf("%T", conn.stream), "priority", p)
	}
	r.onPriority.Publish(pkgif.EvtPriorityChanged{Stream: conn.stream, Capability: c, Priority: p})
}

// dispatchLock 返回能力接口 c 的分发锁
func (r *Registry) dispatchLock(c *pkgif.Capability) *dispatchMutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()

	l, ok := r.locks[c]
	if !ok {
		l = newDispatchMutex()
		r.locks[c] = l
	}
	return l
}
