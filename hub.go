package stream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-stream/config"
	"github.com/dep2p/go-stream/internal/core/defaults"
	"github.com/dep2p/go-stream/internal/core/dispatch"
	"github.com/dep2p/go-stream/internal/core/eventbus"
	"github.com/dep2p/go-stream/internal/core/registry"
	"github.com/dep2p/go-stream/internal/core/sticky"
	"github.com/dep2p/go-stream/pkg/lib/log"
)

var logger = log.Logger("stream")

// stopTimeout 关闭 Fx 应用的超时
const stopTimeout = 10 * time.Second

// Hub 分发中心
//
// 持有注册表、分发器、粘性缓存与默认流对象管理器。同一个 Hub 上创建的
// 代理对象只会分发给注册到该 Hub 的流对象。
type Hub struct {
	config   *config.Config
	app      *fx.App
	gatherer prometheus.Gatherer

	// 由 Fx 注入
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	sticky     *sticky.Cache
	defaults   *defaults.Manager
	bus        *eventbus.Bus

	mu      sync.Mutex
	facades map[*dispatch.Facade]struct{}
	closed  atomic.Bool
}

// New 创建并启动分发中心
//
// 示例：
//
//	hub, err := stream.New(ctx, stream.WithDebug(true))
//	if err != nil {
//	    return err
//	}
//	defer hub.Close()
func New(ctx context.Context, opts ...Option) (*Hub, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	hub := &Hub{
		config:  o.config,
		facades: make(map[*dispatch.Facade]struct{}),
	}

	app, err := buildFxApp(o, hub)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	hub.app = app
	hub.gatherer = o.gatherer

	if err := app.Start(ctx); err != nil {
		logger.Error("hub start failed", "error", err)
		return nil, fmt.Errorf("start hub: %w", err)
	}

	logger.Debug("hub started",
		"debug", o.config.Debug,
		"sticky", o.config.Sticky.Enabled,
		"factory", o.config.Defaults.Factory,
		"metrics", o.config.Metrics.Enabled)
	return hub, nil
}

// Close 关闭分发中心
//
// 关闭所有仍存活的代理对象，注销所有流对象。重复关闭是空操作。
func (h *Hub) Close() error {
	if h.closed.Swap(true) {
		return nil
	}

	h.mu.Lock()
	facades := make([]*dispatch.Facade, 0, len(h.facades))
	for f := range h.facades {
		facades = append(facades, f)
	}
	h.facades = make(map[*dispatch.Facade]struct{})
	h.mu.Unlock()

	var errs error
	for _, f := range facades {
		errs = multierr.Append(errs, f.Close())
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	errs = multierr.Append(errs, h.app.Stop(ctx))

	if errs != nil {
		logger.Warn("hub close", "error", errs)
	}
	return errs
}

// Closed 是否已关闭
func (h *Hub) Closed() bool {
	return h.closed.Load()
}

// Config 返回配置副本
func (h *Hub) Config() *config.Config {
	return h.config.Clone()
}

// Gatherer 返回指标采集器
//
// 使用 WithRegisterer 传入不可采集的 Registerer 时返回 nil。
func (h *Hub) Gatherer() prometheus.Gatherer {
	return h.gatherer
}

// ════════════════════════════════════════════════════════════════════════════
// 注册
// ════════════════════════════════════════════════════════════════════════════

// Register 注册流对象
//
// 流对象加入它实现的所有已声明能力接口。重复注册返回同一个 Connection。
func (h *Hub) Register(s Stream) (*Connection, error) {
	if h.closed.Load() {
		return nil, ErrHubClosed
	}
	return h.registry.Register(s)
}

// Unregister 注销流对象，未注册时返回 false
func (h *Hub) Unregister(s Stream) bool {
	return h.registry.Unregister(s)
}

// Connection 返回流对象的连接，未注册时返回 nil
func (h *Hub) Connection(s Stream) *Connection {
	return h.registry.Connection(s)
}

// Size 返回能力接口 c 上注册的流对象数量
func (h *Hub) Size(c *Capability) int {
	return h.registry.Size(c)
}

// Len 返回注册中的流对象数量
func (h *Hub) Len() int {
	return h.registry.Len()
}

// ════════════════════════════════════════════════════════════════════════════
// 粘性重放
// ════════════════════════════════════════════════════════════════════════════

// Replay 在 s 上重放能力接口 c 的粘性调用
//
// 返回是否有调用被重放。s 不需要已注册。
func (h *Hub) Replay(s Stream, c *Capability) (bool, error) {
	if h.closed.Load() {
		return false, ErrHubClosed
	}
	return h.sticky.Replay(s, c)
}

// ReplayAll 在 s 上重放它所有能力接口的粘性调用
//
// s 已注册时使用注册时的能力接口，否则使用 s 实现的所有已声明能力接口。
// 返回有调用被重放的能力接口数量。
func (h *Hub) ReplayAll(s Stream) (int, error) {
	if h.closed.Load() {
		return 0, ErrHubClosed
	}
	if s == nil {
		return 0, ErrNilStream
	}

	var caps []*Capability
	if conn := h.registry.Connection(s); conn != nil {
		caps = conn.Capabilities()
	} else {
		caps = CapabilitiesOf(s)
	}

	n := 0
	for _, c := range caps {
		replayed, err := h.sticky.Replay(s, c)
		if err != nil {
			return n, err
		}
		if replayed {
			n++
		}
	}
	return n, nil
}

// ════════════════════════════════════════════════════════════════════════════
// 默认流对象
// ════════════════════════════════════════════════════════════════════════════

// RegisterDefault 注册默认实现
//
// 不指定能力接口时作用于 impl 实现的所有已声明能力接口。
func (h *Hub) RegisterDefault(impl *Implementation, caps ...*Capability) error {
	return h.defaults.Register(impl, caps...)
}

// UnregisterDefault 注销默认实现
func (h *Hub) UnregisterDefault(impl *Implementation) bool {
	return h.defaults.Unregister(impl)
}

// SetDefaultFactory 替换默认流对象工厂，nil 恢复为按配置创建
func (h *Hub) SetDefaultFactory(f DefaultFactory) {
	h.defaults.SetFactory(f)
}

// ════════════════════════════════════════════════════════════════════════════
// 事件
// ════════════════════════════════════════════════════════════════════════════

// Subscribe 订阅分发中心事件
//
// eventType 为事件类型的指针：
//
//	sub, err := hub.Subscribe(new(stream.EvtStreamRegistered), stream.BufSize(64))
//	if err != nil {
//	    return err
//	}
//	defer sub.Close()
//	for evt := range sub.Out() {
//	    e := evt.(stream.EvtStreamRegistered)
//	    _ = hub.Connection(e.Stream)
//	}
//
// 事件不阻塞发送方，缓冲区满时被丢弃。Hub 关闭后所有订阅通道关闭。
func (h *Hub) Subscribe(eventType any, opts ...SubscriptionOpt) (Subscription, error) {
	if h.closed.Load() {
		return nil, ErrHubClosed
	}
	return h.bus.Subscribe(eventType, opts...)
}

// ════════════════════════════════════════════════════════════════════════════
// 代理对象跟踪
// ════════════════════════════════════════════════════════════════════════════

func (h *Hub) track(f *dispatch.Facade) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed.Load() {
		return false
	}
	h.facades[f] = struct{}{}
	return true
}

func (h *Hub) untrack(f *dispatch.Facade) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.facades, f)
}
