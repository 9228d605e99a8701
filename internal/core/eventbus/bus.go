package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
	"github.com/dep2p/go-stream/pkg/lib/log"
)

var logger = log.Logger("core/eventbus")

// DefaultBufSize 订阅默认缓冲区大小
const DefaultBufSize = 16

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrClosed 事件总线已关闭
	ErrClosed = errors.New("eventbus closed")
	// ErrInvalidEventType 无效的事件类型
	ErrInvalidEventType = errors.New("invalid event type")
	// ErrNonPointerType 非指针类型
	ErrNonPointerType = errors.New("event type must be a pointer")
	// ErrEventMismatch 发射的事件与发射器类型不符
	ErrEventMismatch = errors.New("event does not match emitter type")
	// ErrEmitterClosed 发射器已关闭
	ErrEmitterClosed = errors.New("emitter closed")
)

// ============================================================================
// Bus 实现
// ============================================================================

// Bus 事件总线
type Bus struct {
	mu     sync.RWMutex
	nodes  map[reflect.Type]*node
	closed atomic.Bool
}

var _ pkgif.EventBus = (*Bus)(nil)

// node 一种事件类型的订阅者集合
type node struct {
	lk        sync.Mutex
	typ       reflect.Type
	sinks     []*Subscription
	nEmitters atomic.Int32

	dropped  atomic.Int64
	dropWarn *rate.Sometimes
}

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{
		nodes: make(map[reflect.Type]*node),
	}
}

// Subscribe 订阅事件
//
// eventType 为事件类型的指针，例如 new(pkgif.EvtStreamRegistered)。
func (b *Bus) Subscribe(eventType any, opts ...pkgif.SubscriptionOpt) (pkgif.Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	typ, err := elemType(eventType)
	if err != nil {
		return nil, err
	}

	settings := &pkgif.SubscriptionSettings{Buffer: DefaultBufSize}
	for _, opt := range opts {
		opt(settings)
	}
	if settings.Buffer < 0 {
		return nil, fmt.Errorf("negative buffer size %d", settings.Buffer)
	}

	sub := &Subscription{
		bus: b,
		typ: typ,
		out: make(chan any, settings.Buffer),
	}
	b.withNode(typ, func(n *node) {
		n.sinks = append(n.sinks, sub)
	})
	return sub, nil
}

// Emitter 获取发射器
func (b *Bus) Emitter(eventType any) (pkgif.Emitter, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	typ, err := elemType(eventType)
	if err != nil {
		return nil, err
	}

	var n *node
	b.withNode(typ, func(nd *node) {
		n = nd
		n.nEmitters.Add(1)
	})
	return &Emitter{bus: b, node: n, typ: typ}, nil
}

// Close 关闭总线，所有订阅的通道被关闭
func (b *Bus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.RLock()
	var subs []*Subscription
	for _, n := range b.nodes {
		n.lk.Lock()
		subs = append(subs, n.sinks...)
		n.lk.Unlock()
	}
	b.mu.RUnlock()

	for _, s := range subs {
		_ = s.Close()
	}
	return nil
}

// ============================================================================
// 内部方法
// ============================================================================

func elemType(eventType any) (reflect.Type, error) {
	if eventType == nil {
		return nil, ErrInvalidEventType
	}
	typ := reflect.TypeOf(eventType)
	if typ.Kind() != reflect.Ptr {
		return nil, fmt.Errorf("%w: %s", ErrNonPointerType, typ)
	}
	return typ.Elem(), nil
}

// withNode 在节点锁内执行 cb，节点不存在时创建
func (b *Bus) withNode(typ reflect.Type, cb func(*node)) {
	b.mu.Lock()
	n, ok := b.nodes[typ]
	if !ok {
		n = &node{
			typ:      typ,
			dropWarn: &rate.Sometimes{Interval: 10 * time.Second},
		}
		b.nodes[typ] = n
	}
	n.lk.Lock()
	b.mu.Unlock()

	defer n.lk.Unlock()
	cb(n)
}

// tryDropNode 没有订阅者和发射器时删除节点
func (b *Bus) tryDropNode(typ reflect.Type) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[typ]
	if !ok {
		return
	}
	n.lk.Lock()
	defer n.lk.Unlock()
	if len(n.sinks) > 0 || n.nEmitters.Load() > 0 {
		return
	}
	delete(b.nodes, typ)
}

// removeSub 移除订阅，返回是否移除成功
func (b *Bus) removeSub(sub *Subscription) bool {
	b.mu.RLock()
	n, ok := b.nodes[sub.typ]
	if !ok {
		b.mu.RUnlock()
		return false
	}
	n.lk.Lock()
	b.mu.RUnlock()

	removed := false
	for i, s := range n.sinks {
		if s == sub {
			n.sinks = append(n.sinks[:i], n.sinks[i+1:]...)
			removed = true
			break
		}
	}
	shouldDrop := len(n.sinks) == 0 && n.nEmitters.Load() == 0
	n.lk.Unlock()

	if shouldDrop {
		b.tryDropNode(sub.typ)
	}
	return removed
}

// emit 非阻塞发送到所有订阅者
func (n *node) emit(event any) {
	n.lk.Lock()
	defer n.lk.Unlock()

	for _, sub := range n.sinks {
		if !sub.offer(event) {
			dropped := n.dropped.Add(1)
			n.dropWarn.Do(func() {
				logger.Warn("slow subscriber, event dropped",
					"type", n.typ.String(),
					"dropped", dropped)
			})
		}
	}
}

// Dropped 返回事件类型 eventType 因缓冲区满被丢弃的事件数
func (b *Bus) Dropped(eventType any) int64 {
	typ, err := elemType(eventType)
	if err != nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n, ok := b.nodes[typ]; ok {
		return n.dropped.Load()
	}
	return 0
}
