package eventbus

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
)

// ============================================================================
//                              订阅端
// ============================================================================

// Subscription 一种事件类型的订阅
//
// 事件按发布顺序进入 Out，缓冲区满时新事件被丢弃并计入 Dropped，
// 不会阻塞注册表或粘性缓存的发布方。
type Subscription struct {
	bus *Bus
	typ reflect.Type
	out chan any

	// dropped 本订阅错过的事件数
	dropped atomic.Int64

	closeOnce sync.Once
}

var _ pkgif.Subscription = (*Subscription)(nil)

func (s *Subscription) Out() <-chan any {
	return s.out
}

// Dropped 返回因缓冲区满而错过的事件数
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// offer 非阻塞投递，返回是否投递成功
func (s *Subscription) offer(event any) bool {
	select {
	case s.out <- event:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Close 取消订阅并关闭 Out，可重复调用
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		// 先从节点移除，之后 offer 不会再写入 out
		s.bus.removeSub(s)
		close(s.out)
	})
	return nil
}

// ============================================================================
//                              发布端
// ============================================================================

// Emitter 一种事件类型的发射器
//
// 持有节点的引用计数，最后一个发射器关闭且没有订阅时节点被回收。
type Emitter struct {
	bus  *Bus
	node *node
	typ  reflect.Type

	closed    atomic.Bool
	closeOnce sync.Once
}

var _ pkgif.Emitter = (*Emitter)(nil)

// Emit 发射事件，event 的动态类型必须与发射器一致
func (e *Emitter) Emit(event any) error {
	if e.closed.Load() {
		return fmt.Errorf("%w: %s", ErrEmitterClosed, e.typ)
	}
	if t := reflect.TypeOf(event); t != e.typ {
		return fmt.Errorf("%w: got %v, want %s", ErrEventMismatch, t, e.typ)
	}
	e.node.emit(event)
	return nil
}

func (e *Emitter) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.node.nEmitters.Add(-1) == 0 {
			e.bus.tryDropNode(e.typ)
		}
	})
	return nil
}

// Publisher 类型化的事件发布者
//
// 注册表发布 EvtStreamRegistered/EvtStreamUnregistered/EvtPriorityChanged，
// 粘性缓存发布 EvtStickyRecorded。nil Publisher 的方法都是空操作，
// 没有配置事件总线的组件直接持有 nil。
type Publisher[E any] struct {
	em pkgif.Emitter
}

// NewPublisher 在 bus 上创建 E 的发布者，bus 为 nil 时返回 nil, nil
func NewPublisher[E any](bus pkgif.EventBus) (*Publisher[E], error) {
	if bus == nil {
		return nil, nil
	}
	em, err := bus.Emitter(new(E))
	if err != nil {
		return nil, fmt.Errorf("publisher %s: %w", reflect.TypeFor[E](), err)
	}
	return &Publisher[E]{em: em}, nil
}

// Publish 发布事件，失败只记录调试日志
func (p *Publisher[E]) Publish(evt E) {
	if p == nil {
		return
	}
	if err := p.em.Emit(evt); err != nil {
		logger.Debug("publish event failed", "type", reflect.TypeFor[E]().String(), "error", err)
	}
}

func (p *Publisher[E]) Close() error {
	if p == nil {
		return nil
	}
	return p.em.Close()
}
