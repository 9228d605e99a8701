package interfaces

// ============================================================================
// 事件总线
// ============================================================================

// EventBus 事件总线
//
// 事件按 Go 类型路由，Subscribe/Emitter 传入事件类型的指针，例如
// new(EvtStreamRegistered)。发送不阻塞，订阅者缓冲区满时事件被丢弃。
type EventBus interface {
	// Subscribe 订阅指定类型的事件
	Subscribe(eventType any, opts ...SubscriptionOpt) (Subscription, error)

	// Emitter 获取指定事件类型的发射器
	Emitter(eventType any) (Emitter, error)
}

// Subscription 事件订阅
type Subscription interface {
	// Out 返回接收事件的通道，Close 后通道关闭
	Out() <-chan any

	// Close 取消订阅
	Close() error
}

// Emitter 事件发射器
type Emitter interface {
	// Emit 发射事件
	Emit(event any) error

	// Close 关闭发射器
	Close() error
}

// SubscriptionOpt 订阅选项
type SubscriptionOpt func(*SubscriptionSettings)

// SubscriptionSettings 订阅设置
type SubscriptionSettings struct {
	Buffer int
}

// BufSize 设置订阅缓冲区大小
func BufSize(size int) SubscriptionOpt {
	return func(s *SubscriptionSettings) {
		s.Buffer = size
	}
}

// ============================================================================
// 事件类型
// ============================================================================

// EvtStreamRegistered 流对象注册
type EvtStreamRegistered struct {
	Stream       Stream
	Capabilities []*Capability
}

// EvtStreamUnregistered 流对象注销
type EvtStreamUnregistered struct {
	Stream       Stream
	Capabilities []*Capability
}

// EvtPriorityChanged 流对象在某个能力接口上的优先级变化
type EvtPriorityChanged struct {
	Stream     Stream
	Capability *Capability
	Priority   int
}

// EvtStickyRecorded 粘性调用被记录
type EvtStickyRecorded struct {
	Capability *Capability
	Tag        any
	Method     Method
}
