package registry

import (
	"fmt"
	"sync/atomic"

	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
)

// item 流对象在单个能力接口上的状态
type item struct {
	priority atomic.Int64
	broken   atomic.Bool
}

// Connection 已注册流对象的连接
//
// 每个注册中的流对象对应一个 Connection，持有它在各能力接口上的优先级与
// 中断标记。流对象完全注销后 Connection 失效，Registry 不再返回它。
type Connection struct {
	registry *Registry
	stream   pkgif.Stream

	// items 注册时确定，之后只读
	items map[*pkgif.Capability]*item
	caps  []*pkgif.Capability
}

func newConnection(r *Registry, s pkgif.Stream, caps []*pkgif.Capability) *Connection {
	conn := &Connection{
		registry: r,
		stream:   s,
		items:    make(map[*pkgif.Capability]*item, len(caps)),
		caps:     caps,
	}
	for _, c := range caps {
		conn.items[c] = &item{}
	}
	return conn
}

// Stream 返回连接对应的流对象
func (conn *Connection) Stream() pkgif.Stream {
	return conn.stream
}

// Capabilities 返回流对象注册的所有能力接口
func (conn *Connection) Capabilities() []*pkgif.Capability {
	out := make([]*pkgif.Capability, len(conn.caps))
	copy(out, conn.caps)
	return out
}

// Priority 返回流对象在 c 上的优先级，未注册时为 0
func (conn *Connection) Priority(c *pkgif.Capability) int {
	it := conn.items[c]
	if it == nil {
		return 0
	}
	return int(it.priority.Load())
}

// SetPriority 设置优先级
//
// 不指定能力接口时作用于连接的所有能力接口。优先级越大越先被分发，
// 默认 0。流对象没有实现指定的能力接口时返回 ErrNotAssignable。
func (conn *Connection) SetPriority(p int, caps ...*pkgif.Capability) error {
	if len(caps) == 0 {
		caps = conn.caps
	}
	for _, c := range caps {
		if !c.ImplementedBy(conn.stream) {
			return fmt.Errorf("%w: %s from %T", pkgif.ErrNotAssignable, c, conn.stream)
		}
	}

	for _, c := range caps {
		it := conn.items[c]
		if it == nil {
			// 实现了但注册时尚未声明
			continue
		}
		if old := it.priority.Swap(int64(p)); old != int64(p) {
			conn.registry.priorityChanged(conn, c)
		}
	}
	return nil
}

// BreakDispatch 中断当前在 c 上进行中的分发
//
// 只能在流对象被分发的方法内调用才有效，当前流对象处理完后后续流对象不再被通知。
func (conn *Connection) BreakDispatch(c *pkgif.Capability) error {
	if !c.ImplementedBy(conn.stream) {
		return fmt.Errorf("%w: %s from %T", pkgif.ErrNotAssignable, c, conn.stream)
	}
	if it := conn.items[c]; it != nil {
		it.broken.Store(true)
	}
	return nil
}

// Session 在 c 的分发锁内执行 fn，返回 fn 执行期间是否请求了中断
//
// 不同 goroutine 在同一能力接口上的 Session 互斥，不同能力接口互不影响。
// 锁按 goroutine 可重入：fn 内可以再在同一能力接口上分发，内层分发有自己的
// 中断范围，结束后恢复外层的中断标记。
func (conn *Connection) Session(c *pkgif.Capability, fn func()) bool {
	it := conn.items[c]
	if it == nil {
		fn()
		return false
	}

	lock := conn.registry.dispatchLock(c)
	lock.Lock()
	defer lock.Unlock()

	outer := it.broken.Swap(false)
	if lock.Depth() == 1 {
		// 最外层，Session 之外设置的标记无效
		outer = false
	}
	defer func() {
		it.broken.Store(outer)
	}()

	fn()
	return it.broken.Load()
}
