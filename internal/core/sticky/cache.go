package sticky

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dep2p/go-stream/internal/core/eventbus"
	"github.com/dep2p/go-stream/internal/core/metrics"
	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
	"github.com/dep2p/go-stream/pkg/lib/log"
)

var logger = log.Logger("core/sticky")

// ============================================================================
// Cache 实现
// ============================================================================

// call 一次被记录的方法调用
type call struct {
	method pkgif.Method
	args   []any
	invoke pkgif.Invoker
}

// key 记录键
type key struct {
	capability *pkgif.Capability
	tag        any
}

// record 同一 (能力接口, tag) 下的调用，按方法名覆盖
type record struct {
	calls []*call
	index map[string]int
}

// Cache 粘性调用缓存
//
// 粘性代理对无返回值方法的最近一次调用会被记录下来，新的流对象可以通过
// Replay 补收。记录只在至少一个粘性代理存活时保存，最后一个粘性代理关闭后清空。
type Cache struct {
	mu sync.Mutex

	// refs 每个能力接口上存活的粘性代理数量
	refs map[*pkgif.Capability]int

	records map[key]*record

	metrics *metrics.Recorder

	// recorded 发布 EvtStickyRecorded，可为 nil
	recorded *eventbus.Publisher[pkgif.EvtStickyRecorded]
}

// Option 缓存选项
type Option func(*Cache)

// WithEventBus 在 bus 上发布 EvtStickyRecorded
func WithEventBus(bus pkgif.EventBus) Option {
	return func(c *Cache) {
		p, err := eventbus.NewPublisher[pkgif.EvtStickyRecorded](bus)
		if err != nil {
			logger.Warn("create publisher failed", "error", err)
			return
		}
		c.recorded = p
	}
}

// NewCache 创建粘性缓存
func NewCache(rec *metrics.Recorder, opts ...Option) *Cache {
	c := &Cache{
		refs:    make(map[*pkgif.Capability]int),
		records: make(map[key]*record),
		metrics: rec,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close 关闭事件发布者
func (c *Cache) Close() error {
	return c.recorded.Close()
}

// ProxyCreated 粘性代理创建
func (c *Cache) ProxyCreated(capability *pkgif.Capability) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs[capability]++
}

// ProxyDestroyed 粘性代理销毁
//
// 计数归零时清空该能力接口的所有记录。没有对应的 ProxyCreated 时返回 ErrStickyUnbalanced。
func (c *Cache) ProxyDestroyed(capability *pkgif.Capability) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.refs[capability]
	if !ok || n <= 0 {
		return fmt.Errorf("%w: %s", pkgif.ErrStickyUnbalanced, capability)
	}
	if n > 1 {
		c.refs[capability] = n - 1
		return nil
	}

	delete(c.refs, capability)
	c.purgeLocked(capability)
	return nil
}

// Refs 返回能力接口上存活的粘性代理数量
func (c *Cache) Refs(capability *pkgif.Capability) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs[capability]
}

// Record 记录一次调用
//
// 只记录有参数的无返回值方法，同一方法名覆盖之前的记录。返回是否记录成功。
func (c *Cache) Record(capability *pkgif.Capability, tag any, m pkgif.Method, args []any, invoke pkgif.Invoker) bool {
	if !m.Void || len(args) == 0 || invoke == nil || !pkgif.IsComparable(tag) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refs[capability] <= 0 {
		return false
	}

	k := key{capability: capability, tag: tag}
	rec, ok := c.records[k]
	if !ok {
		rec = &record{index: make(map[string]int)}
		c.records[k] = rec
	}

	entry := &call{method: m, args: slices.Clone(args), invoke: invoke}
	if i, ok := rec.index[m.Name]; ok {
		rec.calls[i] = entry
	} else {
		rec.index[m.Name] = len(rec.calls)
		rec.calls = append(rec.calls, entry)
	}

	c.metrics.RecordStickyRecorded(capability.Name())
	c.recorded.Publish(pkgif.EvtStickyRecorded{Capability: capability, Tag: tag, Method: m})
	return true
}

// Replay 在流对象上重放记录的调用
//
// 按 (能力接口, 流对象的 tag) 查找记录，每条记录调用一次。
// 返回是否有调用被重放。调用在锁外执行，流对象方法内可以继续分发。
func (c *Cache) Replay(s pkgif.Stream, capability *pkgif.Capability) (bool, error) {
	if s == nil {
		return false, pkgif.ErrNilStream
	}
	if !capability.ImplementedBy(s) {
		return false, fmt.Errorf("%w: %s from %T", pkgif.ErrNotAssignable, capability, s)
	}

	tag := s.StreamTag(capability)
	if !pkgif.IsComparable(tag) {
		return false, nil
	}

	c.mu.Lock()
	rec, ok := c.records[key{capability: capability, tag: tag}]
	var calls []*call
	if ok {
		calls = slices.Clone(rec.calls)
	}
	c.mu.Unlock()

	if len(calls) == 0 {
		return false, nil
	}

	for _, cl := range calls {
		logger.Debug("replay sticky call",
			"capability", capability.Name(),
			"method", cl.method.Name,
			"stream", fmt.Sprintf("%T", s))
		cl.invoke(s)
	}
	c.metrics.RecordStickyReplayed(capability.Name(), len(calls))
	return true, nil
}

// Purge 清空能力接口的所有记录
func (c *Cache) Purge(capability *pkgif.Capability) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked(capability)
}

func (c *Cache) purgeLocked(capability *pkgif.Capability) {
	for k := range c.records {
		if k.capability == capability {
			delete(c.records, k)
		}
	}
}

// Len 返回记录的调用总数
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, rec := range c.records {
		n += len(rec.calls)
	}
	return n
}
