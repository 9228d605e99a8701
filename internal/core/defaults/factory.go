package defaults

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-stream/config"
	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
)

// ============================================================================
// 工厂
// ============================================================================

// SimpleFactory 每次都创建新的流对象
type SimpleFactory struct{}

// NewSimpleFactory 创建 SimpleFactory
func NewSimpleFactory() *SimpleFactory {
	return &SimpleFactory{}
}

// Create 实现 DefaultFactory
func (*SimpleFactory) Create(param pkgif.CreateParam) pkgif.Stream {
	if param.Implementation == nil {
		return nil
	}
	return param.Implementation.New()
}

// Cache 默认流对象缓存
//
// 以默认实现为键，同一实现在不同能力接口间共享实例。
type Cache interface {
	// Get 返回缓存的流对象，不存在或已回收时返回 nil
	Get(impl *pkgif.Implementation) pkgif.Stream

	// Set 缓存流对象
	Set(impl *pkgif.Implementation, s pkgif.Stream)
}

// CacheableFactory 带缓存的工厂
//
// 命中缓存时直接返回，否则创建新实例并写入缓存。
type CacheableFactory struct {
	mu    sync.Mutex
	cache Cache
}

// NewCacheableFactory 创建带缓存的工厂
func NewCacheableFactory(cache Cache) *CacheableFactory {
	return &CacheableFactory{cache: cache}
}

// NewWeakCacheFactory 创建弱引用缓存工厂
func NewWeakCacheFactory() *CacheableFactory {
	return NewCacheableFactory(NewWeakCache())
}

// NewLRUCacheFactory 创建容量为 size 的 LRU 缓存工厂
func NewLRUCacheFactory(size int) (*CacheableFactory, error) {
	cache, err := NewLRUCache(size)
	if err != nil {
		return nil, err
	}
	return NewCacheableFactory(cache), nil
}

// Create 实现 DefaultFactory
func (f *CacheableFactory) Create(param pkgif.CreateParam) pkgif.Stream {
	impl := param.Implementation
	if impl == nil {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if s := f.cache.Get(impl); s != nil {
		return s
	}
	s := impl.New()
	if s == nil {
		return nil
	}
	f.cache.Set(impl, s)
	return s
}

// Cache 返回底层缓存
func (f *CacheableFactory) Cache() Cache {
	return f.cache
}

// NewFactory 按配置的类型创建工厂
func NewFactory(cfg config.DefaultsConfig) (pkgif.DefaultFactory, error) {
	switch cfg.Factory {
	case config.FactorySimple:
		return NewSimpleFactory(), nil
	case config.FactoryWeak, "":
		return NewWeakCacheFactory(), nil
	case config.FactoryLRU:
		return NewLRUCacheFactory(cfg.LRUSize)
	default:
		return nil, fmt.Errorf("unknown default factory %q", cfg.Factory)
	}
}

// ============================================================================
// WeakCache 弱引用缓存
// ============================================================================

// WeakCache 弱引用缓存
//
// 缓存不持有流对象的强引用，流对象不再被使用后会被 GC 回收。回收通知
// 进入待清理队列，在下一次 Set 时统一清除；Get 遇到已回收的条目按未命中处理。
type WeakCache struct {
	mu   sync.Mutex
	refs map[*pkgif.Implementation]pkgif.WeakRef

	// pending 已回收的实现，由 runtime cleanup 协程写入
	pendingMu sync.Mutex
	pending   []*pkgif.Implementation
}

// NewWeakCache 创建弱引用缓存
func NewWeakCache() *WeakCache {
	return &WeakCache{
		refs: make(map[*pkgif.Implementation]pkgif.WeakRef),
	}
}

// Get 实现 Cache
func (c *WeakCache) Get(impl *pkgif.Implementation) pkgif.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()

	ref, ok := c.refs[impl]
	if !ok {
		return nil
	}
	s := ref.Value()
	if s == nil {
		delete(c.refs, impl)
	}
	return s
}

// Set 实现 Cache
//
// s 不是 impl 的实例时不缓存。
func (c *WeakCache) Set(impl *pkgif.Implementation, s pkgif.Stream) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked()

	ref, ok := impl.WeakRef(s, func() { c.enqueue(impl) })
	if !ok {
		return
	}
	c.refs[impl] = ref
}

// Len 返回缓存条目数（包括尚未清理的已回收条目）
func (c *WeakCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.refs)
}

func (c *WeakCache) enqueue(impl *pkgif.Implementation) {
	c.pendingMu.Lock()
	c.pending = append(c.pending, impl)
	c.pendingMu.Unlock()
}

// sweepLocked 清除已回收的条目
func (c *WeakCache) sweepLocked() {
	c.pendingMu.Lock()
	pending := c.pending
	c.pending = nil
	c.pendingMu.Unlock()

	for _, impl := range pending {
		// 条目可能已被新实例替换
		if ref, ok := c.refs[impl]; ok && ref.Value() == nil {
			delete(c.refs, impl)
		}
	}
}

// ============================================================================
// LRUCache 有界强引用缓存
// ============================================================================

// LRUCache 基于 golang-lru 的有界缓存
//
// 持有强引用，超出容量时淘汰最久未使用的实例。
type LRUCache struct {
	cache *lru.Cache[*pkgif.Implementation, pkgif.Stream]
}

// NewLRUCache 创建容量为 size 的 LRU 缓存
func NewLRUCache(size int) (*LRUCache, error) {
	cache, err := lru.New[*pkgif.Implementation, pkgif.Stream](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRUCache{cache: cache}, nil
}

// Get 实现 Cache
func (c *LRUCache) Get(impl *pkgif.Implementation) pkgif.Stream {
	s, ok := c.cache.Get(impl)
	if !ok {
		return nil
	}
	return s
}

// Set 实现 Cache
func (c *LRUCache) Set(impl *pkgif.Implementation, s pkgif.Stream) {
	c.cache.Add(impl, s)
}

// Len 返回缓存条目数
func (c *LRUCache) Len() int {
	return c.cache.Len()
}
