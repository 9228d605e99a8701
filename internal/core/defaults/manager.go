package defaults

import (
	"fmt"
	"sync"

	"github.com/dep2p/go-stream/config"
	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
	"github.com/dep2p/go-stream/pkg/lib/log"
)

var logger = log.Logger("core/defaults")

// Manager 默认流对象管理器
//
// 维护 能力接口 -> 默认实现 的映射，能力接口没有注册的流对象时由工厂创建默认流对象。
type Manager struct {
	mu sync.Mutex

	impls   map[*pkgif.Capability]*pkgif.Implementation
	factory pkgif.DefaultFactory

	// cfg 用于延迟创建工厂
	cfg config.DefaultsConfig
}

// NewManager 创建管理器
//
// 工厂在第一次需要默认流对象时按 cfg 创建，可以用 SetFactory 替换。
func NewManager(cfg config.DefaultsConfig) *Manager {
	return &Manager{
		impls: make(map[*pkgif.Capability]*pkgif.Implementation),
		cfg:   cfg,
	}
}

// Register 注册默认实现
//
// 不指定能力接口时映射 impl 实现的所有已声明能力接口。
func (m *Manager) Register(impl *pkgif.Implementation, caps ...*pkgif.Capability) error {
	if impl == nil {
		return pkgif.ErrNilImplementation
	}

	if len(caps) == 0 {
		caps = impl.Capabilities()
		if len(caps) == 0 {
			return fmt.Errorf("%w: %s", pkgif.ErrNoCapability, impl)
		}
	}
	for _, c := range caps {
		if !pkgif.IsDeclared(c) {
			return fmt.Errorf("%w: %s", pkgif.ErrUnknownCapability, c)
		}
		if !impl.Implements(c) {
			return fmt.Errorf("%w: %s from %s", pkgif.ErrNotAssignable, c, impl)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range caps {
		m.impls[c] = impl
		logger.Debug("register default", "capability", c.Name(), "impl", impl.Name())
	}
	return nil
}

// Unregister 注销默认实现的所有映射，返回是否有映射被移除
func (m *Manager) Unregister(impl *pkgif.Implementation) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := false
	for c, i := range m.impls {
		if i == impl {
			delete(m.impls, c)
			removed = true
		}
	}
	return removed
}

// Implementation 返回能力接口的默认实现
func (m *Manager) Implementation(c *pkgif.Capability) *pkgif.Implementation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.impls[c]
}

// SetFactory 设置工厂，nil 恢复为按配置创建
func (m *Manager) SetFactory(f pkgif.DefaultFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factory = f
}

// Factory 返回当前工厂，尚未创建时按配置创建
func (m *Manager) Factory() (pkgif.DefaultFactory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.factoryLocked()
}

func (m *Manager) factoryLocked() (pkgif.DefaultFactory, error) {
	if m.factory != nil {
		return m.factory, nil
	}
	f, err := NewFactory(m.cfg)
	if err != nil {
		return nil, err
	}
	m.factory = f
	return f, nil
}

// Stream 返回能力接口 c 的默认流对象
//
// 没有注册默认实现时返回 nil, nil。工厂返回 nil 时返回 ErrNilDefaultStream。
// 工厂在锁外调用，Create 内可以再访问 Manager。
func (m *Manager) Stream(c *pkgif.Capability) (pkgif.Stream, error) {
	m.mu.Lock()
	impl, ok := m.impls[c]
	if !ok {
		m.mu.Unlock()
		return nil, nil
	}
	f, err := m.factoryLocked()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s := f.Create(pkgif.CreateParam{Capability: c, Implementation: impl})
	if s == nil {
		return nil, fmt.Errorf("%w: %s for %s", pkgif.ErrNilDefaultStream, impl, c)
	}
	if !c.ImplementedBy(s) {
		return nil, fmt.Errorf("%w: %s from %T", pkgif.ErrNotAssignable, c, s)
	}
	return s, nil
}
