package dispatch

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-stream/config"
	"github.com/dep2p/go-stream/internal/core/defaults"
	"github.com/dep2p/go-stream/internal/core/metrics"
	"github.com/dep2p/go-stream/internal/core/registry"
	"github.com/dep2p/go-stream/internal/core/sticky"
	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
	"github.com/dep2p/go-stream/pkg/lib/log"
)

var logger = log.Logger("core/dispatch")

// ============================================================================
// Dispatcher 实现
// ============================================================================

// Dispatcher 分发器
//
// 为能力接口创建 Facade，Facade 上的每次方法调用按注册表快照扇出到匹配的流对象。
type Dispatcher struct {
	registry *registry.Registry
	sticky   *sticky.Cache
	defaults *defaults.Manager
	metrics  *metrics.Recorder
	clock    clock.Clock

	debug         bool
	stickyEnabled bool

	// staleLog 限制过期连接告警的频率
	staleLog *rate.Sometimes
}

// Deps 分发器依赖
type Deps struct {
	Registry *registry.Registry
	Sticky   *sticky.Cache
	Defaults *defaults.Manager
	Metrics  *metrics.Recorder
	Clock    clock.Clock
}

// New 创建分发器
//
// Registry 必须提供，其余依赖缺省时使用默认实现。
func New(cfg *config.Config, deps Deps) (*Dispatcher, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("dispatch: registry is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if deps.Sticky == nil {
		deps.Sticky = sticky.NewCache(deps.Metrics)
	}
	if deps.Defaults == nil {
		deps.Defaults = defaults.NewManager(cfg.Defaults)
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	interval := cfg.Dispatch.StaleLogInterval.Duration()
	if interval <= 0 {
		interval = time.Nanosecond
	}

	return &Dispatcher{
		registry:      deps.Registry,
		sticky:        deps.Sticky,
		defaults:      deps.Defaults,
		metrics:       deps.Metrics,
		clock:         deps.Clock,
		debug:         cfg.Debug,
		stickyEnabled: cfg.Sticky.Enabled,
		staleLog:      &rate.Sometimes{First: 1, Interval: interval},
	}, nil
}

// Registry 返回注册表
func (d *Dispatcher) Registry() *registry.Registry {
	return d.registry
}

// Sticky 返回粘性缓存
func (d *Dispatcher) Sticky() *sticky.Cache {
	return d.sticky
}

// Defaults 返回默认流对象管理器
func (d *Dispatcher) Defaults() *defaults.Manager {
	return d.defaults
}

// NewFacade 为能力接口创建 Facade
func (d *Dispatcher) NewFacade(opts Options) (*Facade, error) {
	if !pkgif.IsDeclared(opts.Capability) {
		return nil, fmt.Errorf("%w: %s", pkgif.ErrUnknownCapability, opts.Capability)
	}
	if !pkgif.IsComparable(opts.Tag) {
		return nil, fmt.Errorf("%w: tag %T", pkgif.ErrNotComparable, opts.Tag)
	}
	if opts.Sticky {
		if !d.stickyEnabled {
			return nil, fmt.Errorf("%w: %s", pkgif.ErrStickyDisabled, opts.Capability)
		}
		d.sticky.ProxyCreated(opts.Capability)
	}

	if d.debug {
		logger.Debug("new facade",
			"capability", opts.Capability.Name(),
			"tag", opts.Tag,
			"sticky", opts.Sticky)
	}
	return &Facade{d: d, opts: opts}, nil
}

// staleSkipped 记录一次过期连接跳过
func (d *Dispatcher) staleSkipped(c *pkgif.Capability, s pkgif.Stream) {
	d.metrics.RecordSkip(c.Name(), metrics.SkipStale)
	d.staleLog.Do(func() {
		logger.Warn("skip stream without connection, unregistered during dispatch",
			"capability", c.Name(),
			"stream", fmt.Sprintf("%T", s))
	})
}
