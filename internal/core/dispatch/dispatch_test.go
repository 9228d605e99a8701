package dispatch

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-stream/config"
	"github.com/dep2p/go-stream/internal/core/metrics"
	"github.com/dep2p/go-stream/internal/core/registry"
	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
	"github.com/dep2p/go-stream/tests/mocks"
)

// ============================================================================
// 测试用能力接口与流对象
// ============================================================================

type greeter interface {
	pkgif.Stream
	Greet(name string) string
}

type notifier interface {
	pkgif.Stream
	OnEvent(e string)
}

var (
	greeterCap  = pkgif.Declare[greeter]()
	notifierCap = pkgif.Declare[notifier]()
)

type testStream struct {
	*mocks.MockStream
	reply  string
	calls  atomic.Int32
	events []string
	hook   func()
}

func newTestStream(reply string, tag any) *testStream {
	return &testStream{MockStream: mocks.NewMockStream(tag), reply: reply}
}

func (s *testStream) Greet(name string) string {
	s.calls.Add(1)
	if s.hook != nil {
		s.hook()
	}
	return s.reply + " " + name
}

func (s *testStream) OnEvent(e string) {
	s.calls.Add(1)
	s.events = append(s.events, e)
	if s.hook != nil {
		s.hook()
	}
}

type defaultGreeter struct {
	reply *string
}

func (*defaultGreeter) StreamTag(*pkgif.Capability) any { return nil }
func (g *defaultGreeter) Greet(name string) string     { return *g.reply + " " + name }

var defaultGreeterImpl = pkgif.Implement(func() *defaultGreeter {
	reply := "default"
	return &defaultGreeter{reply: &reply}
})

var (
	greetMethod = pkgif.Method{Name: "Greet"}
	eventMethod = pkgif.Method{Name: "OnEvent", Void: true}
)

func greet(f *Facade, name string) (any, error) {
	return f.Dispatch(Invocation{
		Method: greetMethod,
		Args:   []any{name},
		Invoke: func(s pkgif.Stream) any { return s.(greeter).Greet(name) },
	})
}

func notify(f *Facade, e string) (any, error) {
	return f.Dispatch(Invocation{
		Method: eventMethod,
		Args:   []any{e},
		Invoke: func(s pkgif.Stream) any {
			s.(notifier).OnEvent(e)
			return nil
		},
	})
}

func newTestDispatcher(t *testing.T, cfg *config.Config) (*Dispatcher, *registry.Registry) {
	t.Helper()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	reg := registry.New(registry.WithDebug(cfg.Debug))
	d, err := New(cfg, Deps{Registry: reg})
	require.NoError(t, err)
	return d, reg
}

func register(t *testing.T, reg *registry.Registry, streams ...pkgif.Stream) {
	t.Helper()
	for _, s := range streams {
		_, err := reg.Register(s)
		require.NoError(t, err)
	}
}

// ============================================================================
// 返回值聚合
// ============================================================================

// TestDispatch_LastWins 同优先级且无过滤时返回最后注册的结果
func TestDispatch_LastWins(t *testing.T) {
	d, reg := newTestDispatcher(t, nil)
	s1, s2 := newTestStream("hi", nil), newTestStream("hey", nil)
	register(t, reg, s1, s2)

	f, err := d.NewFacade(Options{Capability: greeterCap})
	require.NoError(t, err)

	r, err := greet(f, "bob")
	require.NoError(t, err)
	assert.Equal(t, "hey bob", r)
	assert.EqualValues(t, 1, s1.calls.Load())
	assert.EqualValues(t, 1, s2.calls.Load())
}

// TestDispatch_ResultFilter 过滤器按分发顺序收到匹配流对象的结果
func TestDispatch_ResultFilter(t *testing.T) {
	d, reg := newTestDispatcher(t, nil)
	a, b, c := newTestStream("a", nil), newTestStream("b", "other"), newTestStream("c", nil)
	register(t, reg, a, b, c)

	filter := &mocks.MockResultFilter{
		FilterFunc: func(_ pkgif.Method, _ []any, results []any) any {
			return len(results)
		},
	}
	f, err := d.NewFacade(Options{Capability: greeterCap, ResultFilter: filter})
	require.NoError(t, err)

	r, err := greet(f, "x")
	require.NoError(t, err)
	assert.Equal(t, 2, r)
	assert.Equal(t, []any{"a x", "c x"}, filter.LastResults())
}

// TestDispatch_ResultFilterVoid 无返回值方法不调用过滤器
func TestDispatch_ResultFilterVoid(t *testing.T) {
	d, reg := newTestDispatcher(t, nil)
	register(t, reg, newTestStream("a", nil))

	filter := &mocks.MockResultFilter{}
	f, err := d.NewFacade(Options{Capability: notifierCap, ResultFilter: filter})
	require.NoError(t, err)

	r, err := notify(f, "e")
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Empty(t, filter.FilterCalls)
}

// TestDispatch_NoStream 没有流对象且没有默认实现时返回 nil
func TestDispatch_NoStream(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	f, err := d.NewFacade(Options{Capability: greeterCap})
	require.NoError(t, err)

	r, err := greet(f, "x")
	require.NoError(t, err)
	assert.Nil(t, r)
}

// ============================================================================
// 顺序与路由
// ============================================================================

// TestDispatch_Priority 高优先级先被调用
func TestDispatch_Priority(t *testing.T) {
	d, reg := newTestDispatcher(t, nil)

	var order []string
	low, high := newTestStream("low", nil), newTestStream("high", nil)
	low.hook = func() { order = append(order, "low") }
	high.hook = func() { order = append(order, "high") }
	register(t, reg, low, high)

	require.NoError(t, reg.Connection(low).SetPriority(1))
	require.NoError(t, reg.Connection(high).SetPriority(5))

	f, err := d.NewFacade(Options{Capability: greeterCap})
	require.NoError(t, err)

	r, err := greet(f, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "low"}, order)
	assert.Equal(t, "low x", r)
}

// TestDispatch_TagRouting tag 不匹配的流对象不会被调用
func TestDispatch_TagRouting(t *testing.T) {
	d, reg := newTestDispatcher(t, nil)
	global, roomA, roomB := newTestStream("g", nil), newTestStream("a", "room-a"), newTestStream("b", "room-b")
	register(t, reg, global, roomA, roomB)

	cases := []struct {
		tag  any
		want string
	}{
		{tag: nil, want: "g x"},
		{tag: "room-a", want: "a x"},
		{tag: "room-b", want: "b x"},
	}
	for _, tc := range cases {
		f, err := d.NewFacade(Options{Capability: greeterCap, Tag: tc.tag})
		require.NoError(t, err)
		r, err := greet(f, "x")
		require.NoError(t, err)
		assert.Equal(t, tc.want, r)
	}
	assert.EqualValues(t, 1, global.calls.Load())
	assert.EqualValues(t, 1, roomA.calls.Load())
	assert.EqualValues(t, 1, roomB.calls.Load())

	// 没有匹配的流对象
	f, err := d.NewFacade(Options{Capability: greeterCap, Tag: "room-c"})
	require.NoError(t, err)
	r, err := greet(f, "x")
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.EqualValues(t, 1, global.calls.Load())
}

// TestDispatch_TagValueEquality tag 按值比较
func TestDispatch_TagValueEquality(t *testing.T) {
	type roomKey struct {
		id int
	}
	d, reg := newTestDispatcher(t, nil)
	s := newTestStream("s", roomKey{id: 7})
	register(t, reg, s)

	f, err := d.NewFacade(Options{Capability: greeterCap, Tag: roomKey{id: 7}})
	require.NoError(t, err)
	r, err := greet(f, "x")
	require.NoError(t, err)
	assert.Equal(t, "s x", r)
}

// ============================================================================
// 停止分发
// ============================================================================

// TestDispatch_BeforeStop Before 在第二个流对象上停止
func TestDispatch_BeforeStop(t *testing.T) {
	d, reg := newTestDispatcher(t, nil)
	s1, s2, s3 := newTestStream("1", nil), newTestStream("2", nil), newTestStream("3", nil)
	register(t, reg, s1, s2, s3)

	cb := &mocks.MockDispatchCallback{
		BeforeFunc: func(s pkgif.Stream, _ pkgif.Method, _ []any) bool {
			return s == pkgif.Stream(s2)
		},
	}
	f, err := d.NewFacade(Options{Capability: greeterCap, Callback: cb})
	require.NoError(t, err)

	r, err := greet(f, "x")
	require.NoError(t, err)
	assert.Equal(t, "1 x", r)
	assert.EqualValues(t, 1, s1.calls.Load())
	assert.EqualValues(t, 0, s2.calls.Load())
	assert.EqualValues(t, 0, s3.calls.Load())

	before, after := cb.Counts()
	assert.Equal(t, 2, before)
	assert.Equal(t, 1, after)
	assert.Equal(t, "1 x", cb.AfterCalls[0].Result)
}

// TestDispatch_AfterStop After 返回 true 时停止
func TestDispatch_AfterStop(t *testing.T) {
	d, reg := newTestDispatcher(t, nil)
	s1, s2 := newTestStream("1", nil), newTestStream("2", nil)
	register(t, reg, s1, s2)

	cb := pkgif.DispatchCallbackFuncs{
		After: func(_ pkgif.Stream, _ pkgif.Method, _ []any, result any) bool {
			return result == "1 x"
		},
	}
	f, err := d.NewFacade(Options{Capability: greeterCap, Callback: cb})
	require.NoError(t, err)

	r, err := greet(f, "x")
	require.NoError(t, err)
	assert.Equal(t, "1 x", r)
	assert.EqualValues(t, 0, s2.calls.Load())
}

// TestDispatch_BreakDispatch 流对象内请求中断
func TestDispatch_BreakDispatch(t *testing.T) {
	d, reg := newTestDispatcher(t, nil)
	s1, s2 := newTestStream("1", nil), newTestStream("2", nil)
	register(t, reg, s1, s2)
	s1.hook = func() {
		require.NoError(t, reg.Connection(s1).BreakDispatch(greeterCap))
	}

	f, err := d.NewFacade(Options{Capability: greeterCap})
	require.NoError(t, err)

	r, err := greet(f, "x")
	require.NoError(t, err)
	assert.Equal(t, "1 x", r)
	assert.EqualValues(t, 0, s2.calls.Load())

	// 中断标记只对本次分发有效
	s1.hook = nil
	r, err = greet(f, "y")
	require.NoError(t, err)
	assert.Equal(t, "2 y", r)
}

// TestDispatch_UnregisterDuringDispatch 分发中被注销的流对象被跳过
func TestDispatch_UnregisterDuringDispatch(t *testing.T) {
	d, reg := newTestDispatcher(t, nil)
	s1, s2, s3 := newTestStream("1", nil), newTestStream("2", nil), newTestStream("3", nil)
	register(t, reg, s1, s2)
	s1.hook = func() {
		reg.Unregister(s2)
		_, err := reg.Register(s3)
		require.NoError(t, err)
	}

	f, err := d.NewFacade(Options{Capability: greeterCap})
	require.NoError(t, err)

	r, err := greet(f, "x")
	require.NoError(t, err)
	assert.Equal(t, "1 x", r)
	assert.EqualValues(t, 0, s2.calls.Load())
	// 本次分发的快照不包含 s3
	assert.EqualValues(t, 0, s3.calls.Load())
}

// ============================================================================
// 默认流对象
// ============================================================================

// TestDispatch_DefaultStream 没有订阅者时使用默认流对象
func TestDispatch_DefaultStream(t *testing.T) {
	d, reg := newTestDispatcher(t, nil)
	require.NoError(t, d.Defaults().Register(defaultGreeterImpl))

	f, err := d.NewFacade(Options{Capability: greeterCap})
	require.NoError(t, err)

	r, err := greet(f, "x")
	require.NoError(t, err)
	assert.Equal(t, "default x", r)

	// 有订阅者后不再使用
	register(t, reg, newTestStream("real", nil))
	r, err = greet(f, "x")
	require.NoError(t, err)
	assert.Equal(t, "real x", r)

	// 默认流对象同样按 tag 路由
	tagged, err := d.NewFacade(Options{Capability: greeterCap, Tag: "t"})
	require.NoError(t, err)
	reg.Reset()
	r, err = greet(tagged, "x")
	require.NoError(t, err)
	assert.Nil(t, r)
}

// TestDispatch_DefaultFactoryNil 默认工厂返回 nil 是错误
func TestDispatch_DefaultFactoryNil(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	require.NoError(t, d.Defaults().Register(defaultGreeterImpl))
	factory := &mocks.MockDefaultFactory{
		CreateFunc: func(pkgif.CreateParam) pkgif.Stream { return nil },
	}
	d.Defaults().SetFactory(factory)

	f, err := d.NewFacade(Options{Capability: greeterCap})
	require.NoError(t, err)

	_, err = greet(f, "x")
	assert.ErrorIs(t, err, pkgif.ErrNilDefaultStream)
	assert.Equal(t, 1, factory.Calls())
}

// ============================================================================
// 错误
// ============================================================================

// TestDispatch_Errors 测试分发错误
func TestDispatch_Errors(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	f, err := d.NewFacade(Options{Capability: greeterCap})
	require.NoError(t, err)

	_, err = f.Dispatch(Invocation{
		Method: pkgif.Method{Name: pkgif.TagMethodName},
		Invoke: func(pkgif.Stream) any { return nil },
	})
	assert.ErrorIs(t, err, pkgif.ErrTagMethod)

	_, err = f.Dispatch(Invocation{Method: greetMethod})
	assert.ErrorIs(t, err, pkgif.ErrNilInvoker)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.True(t, f.Closed())
	_, err = greet(f, "x")
	assert.ErrorIs(t, err, pkgif.ErrProxyClosed)
}

// TestNewFacade_Errors 测试创建 Facade 的错误
func TestNewFacade_Errors(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	_, err := d.NewFacade(Options{})
	assert.ErrorIs(t, err, pkgif.ErrUnknownCapability)

	_, err = d.NewFacade(Options{Capability: greeterCap, Tag: []string{"x"}})
	assert.ErrorIs(t, err, pkgif.ErrNotComparable)

	cfg := config.NewConfig()
	cfg.Sticky.Enabled = false
	d2, _ := newTestDispatcher(t, cfg)
	_, err = d2.NewFacade(Options{Capability: notifierCap, Sticky: true})
	assert.ErrorIs(t, err, pkgif.ErrStickyDisabled)

	_, err = New(cfg, Deps{})
	assert.Error(t, err)
}

// ============================================================================
// 粘性
// ============================================================================

// TestDispatch_StickyReplay 没有订阅者时的粘性调用在重放时恰好执行一次
func TestDispatch_StickyReplay(t *testing.T) {
	d, reg := newTestDispatcher(t, nil)

	f, err := d.NewFacade(Options{Capability: notifierCap, Sticky: true})
	require.NoError(t, err)

	_, err = notify(f, "x")
	require.NoError(t, err)

	s := newTestStream("", nil)
	register(t, reg, s)
	assert.Empty(t, s.events)

	replayed, err := d.Sticky().Replay(s, notifierCap)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, []string{"x"}, s.events)

	// 关闭最后一个粘性 Facade 后记录清空
	require.NoError(t, f.Close())
	replayed, err = d.Sticky().Replay(s, notifierCap)
	require.NoError(t, err)
	assert.False(t, replayed)
}

// TestDispatch_NonStickyNotRecorded 非粘性 Facade 不记录
func TestDispatch_NonStickyNotRecorded(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	sticky, err := d.NewFacade(Options{Capability: notifierCap, Sticky: true})
	require.NoError(t, err)
	defer sticky.Close()

	plain, err := d.NewFacade(Options{Capability: notifierCap})
	require.NoError(t, err)
	_, err = notify(plain, "x")
	require.NoError(t, err)

	assert.Equal(t, 0, d.Sticky().Len())
}

// ============================================================================
// 指标
// ============================================================================

// TestDispatch_Metrics 使用模拟时钟统计耗时
func TestDispatch_Metrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(promReg, "dt")
	require.NoError(t, err)

	mock := clock.NewMock()
	reg := registry.New(registry.WithMetrics(rec))
	d, err := New(config.NewConfig(), Deps{Registry: reg, Metrics: rec, Clock: mock})
	require.NoError(t, err)

	s1, s2 := newTestStream("1", nil), newTestStream("2", "other")
	s1.hook = func() { mock.Add(5 * time.Millisecond) }
	register(t, reg, s1, s2)

	f, err := d.NewFacade(Options{Capability: greeterCap})
	require.NoError(t, err)
	_, err = greet(f, "x")
	require.NoError(t, err)

	families, err := promReg.Gather()
	require.NoError(t, err)

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
		switch mf.GetName() {
		case "dt_dispatch_duration_seconds":
			h := mf.GetMetric()[0].GetHistogram()
			assert.EqualValues(t, 1, h.GetSampleCount())
			assert.InDelta(t, 0.005, h.GetSampleSum(), 1e-9)
		case "dt_dispatch_skipped_total":
			assert.Equal(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue())
		case "dt_registered_streams":
			assert.Equal(t, 2.0, mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found["dt_dispatch_calls_total"])
	assert.True(t, found["dt_dispatch_invocations_total"])
}

// ============================================================================
// 并发
// ============================================================================

// TestDispatch_Concurrent 并发分发与注册
func TestDispatch_Concurrent(t *testing.T) {
	d, reg := newTestDispatcher(t, nil)
	f, err := d.NewFacade(Options{Capability: greeterCap})
	require.NoError(t, err)

	var g errgroup.Group
	for w := 0; w < 4; w++ {
		g.Go(func() error {
			for i := 0; i < 100; i++ {
				s := newTestStream("w", nil)
				if _, err := reg.Register(s); err != nil {
					return err
				}
				if _, err := greet(f, "x"); err != nil {
					return err
				}
				reg.Unregister(s)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 0, reg.Len())
}
