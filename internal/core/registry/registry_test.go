package registry

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-stream/internal/core/eventbus"
	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
)

// ============================================================================
// 测试用能力接口与流对象
// ============================================================================

type greeter interface {
	pkgif.Stream
	Greet() string
}

type notifier interface {
	pkgif.Stream
	Notify(msg string)
}

var (
	greeterCap  = pkgif.Declare[greeter]()
	notifierCap = pkgif.Declare[notifier]()
)

type testStream struct {
	name string
	tag  any
}

func (s *testStream) StreamTag(*pkgif.Capability) any { return s.tag }
func (s *testStream) Greet() string                    { return s.name }

type dualStream struct {
	testStream
	got []string
}

func (s *dualStream) Notify(msg string) { s.got = append(s.got, msg) }

type sliceStream []int

func (sliceStream) StreamTag(*pkgif.Capability) any { return nil }
func (sliceStream) Greet() string                    { return "slice" }

type fakeProxy struct {
	testStream
}

func (*fakeProxy) ProxyCapability() *pkgif.Capability { return greeterCap }

type plainStream struct{}

func (*plainStream) StreamTag(*pkgif.Capability) any { return nil }

func names(streams []pkgif.Stream) []string {
	out := make([]string, 0, len(streams))
	for _, s := range streams {
		out = append(out, s.(greeter).Greet())
	}
	return out
}

// ============================================================================
// 注册/注销
// ============================================================================

// TestRegistry_RegisterUnregister 注册再注销不留残余
func TestRegistry_RegisterUnregister(t *testing.T) {
	r := New()
	s := &dualStream{testStream: testStream{name: "s"}}

	conn, err := r.Register(s)
	require.NoError(t, err)
	require.NotNil(t, conn)

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, r.Size(greeterCap))
	assert.Equal(t, 1, r.Size(notifierCap))
	assert.ElementsMatch(t, []*pkgif.Capability{greeterCap, notifierCap}, conn.Capabilities())
	assert.Same(t, conn, r.Connection(s))
	assert.Equal(t, pkgif.Stream(s), conn.Stream())

	assert.True(t, r.Unregister(s))
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.Size(greeterCap))
	assert.Equal(t, 0, r.Size(notifierCap))
	assert.Empty(t, r.Capabilities())
	assert.Nil(t, r.Connection(s))
	assert.Nil(t, r.Snapshot(greeterCap))

	// 再次注销是空操作
	assert.False(t, r.Unregister(s))
}

// TestRegistry_DoubleRegister 重复注册只算一次
func TestRegistry_DoubleRegister(t *testing.T) {
	r := New()
	s := &testStream{name: "s"}

	c1, err := r.Register(s)
	require.NoError(t, err)
	c2, err := r.Register(s)
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Equal(t, 1, r.Size(greeterCap))
	assert.Len(t, r.Snapshot(greeterCap), 1)

	assert.True(t, r.Unregister(s))
	assert.Equal(t, 0, r.Len())
}

// TestRegistry_RegisterErrors 注册错误
func TestRegistry_RegisterErrors(t *testing.T) {
	r := New()

	_, err := r.Register(nil)
	assert.ErrorIs(t, err, pkgif.ErrNilStream)

	_, err = r.Register(&plainStream{})
	assert.ErrorIs(t, err, pkgif.ErrNoCapability)

	_, err = r.Register(sliceStream{1, 2})
	assert.ErrorIs(t, err, pkgif.ErrNotComparable)

	_, err = r.Register(&fakeProxy{})
	assert.ErrorIs(t, err, pkgif.ErrProxyRegistration)

	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Unregister(sliceStream{1}))
	assert.Nil(t, r.Connection(sliceStream{1}))
}

// TestRegistry_Reset 测试全部注销
func TestRegistry_Reset(t *testing.T) {
	r := New()
	for i := 0; i < 5; i++ {
		_, err := r.Register(&dualStream{testStream: testStream{name: fmt.Sprint(i)}})
		require.NoError(t, err)
	}
	assert.Equal(t, 5, r.Len())

	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Capabilities())
}

// TestRegistry_Capabilities 按名称排序
func TestRegistry_Capabilities(t *testing.T) {
	r := New()
	_, err := r.Register(&dualStream{})
	require.NoError(t, err)

	caps := r.Capabilities()
	require.Len(t, caps, 2)
	assert.Less(t, caps[0].Name(), caps[1].Name())
}

// ============================================================================
// 排序
// ============================================================================

// TestRegistry_InsertionOrder 默认按注册顺序
func TestRegistry_InsertionOrder(t *testing.T) {
	r := New()
	for _, n := range []string{"a", "b", "c"} {
		_, err := r.Register(&testStream{name: n})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names(r.Snapshot(greeterCap)))
}

// TestRegistry_Priority 高优先级先分发，同优先级保持注册顺序
func TestRegistry_Priority(t *testing.T) {
	r := New()
	a, b, c := &testStream{name: "a"}, &testStream{name: "b"}, &testStream{name: "c"}

	ca, err := r.Register(a)
	require.NoError(t, err)
	cb, err := r.Register(b)
	require.NoError(t, err)
	cc, err := r.Register(c)
	require.NoError(t, err)

	require.NoError(t, ca.SetPriority(1))
	require.NoError(t, cc.SetPriority(5, greeterCap))
	assert.Equal(t, []string{"c", "a", "b"}, names(r.Snapshot(greeterCap)))
	assert.Equal(t, 5, cc.Priority(greeterCap))
	assert.Equal(t, 0, cb.Priority(greeterCap))

	// 存在非默认优先级时新加入的流对象也参与排序
	d := &testStream{name: "d"}
	cd, err := r.Register(d)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b", "d"}, names(r.Snapshot(greeterCap)))

	require.NoError(t, cd.SetPriority(1))
	assert.Equal(t, []string{"c", "a", "d", "b"}, names(r.Snapshot(greeterCap)))

	// 全部恢复默认后回到注册顺序
	for _, conn := range []*Connection{ca, cc, cd} {
		require.NoError(t, conn.SetPriority(0))
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, names(r.Snapshot(greeterCap)))
}

// TestRegistry_PriorityRemove 注销高优先级流对象后顺序正确
func TestRegistry_PriorityRemove(t *testing.T) {
	r := New()
	a, b, c := &testStream{name: "a"}, &testStream{name: "b"}, &testStream{name: "c"}
	for _, s := range []*testStream{a, b, c} {
		_, err := r.Register(s)
		require.NoError(t, err)
	}
	require.NoError(t, r.Connection(c).SetPriority(3))
	assert.Equal(t, []string{"c", "a", "b"}, names(r.Snapshot(greeterCap)))

	r.Unregister(a)
	assert.Equal(t, []string{"c", "b"}, names(r.Snapshot(greeterCap)))

	r.Unregister(c)
	assert.Equal(t, []string{"b"}, names(r.Snapshot(greeterCap)))
}

// TestRegistry_SnapshotIsCopy 快照不受后续变更影响
func TestRegistry_SnapshotIsCopy(t *testing.T) {
	r := New()
	a := &testStream{name: "a"}
	_, err := r.Register(a)
	require.NoError(t, err)

	snap := r.Snapshot(greeterCap)
	_, err = r.Register(&testStream{name: "b"})
	require.NoError(t, err)

	assert.Len(t, snap, 1)
	assert.Len(t, r.Snapshot(greeterCap), 2)
}

// ============================================================================
// Connection
// ============================================================================

// TestConnection_NotAssignable 未实现的能力接口返回错误
func TestConnection_NotAssignable(t *testing.T) {
	r := New()
	conn, err := r.Register(&testStream{name: "a"})
	require.NoError(t, err)

	assert.ErrorIs(t, conn.SetPriority(1, notifierCap), pkgif.ErrNotAssignable)
	assert.ErrorIs(t, conn.BreakDispatch(notifierCap), pkgif.ErrNotAssignable)
	assert.NoError(t, conn.BreakDispatch(greeterCap))
}

// TestConnection_Session 中断标记只在 Session 内有效
func TestConnection_Session(t *testing.T) {
	r := New()
	s := &dualStream{}
	conn, err := r.Register(s)
	require.NoError(t, err)

	// Session 之外设置的标记在进入时被重置
	require.NoError(t, conn.BreakDispatch(greeterCap))
	broken := conn.Session(greeterCap, func() {})
	assert.False(t, broken)

	broken = conn.Session(greeterCap, func() {
		require.NoError(t, conn.BreakDispatch(greeterCap))
	})
	assert.True(t, broken)

	// 退出时已重置
	assert.False(t, conn.Session(greeterCap, func() {}))

	// 能力接口之间互不影响
	broken = conn.Session(notifierCap, func() {
		require.NoError(t, conn.BreakDispatch(greeterCap))
	})
	assert.False(t, broken)
}

// TestConnection_SessionPanic fn panic 时释放分发锁
func TestConnection_SessionPanic(t *testing.T) {
	r := New()
	conn, err := r.Register(&testStream{})
	require.NoError(t, err)

	assert.Panics(t, func() {
		conn.Session(greeterCap, func() { panic("boom") })
	})
	assert.False(t, conn.Session(greeterCap, func() {}))
}

// TestConnection_SessionNested 同一 goroutine 内嵌套 Session 不阻塞，中断范围互相独立
func TestConnection_SessionNested(t *testing.T) {
	r := New()
	outer, err := r.Register(&testStream{name: "outer"})
	require.NoError(t, err)
	inner, err := r.Register(&testStream{name: "inner"})
	require.NoError(t, err)

	done := make(chan bool, 1)
	go func() {
		done <- outer.Session(greeterCap, func() {
			assert.NoError(t, outer.BreakDispatch(greeterCap))

			// 同一流对象嵌套进入，外层的中断标记不可见
			assert.False(t, outer.Session(greeterCap, func() {}))
			// 内层中断不泄漏到外层
			assert.True(t, inner.Session(greeterCap, func() {
				assert.NoError(t, inner.BreakDispatch(greeterCap))
			}))
		})
	}()

	select {
	case broken := <-done:
		assert.True(t, broken)
	case <-time.After(3 * time.Second):
		t.Fatal("nested session blocked")
	}
	assert.False(t, inner.Session(greeterCap, func() {}))
}

// TestConnection_SessionSerialized 不同 goroutine 的 Session 仍然互斥
func TestConnection_SessionSerialized(t *testing.T) {
	r := New()
	a, err := r.Register(&testStream{name: "a"})
	require.NoError(t, err)
	b, err := r.Register(&testStream{name: "b"})
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	go a.Session(greeterCap, func() {
		close(entered)
		<-release
	})
	<-entered

	var inside atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Session(greeterCap, func() { inside.Store(true) })
	}()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, inside.Load())

	close(release)
	select {
	case <-done:
		assert.True(t, inside.Load())
	case <-time.After(3 * time.Second):
		t.Fatal("second session never entered")
	}
	assert.Equal(t, 0, r.dispatchLock(greeterCap).Depth())
}

// TestDispatchMutex_Unlock 未加锁时解锁 panic
func TestDispatchMutex_Unlock(t *testing.T) {
	m := newDispatchMutex()
	m.Lock()
	m.Lock()
	assert.Equal(t, 2, m.Depth())
	m.Unlock()
	m.Unlock()
	assert.Equal(t, 0, m.Depth())
	assert.Panics(t, m.Unlock)
}

// TestConnection_PriorityLastWriteWins 并发设置优先级后排序与 Priority 一致
func TestConnection_PriorityLastWriteWins(t *testing.T) {
	r := New()
	a, b := &testStream{name: "a"}, &testStream{name: "b"}
	_, err := r.Register(a)
	require.NoError(t, err)
	cb, err := r.Register(b)
	require.NoError(t, err)

	for round := 0; round < 200; round++ {
		var g errgroup.Group
		for _, p := range []int{-1, 1} {
			g.Go(func() error { return cb.SetPriority(p) })
		}
		require.NoError(t, g.Wait())

		want := []string{"a", "b"}
		if cb.Priority(greeterCap) > 0 {
			want = []string{"b", "a"}
		}
		require.Equal(t, want, names(r.Snapshot(greeterCap)), "round %d", round)
	}
}

// TestConnection_Stale 注销后的连接设置优先级不影响注册表
func TestConnection_Stale(t *testing.T) {
	r := New()
	a := &testStream{name: "a"}
	conn, err := r.Register(a)
	require.NoError(t, err)
	r.Unregister(a)

	assert.NoError(t, conn.SetPriority(9))

	_, err = r.Register(a)
	require.NoError(t, err)
	_, err = r.Register(&testStream{name: "b"})
	require.NoError(t, err)

	assert.Equal(t, 0, r.Connection(a).Priority(greeterCap))
	assert.Equal(t, []string{"a", "b"}, names(r.Snapshot(greeterCap)))
}

// ============================================================================
// 并发
// ============================================================================

// TestRegistry_Concurrent 并发注册/注销/快照
func TestRegistry_Concurrent(t *testing.T) {
	r := New(WithDebug(false))

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 200; i++ {
				s := &dualStream{testStream: testStream{name: fmt.Sprintf("%d-%d", w, i)}}
				conn, err := r.Register(s)
				if err != nil {
					return err
				}
				if err := conn.SetPriority(i % 3); err != nil {
					return err
				}
				for _, x := range r.Snapshot(greeterCap) {
					if x == nil {
						return fmt.Errorf("nil stream in snapshot")
					}
				}
				conn.Session(notifierCap, func() {})
				r.Unregister(s)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Capabilities())
}

// TestRegistry_Events 注册表在事件总线上发布事件
func TestRegistry_Events(t *testing.T) {
	bus := eventbus.NewBus()
	defer bus.Close()

	regSub, err := bus.Subscribe(new(pkgif.EvtStreamRegistered))
	require.NoError(t, err)
	unregSub, err := bus.Subscribe(new(pkgif.EvtStreamUnregistered))
	require.NoError(t, err)
	prioSub, err := bus.Subscribe(new(pkgif.EvtPriorityChanged))
	require.NoError(t, err)

	r := New(WithEventBus(bus))
	defer r.Close()

	s := &testStream{name: "a"}
	conn, err := r.Register(s)
	require.NoError(t, err)
	_, err = r.Register(s)
	require.NoError(t, err)
	require.NoError(t, conn.SetPriority(2))
	r.Reset()

	require.Len(t, regSub.Out(), 1)
	reg := (<-regSub.Out()).(pkgif.EvtStreamRegistered)
	assert.Equal(t, pkgif.Stream(s), reg.Stream)
	assert.Equal(t, []*pkgif.Capability{greeterCap}, reg.Capabilities)

	require.Len(t, prioSub.Out(), 1)
	prio := (<-prioSub.Out()).(pkgif.EvtPriorityChanged)
	assert.Equal(t, 2, prio.Priority)

	require.Len(t, unregSub.Out(), 1)
	unreg := (<-unregSub.Out()).(pkgif.EvtStreamUnregistered)
	assert.Equal(t, pkgif.Stream(s), unreg.Stream)
}
