package main

import (
	"fmt"
	"sync"
	"sync/atomic"

	stream "github.com/dep2p/go-stream"
)

// ============================================================================
//                              能力接口
// ============================================================================

// Ticker 压测用能力接口
type Ticker interface {
	stream.Stream
	Tick(n int) int
}

// StatusListener 状态通知
type StatusListener interface {
	stream.Stream
	OnStatus(status string)
}

var (
	_ = stream.Declare[Ticker]()
	_ = stream.Declare[StatusListener]()
)

// ============================================================================
//                              流对象
// ============================================================================

// worker 计数并返回 n
type worker struct {
	id    int
	tag   any
	ticks atomic.Int64
}

func (w *worker) StreamTag(*stream.Capability) any { return w.tag }

func (w *worker) Tick(n int) int {
	w.ticks.Add(1)
	return n
}

func registerWorkers(hub *stream.Hub, n, tagged int, withPriority bool) ([]*worker, error) {
	workers := make([]*worker, n)
	for i := range workers {
		w := &worker{id: i}
		if i < tagged {
			w.tag = "shard"
		}
		conn, err := hub.Register(w)
		if err != nil {
			return nil, fmt.Errorf("注册流对象 %d 失败: %w", i, err)
		}
		if withPriority {
			if err := conn.SetPriority(i); err != nil {
				return nil, err
			}
		}
		workers[i] = w
	}
	return workers, nil
}

// statusBoard 保存最后一次状态
type statusBoard struct {
	mu   sync.Mutex
	last string
}

func (*statusBoard) StreamTag(*stream.Capability) any { return nil }

func (b *statusBoard) OnStatus(status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = status
}

func (b *statusBoard) Last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// ============================================================================
//                              代理对象
// ============================================================================

// tickerProxy 对所有未打 tag 的流对象分发并求和
type tickerProxy struct {
	*stream.Proxy[Ticker]
}

func newTickerProxy(hub *stream.Hub) (tickerProxy, error) {
	p, err := stream.NewProxy[Ticker](hub, stream.WithResultFilter(
		stream.FilterFunc(func(_ stream.Method, results []int) int {
			sum := 0
			for _, r := range results {
				sum += r
			}
			return sum
		}),
	))
	if err != nil {
		return tickerProxy{}, err
	}
	return tickerProxy{p}, nil
}

func (p tickerProxy) tick(n int) (int, error) {
	return stream.Dispatch(p.Proxy, "Tick", func(t Ticker) int {
		return t.Tick(n)
	}, n)
}

type statusProxy struct {
	*stream.Proxy[StatusListener]
}

func (p statusProxy) OnStatus(status string) {
	stream.Notify(p.Proxy, "OnStatus", func(l StatusListener) {
		l.OnStatus(status)
	}, status)
}
