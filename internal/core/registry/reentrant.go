package registry

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// ============================================================================
//                              可重入分发锁
// ============================================================================

// dispatchMutex 按 goroutine 可重入的互斥锁
//
// 不同 goroutine 上的分发互斥；同一 goroutine 内，流对象方法里再次在同一能力
// 接口上分发时直接进入，深度加一。
type dispatchMutex struct {
	mu    sync.Mutex
	cond  sync.Cond
	owner uint64
	depth int
}

func newDispatchMutex() *dispatchMutex {
	m := &dispatchMutex{}
	m.cond.L = &m.mu
	return m
}

// Lock 获取锁，当前 goroutine 已持有时只增加深度
func (m *dispatchMutex) Lock() {
	id := goroutineID()

	m.mu.Lock()
	defer m.mu.Unlock()
	for m.depth > 0 && m.owner != id {
		m.cond.Wait()
	}
	m.owner = id
	m.depth++
}

// Unlock 释放一层，深度归零时唤醒等待者
func (m *dispatchMutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depth == 0 {
		panic("registry: unlock of unlocked dispatch mutex")
	}
	m.depth--
	if m.depth == 0 {
		m.owner = 0
		m.cond.Signal()
	}
}

// Depth 返回当前持有深度
func (m *dispatchMutex) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depth
}

var goroutinePrefix = []byte("goroutine ")

// goroutineID 从栈头 "goroutine N [" 解析当前 goroutine 编号
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		panic("registry: cannot parse goroutine id: " + err.Error())
	}
	return id
}
