package mocks

import (
	"sync"

	"github.com/dep2p/go-stream/pkg/interfaces"
)

// DispatchCall 一次回调调用记录
type DispatchCall struct {
	Stream interfaces.Stream
	Method interfaces.Method
	Args   []any
	Result any
}

// MockDispatchCallback 模拟 interfaces.DispatchCallback 接口实现
//
// 未设置 Func 时总是继续分发。
type MockDispatchCallback struct {
	mu sync.Mutex

	// 可覆盖的方法
	BeforeFunc func(s interfaces.Stream, m interfaces.Method, args []any) bool
	AfterFunc  func(s interfaces.Stream, m interfaces.Method, args []any, result any) bool

	// 调用记录
	BeforeCalls []DispatchCall
	AfterCalls  []DispatchCall
}

// NewMockDispatchCallback 创建 MockDispatchCallback
func NewMockDispatchCallback() *MockDispatchCallback {
	return &MockDispatchCallback{}
}

// BeforeDispatch 实现 interfaces.DispatchCallback
func (m *MockDispatchCallback) BeforeDispatch(s interfaces.Stream, method interfaces.Method, args []any) bool {
	m.mu.Lock()
	m.BeforeCalls = append(m.BeforeCalls, DispatchCall{Stream: s, Method: method, Args: args})
	fn := m.BeforeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(s, method, args)
	}
	return false
}

// AfterDispatch 实现 interfaces.DispatchCallback
func (m *MockDispatchCallback) AfterDispatch(s interfaces.Stream, method interfaces.Method, args []any, result any) bool {
	m.mu.Lock()
	m.AfterCalls = append(m.AfterCalls, DispatchCall{Stream: s, Method: method, Args: args, Result: result})
	fn := m.AfterFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(s, method, args, result)
	}
	return false
}

// Counts 返回 Before/After 调用次数
func (m *MockDispatchCallback) Counts() (before, after int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.BeforeCalls), len(m.AfterCalls)
}

// MockResultFilter 模拟 interfaces.ResultFilter 接口实现
//
// 未设置 FilterFunc 时返回第一个结果。
type MockResultFilter struct {
	mu sync.Mutex

	// 可覆盖的方法
	FilterFunc func(m interfaces.Method, args []any, results []any) any

	// 调用记录
	FilterCalls [][]any
}

// Filter 实现 interfaces.ResultFilter
func (m *MockResultFilter) Filter(method interfaces.Method, args []any, results []any) any {
	m.mu.Lock()
	m.FilterCalls = append(m.FilterCalls, append([]any(nil), results...))
	fn := m.FilterFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(method, args, results)
	}
	if len(results) == 0 {
		return nil
	}
	return results[0]
}

// LastResults 返回最近一次 Filter 收到的结果列表
func (m *MockResultFilter) LastResults() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.FilterCalls) == 0 {
		return nil
	}
	return m.FilterCalls[len(m.FilterCalls)-1]
}
