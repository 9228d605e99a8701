package mocks

import (
	"sync"

	"github.com/dep2p/go-stream/pkg/interfaces"
)

// MockDefaultFactory 模拟 interfaces.DefaultFactory 接口实现
//
// 未设置 CreateFunc 时使用 Implementation.New 创建。
type MockDefaultFactory struct {
	mu sync.Mutex

	// 可覆盖的方法
	CreateFunc func(param interfaces.CreateParam) interfaces.Stream

	// 调用记录
	CreateCalls []interfaces.CreateParam
}

// Create 实现 interfaces.DefaultFactory
func (m *MockDefaultFactory) Create(param interfaces.CreateParam) interfaces.Stream {
	m.mu.Lock()
	m.CreateCalls = append(m.CreateCalls, param)
	fn := m.CreateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(param)
	}
	if param.Implementation == nil {
		return nil
	}
	return param.Implementation.New()
}

// Calls 返回 Create 调用次数
func (m *MockDefaultFactory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CreateCalls)
}
