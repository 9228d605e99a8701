package mocks

import (
	"sync"

	"github.com/dep2p/go-stream/pkg/interfaces"
)

// MockStream 模拟 interfaces.Stream 接口实现
//
// 只实现 StreamTag，测试中嵌入到具体的流对象类型里：
//
//	type greeterStream struct {
//	    *mocks.MockStream
//	}
type MockStream struct {
	mu sync.Mutex

	// TagValue 默认返回的 tag
	TagValue any

	// 可覆盖的方法
	StreamTagFunc func(c *interfaces.Capability) any

	// 调用记录
	StreamTagCalls []*interfaces.Capability
}

// NewMockStream 创建返回指定 tag 的 MockStream
func NewMockStream(tag any) *MockStream {
	return &MockStream{TagValue: tag}
}

// StreamTag 实现 interfaces.Stream
func (m *MockStream) StreamTag(c *interfaces.Capability) any {
	m.mu.Lock()
	m.StreamTagCalls = append(m.StreamTagCalls, c)
	fn := m.StreamTagFunc
	tag := m.TagValue
	m.mu.Unlock()

	if fn != nil {
		return fn(c)
	}
	return tag
}

// SetTag 修改 tag
func (m *MockStream) SetTag(tag any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TagValue = tag
}

// TagCalls 返回 StreamTag 被调用的次数
func (m *MockStream) TagCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.StreamTagCalls)
}
