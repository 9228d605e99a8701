// Package interfaces 定义 go-stream 的公共接口
//
// 本文件定义分发相关的方法描述、回调与返回值过滤接口。
package interfaces

// Method 代理对象方法描述
//
// Name 在同一个能力接口内唯一，Void 表示方法没有返回值。
type Method struct {
	Name string
	Void bool
}

// String 实现 fmt.Stringer
func (m Method) String() string {
	if m.Void {
		return m.Name + "()"
	}
	return m.Name + "() any"
}

// DispatchCallback 流对象方法分发回调
type DispatchCallback interface {
	// BeforeDispatch 流对象的方法被通知之前触发
	//
	// 返回 true 停止分发，当前流对象不会被调用
	BeforeDispatch(s Stream, m Method, args []any) bool

	// AfterDispatch 流对象的方法被通知之后触发
	//
	// 返回 true 停止分发
	AfterDispatch(s Stream, m Method, args []any, result any) bool
}

// DispatchCallbackFuncs 用函数实现 DispatchCallback，未设置的函数视为继续分发
type DispatchCallbackFuncs struct {
	Before func(s Stream, m Method, args []any) bool
	After  func(s Stream, m Method, args []any, result any) bool
}

// BeforeDispatch 实现 DispatchCallback
func (f DispatchCallbackFuncs) BeforeDispatch(s Stream, m Method, args []any) bool {
	if f.Before == nil {
		return false
	}
	return f.Before(s, m, args)
}

// AfterDispatch 实现 DispatchCallback
func (f DispatchCallbackFuncs) AfterDispatch(s Stream, m Method, args []any, result any) bool {
	if f.After == nil {
		return false
	}
	return f.After(s, m, args, result)
}

// ResultFilter 返回值过滤接口
type ResultFilter interface {
	// Filter 从所有被通知流对象的返回值中选出最终返回值
	//
	// results 按分发顺序排列，不包含因 tag 不匹配而跳过的流对象。
	Filter(m Method, args []any, results []any) any
}

// ResultFilterFunc 函数形式的 ResultFilter
type ResultFilterFunc func(m Method, args []any, results []any) any

// Filter 实现 ResultFilter
func (f ResultFilterFunc) Filter(m Method, args []any, results []any) any {
	return f(m, args, results)
}

// Invoker 在单个流对象上执行一次方法调用
//
// 由类型化的代理方法生成，返回值对无返回值方法为 nil。
type Invoker func(s Stream) any
