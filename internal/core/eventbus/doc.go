// Package eventbus 实现进程内事件总线
//
// 事件按 Go 类型路由。注册表和粘性缓存通过它发布：
//   - EvtStreamRegistered / EvtStreamUnregistered
//   - EvtPriorityChanged
//   - EvtStickyRecorded
//
// # 快速开始
//
//	sub, _ := bus.Subscribe(new(interfaces.EvtStreamRegistered), interfaces.BufSize(64))
//	defer sub.Close()
//
//	go func() {
//	    for evt := range sub.Out() {
//	        e := evt.(interfaces.EvtStreamRegistered)
//	        // 处理事件
//	    }
//	}()
//
// # 投递语义
//
// 发送从不阻塞：订阅者缓冲区满时事件被丢弃，并按时间间隔限流输出警告。
// 同一发射器发送的事件按发送顺序到达每个订阅者。
package eventbus
