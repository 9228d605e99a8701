package registry

import (
	"cmp"
	"slices"

	pkgif "github.com/dep2p/go-stream/pkg/interfaces"
)

// holder 单个能力接口的有序流对象集合
//
// order 保持注册顺序；存在非默认优先级时，snapshot 按优先级降序做稳定排序，
// 同优先级之间保持注册顺序。所有方法都在 Registry 锁内调用。
type holder struct {
	capability *pkgif.Capability

	order      []pkgif.Stream
	members    map[pkgif.Stream]struct{}
	priorities map[pkgif.Stream]int // 只记录非 0 优先级

	sorted []pkgif.Stream
	dirty  bool
}

func newHolder(c *pkgif.Capability) *holder {
	return &holder{
		capability: c,
		members:    make(map[pkgif.Stream]struct{}),
		priorities: make(map[pkgif.Stream]int),
	}
}

// add 添加流对象，已存在时返回 false
func (h *holder) add(s pkgif.Stream) bool {
	if _, ok := h.members[s]; ok {
		return false
	}
	h.members[s] = struct{}{}
	h.order = append(h.order, s)
	if len(h.priorities) > 0 {
		h.dirty = true
	}
	return true
}

// remove 移除流对象，不存在时返回 false
func (h *holder) remove(s pkgif.Stream) bool {
	if _, ok := h.members[s]; !ok {
		return false
	}
	delete(h.members, s)
	h.order = slices.DeleteFunc(h.order, func(x pkgif.Stream) bool { return x == s })
	if _, ok := h.priorities[s]; ok {
		delete(h.priorities, s)
		h.dirty = true
	}
	if h.sorted != nil {
		h.sorted = slices.DeleteFunc(h.sorted, func(x pkgif.Stream) bool { return x == s })
	}
	return true
}

// setPriority 更新优先级并标记需要重排
func (h *holder) setPriority(s pkgif.Stream, p int) {
	if _, ok := h.members[s]; !ok {
		return
	}
	if p == 0 {
		delete(h.priorities, s)
	} else {
		h.priorities[s] = p
	}
	h.dirty = true
}

func (h *holder) len() int {
	return len(h.order)
}

func (h *holder) empty() bool {
	return len(h.order) == 0
}

// needsSort 是否需要在写锁下重排
func (h *holder) needsSort() bool {
	return h.dirty
}

// sort 按优先级降序稳定排序，返回是否真的发生了排序
func (h *holder) sort() bool {
	if !h.dirty {
		return false
	}
	h.dirty = false
	if len(h.priorities) == 0 {
		h.sorted = nil
		return true
	}
	sorted := slices.Clone(h.order)
	slices.SortStableFunc(sorted, func(a, b pkgif.Stream) int {
		return cmp.Compare(h.priorities[b], h.priorities[a])
	})
	h.sorted = sorted
	return true
}

// snapshot 返回当前分发顺序的副本
//
// 调用方需保证 dirty 已被 sort 清除。
func (h *holder) snapshot() []pkgif.Stream {
	if h.sorted != nil {
		return slices.Clone(h.sorted)
	}
	return slices.Clone(h.order)
}
