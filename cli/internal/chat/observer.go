package chat

import "sync"

// observers 订阅者列表
// notify 按 seq 单调投递，比已投递的旧的值直接丢弃
// 回调中不要同步调用控制器的方法
type observers[T any] struct {
	mu      sync.Mutex
	next    int
	fns     map[int]func(T)
	last    uint64
	deliver sync.Mutex
}

func (o *observers[T]) add(fn func(T)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[int]func(T))
	}
	id := o.next
	o.next++
	o.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.fns, id)
			o.mu.Unlock()
		})
	}
}

func (o *observers[T]) notify(seq uint64, v T) {
	o.deliver.Lock()
	defer o.deliver.Unlock()
	if seq <= o.last {
		return
	}
	o.last = seq

	o.mu.Lock()
	fns := make([]func(T), 0, len(o.fns))
	for _, fn := range o.fns {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
