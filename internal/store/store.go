package store

import (
	"sync"
	"sync/atomic"
)

// Listener 状态变更回调，收到的快照只读
type Listener func(st *State)

// Store 会话与消息的唯一数据源
// 所有修改都在锁内基于副本完成，之后整体替换快照并通知订阅者
type Store struct {
	mu     sync.Mutex
	state  *State
	tempID atomic.Int64

	nmu          sync.Mutex
	listeners    map[uint64]Listener
	nextListener uint64
	draining     bool
	pending      bool
}

func New(currentUserID int64) *Store {
	return &Store{
		state:     newState(currentUserID),
		listeners: map[uint64]Listener{},
	}
}

// Snapshot 当前状态快照
func (s *Store) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe 注册监听，返回取消函数
func (s *Store) Subscribe(fn Listener) func() {
	s.nmu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.nmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.nmu.Lock()
			delete(s.listeners, id)
			s.nmu.Unlock()
		})
	}
}

// Reset 清空全部状态，监听者保留
func (s *Store) Reset(currentUserID int64) {
	s.mu.Lock()
	s.state = newState(currentUserID)
	s.mu.Unlock()
	s.notify()
}

// update 在副本上执行修改，fn 返回 false 时丢弃副本且不通知
func (s *Store) update(fn func(next *State) bool) bool {
	s.mu.Lock()
	next := s.state.clone()
	if !fn(next) {
		s.mu.Unlock()
		return false
	}
	s.state = next
	s.mu.Unlock()
	s.notify()
	return true
}

// notify 同一时刻只有一个 goroutine 派发，期间的新变更合并为一次最新快照
// 监听者内部再次修改 Store 不会死锁
func (s *Store) notify() {
	s.nmu.Lock()
	if s.draining {
		s.pending = true
		s.nmu.Unlock()
		return
	}
	s.draining = true
	for {
		s.pending = false
		listeners := make([]Listener, 0, len(s.listeners))
		for _, l := range s.listeners {
			listeners = append(listeners, l)
		}
		s.nmu.Unlock()

		st := s.Snapshot()
		for _, l := range listeners {
			l(st)
		}

		s.nmu.Lock()
		if !s.pending {
			s.draining = false
			s.nmu.Unlock()
			return
		}
	}
}

// Watch 仅在 selector 选出的切片变化时回调
func Watch[T any](s *Store, selector func(st *State) T, equal func(a, b T) bool, fn func(T)) func() {
	var mu sync.Mutex
	prev := selector(s.Snapshot())
	return s.Subscribe(func(st *State) {
		cur := selector(st)
		mu.Lock()
		changed := !equal(prev, cur)
		if changed {
			prev = cur
		}
		mu.Unlock()
		if changed {
			fn(cur)
		}
	})
}

// Same 标量比较
func Same[T comparable](a, b T) bool {
	return a == b
}

// SameSlice 写时复制下的切片身份比较
func SameSlice[T any](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}
