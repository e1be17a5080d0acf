package ephemeral

import (
	"ChatSync/internal/model"
	"sync"
	"time"
)

// DefaultTypingTTL 输入状态无刷新时的过期时间
const DefaultTypingTTL = 3 * time.Second

// Snapshot 输入状态与在线集合的只读快照
type Snapshot struct {
	Typing map[int64]model.TypingIndicator // key: senderID
	Online map[int64]struct{}
}

// IsOnline 不在集合中即视为离线
func (s Snapshot) IsOnline(userID int64) bool {
	_, ok := s.Online[userID]
	return ok
}

type typingEntry struct {
	timer *time.Timer
	gen   uint64
}

// Tracker 维护输入状态与在线状态，二者都只由入站事件驱动
type Tracker struct {
	mu      sync.Mutex
	ttl     time.Duration
	gen     uint64
	entries map[int64]*typingEntry
	snap    Snapshot

	lmu       sync.Mutex
	listeners map[uint64]func(Snapshot)
	nextID    uint64
}

func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &Tracker{
		ttl:       ttl,
		entries:   map[int64]*typingEntry{},
		snap:      emptySnapshot(),
		listeners: map[uint64]func(Snapshot){},
	}
}

func emptySnapshot() Snapshot {
	return Snapshot{Typing: map[int64]model.TypingIndicator{}, Online: map[int64]struct{}{}}
}

// Snapshot 当前快照
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Subscribe 注册变更回调，返回取消函数
func (t *Tracker) Subscribe(fn func(Snapshot)) func() {
	t.lmu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.lmu.Unlock()
	return func() {
		t.lmu.Lock()
		delete(t.listeners, id)
		t.lmu.Unlock()
	}
}

// ApplyTyping isTyping=true 时刷新并重新计时，false 时立即移除
func (t *Tracker) ApplyTyping(ind model.TypingIndicator) {
	t.mu.Lock()
	sender := ind.SenderID
	if old, ok := t.entries[sender]; ok {
		old.timer.Stop()
		delete(t.entries, sender)
	}
	if !ind.IsTyping {
		if _, ok := t.snap.Typing[sender]; !ok {
			t.mu.Unlock()
			return
		}
		t.setTypingLocked(sender, nil)
		t.unlockAndNotify()
		return
	}

	t.gen++
	gen := t.gen
	t.entries[sender] = &typingEntry{
		gen:   gen,
		timer: time.AfterFunc(t.ttl, func() { t.expire(sender, gen) }),
	}
	t.setTypingLocked(sender, &ind)
	t.unlockAndNotify()
}

// IsTyping 某用户当前是否在输入
func (t *Tracker) IsTyping(senderID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.snap.Typing[senderID]
	return ok
}

// ApplyPresence 上线加入集合，下线移除
func (t *Tracker) ApplyPresence(ev model.PresenceEvent) {
	t.mu.Lock()
	_, online := t.snap.Online[ev.UserID]
	if online == ev.Online {
		t.mu.Unlock()
		return
	}
	set := make(map[int64]struct{}, len(t.snap.Online)+1)
	for id := range t.snap.Online {
		set[id] = struct{}{}
	}
	if ev.Online {
		set[ev.UserID] = struct{}{}
	} else {
		delete(set, ev.UserID)
	}
	t.snap.Online = set
	t.unlockAndNotify()
}

// SetOnline 以服务端在线列表整体替换集合
func (t *Tracker) SetOnline(userIDs []int64) {
	t.mu.Lock()
	set := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		set[id] = struct{}{}
	}
	t.snap.Online = set
	t.unlockAndNotify()
}

// Reset 停止全部计时器并清空状态
func (t *Tracker) Reset() {
	t.mu.Lock()
	for _, e := range t.entries {
		e.timer.Stop()
	}
	t.entries = map[int64]*typingEntry{}
	t.snap = emptySnapshot()
	t.unlockAndNotify()
}

func (t *Tracker) expire(sender int64, gen uint64) {
	t.mu.Lock()
	e, ok := t.entries[sender]
	if !ok || e.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.entries, sender)
	t.setTypingLocked(sender, nil)
	t.unlockAndNotify()
}

func (t *Tracker) setTypingLocked(sender int64, ind *model.TypingIndicator) {
	m := make(map[int64]model.TypingIndicator, len(t.snap.Typing)+1)
	for k, v := range t.snap.Typing {
		m[k] = v
	}
	if ind == nil {
		delete(m, sender)
	} else {
		m[sender] = *ind
	}
	t.snap.Typing = m
}

func (t *Tracker) unlockAndNotify() {
	snap := t.snap
	t.mu.Unlock()

	t.lmu.Lock()
	fns := make([]func(Snapshot), 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	t.lmu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}
