package ephemeral

import (
	"sync"
	"time"
)

// DefaultStopDelay 最后一次按键后自动发送停止输入的延迟
const DefaultStopDelay = 2 * time.Second

// EmitFunc 发送本地输入状态
type EmitFunc func(conversationID, recipientID int64, isTyping bool)

// Typer 本地输入状态节流：只在状态切换时发送 typing=true，停止键入后自动发送 false
type Typer struct {
	mu        sync.Mutex
	delay     time.Duration
	emit      EmitFunc
	active    bool
	conv      int64
	recipient int64
	timer     *time.Timer
	gen       uint64
}

func NewTyper(delay time.Duration, emit EmitFunc) *Typer {
	if delay <= 0 {
		delay = DefaultStopDelay
	}
	return &Typer{delay: delay, emit: emit}
}

// Keystroke 记录一次按键
func (t *Typer) Keystroke(conversationID, recipientID int64) {
	t.mu.Lock()
	var stopPrev, start bool
	prevConv, prevRecipient := t.conv, t.recipient
	if t.active && t.conv != conversationID {
		stopPrev = true
	}
	if !t.active || stopPrev {
		start = true
	}
	t.active = true
	t.conv, t.recipient = conversationID, recipientID
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(t.delay, func() { t.fire(gen) })
	t.mu.Unlock()

	if stopPrev {
		t.emit(prevConv, prevRecipient, false)
	}
	if start {
		t.emit(conversationID, recipientID, true)
	}
}

// Stop 立即发送停止输入
func (t *Typer) Stop() {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}
	conv, recipient := t.conv, t.recipient
	t.reset()
	t.mu.Unlock()
	t.emit(conv, recipient, false)
}

// Cancel 丢弃计时器且不发送任何帧
func (t *Typer) Cancel() {
	t.mu.Lock()
	t.reset()
	t.mu.Unlock()
}

func (t *Typer) fire(gen uint64) {
	t.mu.Lock()
	if !t.active || gen != t.gen {
		t.mu.Unlock()
		return
	}
	conv, recipient := t.conv, t.recipient
	t.reset()
	t.mu.Unlock()
	t.emit(conv, recipient, false)
}

func (t *Typer) reset() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	t.active = false
}
