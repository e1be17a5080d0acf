package ephemeral

import (
	"ChatSync/internal/model"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ttl = 60 * time.Millisecond

func typing(sender int64, on bool) model.TypingIndicator {
	return model.TypingIndicator{ConversationID: 1, SenderID: sender, IsTyping: on}
}

func TestTracker_TypingExpires(t *testing.T) {
	tr := NewTracker(ttl)
	tr.ApplyTyping(typing(2, true))
	assert.True(t, tr.IsTyping(2))

	assert.Eventually(t, func() bool { return !tr.IsTyping(2) }, 10*ttl, 5*time.Millisecond)
}

func TestTracker_RefreshExtendsExpiry(t *testing.T) {
	tr := NewTracker(ttl)
	tr.ApplyTyping(typing(2, true))

	deadline := time.Now().Add(2 * ttl)
	for time.Now().Before(deadline) {
		tr.ApplyTyping(typing(2, true))
		time.Sleep(ttl / 4)
	}
	assert.True(t, tr.IsTyping(2), "refreshed indicator must survive past the original ttl")

	assert.Eventually(t, func() bool { return !tr.IsTyping(2) }, 10*ttl, 5*time.Millisecond)
}

func TestTracker_FalseRemovesImmediately(t *testing.T) {
	tr := NewTracker(time.Hour)
	tr.ApplyTyping(typing(2, true))
	tr.ApplyTyping(typing(3, true))
	tr.ApplyTyping(typing(2, false))

	snap := tr.Snapshot()
	assert.NotContains(t, snap.Typing, int64(2))
	assert.Contains(t, snap.Typing, int64(3))
}

func TestTracker_StaleTimerDoesNotRemoveRefreshed(t *testing.T) {
	tr := NewTracker(ttl)
	tr.ApplyTyping(typing(2, true))
	tr.ApplyTyping(typing(2, false))
	tr.ApplyTyping(typing(2, true))

	time.Sleep(ttl / 2)
	assert.True(t, tr.IsTyping(2))
}

func TestTracker_Presence(t *testing.T) {
	tr := NewTracker(ttl)
	var mu sync.Mutex
	notified := 0
	tr.Subscribe(func(Snapshot) {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	tr.SetOnline([]int64{1, 2})
	before := tr.Snapshot()
	tr.ApplyPresence(model.PresenceEvent{UserID: 3, Online: true})
	tr.ApplyPresence(model.PresenceEvent{UserID: 3, Online: true})
	tr.ApplyPresence(model.PresenceEvent{UserID: 1, Online: false})

	snap := tr.Snapshot()
	assert.True(t, snap.IsOnline(2))
	assert.True(t, snap.IsOnline(3))
	assert.False(t, snap.IsOnline(1))
	assert.False(t, snap.IsOnline(99))

	// 旧快照不受后续修改影响
	assert.True(t, before.IsOnline(1))
	assert.False(t, before.IsOnline(3))

	mu.Lock()
	assert.Equal(t, 3, notified)
	mu.Unlock()
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker(ttl)
	tr.ApplyTyping(typing(2, true))
	tr.SetOnline([]int64{2})

	tr.Reset()
	snap := tr.Snapshot()
	assert.Empty(t, snap.Typing)
	assert.Empty(t, snap.Online)
}

type emitted struct {
	conv     int64
	isTyping bool
}

type recorder struct {
	mu  sync.Mutex
	out []emitted
}

func (r *recorder) emit(conv, _ int64, isTyping bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = append(r.out, emitted{conv: conv, isTyping: isTyping})
}

func (r *recorder) events() []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emitted(nil), r.out...)
}

func TestTyper_ThrottlesAndAutoStops(t *testing.T) {
	rec := &recorder{}
	typer := NewTyper(ttl, rec.emit)

	for i := 0; i < 5; i++ {
		typer.Keystroke(1, 2)
	}
	assert.Equal(t, []emitted{{1, true}}, rec.events())

	assert.Eventually(t, func() bool { return len(rec.events()) == 2 }, 10*ttl, 5*time.Millisecond)
	assert.Equal(t, emitted{1, false}, rec.events()[1])

	typer.Keystroke(1, 2)
	require.Len(t, rec.events(), 3)
	assert.Equal(t, emitted{1, true}, rec.events()[2])
	typer.Cancel()
}

func TestTyper_StopAndSwitch(t *testing.T) {
	rec := &recorder{}
	typer := NewTyper(time.Hour, rec.emit)

	typer.Keystroke(1, 2)
	typer.Keystroke(3, 4)
	typer.Stop()
	typer.Stop()

	assert.Equal(t, []emitted{{1, true}, {1, false}, {3, true}, {3, false}}, rec.events())
}
