package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// bridge carries messages from session loops into the bubbletea loop.
// push never blocks, so a session listener can call it from its loop.
type bridge struct {
	mu     sync.Mutex
	queue  []tea.Msg
	ready  chan struct{}
	closed bool
}

func newBridge() *bridge {
	return &bridge{ready: make(chan struct{}, 1)}
}

func (b *bridge) push(msg tea.Msg) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, msg)
	b.mu.Unlock()

	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// close wakes any waiter; queued messages are still delivered.
func (b *bridge) close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// pop blocks until a message is queued. It returns false once the bridge
// is closed and drained.
func (b *bridge) pop() (tea.Msg, bool) {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			msg := b.queue[0]
			b.queue = b.queue[1:]
			b.mu.Unlock()
			return msg, true
		}
		closed := b.closed
		b.mu.Unlock()
		if closed {
			return nil, false
		}
		<-b.ready
	}
}

// wait returns a command that delivers the next bridged message. The App
// re-issues it after every delivery.
func (b *bridge) wait() tea.Cmd {
	return func() tea.Msg {
		msg, ok := b.pop()
		if !ok {
			return nil
		}
		return bridgedMsg{msg}
	}
}

// bridgedMsg wraps a message that came through the bridge so the App knows
// to wait for the next one.
type bridgedMsg struct {
	msg tea.Msg
}
