package psclient

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Maximum chat payload length after trimming; longer messages are cut.
const maxChatLen = 300

// SendFunc hands a finished frame to the connection's outbound queue.
type SendFunc func(line string)

// ChatManager is the rate-limited outbound chat path. It throttles only
// chat-class frames: up to `burst` messages go out back-to-back, the rest of
// a burst drains at one frame per `interval` until the queue empties. Battle
// commands bypass this path entirely and share only the connection queue.
type ChatManager struct {
	send     SendFunc
	logger   *zap.Logger
	burst    int
	interval time.Duration

	mu       sync.Mutex
	credits  int
	queue    []string
	draining bool
}

func NewChatManager(send SendFunc, burst int, interval time.Duration, logger *zap.Logger) *ChatManager {
	if burst <= 0 {
		burst = 3
	}
	if interval <= 0 {
		interval = 300 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatManager{
		send:     send,
		logger:   logger,
		burst:    burst,
		interval: interval,
		credits:  burst,
	}
}

// SendChat queues "room|message" for transmission. Whitespace-only messages
// are discarded; oversized ones are truncated to the cap before framing.
func (m *ChatManager) SendChat(room, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	if len(message) > maxChatLen {
		message = message[:maxChatLen]
	}
	m.submit(room + "|" + message)
}

// SendWhisper queues a private message to a user.
func (m *ChatManager) SendWhisper(user, message string) {
	message = strings.TrimSpace(message)
	if user == "" || message == "" {
		return
	}
	if len(message) > maxChatLen {
		message = message[:maxChatLen]
	}
	m.submit("|/w " + user + ", " + message)
}

func (m *ChatManager) submit(frame string) {
	m.mu.Lock()
	if m.credits > 0 && !m.draining {
		m.credits--
		m.mu.Unlock()
		m.send(frame)
		return
	}
	m.queue = append(m.queue, frame)
	if !m.draining {
		m.draining = true
		go m.drain()
	}
	m.mu.Unlock()
}

// drain sends one queued frame per interval until the queue empties, then
// restores the full burst allowance.
func (m *ChatManager) drain() {
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for range t.C {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.draining = false
			m.credits = m.burst
			m.mu.Unlock()
			return
		}
		frame := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		m.send(frame)
	}
}

// QueueLen reports the number of frames still waiting on the throttle.
func (m *ChatManager) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
