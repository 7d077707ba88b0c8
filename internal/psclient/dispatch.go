package psclient

import (
	"sync"

	"go.uber.org/zap"
)

// ChatObserver receives room chat events after they are recorded in history.
type ChatObserver func(room string, ev Chat)

// WhisperObserver receives private messages. Whispers never touch room
// history.
type WhisperObserver func(ev PrivateMessage)

// EventHandler receives every parsed event for routing beyond chat.
type EventHandler func(ev RoomEvent)

// Dispatcher fans parsed events out to the room registry and registered
// observers. It is fed from the connection's single reader, so per-room
// ordering matches wire ordering.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger

	mu         sync.RWMutex
	chatObs    []ChatObserver
	whisperObs []WhisperObserver
	handlers   []EventHandler
}

func NewDispatcher(registry *Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{registry: registry, logger: logger}
}

func (d *Dispatcher) OnChat(cb ChatObserver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chatObs = append(d.chatObs, cb)
}

func (d *Dispatcher) OnWhisper(cb WhisperObserver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.whisperObs = append(d.whisperObs, cb)
}

func (d *Dispatcher) OnEvent(cb EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, cb)
}

// DispatchChunk parses a raw frame and routes every event it yields.
func (d *Dispatcher) DispatchChunk(chunk string) {
	for _, ev := range ParseChunk(chunk) {
		d.Dispatch(ev)
	}
}

// Dispatch routes one event: chat goes to history plus chat observers,
// whispers to whisper observers only, and battle-log lines are retained for
// state extraction before the generic handlers run.
func (d *Dispatcher) Dispatch(ev RoomEvent) {
	d.mu.RLock()
	chatObs := d.chatObs
	whisperObs := d.whisperObs
	handlers := d.handlers
	d.mu.RUnlock()

	switch e := ev.Event.(type) {
	case Chat:
		d.registry.AppendChat(ev.Room, e)
		for _, cb := range chatObs {
			cb(ev.Room, e)
		}
	case PrivateMessage:
		for _, cb := range whisperObs {
			cb(e)
		}
	case WeatherChange, FieldStart, SideStart, TurnAdvance, SwitchIn:
		if d.registry.Battle(ev.Room) != nil {
			d.registry.AppendLog(ev.Room, ev.Line)
		}
	}

	for _, cb := range handlers {
		cb(ev)
	}
}
