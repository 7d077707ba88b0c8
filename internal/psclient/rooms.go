package psclient

import (
	"strings"
	"sync"
	"time"
)

const (
	// Retained chat messages per room. The 101st insertion evicts the first.
	chatHistoryCap = 100
	// Retained raw battle-log lines per room, consumed by state extraction.
	battleLogCap = 128
)

// ring is a fixed-capacity FIFO over strings-agnostic payloads.
type ring[T any] struct {
	buf   []T
	head  int
	count int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = v
		r.count++
		return
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

// items returns the retained entries oldest first.
func (r *ring[T]) items() []T {
	out := make([]T, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}

func (r *ring[T]) reset() {
	r.head, r.count = 0, 0
}

// BattleContext is the per-room battle state the registry tracks between a
// battle-room init and its win/tie line.
type BattleContext struct {
	Format      string
	PlayerOne   string
	PlayerTwo   string
	IsPlayerOne bool
	Turn        int
	StartedAt   time.Time
}

// Room holds all mutable state scoped to one room name. The Registry is its
// only mutator.
type Room struct {
	Name   string
	Joined bool

	battle *BattleContext
	chat   *ring[Chat]
	log    *ring[string]
}

func newRoom(name string) *Room {
	return &Room{
		Name: name,
		chat: newRing[Chat](chatHistoryCap),
		log:  newRing[string](battleLogCap),
	}
}

// Registry owns per-room state, partitioned by room key. Rooms are created on
// first reference from an incoming event and removed on leave or battle end.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Ensure returns the room, creating it if this is its first reference.
func (g *Registry) Ensure(name string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ensureLocked(name)
}

func (g *Registry) ensureLocked(name string) *Room {
	if r, ok := g.rooms[name]; ok {
		return r
	}
	r := newRoom(name)
	g.rooms[name] = r
	return r
}

func (g *Registry) SetJoined(name string, joined bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensureLocked(name).Joined = joined
}

func (g *Registry) Joined(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[name]
	return ok && r.Joined
}

// AppendChat records a chat event in the room's bounded history.
func (g *Registry) AppendChat(name string, ev Chat) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensureLocked(name).chat.push(ev)
}

// ChatHistory returns the room's retained chat, oldest first, capped at the
// last 100 entries. Unknown rooms yield an empty slice.
func (g *Registry) ChatHistory(name string) []Chat {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[name]
	if !ok {
		return nil
	}
	return r.chat.items()
}

// AppendLog records a raw battle-log line for later state extraction.
func (g *Registry) AppendLog(name, line string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensureLocked(name).log.push(line)
}

// BattleLog returns the retained raw log lines for a room, oldest first.
func (g *Registry) BattleLog(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[name]
	if !ok {
		return nil
	}
	return r.log.items()
}

// StartBattle installs a fresh battle context for the room, clearing any
// log lines left over from a previous battle.
func (g *Registry) StartBattle(name, format string) *BattleContext {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.ensureLocked(name)
	r.battle = &BattleContext{Format: format, StartedAt: time.Now()}
	r.log.reset()
	return r.battle
}

// Battle returns a copy of the room's battle context, or nil when the room
// has no active battle.
func (g *Registry) Battle(name string) *BattleContext {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[name]
	if !ok || r.battle == nil {
		return nil
	}
	cp := *r.battle
	return &cp
}

// SetBattlePlayer records which identity occupies a battle slot and flips the
// perspective flag when our own name lands in slot p1.
func (g *Registry) SetBattlePlayer(name, slot, player, self string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[name]
	if !ok || r.battle == nil {
		return
	}
	switch slot {
	case "p1":
		r.battle.PlayerOne = player
		if strings.EqualFold(player, self) {
			r.battle.IsPlayerOne = true
		}
	case "p2":
		r.battle.PlayerTwo = player
	}
}

func (g *Registry) SetBattleTurn(name string, turn int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[name]
	if ok && r.battle != nil {
		r.battle.Turn = turn
	}
}

// EndBattle clears the room's battle context and returns its final state.
func (g *Registry) EndBattle(name string) *BattleContext {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[name]
	if !ok || r.battle == nil {
		return nil
	}
	ctx := r.battle
	r.battle = nil
	return ctx
}

// Remove drops a room and all its state.
func (g *Registry) Remove(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms, name)
}

// Rooms lists the currently tracked room names.
func (g *Registry) Rooms() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.rooms))
	for name := range g.rooms {
		out = append(out, name)
	}
	return out
}
