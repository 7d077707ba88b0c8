package bot

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ryankkien/pokemon-showdown/internal/battle"
	"github.com/ryankkien/pokemon-showdown/internal/llm"
	"github.com/ryankkien/pokemon-showdown/internal/psclient"
)

// Sender writes one outbound protocol line. Satisfied by *psclient.Conn.
type Sender interface {
	Send(line string)
}

// BattleObserver receives battle lifecycle notifications. This is the
// collaborator boundary for schedulers and leaderboards: the core emits
// facts and never reads ranking data.
type BattleObserver interface {
	BattleStarted(room, opponent, format string)
	TurnAdvanced(room string, turn int)
	BattleEnded(res battle.Result)
}

// Config is the slice of app configuration the player needs.
type Config struct {
	Username             string
	Room                 string
	BattleFormat         string
	AcceptChallengesFrom []string
}

type pendingDecision struct {
	rqid   int
	cancel context.CancelFunc
}

type submission struct {
	choice  string
	choices []string
}

// Bot is the automated player: it drives the authentication handshake,
// reconstructs battle state from dispatched events, obtains a decision for
// each battle request, and submits exactly one validated action per decision
// point.
type Bot struct {
	cfg      Config
	conn     Sender
	registry *psclient.Registry
	decider  llm.Decider
	logger   *zap.Logger

	rootCtx    context.Context
	rootCancel context.CancelFunc

	obsMu     sync.RWMutex
	observers []BattleObserver

	mu       sync.Mutex
	loggedIn bool
	pending  map[string]*pendingDecision
	last     map[string]submission
	started  map[string]bool

	readyOnce sync.Once
	readyCh   chan struct{}
}

func New(cfg Config, conn Sender, registry *psclient.Registry, decider llm.Decider, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		cfg:        cfg,
		conn:       conn,
		registry:   registry,
		decider:    decider,
		logger:     logger,
		rootCtx:    ctx,
		rootCancel: cancel,
		pending:    make(map[string]*pendingDecision),
		last:       make(map[string]submission),
		started:    make(map[string]bool),
		readyCh:    make(chan struct{}),
	}
}

// Attach subscribes the bot to a dispatcher's event stream.
func (b *Bot) Attach(d *psclient.Dispatcher) {
	d.OnEvent(b.HandleEvent)
}

// AddObserver registers a battle lifecycle observer.
func (b *Bot) AddObserver(obs BattleObserver) {
	b.obsMu.Lock()
	defer b.obsMu.Unlock()
	b.observers = append(b.observers, obs)
}

// Close cancels all in-flight decisions.
func (b *Bot) Close() {
	b.rootCancel()
}

// Ready is closed once the configured room join has been confirmed. No
// battle is initiated before that point.
func (b *Bot) Ready() <-chan struct{} {
	return b.readyCh
}

// Challenge initiates a battle against a user in the configured format.
func (b *Bot) Challenge(user, format string) {
	if format == "" {
		format = b.cfg.BattleFormat
	}
	b.conn.Send("|/challenge " + user + ", " + format)
}

// Search queues for a ladder battle in a format.
func (b *Bot) Search(format string) {
	if format == "" {
		format = b.cfg.BattleFormat
	}
	b.conn.Send("|/search " + format)
}

// HandleEvent routes one dispatched event. It runs on the dispatcher's
// goroutine, so everything long-running is pushed onto a per-room decision
// goroutine.
func (b *Bot) HandleEvent(ev psclient.RoomEvent) {
	switch e := ev.Event.(type) {
	case psclient.AuthChallenge:
		b.handleAuthChallenge(e)
	case psclient.IdentityUpdate:
		b.handleIdentityUpdate(e)
	case psclient.RoomInit:
		b.handleRoomInit(ev.Room, e)
	case psclient.PlayerInfo:
		b.handlePlayerInfo(ev.Room, e)
	case psclient.TurnAdvance:
		b.handleTurn(ev.Room, e)
	case psclient.BattleRequest:
		b.handleRequest(ev.Room, e.Payload)
	case psclient.ProtocolError:
		b.handleProtocolError(ev.Room, e)
	case psclient.BattleEnd:
		b.handleBattleEnd(ev.Room, e)
	case psclient.ChallengeUpdate:
		b.handleChallengeUpdate(e)
	}
}

// handleAuthChallenge answers |challstr| with the login command carrying the
// bot identity and the server token.
func (b *Bot) handleAuthChallenge(e psclient.AuthChallenge) {
	b.logger.Info("auth_challenge_received")
	b.conn.Send("|/trn " + b.cfg.Username + ",0," + e.Token)
}

// handleIdentityUpdate joins the configured room once the server confirms
// our identity. Until that confirmation no battle actions are attempted.
func (b *Bot) handleIdentityUpdate(e psclient.IdentityUpdate) {
	if !e.Named || !strings.EqualFold(e.Name, b.cfg.Username) {
		return
	}
	b.mu.Lock()
	first := !b.loggedIn
	b.loggedIn = true
	b.mu.Unlock()
	if !first {
		return
	}
	b.logger.Info("identity_confirmed", zap.String("name", e.Name))
	if b.cfg.Room != "" {
		b.conn.Send("|/join " + b.cfg.Room)
	}
}

func (b *Bot) handleRoomInit(room string, e psclient.RoomInit) {
	b.registry.SetJoined(room, true)
	if e.Kind != "battle" {
		if strings.EqualFold(room, b.cfg.Room) {
			b.readyOnce.Do(func() { close(b.readyCh) })
			b.logger.Info("room_joined", zap.String("room", room))
		}
		return
	}
	b.registry.StartBattle(room, formatFromRoom(room, b.cfg.BattleFormat))
	b.logger.Info("battle_room_init", zap.String("room", room))
}

func (b *Bot) handlePlayerInfo(room string, e psclient.PlayerInfo) {
	b.registry.SetBattlePlayer(room, e.Slot, e.Name, b.cfg.Username)
	ctx := b.registry.Battle(room)
	if ctx == nil || ctx.PlayerOne == "" || ctx.PlayerTwo == "" {
		return
	}
	b.mu.Lock()
	if b.started[room] {
		b.mu.Unlock()
		return
	}
	b.started[room] = true
	b.mu.Unlock()

	opponent := ctx.PlayerTwo
	if !ctx.IsPlayerOne {
		opponent = ctx.PlayerOne
	}
	b.logger.Info("battle_started",
		zap.String("room", room),
		zap.String("opponent", opponent),
		zap.String("format", ctx.Format))
	b.eachObserver(func(o BattleObserver) { o.BattleStarted(room, opponent, ctx.Format) })
}

func (b *Bot) handleTurn(room string, e psclient.TurnAdvance) {
	b.registry.SetBattleTurn(room, e.Turn)
	b.eachObserver(func(o BattleObserver) { o.TurnAdvanced(room, e.Turn) })
}

// handleRequest starts a decision for a battle request. At most one decision
// is outstanding per room: a newer request cancels the stale one rather than
// racing two actions for the same room.
func (b *Bot) handleRequest(room, payload string) {
	req, err := battle.ParseRequest(payload)
	if err != nil {
		b.logger.Warn("request_decode_failed", zap.String("room", room), zap.Error(err))
		return
	}
	if req.Wait {
		return
	}

	b.mu.Lock()
	if prev := b.pending[room]; prev != nil {
		b.logger.Warn("stale_decision_cancelled", zap.String("room", room), zap.Int("rqid", prev.rqid))
		prev.cancel()
	}
	ctx, cancel := context.WithCancel(b.rootCtx)
	b.pending[room] = &pendingDecision{rqid: req.RqID, cancel: cancel}
	b.mu.Unlock()

	go b.decide(ctx, room, req)
}

func (b *Bot) decide(ctx context.Context, room string, req *battle.Request) {
	defer b.clearPending(room, req.RqID)

	isPlayerOne := true
	if bc := b.registry.Battle(room); bc != nil {
		isPlayerOne = bc.IsPlayerOne
	}
	snap := battle.Extract(req, b.registry.BattleLog(room), isPlayerOne)
	choices := battle.LegalChoices(req)

	raw := b.decider.GetAction(ctx, snap, choices)
	if ctx.Err() != nil {
		return
	}
	choice := llm.ParseChoice(raw, choices)
	b.logger.Info("decision_made",
		zap.String("room", room),
		zap.Int("rqid", req.RqID),
		zap.String("choice", choice))
	b.submit(room, choice, choices)
}

func (b *Bot) submit(room, choice string, choices []string) {
	b.mu.Lock()
	b.last[room] = submission{choice: choice, choices: choices}
	b.mu.Unlock()
	b.conn.Send(room + "|/choose " + choice)
}

func (b *Bot) clearPending(room string, rqid int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p := b.pending[room]; p != nil && p.rqid == rqid {
		p.cancel()
		delete(b.pending, room)
	}
}

// handleProtocolError retries a rejected action with a different legal
// choice instead of resubmitting the same one.
func (b *Bot) handleProtocolError(room string, e psclient.ProtocolError) {
	msg := e.Message
	if !strings.Contains(msg, "Invalid choice") && !strings.Contains(msg, "Can't choose") {
		b.logger.Warn("protocol_error", zap.String("room", room), zap.String("message", msg))
		return
	}
	b.mu.Lock()
	last, ok := b.last[room]
	b.mu.Unlock()
	if !ok || len(last.choices) == 0 {
		return
	}
	next := nextChoice(last.choice, last.choices)
	b.logger.Warn("choice_rejected",
		zap.String("room", room),
		zap.String("rejected", last.choice),
		zap.String("retry", next))
	b.submit(room, next, last.choices)
}

// nextChoice picks the legal choice after the rejected one, wrapping. With a
// single legal choice there is nothing else to try.
func nextChoice(rejected string, choices []string) string {
	for i, ch := range choices {
		if ch == rejected {
			return choices[(i+1)%len(choices)]
		}
	}
	return choices[0]
}

func (b *Bot) handleBattleEnd(room string, e psclient.BattleEnd) {
	ctx := b.registry.EndBattle(room)
	if ctx == nil {
		return
	}

	b.mu.Lock()
	if p := b.pending[room]; p != nil {
		p.cancel()
		delete(b.pending, room)
	}
	delete(b.last, room)
	delete(b.started, room)
	b.mu.Unlock()

	winner := ""
	if !e.Tie {
		winner = e.Winner
	}
	res := battle.Result{
		ID:        uuid.NewString()[:8],
		Room:      room,
		Format:    ctx.Format,
		PlayerOne: ctx.PlayerOne,
		PlayerTwo: ctx.PlayerTwo,
		Winner:    winner,
		Turns:     ctx.Turn,
		Duration:  time.Since(ctx.StartedAt),
		EndedAt:   time.Now(),
	}
	b.logger.Info("battle_ended",
		zap.String("room", room),
		zap.String("winner", winner),
		zap.Int("turns", res.Turns))
	b.eachObserver(func(o BattleObserver) { o.BattleEnded(res) })

	b.conn.Send("|/leave " + room)
	b.registry.Remove(room)
}

// handleChallengeUpdate auto-accepts pending challenges from allowlisted
// users.
func (b *Bot) handleChallengeUpdate(e psclient.ChallengeUpdate) {
	if len(b.cfg.AcceptChallengesFrom) == 0 {
		return
	}
	var payload struct {
		ChallengesFrom map[string]string `json:"challengesFrom"`
	}
	if err := json.Unmarshal([]byte(e.Payload), &payload); err != nil {
		b.logger.Warn("challenge_decode_failed", zap.Error(err))
		return
	}
	for from := range payload.ChallengesFrom {
		if b.challengerAllowed(from) {
			b.logger.Info("challenge_accepted", zap.String("from", from))
			b.conn.Send("|/accept " + from)
		}
	}
}

func (b *Bot) challengerAllowed(user string) bool {
	for _, allowed := range b.cfg.AcceptChallengesFrom {
		if strings.EqualFold(allowed, user) {
			return true
		}
	}
	return false
}

func (b *Bot) eachObserver(fn func(BattleObserver)) {
	b.obsMu.RLock()
	obs := make([]BattleObserver, len(b.observers))
	copy(obs, b.observers)
	b.obsMu.RUnlock()
	for _, o := range obs {
		fn(o)
	}
}

// formatFromRoom extracts the format token from a battle room name such as
// "battle-gen9randombattle-42".
func formatFromRoom(room, fallback string) string {
	parts := strings.Split(room, "-")
	if len(parts) >= 2 && parts[0] == "battle" && parts[1] != "" {
		return parts[1]
	}
	return fallback
}
