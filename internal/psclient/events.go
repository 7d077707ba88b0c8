package psclient

import (
	"strconv"
	"strings"
)

// Event is the closed set of inbound protocol events. Every variant is
// produced by ParseChunk; nothing outside this package inspects raw lines.
type Event interface{ isEvent() }

// RoomEvent scopes a parsed event to the room that the surrounding chunk
// addressed. Line carries the original protocol line for battle-log replay.
type RoomEvent struct {
	Room  string
	Line  string
	Event Event
}

// Chat is a room chat message. The raw/system variant carries the synthetic
// "System" user and IsRaw set; its payload is passed through unescaped.
type Chat struct {
	User      string
	Message   string
	Timestamp int64
	IsRaw     bool
}

// PrivateMessage is a whisper. It never enters room chat history.
type PrivateMessage struct {
	From    string
	To      string
	Message string
}

// AuthChallenge carries the server login token from |challstr|.
type AuthChallenge struct {
	Token string
}

// IdentityUpdate reports the name the server currently knows us by.
type IdentityUpdate struct {
	Name   string
	Named  bool
	Avatar string
}

// BattleRequest carries the raw JSON decision-point payload.
type BattleRequest struct {
	Payload string
}

// ProtocolError is the server rejecting something we sent.
type ProtocolError struct {
	Message string
}

// WeatherChange covers both |weather| and |-weather| lines. Upkeep marks the
// per-turn confirmation variant, which must not clear the current weather.
type WeatherChange struct {
	Weather string
	Upkeep  bool
}

// FieldStart is a whole-field effect such as a terrain.
type FieldStart struct {
	Effect string
}

// SideStart is a one-side effect such as an entry hazard.
type SideStart struct {
	Side   string
	Effect string
}

// TurnAdvance marks the start of a numbered turn.
type TurnAdvance struct {
	Turn int
}

// RoomInit announces the kind of a freshly joined room ("battle", "chat").
type RoomInit struct {
	Kind string
}

// PlayerInfo names the player occupying a battle slot ("p1"/"p2").
type PlayerInfo struct {
	Slot string
	Name string
}

// SwitchIn reports a Pokémon entering the field, ours or the opponent's.
type SwitchIn struct {
	Position  string
	Details   string
	Condition string
}

// BattleEnd terminates a battle. Winner is empty for a tie.
type BattleEnd struct {
	Winner string
	Tie    bool
}

// ChallengeUpdate carries the raw JSON of pending challenges.
type ChallengeUpdate struct {
	Payload string
}

func (Chat) isEvent()            {}
func (PrivateMessage) isEvent()  {}
func (AuthChallenge) isEvent()   {}
func (IdentityUpdate) isEvent()  {}
func (BattleRequest) isEvent()   {}
func (ProtocolError) isEvent()   {}
func (WeatherChange) isEvent()   {}
func (FieldStart) isEvent()      {}
func (SideStart) isEvent()       {}
func (TurnAdvance) isEvent()     {}
func (RoomInit) isEvent()        {}
func (PlayerInfo) isEvent()      {}
func (SwitchIn) isEvent()        {}
func (BattleEnd) isEvent()       {}
func (ChallengeUpdate) isEvent() {}

// High-volume housekeeping lines the server sends on login. Dropped without
// logging.
var noiseKinds = map[string]struct{}{
	"formats":       {},
	"customgroups":  {},
	"updatesearch":  {},
	"queryresponse": {},
}

// ParseChunk splits a raw text chunk into typed, room-scoped events.
//
// A chunk may open with a ">roomname" marker that scopes every following line
// until the next marker; lines before any marker belong to the global room
// (empty name). Unrecognized or malformed lines are skipped; a single bad
// line never aborts the stream.
func ParseChunk(chunk string) []RoomEvent {
	var out []RoomEvent
	room := ""
	for _, line := range strings.Split(chunk, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			room = strings.TrimSpace(line[1:])
			continue
		}
		if !strings.HasPrefix(line, "|") {
			continue
		}
		if ev := parseLine(line); ev != nil {
			out = append(out, RoomEvent{Room: room, Line: line, Event: ev})
		}
	}
	return out
}

// parseLine maps one pipe-delimited line onto an Event, or nil to skip it.
func parseLine(line string) Event {
	parts := strings.Split(line, "|")
	if len(parts) < 2 {
		return nil
	}
	kind := parts[1]
	if _, skip := noiseKinds[kind]; skip {
		return nil
	}

	switch kind {
	case "c", "chat":
		if len(parts) < 4 {
			return nil
		}
		return Chat{User: cleanUser(parts[2]), Message: rejoin(parts, 3)}
	case "c:":
		if len(parts) < 5 {
			return nil
		}
		ts, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return nil
		}
		return Chat{User: cleanUser(parts[3]), Message: rejoin(parts, 4), Timestamp: ts}
	case "pm":
		if len(parts) < 5 {
			return nil
		}
		return PrivateMessage{From: cleanUser(parts[2]), To: cleanUser(parts[3]), Message: rejoin(parts, 4)}
	case "raw", "html":
		if len(parts) < 3 {
			return nil
		}
		return Chat{User: "System", Message: rejoin(parts, 2), IsRaw: true}
	case "challstr":
		if len(parts) < 3 {
			return nil
		}
		return AuthChallenge{Token: rejoin(parts, 2)}
	case "updateuser":
		if len(parts) < 4 {
			return nil
		}
		ev := IdentityUpdate{Name: cleanUser(parts[2]), Named: parts[3] == "1"}
		if len(parts) >= 5 {
			ev.Avatar = parts[4]
		}
		return ev
	case "request":
		payload := rejoin(parts, 2)
		if strings.TrimSpace(payload) == "" {
			return nil
		}
		return BattleRequest{Payload: payload}
	case "error":
		return ProtocolError{Message: rejoin(parts, 2)}
	case "weather":
		if len(parts) < 3 {
			return nil
		}
		return WeatherChange{Weather: parts[2]}
	case "-weather":
		if len(parts) < 3 {
			return nil
		}
		return WeatherChange{Weather: parts[2], Upkeep: hasTag(parts[3:], "[upkeep]")}
	case "-fieldstart":
		if len(parts) < 3 {
			return nil
		}
		return FieldStart{Effect: parts[2]}
	case "-sidestart":
		if len(parts) < 4 {
			return nil
		}
		return SideStart{Side: parts[2], Effect: parts[3]}
	case "turn":
		if len(parts) < 3 {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil || n < 0 {
			return nil
		}
		return TurnAdvance{Turn: n}
	case "switch", "drag":
		if len(parts) < 4 {
			return nil
		}
		ev := SwitchIn{Position: parts[2], Details: parts[3]}
		if len(parts) >= 5 {
			ev.Condition = parts[4]
		}
		return ev
	case "init":
		if len(parts) < 3 {
			return nil
		}
		return RoomInit{Kind: parts[2]}
	case "player":
		if len(parts) < 4 {
			return nil
		}
		return PlayerInfo{Slot: parts[2], Name: cleanUser(parts[3])}
	case "win":
		if len(parts) < 3 {
			return nil
		}
		return BattleEnd{Winner: cleanUser(parts[2])}
	case "tie":
		return BattleEnd{Tie: true}
	case "updatechallenges":
		return ChallengeUpdate{Payload: rejoin(parts, 2)}
	default:
		return nil
	}
}

// rejoin restores pipes inside trailing free-text fields.
func rejoin(parts []string, from int) string {
	if from >= len(parts) {
		return ""
	}
	return strings.Join(parts[from:], "|")
}

func hasTag(parts []string, tag string) bool {
	for _, p := range parts {
		if strings.TrimSpace(p) == tag {
			return true
		}
	}
	return false
}

// cleanUser strips the rank sigil ("+", "%", "@", "#", "~", "*") and
// surrounding space from a username field.
func cleanUser(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	switch s[0] {
	case '+', '%', '@', '#', '~', '*', '&', '!', '^':
		return strings.TrimSpace(s[1:])
	}
	return s
}
