package psclient

import (
	"reflect"
	"testing"
)

func TestParseChunkRoomScoping(t *testing.T) {
	chunk := ">battle-gen9randombattle-1\n|turn|3\n>lobby\n|c|alice|hello"
	events := ParseChunk(chunk)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Room != "battle-gen9randombattle-1" {
		t.Fatalf("room scoping broken: %q", events[0].Room)
	}
	if turn, ok := events[0].Event.(TurnAdvance); !ok || turn.Turn != 3 {
		t.Fatalf("expected TurnAdvance{3}, got %#v", events[0].Event)
	}
	if events[1].Room != "lobby" {
		t.Fatalf("marker did not rescope: %q", events[1].Room)
	}
}

func TestParseChunkGlobalRoomDefault(t *testing.T) {
	events := ParseChunk("|challstr|4|abcdef")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Room != "" {
		t.Fatalf("expected global room, got %q", events[0].Room)
	}
	ch, ok := events[0].Event.(AuthChallenge)
	if !ok {
		t.Fatalf("expected AuthChallenge, got %#v", events[0].Event)
	}
	// The token itself contains a pipe and must survive rejoining.
	if ch.Token != "4|abcdef" {
		t.Fatalf("token mangled: %q", ch.Token)
	}
}

func TestParseChunkChatVariants(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		want  Chat
	}{
		{"plain", "|c|alice|hi there", Chat{User: "alice", Message: "hi there"}},
		{"ranked user", "|c|+bob|yo", Chat{User: "bob", Message: "yo"}},
		{"timestamped", "|c:|1700000000|carol|late hi", Chat{User: "carol", Message: "late hi", Timestamp: 1700000000}},
		{"pipe in message", "|c|dave|a|b|c", Chat{User: "dave", Message: "a|b|c"}},
		{"raw system", "|raw|<b>The battle started!</b>", Chat{User: "System", Message: "<b>The battle started!</b>", IsRaw: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			events := ParseChunk(tc.line)
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			got, ok := events[0].Event.(Chat)
			if !ok {
				t.Fatalf("expected Chat, got %#v", events[0].Event)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %#v want %#v", got, tc.want)
			}
		})
	}
}

func TestParseChunkPrivateMessage(t *testing.T) {
	events := ParseChunk("|pm|alice|bot|psst, switch out")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	pm, ok := events[0].Event.(PrivateMessage)
	if !ok {
		t.Fatalf("expected PrivateMessage, got %#v", events[0].Event)
	}
	if pm.From != "alice" || pm.To != "bot" || pm.Message != "psst, switch out" {
		t.Fatalf("bad pm: %#v", pm)
	}
}

func TestParseChunkBattleLines(t *testing.T) {
	chunk := ">battle-x\n" +
		"|player|p1|SomeBot|\n" +
		"|-weather|RainDance\n" +
		"|-weather|RainDance|[upkeep]\n" +
		"|-fieldstart|move: Grassy Terrain\n" +
		"|-sidestart|p1: SomeBot|move: Stealth Rock\n" +
		"|switch|p2a: Garchomp|Garchomp, L76, M|100/100\n" +
		"|win|SomeBot"
	events := ParseChunk(chunk)
	if len(events) != 7 {
		t.Fatalf("expected 7 events, got %d", len(events))
	}
	if w := events[1].Event.(WeatherChange); w.Weather != "RainDance" || w.Upkeep {
		t.Fatalf("bad weather: %#v", w)
	}
	if w := events[2].Event.(WeatherChange); !w.Upkeep {
		t.Fatalf("upkeep flag lost: %#v", w)
	}
	if f := events[3].Event.(FieldStart); f.Effect != "move: Grassy Terrain" {
		t.Fatalf("bad fieldstart: %#v", f)
	}
	if s := events[4].Event.(SideStart); s.Side != "p1: SomeBot" || s.Effect != "move: Stealth Rock" {
		t.Fatalf("bad sidestart: %#v", s)
	}
	if sw := events[5].Event.(SwitchIn); sw.Position != "p2a: Garchomp" || sw.Condition != "100/100" {
		t.Fatalf("bad switch: %#v", sw)
	}
	if end := events[6].Event.(BattleEnd); end.Winner != "SomeBot" || end.Tie {
		t.Fatalf("bad win: %#v", end)
	}
}

func TestParseChunkIgnoresMalformedAndNoise(t *testing.T) {
	chunk := "garbage without pipe\n" +
		"|\n" +
		"|c|missingmessage\n" +
		"|turn|notanumber\n" +
		"|formats|a|b|c\n" +
		"|updatesearch|{}\n" +
		"|totallyunknown|x|y\n" +
		"|turn|5"
	events := ParseChunk(chunk)
	if len(events) != 1 {
		t.Fatalf("malformed lines should be skipped, got %d events", len(events))
	}
	if turn, ok := events[0].Event.(TurnAdvance); !ok || turn.Turn != 5 {
		t.Fatalf("surviving event wrong: %#v", events[0].Event)
	}
}

func TestParseChunkEmptyRequestSkipped(t *testing.T) {
	if events := ParseChunk("|request|"); len(events) != 0 {
		t.Fatalf("empty request should be skipped, got %d", len(events))
	}
	events := ParseChunk(`|request|{"rqid":1}`)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	req, ok := events[0].Event.(BattleRequest)
	if !ok || req.Payload != `{"rqid":1}` {
		t.Fatalf("bad request event: %#v", events[0].Event)
	}
}
