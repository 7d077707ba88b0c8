package battle

import (
	"reflect"
	"testing"
)

func TestHPPercent(t *testing.T) {
	tests := []struct {
		hp, maxHP, want int
	}{
		{100, 100, 100},
		{0, 100, 0},
		{1, 3, 33},
		{2, 3, 67},
		{84, 167, 50},
		{-5, 100, 0},
		{150, 100, 100},
		{50, 0, 0},
		{50, -1, 0},
	}
	for _, tc := range tests {
		if got := HPPercent(tc.hp, tc.maxHP); got != tc.want {
			t.Fatalf("HPPercent(%d,%d) = %d, want %d", tc.hp, tc.maxHP, got, tc.want)
		}
	}
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		in        string
		hp, maxHP int
		status    string
	}{
		{"100/100", 100, 100, ""},
		{"45/120 par", 45, 120, "par"},
		{"0 fnt", 0, 1, "fnt"},
		{"", 0, 1, ""},
		{"  73/219 brn ", 73, 219, "brn"},
	}
	for _, tc := range tests {
		hp, maxHP, status := parseCondition(tc.in)
		if hp != tc.hp || maxHP != tc.maxHP || status != tc.status {
			t.Fatalf("parseCondition(%q) = %d/%d %q", tc.in, hp, maxHP, status)
		}
	}
}

func TestLevelFromDetails(t *testing.T) {
	if got := levelFromDetails("Pikachu, L84, M"); got != 84 {
		t.Fatalf("level = %d", got)
	}
	if got := levelFromDetails("Mewtwo"); got != 100 {
		t.Fatalf("absent level should default to 100, got %d", got)
	}
	if got := levelFromDetails("Lycanroc, L76, F, shiny"); got != 76 {
		t.Fatalf("level = %d", got)
	}
}

func TestSpeciesFromIdent(t *testing.T) {
	if got := speciesFromIdent("p1: Pikachu"); got != "Pikachu" {
		t.Fatalf("species = %q", got)
	}
	if got := speciesFromIdent("p2a: Garchomp"); got != "Garchomp" {
		t.Fatalf("species = %q", got)
	}
}

func TestExtractPlayerTeam(t *testing.T) {
	req := &Request{Side: SideInfo{Pokemon: []PokemonInfo{
		{
			Ident:       "p1: Pikachu",
			Details:     "Pikachu, L84, M",
			Condition:   "42/167 par",
			Active:      true,
			Moves:       []string{"thunderbolt", "surf"},
			BaseAbility: "static",
			Item:        "lightball",
			Boosts:      map[string]int{"spe": 1},
		},
		{Ident: "p1: Gengar", Details: "Gengar, L80", Condition: "0 fnt"},
	}}}

	snap := Extract(req, nil, true)
	if len(snap.PlayerTeam) != 2 {
		t.Fatalf("team size %d", len(snap.PlayerTeam))
	}
	pika := snap.PlayerTeam[0]
	if pika.Species != "Pikachu" || pika.Level != 84 {
		t.Fatalf("identity wrong: %#v", pika)
	}
	if pika.HP != 42 || pika.MaxHP != 167 || pika.HPPercentage != 25 || pika.Status != "par" {
		t.Fatalf("condition wrong: %#v", pika)
	}
	if pika.Ability != "static" {
		t.Fatalf("baseAbility fallback missing: %q", pika.Ability)
	}
	if !pika.Active || pika.Boosts["spe"] != 1 {
		t.Fatalf("flags wrong: %#v", pika)
	}
	gengar := snap.PlayerTeam[1]
	if gengar.HPPercentage != 0 || gengar.Status != "fnt" {
		t.Fatalf("fainted view wrong: %#v", gengar)
	}
}

func TestExtractAbilityOverridesBase(t *testing.T) {
	req := &Request{Side: SideInfo{Pokemon: []PokemonInfo{
		{Ident: "p1: Ditto", Condition: "100/100", BaseAbility: "limber", Ability: "imposter"},
	}}}
	snap := Extract(req, nil, true)
	if snap.PlayerTeam[0].Ability != "imposter" {
		t.Fatalf("ability = %q", snap.PlayerTeam[0].Ability)
	}
}

func TestExtractFieldConditions(t *testing.T) {
	log := []string{
		"|turn|1",
		"|-weather|RainDance",
		"|turn|2",
		"|-weather|SunnyDay",
		"|-weather|SunnyDay|[upkeep]",
		"|-fieldstart|move: Grassy Terrain",
		"|-sidestart|p1: SomeBot|move: Stealth Rock",
		"|-sidestart|p2: Rival|Spikes",
		"|turn|3",
	}
	snap := Extract(nil, log, true)
	if snap.Turn != 3 {
		t.Fatalf("turn = %d", snap.Turn)
	}
	// Upkeep confirms but never replaces; last real set wins.
	if snap.Weather != "SunnyDay" {
		t.Fatalf("weather = %q", snap.Weather)
	}
	if snap.Terrain != "Grassy Terrain" {
		t.Fatalf("terrain = %q", snap.Terrain)
	}
	wantEffects := []string{"p1: Stealth Rock", "p2: Spikes"}
	if !reflect.DeepEqual(snap.FieldEffects, wantEffects) {
		t.Fatalf("fieldEffects = %v", snap.FieldEffects)
	}
}

func TestExtractWeatherUpkeepDoesNotClear(t *testing.T) {
	snap := Extract(nil, []string{"|weather|RainDance"}, true)
	if snap.Weather != "RainDance" {
		t.Fatalf("weather = %q", snap.Weather)
	}
	snap = Extract(nil, []string{
		"|weather|RainDance",
		"|-weather|RainDance|[upkeep]",
	}, true)
	if snap.Weather != "RainDance" {
		t.Fatalf("upkeep changed weather: %q", snap.Weather)
	}
}

func TestExtractWeatherNoneClears(t *testing.T) {
	log := []string{
		"|-weather|Sandstorm",
		"|-weather|none",
	}
	snap := Extract(nil, log, true)
	if snap.Weather != "" {
		t.Fatalf("weather should be cleared, got %q", snap.Weather)
	}
}

func TestExtractOpponentTeamFromSwitches(t *testing.T) {
	log := []string{
		"|switch|p1a: Pikachu|Pikachu, L84|100/100",
		"|switch|p2a: Garchomp|Garchomp, L76, M|100/100",
		"|switch|p2a: Skarmory|Skarmory, L80|100/100",
		"|switch|p2a: Garchomp|Garchomp, L76, M|64/100",
	}
	snap := Extract(nil, log, true)

	// Our own switches never land in the opponent list.
	if len(snap.OpponentTeam) != 2 {
		t.Fatalf("opponent team = %#v", snap.OpponentTeam)
	}
	chomp := snap.OpponentTeam[0]
	if chomp.Species != "Garchomp" || chomp.Level != 76 {
		t.Fatalf("garchomp wrong: %#v", chomp)
	}
	// Re-entry updates in place rather than duplicating.
	if chomp.HPPercentage != 64 {
		t.Fatalf("re-entry hp = %d", chomp.HPPercentage)
	}
	if !chomp.Active {
		t.Fatalf("latest switch-in should be active")
	}
	if snap.OpponentTeam[1].Active {
		t.Fatalf("skarmory should no longer be active")
	}
}

func TestExtractPerspectiveFlipsOpponentSide(t *testing.T) {
	log := []string{
		"|switch|p1a: Garchomp|Garchomp, L76|100/100",
		"|switch|p2a: Pikachu|Pikachu, L84|100/100",
	}
	snap := Extract(nil, log, false)
	if len(snap.OpponentTeam) != 1 || snap.OpponentTeam[0].Species != "Garchomp" {
		t.Fatalf("as p2 the opponent is p1: %#v", snap.OpponentTeam)
	}
	if snap.IsPlayerOne {
		t.Fatalf("perspective flag wrong")
	}
}

func TestExtractEmptyInputs(t *testing.T) {
	snap := Extract(nil, nil, true)
	if snap == nil {
		t.Fatalf("snapshot must never be nil")
	}
	if len(snap.PlayerTeam) != 0 || len(snap.OpponentTeam) != 0 {
		t.Fatalf("empty inputs should yield empty teams: %#v", snap)
	}
}
