package battle

import (
	"math"
	"strconv"
	"strings"
)

// PokemonView is one team member as seen at a decision point.
type PokemonView struct {
	Species      string
	Level        int
	HP           int
	MaxHP        int
	HPPercentage int
	Status       string
	Active       bool
	Stats        map[string]int
	Moves        []string
	Ability      string
	Item         string
	Boosts       map[string]int
}

// Snapshot is an immutable reconstruction of battle-relevant state at one
// decision point. It is built fresh per request and never mutated after
// construction.
type Snapshot struct {
	Turn         int
	PlayerTeam   []PokemonView
	OpponentTeam []PokemonView
	Weather      string
	Terrain      string
	FieldEffects []string
	IsPlayerOne  bool
}

// HPPercent derives the displayed HP percentage. It is always recomputed
// from hp/maxHP and clamped to [0,100].
func HPPercent(hp, maxHP int) int {
	if maxHP <= 0 {
		return 0
	}
	pct := int(math.Round(float64(hp) * 100 / float64(maxHP)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Extract folds a request payload and the room's recent log lines into a
// snapshot. It tolerates empty or partial payloads (a forced-switch request
// has no active data) and still returns a structurally valid snapshot with
// empty sequences where data is absent.
func Extract(req *Request, logLines []string, isPlayerOne bool) *Snapshot {
	snap := &Snapshot{IsPlayerOne: isPlayerOne}

	if req != nil {
		for _, p := range req.Side.Pokemon {
			snap.PlayerTeam = append(snap.PlayerTeam, viewFromInfo(p))
		}
	}

	opponentSide := "p2"
	if !isPlayerOne {
		opponentSide = "p1"
	}

	opponents := make([]PokemonView, 0, 6)
	opponentIdx := make(map[string]int)

	// Last-writer-wins per field across the log scan.
	for _, line := range logLines {
		parts := strings.Split(line, "|")
		if len(parts) < 2 {
			continue
		}
		switch parts[1] {
		case "turn":
			if len(parts) >= 3 {
				if n, err := strconv.Atoi(strings.TrimSpace(parts[2])); err == nil && n >= 0 {
					snap.Turn = n
				}
			}
		case "weather":
			if len(parts) >= 3 {
				snap.Weather = normalizeWeather(parts[2])
			}
		case "-weather":
			if len(parts) < 3 {
				continue
			}
			// [upkeep] confirms the current weather without clearing it.
			if hasTag(parts[3:], "[upkeep]") {
				continue
			}
			snap.Weather = normalizeWeather(parts[2])
		case "-fieldstart":
			if len(parts) >= 3 {
				if name, ok := strings.CutPrefix(parts[2], "move: "); ok {
					snap.Terrain = name
				}
			}
		case "-sidestart":
			if len(parts) < 4 {
				continue
			}
			side, _, _ := strings.Cut(parts[2], ":")
			effect := strings.TrimPrefix(parts[3], "move: ")
			snap.FieldEffects = append(snap.FieldEffects, strings.TrimSpace(side)+": "+effect)
		case "switch", "drag":
			if len(parts) < 4 {
				continue
			}
			if !strings.HasPrefix(parts[2], opponentSide) {
				continue
			}
			view := viewFromSwitch(parts[2], parts[3], field(parts, 4))
			if idx, seen := opponentIdx[view.Species]; seen {
				for i := range opponents {
					opponents[i].Active = false
				}
				opponents[idx] = view
			} else {
				for i := range opponents {
					opponents[i].Active = false
				}
				opponentIdx[view.Species] = len(opponents)
				opponents = append(opponents, view)
			}
		}
	}
	snap.OpponentTeam = opponents

	return snap
}

// viewFromInfo builds a view from a request side entry. The identifier is
// stripped of its side prefix to yield the species; the condition string
// "<hp>/<maxHp> [status]" yields HP and status.
func viewFromInfo(p PokemonInfo) PokemonView {
	view := PokemonView{
		Species: speciesFromIdent(p.Ident),
		Level:   levelFromDetails(p.Details),
		Active:  p.Active,
		Stats:   p.Stats,
		Moves:   p.Moves,
		Item:    p.Item,
		Boosts:  p.Boosts,
	}
	view.Ability = p.Ability
	if view.Ability == "" {
		view.Ability = p.BaseAbility
	}
	view.HP, view.MaxHP, view.Status = parseCondition(p.Condition)
	view.HPPercentage = HPPercent(view.HP, view.MaxHP)
	return view
}

// viewFromSwitch builds an opponent view from a |switch| log line, where HP
// is reported on a 0-100 scale.
func viewFromSwitch(position, details, condition string) PokemonView {
	view := PokemonView{
		Species: speciesFromIdent(position),
		Level:   levelFromDetails(details),
		Active:  true,
	}
	if species, _, ok := strings.Cut(details, ","); ok {
		view.Species = strings.TrimSpace(species)
	} else if s := strings.TrimSpace(details); s != "" {
		view.Species = s
	}
	view.HP, view.MaxHP, view.Status = parseCondition(condition)
	view.HPPercentage = HPPercent(view.HP, view.MaxHP)
	return view
}

// speciesFromIdent strips the side prefix from identifiers such as
// "p1: Pikachu" or "p2a: Garchomp".
func speciesFromIdent(ident string) string {
	if _, after, ok := strings.Cut(ident, ":"); ok {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(ident)
}

// levelFromDetails reads the "L84" token from a details string like
// "Pikachu, L84, M". Absent level means level 100.
func levelFromDetails(details string) int {
	for _, tok := range strings.Split(details, ",") {
		tok = strings.TrimSpace(tok)
		if len(tok) >= 2 && tok[0] == 'L' {
			if n, err := strconv.Atoi(tok[1:]); err == nil && n > 0 {
				return n
			}
		}
	}
	return 100
}

// parseCondition splits "<hp>/<maxHp> [status]". A bare number (as in
// "0 fnt") is taken as current HP with an unknown maximum.
func parseCondition(condition string) (hp, maxHP int, status string) {
	maxHP = 1
	fields := strings.Fields(strings.TrimSpace(condition))
	if len(fields) == 0 {
		return 0, 1, ""
	}
	frac := fields[0]
	if cur, max, ok := strings.Cut(frac, "/"); ok {
		hp, _ = strconv.Atoi(cur)
		if m, err := strconv.Atoi(max); err == nil && m > 0 {
			maxHP = m
		}
	} else {
		hp, _ = strconv.Atoi(frac)
		if hp > 0 {
			maxHP = hp
		}
	}
	if hp < 0 {
		hp = 0
	}
	if len(fields) >= 2 {
		status = fields[1]
	}
	return hp, maxHP, status
}

// normalizeWeather maps the explicit "none" marker to cleared weather.
func normalizeWeather(name string) string {
	if strings.EqualFold(strings.TrimSpace(name), "none") {
		return ""
	}
	return name
}

func hasTag(parts []string, tag string) bool {
	for _, p := range parts {
		if strings.TrimSpace(p) == tag {
			return true
		}
	}
	return false
}

func field(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}
