package llm

import (
	"fmt"
	"strings"

	"github.com/ryankkien/pokemon-showdown/internal/battle"
	"github.com/ryankkien/pokemon-showdown/internal/prompt"
)

// BuildPrompt serializes a battle snapshot and the legal choices into the
// textual prompt sent to the decision backend. The fixed scaffolding
// (header, strategy notes, response format) comes from the prompt catalog so
// operators can override wording.
func BuildPrompt(cat *prompt.Catalog, snap *battle.Snapshot, choices []string) string {
	var sections []string
	if cat != nil {
		sections = append(sections, cat.Get("decision.header"))
	}
	sections = append(sections,
		activeSection(snap),
		opponentSection(snap),
		teamSection(snap),
		fieldSection(snap),
		fmt.Sprintf("**Current Turn:** %d", snap.Turn),
		actionsSection(choices),
	)
	if cat != nil {
		sections = append(sections, cat.Get("decision.considerations"), cat.Get("decision.format"))
	}

	var nonEmpty []string
	for _, s := range sections {
		if strings.TrimSpace(s) != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}

func activeSection(snap *battle.Snapshot) string {
	active := activePokemon(snap.PlayerTeam)
	if active == nil {
		return "**Your Active Pokémon:** None (need to send out a Pokémon)"
	}
	var b strings.Builder
	b.WriteString("**Your Active Pokémon:**\n")
	b.WriteString(describePokemon(*active))
	if len(active.Moves) > 0 {
		b.WriteString("\n  - Moves: " + strings.Join(active.Moves, ", "))
	}
	if active.Ability != "" {
		b.WriteString("\n  - Ability: " + active.Ability)
	}
	if active.Item != "" {
		b.WriteString("\n  - Item: " + active.Item)
	}
	if boosts := describeBoosts(active.Boosts); boosts != "" {
		b.WriteString("\n  - Stat Changes: " + boosts)
	}
	return b.String()
}

func opponentSection(snap *battle.Snapshot) string {
	active := activePokemon(snap.OpponentTeam)
	if active == nil {
		return "**Opponent's Active Pokémon:** Unknown"
	}
	var b strings.Builder
	b.WriteString("**Opponent's Active Pokémon:**\n")
	b.WriteString(describePokemon(*active))
	return b.String()
}

func teamSection(snap *battle.Snapshot) string {
	var b strings.Builder
	b.WriteString("**Your Team:**\n")
	if len(snap.PlayerTeam) == 0 {
		b.WriteString("- Unknown\n")
	}
	for _, p := range snap.PlayerTeam {
		if p.Active {
			continue
		}
		b.WriteString(describePokemon(p) + "\n")
	}
	b.WriteString("\n**Opponent's Team (Known):**\n")
	if len(snap.OpponentTeam) == 0 {
		b.WriteString("- Nothing revealed yet\n")
	}
	for _, p := range snap.OpponentTeam {
		if p.Active {
			continue
		}
		b.WriteString(describePokemon(p) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func fieldSection(snap *battle.Snapshot) string {
	var conditions []string
	if snap.Weather != "" {
		conditions = append(conditions, "Weather: "+snap.Weather)
	}
	if snap.Terrain != "" {
		conditions = append(conditions, "Terrain: "+snap.Terrain)
	}
	for _, fe := range snap.FieldEffects {
		conditions = append(conditions, "Hazard/Effect: "+fe)
	}
	if len(conditions) == 0 {
		return "**Field Conditions:** None"
	}
	return "**Field Conditions:**\n" + strings.Join(conditions, "\n")
}

func actionsSection(choices []string) string {
	var b strings.Builder
	b.WriteString("**Available Actions (legal choices):**\n")
	for i, ch := range choices {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, ch)
	}
	return strings.TrimRight(b.String(), "\n")
}

func describePokemon(p battle.PokemonView) string {
	s := fmt.Sprintf("- %s (Level %d, HP: %d%%", p.Species, p.Level, p.HPPercentage)
	if p.Status != "" {
		s += ", Status: " + p.Status
	}
	return s + ")"
}

func describeBoosts(boosts map[string]int) string {
	var parts []string
	for _, stat := range []string{"atk", "def", "spa", "spd", "spe", "accuracy", "evasion"} {
		if v, ok := boosts[stat]; ok && v != 0 {
			parts = append(parts, fmt.Sprintf("%s: %+d", stat, v))
		}
	}
	return strings.Join(parts, ", ")
}

func activePokemon(team []battle.PokemonView) *battle.PokemonView {
	for i := range team {
		if team[i].Active {
			return &team[i]
		}
	}
	return nil
}
