package battle

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Request is the decoded |request| decision-point payload. Only the fields
// the bot acts on are modeled; the server remains authoritative for rules.
type Request struct {
	Active      []ActiveSlot `json:"active"`
	Side        SideInfo     `json:"side"`
	RqID        int          `json:"rqid"`
	ForceSwitch []bool       `json:"forceSwitch"`
	TeamPreview bool         `json:"teamPreview"`
	Wait        bool         `json:"wait"`
}

type ActiveSlot struct {
	Moves   []MoveSlot `json:"moves"`
	Trapped bool       `json:"trapped"`
}

type MoveSlot struct {
	Move     string `json:"move"`
	ID       string `json:"id"`
	PP       int    `json:"pp"`
	MaxPP    int    `json:"maxpp"`
	Target   string `json:"target"`
	Disabled bool   `json:"disabled"`
}

type SideInfo struct {
	Name    string        `json:"name"`
	ID      string        `json:"id"`
	Pokemon []PokemonInfo `json:"pokemon"`
}

type PokemonInfo struct {
	Ident       string         `json:"ident"`
	Details     string         `json:"details"`
	Condition   string         `json:"condition"`
	Active      bool           `json:"active"`
	Stats       map[string]int `json:"stats"`
	Moves       []string       `json:"moves"`
	BaseAbility string         `json:"baseAbility"`
	Ability     string         `json:"ability"`
	Item        string         `json:"item"`
	Boosts      map[string]int `json:"boosts"`
}

// ParseRequest decodes a raw request payload.
func ParseRequest(payload string) (*Request, error) {
	var req Request
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return nil, fmt.Errorf("decode request payload: %w", err)
	}
	return &req, nil
}

// Fainted reports whether the condition string marks a knocked-out Pokémon.
func (p PokemonInfo) Fainted() bool {
	fields := strings.Fields(p.Condition)
	return len(fields) >= 2 && fields[1] == "fnt"
}

// LegalChoices enumerates the server-valid action strings for a request, in
// a stable order: moves first, then switches. The result is never empty; a
// request that offers nothing actionable yields the protocol default choice.
//
// Choice grammar matches the /choose command: "move N" indexes the active
// slot's move list, "switch N" indexes the side's team slots (1-based), and
// team-preview requests yield "team <order>" strings, one per candidate
// lead.
func LegalChoices(req *Request) []string {
	if req == nil || req.Wait {
		return []string{"default"}
	}

	if req.TeamPreview {
		return teamOrderChoices(len(req.Side.Pokemon))
	}

	var choices []string

	forced := len(req.ForceSwitch) > 0 && req.ForceSwitch[0]
	if !forced && len(req.Active) > 0 {
		for i, m := range req.Active[0].Moves {
			if m.Disabled {
				continue
			}
			choices = append(choices, "move "+strconv.Itoa(i+1))
		}
	}

	trapped := !forced && len(req.Active) > 0 && req.Active[0].Trapped
	if !trapped {
		for i, p := range req.Side.Pokemon {
			if p.Active || p.Fainted() {
				continue
			}
			choices = append(choices, "switch "+strconv.Itoa(i+1))
		}
	}

	if len(choices) == 0 {
		return []string{"default"}
	}
	return choices
}

// teamOrderChoices produces one full team order per candidate lead: the
// chosen slot first, remaining slots in original order.
func teamOrderChoices(teamSize int) []string {
	if teamSize <= 0 {
		return []string{"default"}
	}
	if teamSize > 6 {
		teamSize = 6
	}
	choices := make([]string, 0, teamSize)
	for lead := 1; lead <= teamSize; lead++ {
		var b strings.Builder
		b.WriteString("team ")
		b.WriteString(strconv.Itoa(lead))
		for slot := 1; slot <= teamSize; slot++ {
			if slot != lead {
				b.WriteString(strconv.Itoa(slot))
			}
		}
		choices = append(choices, b.String())
	}
	return choices
}
