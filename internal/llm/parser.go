package llm

import (
	"regexp"
	"strconv"
	"strings"
)

// matcher is one total parsing strategy: it either resolves the text to a
// member of choices or reports no match. Strategies never return a value
// outside choices.
type matcher func(text string, choices []string) (string, bool)

var matchers = []matcher{
	matchExact,
	matchSubstring,
	matchOrdinal,
	matchTeamOrder,
}

// ParseChoice maps a free-text backend reply onto exactly one legal choice.
// Strategies run in precedence order, first match wins; anything that fails
// to resolve, including empty or nonsense text, falls back to the first
// legal choice. The returned value is always a member of choices.
func ParseChoice(raw string, choices []string) string {
	if len(choices) == 0 {
		return ""
	}
	text := strings.ToLower(strings.TrimSpace(raw))
	if text != "" {
		for _, m := range matchers {
			if choice, ok := m(text, choices); ok && contains(choices, choice) {
				return choice
			}
		}
	}
	return choices[0]
}

// matchExact: the trimmed reply equals a legal choice verbatim.
func matchExact(text string, choices []string) (string, bool) {
	for _, ch := range choices {
		if strings.EqualFold(text, ch) {
			return ch, true
		}
	}
	return "", false
}

// matchSubstring: the reply contains a legal choice token somewhere in the
// text, e.g. "I would go with switch 2 here" selects "switch 2".
func matchSubstring(text string, choices []string) (string, bool) {
	best := ""
	for _, ch := range choices {
		if strings.Contains(text, strings.ToLower(ch)) {
			// Prefer the longest token so "move 1" does not shadow "move 12".
			if len(ch) > len(best) {
				best = ch
			}
		}
	}
	return best, best != ""
}

var (
	ordinalWords = map[string]int{
		"first": 1, "one": 1, "1st": 1,
		"second": 2, "two": 2, "2nd": 2,
		"third": 3, "three": 3, "3rd": 3,
		"fourth": 4, "four": 4, "4th": 4,
		"fifth": 5, "five": 5, "5th": 5,
		"sixth": 6, "six": 6, "6th": 6,
	}
	optionNumberRe = regexp.MustCompile(`(?:option|number|no\.?|#)\s*([1-6])`)
	wordSplitRe    = regexp.MustCompile(`[^a-z0-9#.]+`)
)

// matchOrdinal: "first", "option 2", "move number 3" and similar map onto a
// positional index. When the text names an action kind the index applies
// within the same-kind subset of choices; a bare ordinal indexes the full
// list.
func matchOrdinal(text string, choices []string) (string, bool) {
	n := 0
	if m := optionNumberRe.FindStringSubmatch(text); m != nil {
		n, _ = strconv.Atoi(m[1])
	} else {
		for _, word := range wordSplitRe.Split(text, -1) {
			if v, ok := ordinalWords[word]; ok {
				n = v
				break
			}
		}
	}
	if n == 0 {
		return "", false
	}

	pool := choices
	switch {
	case mentionsKind(text, "switch", "swap", "change", "send out", "retreat"):
		pool = filterPrefix(choices, "switch ")
	case mentionsKind(text, "move", "attack", "use"):
		pool = filterPrefix(choices, "move ")
	}
	if n > len(pool) {
		return "", false
	}
	return pool[n-1], true
}

var digitRunRe = regexp.MustCompile(`[1-6]`)

// matchTeamOrder: for team-order decisions, digits scattered through the
// reply ("1, 3, 2 ..." or "132456") are concatenated and matched against the
// legal team strings.
func matchTeamOrder(text string, choices []string) (string, bool) {
	hasTeam := false
	for _, ch := range choices {
		if strings.HasPrefix(ch, "team ") {
			hasTeam = true
			break
		}
	}
	if !hasTeam {
		return "", false
	}
	digits := strings.Join(digitRunRe.FindAllString(text, -1), "")
	if digits == "" {
		return "", false
	}
	for _, ch := range choices {
		order := strings.TrimPrefix(ch, "team ")
		if digits == order || strings.HasPrefix(digits, order) {
			return ch, true
		}
	}
	// A bare lead slot ("send 3 first") resolves to the order it heads.
	for _, ch := range choices {
		if strings.HasPrefix(strings.TrimPrefix(ch, "team "), digits[:1]) {
			return ch, true
		}
	}
	return "", false
}

func mentionsKind(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func filterPrefix(choices []string, prefix string) []string {
	out := make([]string, 0, len(choices))
	for _, ch := range choices {
		if strings.HasPrefix(ch, prefix) {
			out = append(out, ch)
		}
	}
	return out
}

func contains(choices []string, v string) bool {
	for _, ch := range choices {
		if ch == v {
			return true
		}
	}
	return false
}
