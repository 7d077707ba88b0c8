package llm

import "testing"

var singlesChoices = []string{"move 1", "move 2", "move 3", "switch 2", "switch 4"}

func TestParseChoiceExact(t *testing.T) {
	if got := ParseChoice("move 2", singlesChoices); got != "move 2" {
		t.Fatalf("got %q", got)
	}
	if got := ParseChoice("  SWITCH 4  ", singlesChoices); got != "switch 4" {
		t.Fatalf("case/space insensitivity broken: %q", got)
	}
}

func TestParseChoiceSubstring(t *testing.T) {
	got := ParseChoice("Given the matchup, I would go with switch 2 here.", singlesChoices)
	if got != "switch 2" {
		t.Fatalf("got %q", got)
	}
	got = ParseChoice("Use move 3 to set up.", singlesChoices)
	if got != "move 3" {
		t.Fatalf("got %q", got)
	}
}

func TestParseChoiceOrdinalKindScoped(t *testing.T) {
	// "second switch" indexes the switch subset, not the full list.
	got := ParseChoice("take the second switch option", singlesChoices)
	if got != "switch 4" {
		t.Fatalf("kind-scoped ordinal broken: %q", got)
	}
	got = ParseChoice("use the third attack", singlesChoices)
	if got != "move 3" {
		t.Fatalf("got %q", got)
	}
}

func TestParseChoiceBareOrdinal(t *testing.T) {
	got := ParseChoice("the fourth one looks best", singlesChoices)
	if got != "switch 2" {
		t.Fatalf("bare ordinal should index the full list: %q", got)
	}
	got = ParseChoice("pick option 1", singlesChoices)
	if got != "move 1" {
		t.Fatalf("got %q", got)
	}
}

func TestParseChoiceOrdinalOutOfRange(t *testing.T) {
	got := ParseChoice("the sixth option", []string{"move 1", "move 2"})
	if got != "move 1" {
		t.Fatalf("out-of-range ordinal should fall back: %q", got)
	}
}

func TestParseChoiceTeamOrder(t *testing.T) {
	teamChoices := []string{"team 123", "team 213", "team 312"}
	if got := ParseChoice("lead 2, then 1, then 3", teamChoices); got != "team 213" {
		t.Fatalf("got %q", got)
	}
	if got := ParseChoice("I'd open with slot 3", teamChoices); got != "team 312" {
		t.Fatalf("bare lead should resolve: %q", got)
	}
}

func TestParseChoiceFallback(t *testing.T) {
	for _, raw := range []string{"", "   ", "no idea, sorry", "🤷"} {
		if got := ParseChoice(raw, singlesChoices); got != "move 1" {
			t.Fatalf("ParseChoice(%q) = %q, want fallback move 1", raw, got)
		}
	}
}

func TestParseChoiceAlwaysMember(t *testing.T) {
	inputs := []string{
		"move 1", "switch 4", "first", "second switch", "move 99",
		"option 5", "team 999", "lorem ipsum", "", "use attack number 2",
	}
	for _, raw := range inputs {
		got := ParseChoice(raw, singlesChoices)
		found := false
		for _, ch := range singlesChoices {
			if got == ch {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("ParseChoice(%q) = %q is not a legal choice", raw, got)
		}
	}
}

func TestParseChoiceEmptyChoices(t *testing.T) {
	if got := ParseChoice("move 1", nil); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestParseChoicePrefersLongerSubstring(t *testing.T) {
	choices := []string{"move 1", "switch 12"}
	if got := ParseChoice("go with switch 12", choices); got != "switch 12" {
		t.Fatalf("got %q", got)
	}
}
