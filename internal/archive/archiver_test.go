package archive

import (
	"context"
	"testing"
)

func TestArchiverSavesBattleEnd(t *testing.T) {
	s := newTestStore(t)
	a := NewArchiver(s, nil, nil)

	a.BattleEnded(sampleResult("a1", "SomeBot"))

	recent, err := s.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "a1" {
		t.Fatalf("result not archived: %v", recent)
	}
	if n, _ := s.Wins(context.Background(), "SomeBot"); n != 1 {
		t.Fatalf("wins = %d", n)
	}
}

func TestArchiverNilSinks(t *testing.T) {
	a := NewArchiver(nil, nil, nil)
	// Must not panic with nothing wired.
	a.BattleStarted("room", "opp", "fmt")
	a.TurnAdvanced("room", 1)
	a.BattleEnded(sampleResult("x", ""))
}
