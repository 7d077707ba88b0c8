package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ryankkien/pokemon-showdown/internal/battle"
	"github.com/ryankkien/pokemon-showdown/internal/prompt"
)

func testCatalog(t *testing.T) *prompt.Catalog {
	t.Helper()
	cat, err := prompt.New("")
	if err != nil {
		t.Fatalf("load prompts: %v", err)
	}
	return cat
}

func testSnapshot() *battle.Snapshot {
	return &battle.Snapshot{
		Turn:        3,
		IsPlayerOne: true,
		PlayerTeam: []battle.PokemonView{
			{Species: "Pikachu", Level: 84, HPPercentage: 72, Active: true, Moves: []string{"thunderbolt", "surf"}},
		},
		OpponentTeam: []battle.PokemonView{
			{Species: "Garchomp", Level: 76, HPPercentage: 100, Active: true},
		},
		Weather: "RainDance",
	}
}

func completionJSON(content string) string {
	out, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	return string(out)
}

func TestClientReturnsContentUnmodified(t *testing.T) {
	const reply = "  move 2. Surf hits hard in rain.  "
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 2 {
			t.Errorf("bad request: %#v", req)
		}
		if !strings.Contains(req.Messages[1].Content, "move 1") {
			t.Errorf("prompt missing choices: %q", req.Messages[1].Content)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionJSON(reply)))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1", "sk-test", "test-model", testCatalog(t), nil)
	got := c.GetAction(context.Background(), testSnapshot(), []string{"move 1", "move 2"})
	if got != reply {
		t.Fatalf("reply was modified: %q", got)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", calls.Load())
	}
}

func TestClientRetriesThenFallsBack(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "test-model", testCatalog(t), nil, WithTimeout(2*time.Second))
	got := c.GetAction(context.Background(), testSnapshot(), []string{"switch 2", "move 1"})
	if got != "switch 2" {
		t.Fatalf("fallback should be first legal choice, got %q", got)
	}
	if calls.Load() != decisionAttempts {
		t.Fatalf("expected %d attempts, got %d", decisionAttempts, calls.Load())
	}
}

func TestClientRecoversOnRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "hiccup", http.StatusBadGateway)
			return
		}
		w.Write([]byte(completionJSON("move 1")))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "test-model", testCatalog(t), nil)
	got := c.GetAction(context.Background(), testSnapshot(), []string{"move 1"})
	if got != "move 1" {
		t.Fatalf("got %q", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestClientEmptyCompletionIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionJSON("   ")))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "test-model", testCatalog(t), nil)
	got := c.GetAction(context.Background(), testSnapshot(), []string{"move 1", "switch 2"})
	if got != "move 1" {
		t.Fatalf("empty completions must fall back, got %q", got)
	}
}

func TestClientCancelledContextStopsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, "", "test-model", testCatalog(t), nil)
	got := c.GetAction(ctx, testSnapshot(), []string{"move 1"})
	if got != "move 1" {
		t.Fatalf("got %q", got)
	}
	if calls.Load() != 0 {
		t.Fatalf("cancelled context should skip all attempts, got %d", calls.Load())
	}
}

func TestClientEmptyChoices(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", "m", testCatalog(t), nil)
	if got := c.GetAction(context.Background(), testSnapshot(), nil); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestMockDeciderPrefersMoves(t *testing.T) {
	var m MockDecider
	got := m.GetAction(context.Background(), nil, []string{"switch 2", "move 3", "move 1"})
	if !strings.HasPrefix(got, "move 3") {
		t.Fatalf("got %q", got)
	}
	got = m.GetAction(context.Background(), nil, []string{"switch 2", "switch 4"})
	if !strings.HasPrefix(got, "switch 2") {
		t.Fatalf("got %q", got)
	}
	if got := m.GetAction(context.Background(), nil, nil); got != "" {
		t.Fatalf("got %q", got)
	}
}
