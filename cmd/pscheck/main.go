// pscheck verifies connectivity: it dials the Showdown websocket endpoint,
// reports state transitions and a few inbound events, and optionally probes
// the decision backend.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ryankkien/pokemon-showdown/internal/battle"
	"github.com/ryankkien/pokemon-showdown/internal/llm"
	"github.com/ryankkien/pokemon-showdown/internal/prompt"
	"github.com/ryankkien/pokemon-showdown/internal/psclient"
)

func main() {
	wsURL := os.Getenv("PS_SERVER_URL")
	if wsURL == "" {
		log.Fatal("PS_SERVER_URL is required")
	}

	conn := psclient.NewConn(wsURL, 0, time.Second, nil)
	conn.OnStateChange(func(state psclient.ConnState) {
		log.Printf("WS state: %s", state)
	})
	conn.OnChunk(func(chunk string) {
		for _, ev := range psclient.ParseChunk(chunk) {
			fmt.Printf("event room=%q %T\n", ev.Room, ev.Event)
		}
	})

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err := conn.Connect(cctx)
	cancel()
	if err != nil {
		log.Fatalf("WS connect error: %v", err)
	}

	// Observe for a short window.
	time.Sleep(10 * time.Second)

	dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = conn.Disconnect(dctx)
	dcancel()

	if base := os.Getenv("LLM_BASE_URL"); base != "" {
		cat, err := prompt.New("")
		if err != nil {
			log.Fatalf("prompt catalog error: %v", err)
		}
		client := llm.NewClient(base, os.Getenv("LLM_API_KEY"), os.Getenv("LLM_MODEL"), cat, nil,
			llm.WithTimeout(8*time.Second))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		reply := client.GetAction(ctx, &battle.Snapshot{}, []string{"move 1"})
		log.Printf("LLM probe reply: %q", reply)
	} else {
		log.Println("LLM_BASE_URL not set; skipping backend check")
	}
}
