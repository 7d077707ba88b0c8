package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ServerURL    string
	Username     string
	Password     string
	Room         string
	BattleFormat string

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	RedisURL    string
	DatabaseURL string

	PromptTemplateDir string

	ReconnectDelay       time.Duration
	MaxReconnectAttempts int

	ChatBurst    int
	ChatInterval time.Duration

	AcceptChallengesFrom []string
	ChallengeUser        string
	LadderSearch         bool
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		BattleFormat:         "gen9randombattle",
		Room:                 "lobby",
		LLMModel:             "gpt-4o-mini",
		ReconnectDelay:       3 * time.Second,
		MaxReconnectAttempts: 5,
		ChatBurst:            3,
		ChatInterval:         300 * time.Millisecond,
	}

	cfg.ServerURL = strings.TrimSpace(os.Getenv("PS_SERVER_URL"))
	cfg.Username = strings.TrimSpace(os.Getenv("PS_USERNAME"))
	cfg.Password = strings.TrimSpace(os.Getenv("PS_PASSWORD"))

	if v := strings.TrimSpace(os.Getenv("PS_ROOM")); v != "" {
		cfg.Room = v
	}
	if v := strings.TrimSpace(os.Getenv("PS_BATTLE_FORMAT")); v != "" {
		cfg.BattleFormat = v
	}

	cfg.LLMBaseURL = strings.TrimSpace(os.Getenv("LLM_BASE_URL"))
	cfg.LLMAPIKey = strings.TrimSpace(os.Getenv("LLM_API_KEY"))
	if v := strings.TrimSpace(os.Getenv("LLM_MODEL")); v != "" {
		cfg.LLMModel = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.PromptTemplateDir = strings.TrimSpace(os.Getenv("PROMPT_TEMPLATE_DIR"))

	if v := strings.TrimSpace(os.Getenv("PS_RECONNECT_DELAY")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ReconnectDelay = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("PS_MAX_RECONNECT_ATTEMPTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxReconnectAttempts = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHAT_BURST")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChatBurst = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHAT_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ChatInterval = d
		}
	}

	if v := strings.TrimSpace(os.Getenv("PS_ACCEPT_CHALLENGES_FROM")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AcceptChallengesFrom = append(cfg.AcceptChallengesFrom, s)
			}
		}
	}

	cfg.ChallengeUser = strings.TrimSpace(os.Getenv("PS_CHALLENGE_USER"))
	if v := strings.TrimSpace(os.Getenv("PS_LADDER")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LadderSearch = b
		}
	}

	if cfg.ServerURL == "" {
		return nil, errors.New("PS_SERVER_URL is required")
	}
	if cfg.Username == "" {
		return nil, errors.New("PS_USERNAME is required")
	}

	return cfg, nil
}
