package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"git.sr.ht/~emersion/go-scfg"
)

// botConfig is the subset of settings a girclbot instance needs, loaded
// from a scfg file. Unlike the teacher's senpai.yaml, the shape here is a
// flat block of directives rather than a full UI configuration — this
// binary only drives the library, it does not render anything.
type botConfig struct {
	Address  string
	Nick     string
	Username string
	RealName string
	Password string // if empty, and PromptPassword is set, read interactively
	TLS      bool
	Cooldown time.Duration
	Channels []string

	PromptPassword bool
}

func loadConfig(path string) (botConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return botConfig{}, fmt.Errorf("girclbot: opening config: %w", err)
	}
	defer f.Close()

	block, err := scfg.Read(f)
	if err != nil {
		return botConfig{}, fmt.Errorf("girclbot: parsing config: %w", err)
	}

	cfg := botConfig{
		Username: "girclbot",
		RealName: "girclbot",
		Cooldown: 500 * time.Millisecond,
	}

	for _, dir := range block {
		switch dir.Name {
		case "address":
			if len(dir.Params) != 1 {
				return cfg, fmt.Errorf("girclbot: %q takes exactly one parameter", dir.Name)
			}
			cfg.Address = dir.Params[0]
		case "nick":
			cfg.Nick = dir.Params[0]
		case "username":
			cfg.Username = dir.Params[0]
		case "realname":
			cfg.RealName = dir.Params[0]
		case "password":
			cfg.Password = dir.Params[0]
		case "prompt-password":
			cfg.PromptPassword = true
		case "tls":
			cfg.TLS = true
		case "cooldown":
			ms, err := strconv.Atoi(dir.Params[0])
			if err != nil {
				return cfg, fmt.Errorf("girclbot: invalid cooldown %q: %w", dir.Params[0], err)
			}
			cfg.Cooldown = time.Duration(ms) * time.Millisecond
		case "channel":
			cfg.Channels = append(cfg.Channels, dir.Params[0])
		default:
			return cfg, fmt.Errorf("girclbot: unknown directive %q", dir.Name)
		}
	}

	if cfg.Address == "" {
		return cfg, fmt.Errorf("girclbot: missing required %q directive", "address")
	}
	if cfg.Nick == "" {
		return cfg, fmt.Errorf("girclbot: missing required %q directive", "nick")
	}

	return cfg, nil
}
