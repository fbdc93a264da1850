package main

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ScheduleEntry declares a cron-triggered run of a loaded graph.
type ScheduleEntry struct {
	ID    string `json:"id"`
	Graph string `json:"graph"`
	Cron  string `json:"cron"`
}

// Config holds the actiongraph server configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DefinitionsDir string          `json:"definitions_dir"`
	LogLevel       string          `json:"log_level"`
	Schedules      []ScheduleEntry `json:"schedules,omitempty"`
}

func defaultConfig() Config {
	return Config{
		DefinitionsDir: filepath.Join(actiongraphDir(), "graphs"),
		LogLevel:       "info",
	}
}

func actiongraphDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".actiongraph"
	}
	return filepath.Join(home, ".actiongraph")
}

func settingsPath() string {
	return filepath.Join(actiongraphDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("ACTIONGRAPH_DEFINITIONS_DIR"); v != "" {
		cfg.DefinitionsDir = v
	}
	if v := os.Getenv("ACTIONGRAPH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}
