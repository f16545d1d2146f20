package config

import (
	"os"
	"strconv"
	"time"
)

// ApplyEnv overrides cfg with EMPIRE_* environment variables when set.
func ApplyEnv(cfg *Config) {
	if val := os.Getenv("EMPIRE_ADDR"); val != "" {
		cfg.Server.Addr = val
	}
	if val := os.Getenv("EMPIRE_STORAGE"); val != "" {
		cfg.Storage.Driver = val
	}
	if val := os.Getenv("EMPIRE_DB_PATH"); val != "" {
		cfg.Storage.Path = val
	}
	if val := os.Getenv("EMPIRE_SLOT"); val != "" {
		cfg.Storage.Slot = val
	}
	if val := getEnvInt("EMPIRE_TICK_MS"); val > 0 {
		cfg.Loop.TickInterval = time.Duration(val) * time.Millisecond
	}
	if val := getEnvInt("EMPIRE_AUTOSAVE_MS"); val > 0 {
		cfg.Loop.AutoSaveInterval = time.Duration(val) * time.Millisecond
	}
	if val := os.Getenv("EMPIRE_LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	if val := os.Getenv("EMPIRE_LOG_FORMAT"); val != "" {
		cfg.Log.Format = val
	}

	// Support buffer presets
	if preset := os.Getenv("EMPIRE_BUFFERS"); preset != "" {
		switch preset {
		case "stress":
			cfg.Buffers = StressTestBuffers()
		case "low":
			cfg.Buffers = LowResourceBuffers()
		}
	}
}

func getEnvInt(key string) int {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return num
}
