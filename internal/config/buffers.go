package config

import "runtime"

// BufferConfig holds channel and pool sizes for the loop and the websocket fan-out.
type BufferConfig struct {
	Intents          int `yaml:"intents"`           // queued commands for the game loop
	Broadcast        int `yaml:"broadcast"`         // hub broadcast queue
	ClientSend       int `yaml:"client_send"`       // per websocket client
	DBMaxOpenConns   int `yaml:"db_max_open_conns"` // sqlite pool
	DBMaxIdleConns   int `yaml:"db_max_idle_conns"`
	MaxClientsPerHub int `yaml:"max_clients"`
}

// DefaultBuffers returns sensible defaults for production.
func DefaultBuffers() BufferConfig {
	numCPU := runtime.NumCPU()

	return BufferConfig{
		Intents:          256,
		Broadcast:        1024,
		ClientSend:       64,
		DBMaxOpenConns:   numCPU,
		DBMaxIdleConns:   2,
		MaxClientsPerHub: 32,
	}
}

// StressTestBuffers returns aggressive settings for load testing with clickstorm.
func StressTestBuffers() BufferConfig {
	numCPU := runtime.NumCPU()

	return BufferConfig{
		Intents:          4096,
		Broadcast:        8192,
		ClientSend:       256,
		DBMaxOpenConns:   numCPU * 2,
		DBMaxIdleConns:   numCPU,
		MaxClientsPerHub: 500,
	}
}

// LowResourceBuffers returns minimal settings for development.
func LowResourceBuffers() BufferConfig {
	return BufferConfig{
		Intents:          16,
		Broadcast:        64,
		ClientSend:       8,
		DBMaxOpenConns:   1,
		DBMaxIdleConns:   1,
		MaxClientsPerHub: 4,
	}
}
