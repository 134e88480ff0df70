package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig                `json:"basic_config"`
	Databases   map[string]DatabaseConfig  `json:"databases"`
	Redis       RedisConfig                `json:"redis"`
	Providers   map[string]ProviderConfig  `json:"providers"`
	ChatModels  map[string]ChatModelConfig `json:"chat_models"`
	Image       ImageConfig                `json:"image"`
	Speech      SpeechConfig               `json:"speech"`
}

type BasicConfig struct {
	ServerAddress     string `json:"server_address"`
	LogLevel          string `json:"log_level"`
	LogFormat         string `json:"log_format"`
	MinWorkers        int    `json:"min_workers"`
	MaxWorkers        int    `json:"max_workers"`
	QueueSize         int    `json:"queue_size"`
	WorkerIdleTimeout int    `json:"worker_idle_timeout"` // minutes
	StreamTTL         int    `json:"stream_ttl"`          // minutes
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// ProviderConfig holds credentials for one hosted model provider.
type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

// ChatModelConfig maps a client-facing model alias to a concrete provider
// model. Reasoning variants never receive tools.
type ChatModelConfig struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Reasoning bool   `json:"reasoning"`
}

type ImageConfig struct {
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key"`
}

type SpeechConfig struct {
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key"`
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if len(cfg.Databases) == 0 {
		return nil, fmt.Errorf("at least one database must be configured")
	}
	for name, db := range cfg.Databases {
		if db.DSN != "" && !filepath.IsAbs(db.DSN) && db.DSN != ":memory:" {
			db.DSN = filepath.Join(filepath.Dir(absPath), db.DSN)
			cfg.Databases[name] = db
		}
	}

	if len(cfg.ChatModels) == 0 {
		return nil, fmt.Errorf("chat_models must be configured")
	}
	for alias, cm := range cfg.ChatModels {
		if _, ok := cfg.Providers[cm.Provider]; !ok {
			return nil, fmt.Errorf("chat model %s references unknown provider %s", alias, cm.Provider)
		}
	}

	return &cfg, nil
}
