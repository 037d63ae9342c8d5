package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	Listen  string  `yaml:"listen"`
	Logger  Logger  `yaml:"logger"`
	Storage Storage `yaml:"storage"`
	Auth    Auth    `yaml:"auth"`
	Race    Race    `yaml:"race"`
	CORS    CORS    `yaml:"cors"`
}

type Logger struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Storage struct {
	Database string `yaml:"database"`
}

type Auth struct {
	JWT JWT `yaml:"jwt"`
}

type JWT struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

// Race holds the engine tunables. The confirmation window is the grace
// period after a provisional finish during which arbitration may still
// change; zero or omitted falls back to the 90s default.
type Race struct {
	ConfirmationWindowMs int64 `yaml:"confirmation_window_ms"`
}

// ConfirmationWindow returns the configured window as a duration, applying
// the 90,000 ms default.
func (r Race) ConfirmationWindow() time.Duration {
	if r.ConfirmationWindowMs <= 0 {
		return 90 * time.Second
	}
	return time.Duration(r.ConfirmationWindowMs) * time.Millisecond
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
