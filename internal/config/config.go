// Package config loads FanLink's configuration.
//
// Layers, lowest precedence first:
//
//  1. built-in defaults
//  2. an optional .env file in the working directory
//  3. an optional YAML file named by FANLINK_CONFIG
//  4. FANLINK_-prefixed environment variables, where "__" separates
//     sections (FANLINK_HTTP__ADDR sets http.addr)
//
// The legacy SPOTIFY_ID, SPOTIFY_SECRET and DATABASE_URL variables fill
// their fields when nothing else set them.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "FANLINK_"
	fileEnvVar = "FANLINK_CONFIG"
)

// HTTP holds web server settings.
type HTTP struct {
	Addr    string `koanf:"addr"     validate:"required,hostname_port"`
	BaseURL string `koanf:"base_url" validate:"required,url"`
}

// Database holds the PostgreSQL connection string.
type Database struct {
	URL string `koanf:"url" validate:"required"`
}

// Spotify holds OAuth client credentials.
type Spotify struct {
	ClientID     string `koanf:"client_id"     validate:"required"`
	ClientSecret string `koanf:"client_secret" validate:"required"`
	RedirectURL  string `koanf:"redirect_url"  validate:"required,url"`
}

// Auth holds session and API token settings.
type Auth struct {
	JWTSecret  string        `koanf:"jwt_secret"  validate:"required,min=32"`
	SessionTTL time.Duration `koanf:"session_ttl" validate:"gt=0"`
	TokenTTL   time.Duration `koanf:"token_ttl"   validate:"gt=0"`
}

// LiveSync tunes the dashboard live update channel.
type LiveSync struct {
	Debounce time.Duration `koanf:"debounce" validate:"gte=0"`
}

// Log controls logger output.
type Log struct {
	Dir     string `koanf:"dir"`
	Level   string `koanf:"level"   validate:"oneof=debug info warn error"`
	Console bool   `koanf:"console"`
}

// Config is the full application configuration.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Spotify  Spotify  `koanf:"spotify"`
	Auth     Auth     `koanf:"auth"`
	LiveSync LiveSync `koanf:"livesync"`
	Log      Log      `koanf:"log"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		HTTP: HTTP{
			Addr:    "127.0.0.1:8080",
			BaseURL: "http://127.0.0.1:8080",
		},
		Spotify: Spotify{
			RedirectURL: "http://127.0.0.1:8080/callback",
		},
		Auth: Auth{
			SessionTTL: 24 * time.Hour,
			TokenTTL:   time.Hour,
		},
		LiveSync: LiveSync{
			Debounce: 250 * time.Millisecond,
		},
		Log: Log{
			Level:   "info",
			Console: true,
		},
	}
}

var validate = validator.New()

// Load reads every layer, validates the result and returns it.
func Load() (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	k := koanf.New(".")

	if path := os.Getenv(fileEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	applyLegacyEnv(&cfg)

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func applyLegacyEnv(cfg *Config) {
	fill := func(dst *string, name string) {
		if *dst == "" {
			*dst = os.Getenv(name)
		}
	}
	fill(&cfg.Spotify.ClientID, "SPOTIFY_ID")
	fill(&cfg.Spotify.ClientSecret, "SPOTIFY_SECRET")
	fill(&cfg.Database.URL, "DATABASE_URL")
}
