package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Debug  bool   `env:"DEBUG" envDefault:"false"`
	Port   string `env:"PORT" envDefault:"3000"`
	Domain string `env:"DOMAIN" envDefault:"http://localhost:3000"`

	MetricPort string `env:"METRIC_PORT" envDefault:"9090"`
	StaticDir  string `env:"STATIC_DIR" envDefault:"web"`

	Room    RoomConfig
	Limits  LimitsConfig
	YouTube YouTubeConfig
}

type RoomConfig struct {
	// MaxUsers ограничивает число участников в одной комнате
	MaxUsers    int `env:"ROOM_MAX_USERS" envDefault:"50"`
	MaxPlaylist int `env:"ROOM_MAX_PLAYLIST" envDefault:"100"`

	// EmptyTTL - сколько пустая комната живет до удаления
	EmptyTTL          time.Duration `env:"ROOM_EMPTY_TTL" envDefault:"1h"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"10s"`
}

type LimitsConfig struct {
	JoinsPerMinute    int `env:"LIMIT_JOINS_PER_MINUTE" envDefault:"10"`
	AddsPerMinute     int `env:"LIMIT_ADDS_PER_MINUTE" envDefault:"20"`
	ShufflesPerMinute int `env:"LIMIT_SHUFFLES_PER_MINUTE" envDefault:"5"`
}

type YouTubeConfig struct {
	APIKey  string        `env:"YOUTUBE_API_KEY"`
	BaseURL string        `env:"YOUTUBE_BASE_URL" envDefault:"https://www.googleapis.com/youtube/v3"`
	Timeout time.Duration `env:"YOUTUBE_TIMEOUT" envDefault:"8s"`

	// RequestsPerSecond - защита квоты YouTube Data API
	RequestsPerSecond float64 `env:"YOUTUBE_RPS" envDefault:"5"`
}

func New() (*Config, error) {
	c, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return &c, nil
}
