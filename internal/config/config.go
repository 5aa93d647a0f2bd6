package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel          string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string    `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort        string    `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Redis             Redis     `yaml:"redis"`
	SQLiteStoragePath string    `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"./lines.db"`
	JWTSecretKey      string    `yaml:"jwt-secret-key" env:"JWT_SECRET_KEY"`
	Game              Game      `yaml:"game"`
	Presence          Presence  `yaml:"presence"`
	WebSocket         WebSocket `yaml:"websocket"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Game struct {
	MaxMoves int `yaml:"max-moves" env:"GAME_MAX_MOVES" env-default:"8"`
	// OrientationAwareMoves compares lines by orientation and coordinate instead of coordinate only.
	OrientationAwareMoves bool `yaml:"orientation-aware-moves" env:"GAME_ORIENTATION_AWARE_MOVES" env-default:"false"`
	// GridSize - boxes per side, 0 accepts any non-negative coordinate.
	GridSize int `yaml:"grid-size" env:"GAME_GRID_SIZE" env-default:"3"`
}

type Presence struct {
	// RequireRegistration rejects goOnline for usernames that are not stored yet.
	RequireRegistration bool `yaml:"require-registration" env:"PRESENCE_REQUIRE_REGISTRATION" env-default:"false"`
}

type WebSocket struct {
	SendBuffer   int           `yaml:"send-buffer" env:"WS_SEND_BUFFER" env-default:"32"`
	WriteTimeout time.Duration `yaml:"write-timeout" env:"WS_WRITE_TIMEOUT" env-default:"5s"`
}

// MustLoad - load all configurations in config.yml file, .env values override it.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

// AuthEnabled - websocket upgrades require a token only when a secret is configured.
func (that *Config) AuthEnabled() bool {
	return that.JWTSecretKey != ""
}
