package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverRedis  = "redis"
	DriverNats   = "nats"
	DriverMemory = "memory"
)

var ErrUnknownDriver = errors.New("unknown driver")

type Config struct {
	LogLevel     string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	PlayerName   string `yaml:"player-name" env:"PLAYER_NAME" env-default:""`
	IdentityPath string `yaml:"identity-path" env:"IDENTITY_PATH" env-default:""`
	Storage      string `yaml:"storage" env:"STORAGE" env-default:"redis"`
	ChangeFeed   string `yaml:"change-feed" env:"CHANGE_FEED" env-default:"redis"`
	Redis        Redis  `yaml:"redis"`
	Nats         Nats   `yaml:"nats"`
	Room         Room   `yaml:"room"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Nats struct {
	URL   string `yaml:"url" env:"NATS_URL" env-default:"nats://localhost:4222"`
	Token string `yaml:"token" env:"NATS_TOKEN" env-default:""`
}

type Room struct {
	CodeAttempts  int `yaml:"code-attempts" env:"ROOM_CODE_ATTEMPTS" env-default:"3"`
	UpdateRetries int `yaml:"update-retries" env:"ROOM_UPDATE_RETRIES" env-default:"5"`
}

// MustLoad - load all configurations in config.yml file, falling back to the environment when the file is missing.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		err = cleanenv.ReadEnv(config)
	case err == nil:
		err = cleanenv.ReadConfig(path, config)
	}

	if err != nil {
		return nil, err
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	switch that.Storage {
	case DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("%w: storage %q", ErrUnknownDriver, that.Storage)
	}

	switch that.ChangeFeed {
	case DriverRedis, DriverNats, DriverMemory:
	default:
		return fmt.Errorf("%w: change feed %q", ErrUnknownDriver, that.ChangeFeed)
	}

	if that.Storage == DriverMemory && that.ChangeFeed != DriverMemory {
		return fmt.Errorf("%w: in-memory storage needs the in-memory change feed", ErrUnknownDriver)
	}

	return nil
}

// IsLocal - both players share this process.
func (that *Config) IsLocal() bool {
	return that.Storage == DriverMemory
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
