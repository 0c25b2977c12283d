package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full process configuration, loaded once at startup and
// passed explicitly to whoever needs it.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Rules   RulesConfig   `mapstructure:"rules"`
	Session SessionConfig `mapstructure:"session"`
}

type ServerConfig struct {
	Mode string `mapstructure:"mode"` // debug, release
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"` // memory, redis
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RulesConfig selects the table ruleset variations.
type RulesConfig struct {
	PairSequences     bool `mapstructure:"pairSequences"`
	MinPairSequence   int  `mapstructure:"minPairSequence"`
	BombBeatsStraight bool `mapstructure:"bombBeatsStraight"`
}

type SessionConfig struct {
	MaxWriteRetries int `mapstructure:"maxWriteRetries"`
}

// Load reads the YAML config at path with TIENLEN_* environment
// overrides and returns an explicit Config value.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("tienlen")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.mode", "debug")
	v.SetDefault("store.backend", "memory")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("rules.pairSequences", true)
	v.SetDefault("rules.minPairSequence", 3)
	v.SetDefault("rules.bombBeatsStraight", false)
	v.SetDefault("session.maxWriteRetries", 5)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
