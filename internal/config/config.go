// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Hunters   HuntersConfig   `mapstructure:"hunters"`
	Leveling  LevelingConfig  `mapstructure:"leveling"`
	Gates     GatesConfig     `mapstructure:"gates"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token         string        `mapstructure:"token"`
	PollTimeout   time.Duration `mapstructure:"poll_timeout"`
	SelectionSize int           `mapstructure:"selection_cache_size"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

// RedisConfig holds leaderboard cache configuration.
// An empty Addr disables the leaderboard.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// HuntersConfig holds hunter creation limits.
type HuntersConfig struct {
	MaxPerUser    int `mapstructure:"max_per_user"`
	NameMaxLength int `mapstructure:"name_max_length"`
}

// LevelingConfig holds level-up rewards.
type LevelingConfig struct {
	StatPointsPerLevel  int  `mapstructure:"stat_points_per_level"`
	SkillPointsPerLevel int  `mapstructure:"skill_points_per_level"`
	RestoreOnLevelUp    bool `mapstructure:"restore_on_level_up"`
}

// GatesConfig holds gate generation and reward settings.
type GatesConfig struct {
	TTL            time.Duration `mapstructure:"ttl"`
	MinDepth       int           `mapstructure:"min_depth"`
	MaxDepth       int           `mapstructure:"max_depth"`
	MinRooms       int           `mapstructure:"min_rooms"`
	MaxRooms       int           `mapstructure:"max_rooms"`
	RoomExperience int64         `mapstructure:"room_experience"`
	CompletionGold int64         `mapstructure:"completion_gold"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_HOST, GATES_TTL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Keys need a default for AutomaticEnv to reach them during Unmarshal.
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.poll_timeout", "10s")
	v.SetDefault("bot.selection_cache_size", 4096)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "hunter")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "hunters")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.query_timeout", "5s")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")

	v.SetDefault("log.level", "info")

	v.SetDefault("hunters.max_per_user", 2)
	v.SetDefault("hunters.name_max_length", 32)

	v.SetDefault("leveling.stat_points_per_level", 5)
	v.SetDefault("leveling.skill_points_per_level", 5)
	v.SetDefault("leveling.restore_on_level_up", true)

	v.SetDefault("gates.ttl", "2h")
	v.SetDefault("gates.min_depth", 3)
	v.SetDefault("gates.max_depth", 6)
	v.SetDefault("gates.min_rooms", 3)
	v.SetDefault("gates.max_rooms", 6)
	v.SetDefault("gates.room_experience", 40)
	v.SetDefault("gates.completion_gold", 50)
}

// Validate checks ranges that would otherwise surface as confusing runtime behaviour.
func (c *Config) Validate() error {
	switch {
	case c.Hunters.MaxPerUser < 1:
		return fmt.Errorf("hunters.max_per_user must be at least 1")
	case c.Gates.TTL <= 0:
		return fmt.Errorf("gates.ttl must be positive")
	case c.Gates.MinDepth < 1 || c.Gates.MaxDepth < c.Gates.MinDepth:
		return fmt.Errorf("gates depth range [%d,%d] is invalid", c.Gates.MinDepth, c.Gates.MaxDepth)
	case c.Gates.MinRooms < 1 || c.Gates.MaxRooms < c.Gates.MinRooms:
		return fmt.Errorf("gates rooms range [%d,%d] is invalid", c.Gates.MinRooms, c.Gates.MaxRooms)
	case c.Leveling.StatPointsPerLevel < 0 || c.Leveling.SkillPointsPerLevel < 0:
		return fmt.Errorf("leveling points per level must not be negative")
	}
	return nil
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.Admin.IDs, userID)
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	return slices.Contains(c.Whitelist.Chats, chatID)
}
