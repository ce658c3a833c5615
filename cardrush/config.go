package cardrush

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.Game.ApplyDefaults()
	cfg.Server.ApplyDefaults()
	return &cfg, nil
}

type Config struct {
	Log    LogConfig    `toml:"log"`
	Server ServerConfig `toml:"server"`
	Auth   AuthConfig   `toml:"auth"`
	DB     DBConfig     `toml:"db"`
	Game   GameConfig   `toml:"game"`
}

// String renders the config for startup logging with secrets redacted.
func (c Config) String() string {
	return fmt.Sprintf("Config{Server: %s:%d (realtime :%d), DB: %s@%s:%d/%s pool=%d, Auth: secret=*** ttl=%s, Game: %+v}",
		c.Server.Host, c.Server.Port, c.Server.RealtimePort,
		c.DB.User, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.PoolSize,
		c.Auth.TokenTTL(), c.Game)
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	RealtimePort int    `toml:"realtime_port"`
}

func (c *ServerConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.RealtimePort == 0 {
		c.RealtimePort = 8081
	}
}

type AuthConfig struct {
	Secret          string `toml:"secret"`
	TokenTTLMinutes int    `toml:"token_ttl_minutes"`
}

func (c AuthConfig) TokenTTL() time.Duration {
	if c.TokenTTLMinutes <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

type DBConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

// GameConfig carries the claim arbitration knobs. Zero values fall back to the
// defaults applied by ApplyDefaults, so a partial [game] section is valid.
type GameConfig struct {
	MaxClaimsPerWindow       int `toml:"max_claims_per_window"`
	ClaimWindowMinutes       int `toml:"claim_window_minutes"`
	MaxActiveCards           int `toml:"max_active_cards"`
	BaseCooldownSeconds      int `toml:"base_cooldown_seconds"`
	TrapPenaltySeconds       int `toml:"trap_penalty_seconds"`
	SweepIntervalSeconds     int `toml:"sweep_interval_seconds"`
	HeartbeatIntervalSeconds int `toml:"heartbeat_interval_seconds"`
}

func (c *GameConfig) ApplyDefaults() {
	if c.MaxClaimsPerWindow == 0 {
		c.MaxClaimsPerWindow = 3
	}
	if c.ClaimWindowMinutes == 0 {
		c.ClaimWindowMinutes = 2
	}
	if c.MaxActiveCards == 0 {
		c.MaxActiveCards = 2
	}
	if c.BaseCooldownSeconds == 0 {
		c.BaseCooldownSeconds = 60
	}
	if c.TrapPenaltySeconds == 0 {
		c.TrapPenaltySeconds = 300
	}
	if c.SweepIntervalSeconds == 0 {
		c.SweepIntervalSeconds = 10
	}
	if c.HeartbeatIntervalSeconds == 0 {
		c.HeartbeatIntervalSeconds = 30
	}
}

func (c GameConfig) ClaimWindow() time.Duration {
	return time.Duration(c.ClaimWindowMinutes) * time.Minute
}

func (c GameConfig) BaseCooldown() time.Duration {
	return time.Duration(c.BaseCooldownSeconds) * time.Second
}

func (c GameConfig) TrapPenalty() time.Duration {
	return time.Duration(c.TrapPenaltySeconds) * time.Second
}

func (c GameConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c GameConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalSeconds) * time.Second
}
