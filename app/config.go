package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/p2pbot/core/config"
	coredatabase "github.com/m3rciful/p2pbot/core/database"
	"github.com/m3rciful/p2pbot/dialogue"
)

const (
	// StoragePostgres keeps records in PostgreSQL.
	StoragePostgres = "postgres"
	// StorageMemory keeps records in process memory; useful for local runs.
	StorageMemory = "memory"
)

// LedgerConfig tunes the dialogue and its record store.
type LedgerConfig struct {
	Storage       string        `yaml:"storage" envconfig:"LEDGER_STORAGE"`
	Currency      string        `yaml:"currency" envconfig:"LEDGER_CURRENCY"`
	Timezone      string        `yaml:"timezone" envconfig:"LEDGER_TIMEZONE"`
	StoreTimeout  time.Duration `yaml:"store_timeout" envconfig:"LEDGER_STORE_TIMEOUT"`
	SessionTTL    time.Duration `yaml:"session_ttl" envconfig:"LEDGER_SESSION_TTL"`
	EditListLimit int           `yaml:"edit_list_limit" envconfig:"LEDGER_EDIT_LIST_LIMIT"`
	RecentLimit   int           `yaml:"recent_limit" envconfig:"LEDGER_RECENT_LIMIT"`
	QueueLimit    int           `yaml:"queue_limit" envconfig:"LEDGER_QUEUE_LIMIT"`
}

// MetricsConfig configures the observability HTTP server.
type MetricsConfig struct {
	// Listen is the address of /metrics, /healthz and /readyz; empty disables it.
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// Config is the full bot configuration.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Ledger   LedgerConfig        `yaml:"ledger"`
	Metrics  MetricsConfig       `yaml:"metrics"`

	location *time.Location
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// Location returns the ledger time zone resolved by Normalize.
func (c *Config) Location() *time.Location {
	if c == nil || c.location == nil {
		return time.Local
	}
	return c.location
}

// Load reads and validates the configuration for running the bot.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadForMigrations reads the configuration without requiring the Telegram
// sections; only logging and database settings are validated.
func LoadForMigrations(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if !cfg.Database.Enabled() {
		return nil, fmt.Errorf("database.host and database.name are required")
	}
	return &cfg, nil
}

// Normalize applies defaults and validates the bot sections.
func (c *Config) Normalize() error {
	l := &c.Ledger
	l.Storage = strings.ToLower(strings.TrimSpace(l.Storage))
	if l.Storage == "" {
		l.Storage = StoragePostgres
	}
	switch l.Storage {
	case StoragePostgres:
		if !c.Database.Enabled() {
			return fmt.Errorf("database.host and database.name are required when ledger.storage is %q", StoragePostgres)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("invalid ledger.storage %q; allowed: postgres, memory", l.Storage)
	}

	l.Currency = strings.ToUpper(strings.TrimSpace(l.Currency))
	if l.Currency == "" {
		l.Currency = "RUB"
	}

	c.location = time.Local
	if tz := strings.TrimSpace(l.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid ledger.timezone %q: %w", tz, err)
		}
		c.location = loc
	}

	if l.StoreTimeout < 0 || l.SessionTTL < 0 {
		return fmt.Errorf("ledger durations must be >= 0")
	}
	if l.StoreTimeout == 0 {
		l.StoreTimeout = dialogue.DefaultStoreTimeout
	}
	if l.SessionTTL == 0 {
		l.SessionTTL = 30 * time.Minute
	}
	if l.EditListLimit <= 0 {
		l.EditListLimit = dialogue.DefaultEditListLimit
	}
	if l.RecentLimit <= 0 {
		l.RecentLimit = dialogue.DefaultRecentLimit
	}
	if l.QueueLimit <= 0 {
		l.QueueLimit = dialogue.DefaultQueueLimit
	}
	// Telegram allows at most 100 inline buttons per message.
	if l.EditListLimit > 99 {
		return fmt.Errorf("ledger.edit_list_limit must be <= 99")
	}
	return nil
}
