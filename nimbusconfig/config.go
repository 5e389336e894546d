// Package nimbusconfig declares the environment-driven configuration
// for the login store and its CLI, following the teacher's
// appview/config package: one struct per concern, env tags with
// defaults, loaded in one call through github.com/sethvargo/go-envconfig.
package nimbusconfig

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// StoreConfig configures where and how the login database is opened.
type StoreConfig struct {
	DbPath           string        `env:"DB_PATH, default=nimbus-logins.db"`
	InterruptTimeout time.Duration `env:"INTERRUPT_TIMEOUT, default=30s"`
}

// ImportConfig holds bulk-import settings. The CLI's import subcommand
// does not read them: it imports the whole file in one ImportMultiple
// call and always writes to the store.
type ImportConfig struct {
	BatchSize int  `env:"BATCH_SIZE, default=500"`
	DryRun    bool `env:"DRY_RUN, default=false"`
}

// LogConfig configures the ambient logger.
type LogConfig struct {
	Level string `env:"LEVEL, default=info"`
}

// Config is the whole program's configuration tree.
type Config struct {
	Store  StoreConfig  `env:",prefix=NIMBUS_"`
	Import ImportConfig `env:",prefix=NIMBUS_IMPORT_"`
	Log    LogConfig    `env:",prefix=NIMBUS_LOG_"`
}

// Load reads Config from the process environment.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
