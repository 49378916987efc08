package dbctx

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/replacement"
)

// Config holds the engine's tunables: buffer pool size, which
// replacement strategy to run it with, LRU-K's k, and the client
// concurrency cap. Grounded on the teacher's internal.NovaSqlConfig/
// LoadConfig (internal/config.go), carrying the same mapstructure-tagged
// struct plus viper.New/SetConfigFile/ReadInConfig/Unmarshal loading
// idiom, generalized from the teacher's single storage-mode knob to the
// buffer manager's pluggable-strategy knobs this engine actually needs.
type Config struct {
	BufferPoolFrames  int    `mapstructure:"buffer_pool_frames"`
	ReplacementStrategy string `mapstructure:"replacement_strategy"`
	LRUKSize          int    `mapstructure:"lruk_k"`
	MaxClients        int    `mapstructure:"max_clients"`
	DataFile          string `mapstructure:"data_file"`
}

// defaults mirrors the teacher's pattern of a conservative built-in
// config that LoadConfig's caller can override from a file.
func defaults() Config {
	return Config{
		BufferPoolFrames:    64,
		ReplacementStrategy: "lru",
		LRUKSize:             2,
		MaxClients:          32,
		DataFile:            "corvusdb.db",
	}
}

// LoadConfig reads a YAML config file at path and unmarshals it onto
// the built-in defaults, so a file only needs to name the keys it wants
// to override.
func LoadConfig(path string) (Config, error) {
	cfg := defaults()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("dbctx: read config: %w", err)
	}
	// Unknown options: ConfigError (spec §6) — a key in the file that
	// doesn't match any mapstructure tag on Config should fail loudly
	// rather than be silently dropped.
	strict := viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = true
	})
	if err := v.Unmarshal(&cfg, strict); err != nil {
		return Config{}, fmt.Errorf("dbctx: unmarshal config: %w: %w", dberr.ErrConfig, err)
	}
	return cfg, nil
}

// Strategy builds the replacement.Strategy named by
// cfg.ReplacementStrategy, defaulting cfg.LRUKSize to 2 when the
// strategy is "lruk" and the config left it unset.
func (cfg Config) Strategy(src interface{ Intn(int) int }) (replacement.Strategy, error) {
	switch cfg.ReplacementStrategy {
	case "", "lru":
		return replacement.NewLRU(), nil
	case "lfu":
		return replacement.NewLFU(), nil
	case "fifo":
		return replacement.NewFIFO(), nil
	case "random":
		return replacement.NewRandom(src), nil
	case "lruk":
		k := cfg.LRUKSize
		if k <= 0 {
			k = 2
		}
		return replacement.NewLRUK(k), nil
	default:
		return nil, fmt.Errorf("dbctx: unknown replacement_strategy %q: %w", cfg.ReplacementStrategy, dberr.ErrConfig)
	}
}
