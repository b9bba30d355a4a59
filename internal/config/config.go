// Package config loads the layout tool's TOML configuration.
//
//	store_root      = "Originals"
//	identifier_attr = "identifier"
//	journal_path    = "layout.db"
//	atomic_update   = false
//	tolerance       = 1e-9
//	log_level       = "info"
//	undo_limit      = 64
//
// Keys missing from the file keep their defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the settings shared by every command.
type Config struct {
	StoreRoot      string
	IdentifierAttr string
	// JournalPath is the SQLite publish journal. Empty disables journaling.
	JournalPath  string
	AtomicUpdate bool
	Tolerance    float64
	LogLevel     slog.Level
	// UndoLimit caps the undo steps kept per scene; 0 keeps all.
	UndoLimit int
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		StoreRoot:      "Originals",
		IdentifierAttr: "identifier",
		Tolerance:      1e-9,
		LogLevel:       slog.LevelInfo,
		UndoLimit:      64,
	}
}

type fileConfig struct {
	StoreRoot      string  `toml:"store_root"`
	IdentifierAttr string  `toml:"identifier_attr"`
	JournalPath    string  `toml:"journal_path"`
	AtomicUpdate   bool    `toml:"atomic_update"`
	Tolerance      float64 `toml:"tolerance"`
	LogLevel       string  `toml:"log_level"`
	UndoLimit      int     `toml:"undo_limit"`
}

// Load reads path and overlays the keys it defines onto Default. Unknown
// keys are rejected so typos do not pass silently.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return overlay(raw, meta)
}

// Parse is Load for in-memory TOML.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return overlay(raw, meta)
}

func overlay(raw fileConfig, meta toml.MetaData) (Config, error) {
	if undec := meta.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config: unknown keys %s", strings.Join(keys, ", "))
	}

	cfg := Default()
	if meta.IsDefined("store_root") {
		cfg.StoreRoot = strings.TrimSpace(raw.StoreRoot)
	}
	if meta.IsDefined("identifier_attr") {
		cfg.IdentifierAttr = strings.TrimSpace(raw.IdentifierAttr)
	}
	if meta.IsDefined("journal_path") {
		cfg.JournalPath = strings.TrimSpace(raw.JournalPath)
	}
	if meta.IsDefined("atomic_update") {
		cfg.AtomicUpdate = raw.AtomicUpdate
	}
	if meta.IsDefined("tolerance") {
		cfg.Tolerance = raw.Tolerance
	}
	if meta.IsDefined("log_level") {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(raw.LogLevel))); err != nil {
			return Config{}, fmt.Errorf("parse log_level: %w", err)
		}
	}
	if meta.IsDefined("undo_limit") {
		cfg.UndoLimit = raw.UndoLimit
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings the engine cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.StoreRoot == "" || strings.Contains(c.StoreRoot, "|") {
		errs = append(errs, fmt.Errorf("store_root %q is not a valid node name", c.StoreRoot))
	}
	if c.IdentifierAttr == "" {
		errs = append(errs, errors.New("identifier_attr must not be empty"))
	}
	if !(c.Tolerance > 0) {
		errs = append(errs, fmt.Errorf("tolerance must be positive, got %g", c.Tolerance))
	}
	if c.UndoLimit < 0 {
		errs = append(errs, fmt.Errorf("undo_limit must not be negative, got %d", c.UndoLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
