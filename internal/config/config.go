package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// ─────────────────────────────────────────────────────────────
// Config — flags with environment fallbacks
// ─────────────────────────────────────────────────────────────

// Config is the server configuration. Flags win over environment variables.
type Config struct {
	Addr    string // listen address for the WebSocket hub
	Driver  string // storage driver: sqlite | postgres | mysql | mongo
	DSN     string // driver connection string (file path for sqlite)
	KeyFile string // API-key allowlist file; empty accepts any well-formed key
	MCP     bool   // serve MCP over stdio instead of the hub
}

// Load parses the configuration from args (without the program name).
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", envOr("JOURNAL_ADDR", ":8090"), "listen address")
	fs.StringVar(&cfg.Driver, "driver", envOr("JOURNAL_DRIVER", "sqlite"), "storage driver (sqlite|postgres|mysql|mongo)")
	fs.StringVar(&cfg.DSN, "dsn", envOr("JOURNAL_DSN", "journal.db"), "storage connection string")
	fs.StringVar(&cfg.KeyFile, "keys", envOr("JOURNAL_KEYS", ""), "API key allowlist file (hot-reloaded)")
	fs.BoolVar(&cfg.MCP, "mcp", false, "serve MCP on stdin/stdout instead of the WebSocket hub")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// ValidAPIKey reports whether the key has the shape of a public journal key.
// Malformed keys are a configuration failure and are rejected before any
// room is joined.
func ValidAPIKey(key string) bool {
	return strings.HasPrefix(key, "pk_") && len(key) >= 8
}

func badKeyErr(line int, key string) error {
	return fmt.Errorf("key file line %d: %q is not a valid API key (want pk_ prefix, min 8 chars)", line, key)
}
