// Package postgres provides a PostgreSQL introspection adapter.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/autodash/pkg/adapter"
)

func init() {
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

// Adapter introspects PostgreSQL through information_schema.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates an unconnected adapter. A nil logger means discard.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:      logger,
			Placeholder: adapter.PlaceholderDollar,
		},
	}
}

// Engine implements adapter.Adapter.
func (a *Adapter) Engine() string { return "postgres" }

// DefaultSchema implements adapter.Adapter.
func (a *Adapter) DefaultSchema() string { return "public" }

// Connect parses the connection settings with pgx and opens a database/sql
// handle over the pgx connection config.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	connCfg, err := pgx.ParseConfig(buildPostgresDSN(cfg))
	if err != nil {
		return fmt.Errorf("invalid postgres connection settings: %w", err)
	}

	a.Logger.Debug("connecting to postgres",
		slog.String("host", connCfg.Host),
		slog.Int("port", int(connCfg.Port)),
		slog.String("database", connCfg.Database))

	db := stdlib.OpenDB(*connCfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN renders a keyword/value connection string. sslmode
// defaults to disable; other options are passed through in key order.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	parts := []string{
		"host=" + quoteDSNValue(host),
		fmt.Sprintf("port=%d", port),
		"dbname=" + quoteDSNValue(cfg.Database),
	}
	if cfg.Username != "" {
		parts = append(parts, "user="+quoteDSNValue(cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+quoteDSNValue(cfg.Password))
	}

	options := map[string]string{"sslmode": "disable"}
	for k, v := range cfg.Options {
		options[k] = v
	}
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+quoteDSNValue(options[k]))
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue single-quotes values that are empty or contain spaces,
// quotes or backslashes.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

var _ adapter.Adapter = (*Adapter)(nil)
