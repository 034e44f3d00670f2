package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/autodash/pkg/core"
)

// DashboardSummary is a stored dashboard without its cards.
type DashboardSummary struct {
	ID        string
	Title     string
	Rule      string
	TableID   int64
	Cards     int
	CreatedAt time.Time
}

// CreateDashboard implements core.DashboardSink. The dashboard and its cards
// are written in one transaction.
func (s *SQLiteStore) CreateDashboard(ctx context.Context, d *core.Dashboard) (string, error) {
	if err := s.opened(); err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := generateID()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO dashboards (id, title, description, rule, table_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, d.Title, d.Description, d.Rule, d.TableID, time.Now().UTC(),
	); err != nil {
		return "", fmt.Errorf("failed to create dashboard: %w", err)
	}

	for i, c := range d.Cards {
		q, err := core.MarshalQuery(c.Query)
		if err != nil {
			return "", fmt.Errorf("failed to encode query of card %s: %w", c.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dashboard_cards (id, dashboard_id, position, name, title, description, score, query)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			generateID(), id, i, c.Name, c.Title, c.Description, c.Score, string(q),
		); err != nil {
			return "", fmt.Errorf("failed to create card %s: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit dashboard: %w", err)
	}

	s.logger.Debug("stored dashboard", slog.String("id", id), slog.Int("cards", len(d.Cards)))
	return id, nil
}

// ListDashboards returns stored dashboards, newest first.
func (s *SQLiteStore) ListDashboards(ctx context.Context) ([]DashboardSummary, error) {
	if err := s.opened(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.title, d.rule, d.table_id, d.created_at,
		     (SELECT COUNT(*) FROM dashboard_cards c WHERE c.dashboard_id = d.id)
		 FROM dashboards d
		 ORDER BY d.created_at DESC, d.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []DashboardSummary
	for rows.Next() {
		var d DashboardSummary
		if err := rows.Scan(&d.ID, &d.Title, &d.Rule, &d.TableID, &d.CreatedAt, &d.Cards); err != nil {
			return nil, fmt.Errorf("failed to scan dashboard: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDashboard loads a stored dashboard with its cards in position order.
func (s *SQLiteStore) GetDashboard(ctx context.Context, id string) (*core.Dashboard, error) {
	if err := s.opened(); err != nil {
		return nil, err
	}

	d := &core.Dashboard{}
	err := s.db.QueryRowContext(ctx,
		`SELECT title, description, rule, table_id FROM dashboards WHERE id = ?`, id,
	).Scan(&d.Title, &d.Description, &d.Rule, &d.TableID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dashboard %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, title, description, score, query FROM dashboard_cards
		 WHERE dashboard_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards of dashboard %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			c     core.Candidate
			query string
		)
		if err := rows.Scan(&c.Name, &c.Title, &c.Description, &c.Score, &query); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		c.Query = &core.QuerySpec{}
		if err := json.Unmarshal([]byte(query), c.Query); err != nil {
			return nil, fmt.Errorf("failed to decode query of card %s: %w", c.Name, err)
		}
		d.Cards = append(d.Cards, &c)
	}
	return d, rows.Err()
}
