package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/autodash/internal/cli/output"
	"github.com/leapstack-labs/autodash/internal/state"
	"github.com/leapstack-labs/autodash/pkg/core"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "generate [table...]",
		Short: "Generate automagic dashboards",
		Long: `Generate a dashboard for each root table. Tables are given by catalog id,
name or schema.name; without arguments every catalog table is used.

Dashboards with at least one card are saved to the catalog unless --dry-run
is set.`,
		Example: `  # Generate dashboards for every table
  autodash generate

  # Preview the dashboard of one table as JSON
  autodash generate orders --dry-run -o json`,
		Aliases: []string{"gen"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print dashboards without saving them")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string, dryRun bool) error {
	ctx := cmd.Context()
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	tables, err := resolveTables(ctx, cc.Store, args)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		cc.Renderer.Warning("catalog has no tables; run autodash sync first")
		return nil
	}

	ids := make([]int64, len(tables))
	names := make(map[int64]string, len(tables))
	for i, t := range tables {
		ids[i] = t.ID
		names[t.ID] = t.Name
	}

	out := output.GenerateOutput{DryRun: dryRun}
	for _, res := range cc.Engine.GenerateAll(ctx, ids) {
		d := output.DashboardOutput{TableID: res.TableID, Table: names[res.TableID]}
		if res.Err != nil {
			d.Error = res.Err.Error()
			if !errors.Is(res.Err, core.ErrNoApplicableRule) {
				out.Failed++
			}
			out.Dashboards = append(out.Dashboards, d)
			continue
		}

		fillDashboard(&d, res.Dashboard)
		if !dryRun {
			id, err := cc.Engine.Save(ctx, res.Dashboard)
			if err != nil {
				d.Error = err.Error()
				out.Failed++
			}
			d.ID = id
		}
		out.Dashboards = append(out.Dashboards, d)
	}

	if err := renderGenerate(cc.Renderer, out); err != nil {
		return err
	}
	if out.Failed > 0 {
		return fmt.Errorf("%d of %d tables failed", out.Failed, len(ids))
	}
	return nil
}

// resolveTables maps arguments to catalog tables, in argument order.
// Numeric arguments are ids; others are matched by name.
func resolveTables(ctx context.Context, store *state.SQLiteStore, args []string) ([]*core.Table, error) {
	all, err := store.ListTables(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	if len(args) == 0 {
		return all, nil
	}

	var out []*core.Table
	seen := make(map[int64]bool)
	for _, arg := range args {
		var matched []*core.Table
		if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
			t, err := store.GetTable(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", arg, err)
			}
			matched = []*core.Table{t}
		} else {
			matched = matchTables(all, arg)
		}
		if len(matched) == 0 {
			return nil, fmt.Errorf("table %q not found in catalog", arg)
		}
		for _, t := range matched {
			if !seen[t.ID] {
				seen[t.ID] = true
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func fillDashboard(out *output.DashboardOutput, d *core.Dashboard) {
	out.Rule = d.Rule
	out.Title = d.Title
	out.Description = d.Description
	out.Cards = make([]output.CardOutput, 0, len(d.Cards))
	for _, c := range d.Cards {
		out.Cards = append(out.Cards, output.CardOutput{
			Name:        c.Name,
			Title:       c.Title,
			Description: c.Description,
			Score:       c.Score,
			Query:       c.Query,
		})
	}
}

func renderGenerate(r *output.Renderer, out output.GenerateOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	for _, d := range out.Dashboards {
		if d.Error != "" {
			r.Warning(fmt.Sprintf("%s: %s", d.Table, d.Error))
			continue
		}
		renderDashboard(r, d)
	}

	saved := 0
	for _, d := range out.Dashboards {
		if d.ID != "" {
			saved++
		}
	}
	if out.DryRun {
		r.Muted("dry run: nothing saved")
	} else {
		r.Success(fmt.Sprintf("saved %d dashboards", saved))
	}
	return nil
}

func renderDashboard(r *output.Renderer, d output.DashboardOutput) {
	title := d.Title
	if title == "" {
		title = d.Table
	}
	r.Header(1, title)
	if d.Description != "" {
		r.Println(d.Description)
	}
	r.Muted(fmt.Sprintf("table %s (id %d), rule %s", d.Table, d.TableID, d.Rule))
	if d.ID != "" {
		r.Muted("dashboard " + d.ID)
	}
	if len(d.Cards) == 0 {
		r.Muted("no viable cards")
		r.Println()
		return
	}

	rows := make([][]string, 0, len(d.Cards))
	for _, c := range d.Cards {
		rows = append(rows, []string{c.Name, c.Title, strconv.FormatFloat(c.Score, 'f', 2, 64), querySummary(c.Query)})
	}
	r.Table([]string{"Card", "Title", "Score", "Query"}, rows)
	r.Println()
}

// querySummary renders a card query as compact JSON.
func querySummary(q any) string {
	b, err := core.MarshalQuery(q)
	if err != nil {
		return ""
	}
	return string(b)
}
