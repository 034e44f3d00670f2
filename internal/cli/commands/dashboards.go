package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/autodash/internal/cli/output"
)

// NewDashboardsCommand creates the dashboards command.
func NewDashboardsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboards [id]",
		Short: "List saved dashboards or show one",
		Example: `  # List saved dashboards
  autodash dashboards

  # Show the cards of one dashboard
  autodash dashboards 3f1c9a0e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDashboards,
	}
}

func runDashboards(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc, cleanup, err := NewCommandContextWithStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cc.Renderer

	if len(args) == 1 {
		d, err := cc.Store.GetDashboard(ctx, args[0])
		if err != nil {
			return err
		}
		out := output.DashboardOutput{ID: args[0]}
		fillDashboard(&out, d)
		out.TableID = d.TableID
		if t, err := cc.Store.GetTable(ctx, d.TableID); err == nil {
			out.Table = t.Name
		}
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(out)
		}
		renderDashboard(r, out)
		return nil
	}

	summaries, err := cc.Store.ListDashboards(ctx)
	if err != nil {
		return err
	}
	out := make([]output.DashboardSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, output.DashboardSummary{
			ID:        s.ID,
			Title:     s.Title,
			Rule:      s.Rule,
			TableID:   s.TableID,
			Cards:     s.Cards,
			CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	if len(out) == 0 {
		r.Muted("no dashboards saved yet; run autodash generate")
		return nil
	}
	rows := make([][]string, 0, len(out))
	for _, s := range out {
		rows = append(rows, []string{s.ID, s.Title, s.Rule, fmt.Sprint(s.TableID), fmt.Sprint(s.Cards), s.CreatedAt})
	}
	r.Header(1, fmt.Sprintf("Dashboards (%d)", len(out)))
	r.Table([]string{"ID", "Title", "Rule", "Table", "Cards", "Created"}, rows)
	return nil
}
