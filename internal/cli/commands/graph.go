package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/autodash/internal/cli/output"
	"github.com/leapstack-labs/autodash/internal/schemagraph"
	"github.com/leapstack-labs/autodash/pkg/core"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <table>",
		Short: "Show the schema graph of a root table",
		Long: `Show the tables reachable from a root table through foreign keys, the
link fields used to reach them, and the rule the table would be generated with.`,
		Args: cobra.ExactArgs(1),
		RunE: runGraph,
	}
}

func runGraph(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc, cleanup, err := NewCommandContextWithStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	tables, err := resolveTables(ctx, cc.Store, args)
	if err != nil {
		return err
	}
	if len(tables) != 1 {
		return fmt.Errorf("%q matches %d tables; use schema.table or the table id", args[0], len(tables))
	}
	root := tables[0]

	graph, err := schemagraph.Build(ctx, cc.Store, root.ID, cc.Logger)
	if err != nil {
		return err
	}

	out := output.GraphOutput{Root: root.ID}
	set, err := cc.LoadRules()
	if err != nil {
		return err
	}
	types, err := cc.LoadTypes()
	if err != nil {
		return err
	}
	rule, err := set.Select(types, graph.Root)
	switch {
	case err == nil:
		out.Rule = rule.Name
	case !errors.Is(err, core.ErrNoApplicableRule):
		return err
	}

	for _, t := range graph.Tables() {
		out.Tables = append(out.Tables, output.GraphTable{
			ID:         t.ID,
			Name:       t.Name,
			EntityType: string(t.EntityTypeOrDefault()),
			Root:       graph.IsRoot(t.ID),
			Links:      t.Links,
			Fields:     len(graph.Fields(t.ID)),
		})
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, "Schema graph of "+root.Name)
	if out.Rule != "" {
		r.Muted("rule " + out.Rule)
	} else {
		r.Warning("no rule applies to this table")
	}
	rows := make([][]string, 0, len(out.Tables))
	for _, t := range out.Tables {
		name := t.Name
		if t.Root {
			name += " (root)"
		}
		links := make([]string, len(t.Links))
		for i, l := range t.Links {
			links[i] = fmt.Sprint(l)
		}
		rows = append(rows, []string{fmt.Sprint(t.ID), name, t.EntityType, fmt.Sprint(t.Fields), strings.Join(links, ", ")})
	}
	r.Table([]string{"ID", "Table", "Entity type", "Fields", "Links"}, rows)
	return nil
}
