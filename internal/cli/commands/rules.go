package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/autodash/internal/cli/output"
)

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the dashboard rules",
		Long: `List the rules generate chooses from, after inheritance is resolved.
Rules come from rules_dir when configured, otherwise the built-in set is used.`,
		Args: cobra.NoArgs,
		RunE: runRules,
	}
}

func runRules(cmd *cobra.Command, _ []string) error {
	cc := NewCommandContextWithoutStore(cmd)
	set, err := cc.LoadRules()
	if err != nil {
		return err
	}

	var out []output.RuleOutput
	for _, rule := range set.Rules() {
		out = append(out, output.RuleOutput{
			Name:       rule.Name,
			TableType:  string(rule.TableType),
			Extends:    rule.Extends,
			Title:      rule.Title,
			Dimensions: len(rule.Dimensions),
			Metrics:    len(rule.Metrics),
			Filters:    len(rule.Filters),
			Cards:      len(rule.Cards),
		})
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	rows := make([][]string, 0, len(out))
	for _, o := range out {
		rows = append(rows, []string{
			o.Name, o.TableType, o.Extends,
			fmt.Sprint(o.Dimensions), fmt.Sprint(o.Metrics), fmt.Sprint(o.Filters), fmt.Sprint(o.Cards),
		})
	}
	r.Header(1, fmt.Sprintf("Rules (%d)", len(out)))
	r.Table([]string{"Name", "Table type", "Extends", "Dimensions", "Metrics", "Filters", "Cards"}, rows)
	return nil
}
