package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/reagent-match/internal/application/matching"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	matcher "github.com/turtacn/reagent-match/internal/intelligence/catalog_matcher"
)

type searchOptions struct {
	quantity float64
	unit     string
	limit    int
}

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank catalog products against a free-text request",
		Long: `Search the catalog for a request such as "Toluol 99,5% 2,5 L".

Substance, purity and pack size are extracted from the query. --quantity and
--unit override the pack size found in the text.`,
		Example: `  reagentmatch search "Toluol 99,5% 1 L" --catalog products.csv --synonyms synonyms.csv
  reagentmatch search methanol --quantity 500 --unit ml -o table`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := &matching.SearchInput{
				Query: strings.Join(args, " "),
				Unit:  opts.unit,
				Limit: opts.limit,
			}
			if cmd.Flags().Changed("quantity") {
				q := opts.quantity
				input.Quantity = &q
			}
			return runSearch(cmd, input)
		},
	}

	cmd.Flags().Float64Var(&opts.quantity, "quantity", 0, "requested pack size, overrides the query text")
	cmd.Flags().StringVar(&opts.unit, "unit", "", "unit of --quantity (ml, l, g, kg)")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "maximum number of results (0 = all)")
	return cmd
}

func runSearch(cmd *cobra.Command, input *matching.SearchInput) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cliCtx.LoadConfig(nil)
	if err != nil {
		return err
	}
	ctx, cancel := cliCtx.commandContext(cmd)
	defer cancel()

	svc, cleanup, err := openService(ctx, cfg, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := svc.Search(ctx, input)
	if err != nil {
		return err
	}
	cliCtx.Logger.Debug("search completed",
		logging.String("query", input.Query),
		logging.Int("exact", len(out.Exact)),
		logging.Int("deviating", len(out.Deviating)),
	)
	if cliCtx.OutputFormat == "json" {
		return PrintResult(cmd, out)
	}
	return PrintResult(cmd, searchView{out})
}

// searchView renders a SearchOutput for the text and table formats.
type searchView struct {
	*matching.SearchOutput
}

func (v searchView) results() []matcher.MatchResult {
	all := make([]matcher.MatchResult, 0, len(v.Exact)+len(v.Deviating))
	all = append(all, v.Exact...)
	return append(all, v.Deviating...)
}

func (v searchView) TableHeaders() []string {
	return []string{"#", "Class", "Score", "ID", "Product", "Purity", "Quantity"}
}

func (v searchView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Exact)+len(v.Deviating))
	for i, r := range v.results() {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			classLabel(r.Class),
			formatScore(r.Score),
			r.Product.ID,
			truncateString(r.Product.Name, 48),
			formatPurity(r.Attributes.Purity),
			formatQuantity(r.Attributes.Quantity),
		})
	}
	return rows
}

func (v searchView) String() string {
	var b strings.Builder
	q := v.Query
	fmt.Fprintf(&b, "Query: %s\n", q.Raw)
	if q.Substance != "" {
		fmt.Fprintf(&b, "Substance: %s\n", q.Substance)
	} else {
		fmt.Fprintf(&b, "Substance: %s\n", color.YellowString("not in dictionary"))
	}
	if q.Purity != nil {
		fmt.Fprintf(&b, "Purity: %s\n", formatPurity(q.Purity))
	}
	if q.Quantity != nil {
		fmt.Fprintf(&b, "Quantity: %s\n", formatQuantity(q.Quantity))
	}
	b.WriteString("\n")

	results := v.results()
	if len(results) == 0 {
		b.WriteString("No matching products found.\n")
	}
	for i, r := range results {
		fmt.Fprintf(&b, "%3d. [%s] %s  %s  %s\n", i+1, classLabel(r.Class), formatScore(r.Score), r.Product.ID, r.Product.Name)
	}

	fmt.Fprintf(&b, "\n%d exact, %d deviating, %d evaluated, %d skipped", len(v.Exact), len(v.Deviating), v.Evaluated, v.Skipped)
	if v.Truncated {
		b.WriteString(" (truncated)")
	}
	b.WriteString("\n")
	return b.String()
}

func classLabel(c matcher.MatchClass) string {
	switch c {
	case matcher.ClassExact:
		return color.GreenString(string(c))
	case matcher.ClassDeviating:
		return color.YellowString(string(c))
	default:
		return string(c)
	}
}

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 4, 64)
}

func formatPurity(p *matcher.Purity) string {
	if p == nil {
		return "-"
	}
	s := strconv.FormatFloat(p.Value, 'f', -1, 64) + " %"
	if p.Assumed {
		s += " (assumed)"
	}
	return s
}

func formatQuantity(q *matcher.Quantity) string {
	if q == nil {
		return "-"
	}
	return strconv.FormatFloat(q.Value, 'f', -1, 64) + " " + q.Unit.String()
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
