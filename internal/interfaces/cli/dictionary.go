package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/reagent-match/internal/application/matching"
	matcher "github.com/turtacn/reagent-match/internal/intelligence/catalog_matcher"
)

// NewDictionaryCmd creates the dictionary command group.
func NewDictionaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dictionary",
		Short: "Inspect the synonym dictionary",
	}

	lookupCmd := &cobra.Command{
		Use:   "lookup <text>",
		Short: "Resolve a substance name to its canonical entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDictionary(cmd, func(svc matching.Service) (interface{}, error) {
				res, err := svc.Resolve(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return nil, err
				}
				return resolutionView{res}, nil
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every substance with its synonyms and rejected claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDictionary(cmd, func(svc matching.Service) (interface{}, error) {
				snap := svc.Snapshot()
				return dictionaryView{Entries: snap.Dictionary.Entries(), Conflicts: snap.Conflicts}, nil
			})
		},
	}

	cmd.AddCommand(lookupCmd, listCmd)
	return cmd
}

func runDictionary(cmd *cobra.Command, fn func(matching.Service) (interface{}, error)) error {
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

	data, err := fn(svc)
	if err != nil {
		return err
	}
	return PrintResult(cmd, data)
}

type resolutionView struct {
	*matching.Resolution
}

func (v resolutionView) TableHeaders() []string {
	return []string{"Input", "Canonical", "Synonyms"}
}

func (v resolutionView) TableRows() [][]string {
	canonical := v.Canonical
	if !v.Found {
		canonical = "-"
	}
	return [][]string{{v.Input, canonical, strings.Join(v.Synonyms, ", ")}}
}

func (v resolutionView) String() string {
	if !v.Found {
		return fmt.Sprintf("%s: %s (normalized %q)\n", v.Input, color.YellowString("not found"), v.Normalized)
	}
	s := fmt.Sprintf("%s -> %s\n", v.Input, color.GreenString(v.Canonical))
	if len(v.Synonyms) > 0 {
		s += "synonyms: " + strings.Join(v.Synonyms, ", ") + "\n"
	}
	return s
}

type dictionaryView struct {
	Entries   []matcher.SynonymEntry    `json:"entries"`
	Conflicts []matcher.SynonymConflict `json:"conflicts,omitempty"`
}

func (v dictionaryView) TableHeaders() []string {
	return []string{"Substance", "Synonyms"}
}

func (v dictionaryView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Entries))
	for _, e := range v.Entries {
		rows = append(rows, []string{e.Canonical, strings.Join(e.Synonyms, ", ")})
	}
	return rows
}

func (v dictionaryView) String() string {
	var b strings.Builder
	for _, e := range v.Entries {
		b.WriteString(e.Canonical)
		if len(e.Synonyms) > 0 {
			b.WriteString(": " + strings.Join(e.Synonyms, ", "))
		}
		b.WriteString("\n")
	}
	for _, c := range v.Conflicts {
		fmt.Fprintf(&b, "%s %q kept by %s, rejected for %s\n", color.YellowString("conflict:"), c.Synonym, c.Owner, c.Rejected)
	}
	fmt.Fprintf(&b, "%d substances\n", len(v.Entries))
	return b.String()
}
