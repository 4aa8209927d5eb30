package cli

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/reagent-match/internal/application/matching"
	"github.com/turtacn/reagent-match/internal/bootstrap"
	"github.com/turtacn/reagent-match/internal/config"
	"github.com/turtacn/reagent-match/internal/domain/catalog"
	"github.com/turtacn/reagent-match/internal/infrastructure/database/postgres"
	"github.com/turtacn/reagent-match/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/reagent-match/internal/infrastructure/datasource/csvfile"
	"github.com/turtacn/reagent-match/pkg/errors"
)

// NewCatalogCmd creates the catalog command group.
func NewCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate catalog sources and import them into PostgreSQL",
	}
	cmd.AddCommand(newCatalogCheckCmd(), newCatalogImportCmd())
	return cmd
}

func newCatalogCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report catalog rows that searches will skip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			infra, err := bootstrap.New(ctx, cfg, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer infra.Close()

			products, err := infra.Products.ListProducts(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, checkCatalog(products))
		},
	}
}

// CheckReport lists the invalid rows of a catalog.
type CheckReport struct {
	Total   int            `json:"total"`
	Invalid []InvalidEntry `json:"invalid"`
}

// InvalidEntry is one product row that fails validation.
type InvalidEntry struct {
	Row    int    `json:"row"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func checkCatalog(products []*catalog.Product) *CheckReport {
	r := &CheckReport{Total: len(products), Invalid: []InvalidEntry{}}
	for i, p := range products {
		if err := p.Validate(); err != nil {
			r.Invalid = append(r.Invalid, InvalidEntry{Row: i + 1, ID: p.ID, Name: p.Name, Reason: reason(err)})
		}
	}
	return r
}

func reason(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		if appErr.Detail != "" {
			return appErr.Message + ": " + appErr.Detail
		}
		return appErr.Message
	}
	return err.Error()
}

func (r *CheckReport) TableHeaders() []string {
	return []string{"Row", "ID", "Name", "Reason"}
}

func (r *CheckReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Invalid))
	for _, e := range r.Invalid {
		rows = append(rows, []string{strconv.Itoa(e.Row), e.ID, truncateString(e.Name, 40), e.Reason})
	}
	return rows
}

func (r *CheckReport) String() string {
	var b strings.Builder
	for _, e := range r.Invalid {
		fmt.Fprintf(&b, "row %d (%s): %s\n", e.Row, e.ID, e.Reason)
	}
	summary := fmt.Sprintf("%d of %d rows valid", r.Total-len(r.Invalid), r.Total)
	if len(r.Invalid) == 0 {
		summary = color.GreenString(summary)
	} else {
		summary = color.YellowString(summary)
	}
	b.WriteString(summary + "\n")
	return b.String()
}

type importOptions struct {
	migrate      bool
	skipProducts bool
	skipSynonyms bool
}

func newCatalogImportCmd() *cobra.Command {
	opts := &importOptions{}
	cmd := &cobra.Command{
		Use:     "import",
		Short:   "Replace the PostgreSQL catalog tables with the CSV files",
		Example: `  reagentmatch catalog import --catalog products.csv --synonyms synonyms.csv --migrate`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply pending migrations before importing")
	cmd.Flags().BoolVar(&opts.skipProducts, "skip-products", false, "leave the product table untouched")
	cmd.Flags().BoolVar(&opts.skipSynonyms, "skip-synonyms", false, "leave the synonym table untouched")
	return cmd
}

func runImport(cmd *cobra.Command, opts *importOptions) error {
	if opts.skipProducts && opts.skipSynonyms {
		return errors.New(errors.ErrCodeValidation, "nothing to import")
	}
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cliCtx.LoadConfig(func(c *config.Config) { c.Catalog.Source = config.SourceFile })
	if err != nil {
		return err
	}
	ctx, cancel := cliCtx.commandContext(cmd)
	defer cancel()

	conn, err := postgres.NewConnection(bootstrap.PostgresConfig(cfg.Database), cliCtx.Logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	if opts.migrate {
		if err := conn.RunMigrations(cfg.Database.MigrationPath); err != nil {
			return err
		}
	}

	csvOpts := bootstrap.CSVOptions(cfg.Catalog)
	importer := matching.NewImporter(
		csvfile.NewProductSource(cfg.Catalog.ProductsPath, csvOpts, cliCtx.Logger),
		csvfile.NewSynonymSource(cfg.Catalog.SynonymsPath, csvOpts, cliCtx.Logger),
		cliCtx.Logger,
	)

	var (
		products catalog.ProductStore
		synonyms catalog.SynonymStore
	)
	if !opts.skipProducts {
		products = repositories.NewPostgresProductRepo(conn, cliCtx.Logger)
	}
	if !opts.skipSynonyms {
		synonyms = repositories.NewPostgresSynonymRepo(conn, cliCtx.Logger)
	}

	res, err := importer.Import(ctx, products, synonyms)
	if err != nil {
		return err
	}
	if cliCtx.OutputFormat == "json" {
		return PrintResult(cmd, res)
	}
	PrintSuccess(cmd, fmt.Sprintf("imported %d products (%d invalid) and %d synonym rows", res.Products, res.Invalid, res.Synonyms))
	return nil
}
