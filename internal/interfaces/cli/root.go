// Package cli implements the reagentmatch command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/reagent-match/internal/application/matching"
	"github.com/turtacn/reagent-match/internal/bootstrap"
	"github.com/turtacn/reagent-match/internal/config"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration

	Source       string
	ProductsPath string
	SynonymsPath string
	Delimiter    string
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Logger       logging.Logger
	OutputFormat string
	NoColor      bool
	Timeout      time.Duration

	opts *RootOptions
}

// NewRootCommand creates the root command with all global flags and
// subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "reagentmatch",
		Short: "Match free-text reagent requests against a chemical product catalog",
		Long: "reagentmatch resolves substance names through a synonym dictionary, extracts\n" +
			"purity and pack size from product names and ranks catalog entries into exact\n" +
			"and deviating matches.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./reagentmatch.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json, table)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "global operation timeout")
	pf.StringVar(&opts.Source, "source", "", "catalog source (file, postgres, minio)")
	pf.StringVar(&opts.ProductsPath, "catalog", "", "product catalog CSV file")
	pf.StringVar(&opts.SynonymsPath, "synonyms", "", "synonym CSV file")
	pf.StringVar(&opts.Delimiter, "delimiter", "", "CSV field delimiter")

	cmd.AddCommand(
		NewSearchCmd(),
		NewDictionaryCmd(),
		NewCatalogCmd(),
		NewMigrateCmd(),
		NewVersionCmd(),
	)
	return cmd
}

// persistentPreRun initializes the logger and stores CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	switch strings.ToLower(opts.OutputFormat) {
	case "text", "json", "table":
	default:
		return errors.New(errors.ErrCodeValidation, "invalid output format").WithDetail(opts.OutputFormat)
	}

	logger, err := initLogger(opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	if opts.NoColor {
		color.NoColor = true
	}

	cliCtx := &CLIContext{
		Logger:       logger,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		NoColor:      opts.NoColor,
		Timeout:      opts.Timeout,
		opts:         opts,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// LoadConfig loads configuration with priority flags > env > file >
// defaults. extra runs after the flag overrides and may be nil.
func (c *CLIContext) LoadConfig(extra func(*config.Config)) (*config.Config, error) {
	override := func(cfg *config.Config) {
		c.opts.apply(cfg)
		if extra != nil {
			extra(cfg)
		}
	}
	path := c.opts.ConfigPath
	if path == "" {
		path = findConfigFile()
	}
	cfg, err := config.LoadWith(path, override)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "configuration invalid")
	}
	return cfg, nil
}

func (o *RootOptions) apply(cfg *config.Config) {
	if o.Source != "" {
		cfg.Catalog.Source = o.Source
	}
	if o.ProductsPath != "" {
		cfg.Catalog.ProductsPath = o.ProductsPath
		if o.Source == "" {
			cfg.Catalog.Source = config.SourceFile
		}
	}
	if o.SynonymsPath != "" {
		cfg.Catalog.SynonymsPath = o.SynonymsPath
	}
	if o.Delimiter != "" {
		cfg.Catalog.Delimiter = o.Delimiter
	}
	// The CLI answers one request per run.
	cfg.Catalog.Watch = false
}

func findConfigFile() string {
	searchPaths := []string{"./reagentmatch.yaml"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(homeDir, ".reagentmatch", "config.yaml"))
	}
	searchPaths = append(searchPaths, "/etc/reagentmatch/config.yaml")

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// initLogger creates a logger configured for CLI usage (output to stderr).
func initLogger(opts *RootOptions) (logging.Logger, error) {
	level := logging.LevelWarn
	switch strings.ToLower(opts.LogLevel) {
	case "debug":
		level = logging.LevelDebug
	case "info":
		level = logging.LevelInfo
	case "error":
		level = logging.LevelError
	}
	if opts.Verbose {
		level = logging.LevelDebug
	}

	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts CLIContext from a command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// openService builds the infrastructure for cfg and loads the catalog
// snapshot. The returned cleanup func must be called.
func openService(ctx context.Context, cfg *config.Config, logger logging.Logger) (matching.Service, func(), error) {
	infra, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	svc, err := infra.NewMatchingService(cfg.Matcher)
	if err != nil {
		infra.Close()
		return nil, nil, err
	}
	if _, err := svc.Reload(ctx); err != nil {
		infra.Close()
		return nil, nil, err
	}
	return svc, infra.Close, nil
}

// commandContext returns the command context bounded by --timeout.
func (c *CLIContext) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), c.Timeout)
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

// PrintResult outputs data in the format selected by --output.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return printJSON(cmd.OutOrStdout(), data)
	}

	switch cliCtx.OutputFormat {
	case "json":
		return printJSON(cmd.OutOrStdout(), data)
	case "table":
		if tp, ok := data.(tableProvider); ok {
			printTable(cmd.OutOrStdout(), tp.TableHeaders(), tp.TableRows())
			return nil
		}
		return printText(cmd.OutOrStdout(), data)
	default:
		return printText(cmd.OutOrStdout(), data)
	}
}

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(w io.Writer, data interface{}) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(w, v)
	case fmt.Stringer:
		fmt.Fprint(w, v.String())
	default:
		fmt.Fprintf(w, "%+v\n", v)
	}
	return nil
}

func printTable(w io.Writer, headers []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Error:"), err.Error())
}

// PrintSuccess writes a formatted success message to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("OK:"), msg)
}
