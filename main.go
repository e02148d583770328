package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Limetric/mysqlcat/internal/catalog"
	"github.com/Limetric/mysqlcat/internal/ddl"
	"github.com/Limetric/mysqlcat/internal/logger"
)

var (
	configPath string
	envPath    string
	logLevel   string
	logJSON    bool

	strict         bool
	splitDelimiter string
	checkKind      string
	renameFrom     string
	renameTo       string
	exportLive     bool
	exportSQLiteTo string

	cfg *Config
	log *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:           "mysqlcat",
	Short:         "Read MySQL DDL into a schema catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = logger.New(logLevel, logJSON)
		if err := loadDotEnv(envPath); err != nil {
			return err
		}
		var err error
		cfg, err = loadConfig(configPath)
		return err
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <file.sql>...",
	Short: "Apply SQL scripts to an empty catalog and report the result",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

var splitCmd = &cobra.Command{
	Use:   "split <file.sql>",
	Short: "Print the statement ranges of a script",
	Args:  cobra.ExactArgs(1),
	RunE:  runSplit,
}

var checkCmd = &cobra.Command{
	Use:   "check <file.sql>",
	Short: "Syntax check every statement of a script as one object kind",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

var detailsCmd = &cobra.Command{
	Use:   "details <file.sql>",
	Short: "Print the accounts and privileges of GRANT and CREATE USER statements",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetails,
}

var renameCmd = &cobra.Command{
	Use:   "rename-schema <file.sql>... --from old --to new",
	Short: "Rewrite schema qualifiers in stored view, routine and trigger definitions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRenameSchema,
}

var introspectCmd = &cobra.Command{
	Use:   "introspect",
	Short: "Build the catalog from a live MySQL schema",
	Args:  cobra.NoArgs,
	RunE:  runIntrospect,
}

var exportCmd = &cobra.Command{
	Use:   "export [file.sql]...",
	Short: "Write a catalog snapshot to SQLite and/or PostgreSQL",
	RunE:  runExport,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "mysqlcat", versionString())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "path to TOML config file")
	pf.StringVar(&envPath, "env-file", ".env", "path to .env file with DSN overrides")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.BoolVar(&logJSON, "log-json", false, "log in JSON format")

	parseCmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when any statement fails to parse")
	splitCmd.Flags().StringVar(&splitDelimiter, "delimiter", ";", "initial statement delimiter")
	checkCmd.Flags().StringVar(&checkKind, "kind", "statement", "object kind: table, view, routine, trigger, event or statement")
	renameCmd.Flags().StringVar(&renameFrom, "from", "", "schema name to replace")
	renameCmd.Flags().StringVar(&renameTo, "to", "", "new schema name; empty removes the qualifier")
	_ = renameCmd.MarkFlagRequired("from")
	exportCmd.Flags().BoolVar(&exportLive, "live", false, "read the catalog from the configured MySQL source")
	exportCmd.Flags().StringVar(&exportSQLiteTo, "sqlite", "", "SQLite file to write (overrides export.sqlite)")

	rootCmd.AddCommand(parseCmd, splitCmd, checkCmd, detailsCmd, renameCmd, introspectCmd, exportCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func newParseContext() *ddl.Context {
	return ddl.NewContext(cfg.Catalog.CaseSensitive, log)
}

// buildCatalog applies sources to a fresh catalog configured from cfg.
func buildCatalog(ctx context.Context, pc *ddl.Context, sources []Source) (*catalog.Catalog, []ingestResult, error) {
	cat := cfg.newCatalog()
	start := time.Now()
	results, err := ingest(ctx, pc, cat, cfg.Catalog.GenFKNames, sources...)
	if err != nil {
		return nil, results, err
	}
	log.Debugw("catalog built", "sources", len(sources), "elapsed", time.Since(start).Round(time.Millisecond))
	return cat, results, nil
}

func totalErrors(results []ingestResult) int {
	n := 0
	for _, r := range results {
		n += r.Errors
	}
	return n
}

func printSummary(w io.Writer, cat *catalog.Catalog, results []ingestResult) {
	for _, r := range results {
		fmt.Fprintf(w, "%s: %d objects, %d errors\n", r.Source, len(r.Created), r.Errors)
	}
	fmt.Fprintf(w, "catalog: %s\n", countCatalog(cat))
	warnings := collectCatalogWarnings(cat)
	if len(warnings) > 0 {
		fmt.Fprintf(w, "%d warning(s):\n", len(warnings))
		for _, warn := range warnings {
			fmt.Fprintf(w, "  WARN: %s\n", warn)
		}
	}
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cat, results, err := buildCatalog(ctx, newParseContext(), scriptSources(cfg, args))
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), cat, results)
	if errs := totalErrors(results); strict && errs > 0 {
		return errors.Errorf("%d statement(s) failed to parse", errs)
	}
	return nil
}

func runSplit(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err, "read script")
	}
	ctx, cancel := signalContext()
	defer cancel()

	sql := string(data)
	w := cmd.OutOrStdout()
	for _, r := range ddl.DetermineStatementRanges(ctx, newParseContext(), sql, splitDelimiter, "\n") {
		fmt.Fprintf(w, "%d\t%d\t%s\n", r.Offset, r.Length, firstLine(r.Text(sql)))
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func runCheck(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err, "read script")
	}
	ctx, cancel := signalContext()
	defer cancel()

	pc := newParseContext()
	w := cmd.OutOrStdout()
	failed := 0
	for _, stmt := range splitStatements(ctx, string(data), ";") {
		if errs := ddl.DoSyntaxCheck(pc, stmt, checkKind); errs > 0 {
			failed++
			fmt.Fprintf(w, "FAIL (%d errors): %s\n", errs, firstLine(stmt))
		}
	}
	if failed > 0 {
		return errors.Errorf("%d statement(s) failed the %s check", failed, checkKind)
	}
	fmt.Fprintln(w, "ok")
	return nil
}

func runDetails(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err, "read script")
	}
	ctx, cancel := signalContext()
	defer cancel()

	pc := newParseContext()
	w := cmd.OutOrStdout()
	for _, stmt := range splitStatements(ctx, string(data), ";") {
		d, err := ddl.ParseStatementDetails(pc, stmt)
		if errors.Is(err, ddl.ErrUnsupportedStatement) {
			continue
		}
		if err != nil {
			log.Warnw("statement skipped", "statement", firstLine(stmt), "error", err)
			continue
		}
		fmt.Fprintf(w, "%s ON %s\n", d.Kind, d.Target)
		if len(d.Privileges) > 0 {
			fmt.Fprintf(w, "  privileges: %s\n", strings.Join(d.Privileges, ", "))
		}
		for _, u := range d.Users {
			if u.IDMethod != "" {
				fmt.Fprintf(w, "  user: %s@%s identified by %s\n", u.User, u.Host, u.IDMethod)
			} else {
				fmt.Fprintf(w, "  user: %s@%s\n", u.User, u.Host)
			}
		}
		for _, line := range sortedPairs(d.Requirements) {
			fmt.Fprintf(w, "  require: %s\n", line)
		}
		for _, line := range sortedPairs(d.Options) {
			fmt.Fprintf(w, "  option: %s\n", line)
		}
	}
	return nil
}

func sortedPairs(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v == "" {
			out = append(out, k)
		} else {
			out = append(out, k+"="+v)
		}
	}
	sort.Strings(out)
	return out
}

func runRenameSchema(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	pc := newParseContext()
	cat, results, err := buildCatalog(ctx, pc, scriptSources(cfg, args))
	if err != nil {
		return err
	}
	if errs := totalErrors(results); errs > 0 {
		log.Warnw("scripts contain errors", "errors", errs)
	}

	if errs := ddl.RenameSchemaReferences(pc, cat, renameFrom, renameTo); errs > 0 {
		log.Warnw("some definitions were left unchanged", "errors", errs)
	}
	printDefinitions(cmd.OutOrStdout(), cat)
	return nil
}

// printDefinitions writes the stored SQL of every view, routine and trigger
// as a script.
func printDefinitions(w io.Writer, cat *catalog.Catalog) {
	emit := func(sql string) {
		if sql != "" {
			fmt.Fprintf(w, "%s$$\n", sql)
		}
	}
	fmt.Fprintln(w, "DELIMITER $$")
	for _, s := range cat.Schemata.Items() {
		for _, v := range s.Views.Items() {
			emit(v.SQLDefinition)
		}
		for _, r := range s.Routines.Items() {
			emit(r.SQLDefinition)
		}
		for _, t := range s.Tables.Items() {
			for _, tr := range t.Triggers.Items() {
				emit(tr.SQLDefinition)
			}
		}
	}
	fmt.Fprintln(w, "DELIMITER ;")
}

// liveSources wraps the MySQL source with the configured before/after
// scripts. The caller closes the returned source.
func liveSources() ([]Source, *mysqlSource, error) {
	src, err := openMySQLSource(cfg.Source)
	if err != nil {
		return nil, nil, err
	}
	var sources []Source
	for _, f := range cfg.Scripts.Before {
		sources = append(sources, newFileSource(cfg.resolvePath(f), src.Schema()))
	}
	sources = append(sources, src)
	for _, f := range cfg.Scripts.After {
		sources = append(sources, newFileSource(cfg.resolvePath(f), src.Schema()))
	}
	return sources, src, nil
}

func runIntrospect(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	sources, src, err := liveSources()
	if err != nil {
		return err
	}
	defer src.Close()

	log.Infow("introspecting MySQL", "schema", src.Schema())
	cat, results, err := buildCatalog(ctx, newParseContext(), sources)
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), cat, results)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	sqlitePath := cfg.Export.SQLite
	if exportSQLiteTo != "" {
		sqlitePath = exportSQLiteTo
	} else if sqlitePath != "" {
		sqlitePath = cfg.resolvePath(sqlitePath)
	}
	if sqlitePath == "" && cfg.Export.PostgresDSN == "" {
		return errors.New("no export target: set export.sqlite, export.postgres_dsn or --sqlite")
	}
	if exportLive == (len(args) > 0) {
		return errors.New("export needs either script files or --live")
	}

	ctx, cancel := signalContext()
	defer cancel()

	var sources []Source
	if exportLive {
		var src *mysqlSource
		var err error
		sources, src, err = liveSources()
		if err != nil {
			return err
		}
		defer src.Close()
	} else {
		sources = scriptSources(cfg, args)
	}

	cat, results, err := buildCatalog(ctx, newParseContext(), sources)
	if err != nil {
		return err
	}
	if errs := totalErrors(results); errs > 0 {
		log.Warnw("exporting a catalog built with errors", "errors", errs)
	}
	snap := buildSnapshot(cat)
	overwrite := cfg.Export.OnSchemaExists == "recreate"

	if sqlitePath != "" {
		log.Infow("writing SQLite snapshot", "path", sqlitePath)
		if err := exportSQLite(ctx, sqlitePath, snap, overwrite); err != nil {
			return errors.Wrap(err, "sqlite export")
		}
	}
	if cfg.Export.PostgresDSN != "" {
		log.Infow("writing PostgreSQL snapshot", "schema", cfg.Export.PGSchema)
		if err := exportPostgres(ctx, cfg.Export.PostgresDSN, cfg.Export.PGSchema, cfg.Export.OnSchemaExists, snap); err != nil {
			return errors.Wrap(err, "postgres export")
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", countCatalog(cat))
	return nil
}
