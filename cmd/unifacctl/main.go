package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"unifac/internal/activity"
	"unifac/internal/config"
	"unifac/internal/dataextract"
	"unifac/internal/logging"
	"unifac/internal/paramtable"
	unifacapi "unifac/pkg/unifac"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:], stdout)
	case "import":
		return runImport(ctx, args[1:], stdout)
	case "tables":
		return runTables(ctx, args[1:], stdout)
	case "export":
		return runExport(ctx, args[1:], stdout)
	case "evaluate":
		return runEvaluate(ctx, args[1:], stdout)
	case "runs":
		return runRuns(ctx, args[1:], stdout)
	case "show":
		return runShow(ctx, args[1:], stdout)
	case "serve":
		return runServe(ctx, args[1:], stdout)
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// commonFlags are accepted by every subcommand. Explicit flags override the
// config file, which overrides defaults.
type commonFlags struct {
	configPath string
	store      string
	dbPath     string
	logLevel   string
	logFormat  string
}

func bindCommonFlags(fs *flag.FlagSet) *commonFlags {
	f := &commonFlags{}
	fs.StringVar(&f.configPath, "config", "", "YAML config file")
	fs.StringVar(&f.store, "store", "", "store backend: memory|sqlite")
	fs.StringVar(&f.dbPath, "db-path", "", "sqlite database path")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug|info|warn|error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: json|console")
	return f
}

func (f *commonFlags) load(fs *flag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "store":
			cfg.Store.Kind = f.store
		case "db-path":
			cfg.Store.Path = f.dbPath
		case "log-level":
			cfg.Logging.Level = f.logLevel
		case "log-format":
			cfg.Logging.Format = f.logFormat
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openClient(cfg *config.Config) (*unifacapi.Client, *zap.Logger, error) {
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	client, err := unifacapi.New(unifacapi.Options{
		StoreKind: cfg.Store.Kind,
		DBPath:    cfg.Store.Path,
		Logger:    logger,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return client, logger, nil
}

func closeClient(client *unifacapi.Client, logger *zap.Logger) {
	_ = client.Close()
	_ = logger.Sync()
}

func runInit(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	common := bindCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load(fs)
	if err != nil {
		return err
	}

	client, logger, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer closeClient(client, logger)

	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "initialized store=%s\n", cfg.Store.Kind)
	return nil
}

func runImport(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	common := bindCommonFlags(fs)
	file := fs.String("file", "", "parameter table YAML file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("import requires --file")
	}
	cfg, err := common.load(fs)
	if err != nil {
		return err
	}

	client, logger, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer closeClient(client, logger)

	name, err := client.LoadTableFile(ctx, *file)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported table=%s\n", name)
	return nil
}

func runTables(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("tables", flag.ContinueOnError)
	common := bindCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load(fs)
	if err != nil {
		return err
	}

	client, logger, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer closeClient(client, logger)

	names, err := client.Tables(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(stdout, name)
	}
	return nil
}

func runExport(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	common := bindCommonFlags(fs)
	tableName := fs.String("table", "", "stored table name")
	outPath := fs.String("out", "", "output YAML path (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tableName == "" {
		return errors.New("export requires --table")
	}
	cfg, err := common.load(fs)
	if err != nil {
		return err
	}

	client, logger, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer closeClient(client, logger)

	if *outPath == "" {
		return client.ExportTable(ctx, *tableName, stdout)
	}
	f, err := os.Create(*outPath)
	if err != nil {
		return err
	}
	if err := client.ExportTable(ctx, *tableName, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported table=%s path=%s\n", *tableName, *outPath)
	return nil
}

func runEvaluate(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	common := bindCommonFlags(fs)
	tableName := fs.String("table", "", "stored table name")
	tableFile := fs.String("table-file", "", "parameter table YAML file (evaluated inline)")
	temperature := fs.Float64("temperature", 0, "shared temperature in K")
	statesCSV := fs.String("states-csv", "", "CSV file of mixture states")
	outCSV := fs.String("out-csv", "", "write results as CSV")
	asJSON := fs.Bool("json", false, "print the summary as JSON")
	var rows rowsFlag
	fs.Var(&rows, "x", "comma-separated mole fractions; repeat for more rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load(fs)
	if err != nil {
		return err
	}

	eval := cfg.Evaluation
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "table":
			eval.Table, eval.TableFile = *tableName, ""
		case "table-file":
			eval.TableFile, eval.Table = *tableFile, ""
		case "temperature":
			eval.Temperature = *temperature
		case "states-csv":
			eval.StatesCSV, eval.States = *statesCSV, nil
		case "out-csv":
			eval.OutCSV = *outCSV
		}
	})
	if len(rows) > 0 {
		eval.StatesCSV = ""
		eval.States = make([]config.StateConfig, len(rows))
		for i, x := range rows {
			eval.States[i] = config.StateConfig{X: x}
		}
	}

	client, logger, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer closeClient(client, logger)

	req, err := buildEvaluateRequest(ctx, client, eval)
	if err != nil {
		return err
	}
	summary, err := client.Evaluate(ctx, req)
	if err != nil {
		return err
	}

	if eval.OutCSV != "" {
		if err := writeSummaryCSV(eval.OutCSV, summary); err != nil {
			return err
		}
	}
	if *asJSON {
		return writeJSON(stdout, summary)
	}
	return printSummary(stdout, summary)
}

func buildEvaluateRequest(ctx context.Context, client *unifacapi.Client, eval config.EvaluationConfig) (unifacapi.EvaluateRequest, error) {
	var (
		req   unifacapi.EvaluateRequest
		table unifacapi.Table
		err   error
	)
	switch {
	case eval.TableFile != "":
		table, err = paramtable.LoadFile(eval.TableFile)
		if err != nil {
			return req, err
		}
		req.Table = &table
	case eval.Table != "":
		table, err = client.Table(ctx, eval.Table)
		if err != nil {
			return req, err
		}
		req.TableName = eval.Table
	default:
		return req, errors.New("evaluate requires --table or --table-file")
	}

	if eval.StatesCSV != "" {
		f, err := os.Open(eval.StatesCSV)
		if err != nil {
			return req, err
		}
		defer f.Close()
		req.States, err = dataextract.ReadStatesCSV(f, dataextract.StatesOptions{
			Components:         paramtable.ComponentNames(table),
			DefaultTemperature: eval.Temperature,
		})
		if err != nil {
			return req, err
		}
		return req, nil
	}
	req.States = eval.Batch()
	return req, nil
}

func writeSummaryCSV(path string, summary unifacapi.EvaluateSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataextract.WriteResultCSV(f, summary.Components, summary.States, resultOf(summary)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func resultOf(s unifacapi.EvaluateSummary) activity.Result {
	return activity.Result{
		Combinatorial: denseOf(s.Combinatorial),
		Residual:      denseOf(s.Residual),
		Activity:      denseOf(s.Gamma),
	}
}

func denseOf(rows [][]float64) *mat.Dense {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	d := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		d.SetRow(i, row)
	}
	return d
}

func runRuns(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	common := bindCommonFlags(fs)
	limit := fs.Int("limit", 20, "maximum runs to list (<=0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load(fs)
	if err != nil {
		return err
	}

	client, logger, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer closeClient(client, logger)

	summaries, err := client.Evaluations(ctx, *limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "run_id\ttable\trows\tcreated_at")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.RunID, s.TableName, len(s.States), s.CreatedAtUTC)
	}
	return tw.Flush()
}

func runShow(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	common := bindCommonFlags(fs)
	runID := fs.String("run-id", "", "evaluation run id")
	asJSON := fs.Bool("json", false, "print the summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("show requires --run-id")
	}
	cfg, err := common.load(fs)
	if err != nil {
		return err
	}

	client, logger, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer closeClient(client, logger)

	summary, err := client.Evaluation(ctx, *runID)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(stdout, summary)
	}
	return printSummary(stdout, summary)
}

func printSummary(w io.Writer, s unifacapi.EvaluateSummary) error {
	fmt.Fprintf(w, "run_id=%s table=%s\n", s.RunID, s.TableName)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"row", "T"}
	for _, name := range s.Components {
		header = append(header, "x_"+name)
	}
	for _, name := range s.Components {
		header = append(header, "gamma_"+name)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i, st := range s.States {
		cells := []string{fmt.Sprint(i), fmt.Sprintf("%g", st.T)}
		for _, x := range st.X {
			cells = append(cells, fmt.Sprintf("%g", x))
		}
		for _, g := range s.Gamma[i] {
			cells = append(cells, fmt.Sprintf("%.6f", g))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: unifacctl <init|import|tables|export|evaluate|runs|show|serve> [flags]", msg)
}
