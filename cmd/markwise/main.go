package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/omr-tools/markwise/internal/compare"
	"github.com/omr-tools/markwise/internal/evaluation"
	"github.com/omr-tools/markwise/internal/handler"
	appI18n "github.com/omr-tools/markwise/internal/i18n"
	"github.com/omr-tools/markwise/internal/model"
	"github.com/omr-tools/markwise/internal/render"
	"github.com/omr-tools/markwise/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "markwise",
		Short: "Score scanned OMR responses against configurable marking schemes",
	}

	score := scoreCmd()
	root.AddCommand(score, compareCmd(), serveCmd(), exportCmd())

	// Make "score" the default when no subcommand is given.
	root.RunE = score.RunE

	// Register score flags on root so bare `markwise -e eval.json ...` still works.
	root.Flags().AddFlagSet(score.Flags())

	return root
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score [response files or directories]",
		Short: "Score concatenated response files",
		RunE:  runScore,
	}
	f := cmd.Flags()
	f.StringP("evaluation", "e", "evaluation.json", "Path to the evaluation definition (JSON or YAML)")
	f.String("empty-value", "", "Template's sentinel value for unmarked answers")
	f.Bool("explain", false, "Print the per-question explanation table regardless of the evaluation file setting")
	f.String("db", "", "SQLite database path for storing results (empty = no persistence)")
	f.StringP("lang", "l", "en", "Output language (en, ru)")
	addLogFlags(f)
	return cmd
}

func compareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare produced outputs against a reviewed ground-truth dataset",
		RunE:  runCompare,
	}
	f := cmd.Flags()
	f.String("truth", "", "Ground-truth CSV path (required)")
	f.String("outputs", "", "Produced outputs CSV path (required)")
	f.StringP("lang", "l", "en", "Output language (en, ru)")
	addLogFlags(f)

	_ = cmd.MarkFlagRequired("truth")
	_ = cmd.MarkFlagRequired("outputs")

	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP scoring server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("evaluation", "e", "evaluation.json", "Path to the evaluation definition (JSON or YAML)")
	f.String("empty-value", "", "Template's sentinel value for unmarked answers")
	f.Bool("explain", false, "Include explanation rows in scoring responses")
	f.String("db", "", "SQLite database path for storing results (empty = no persistence)")
	f.StringP("lang", "l", "en", "Server language (en, ru)")
	addLogFlags(f)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "markwise.db", "SQLite database path")
	f.String("eval-id", "", "Evaluation identifier for output (required)")
	f.String("subject", "", "Subject name for output (required)")
	f.String("date", "", "Exam date in YYYY-MM-DD format (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)

	_ = cmd.MarkFlagRequired("eval-id")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("MARKWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("markwise")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/markwise")
	v.AddConfigPath("/etc/markwise")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runScore(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	files, err := collectResponseFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no response files given: pass JSON files or directories containing them")
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.Context(lang)

	evalPath := v.GetString("evaluation")
	cfg, err := evaluation.Load(evalPath, v.GetString("empty-value"))
	if err != nil {
		return fmt.Errorf("load evaluation: %w", err)
	}
	if v.GetBool("explain") {
		cfg.ExplainScoring = true
	}

	var db *store.Store
	if dbPath := v.GetString("db"); dbPath != "" {
		db, err = store.New(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
	}

	for _, path := range files {
		// Streak counters persist across Evaluate calls on one Config,
		// so each response set gets a clean slate.
		cfg.Reset()

		response, err := model.LoadResponse(path)
		if err != nil {
			return err
		}

		fileID := model.FileID(path)
		score, err := evaluation.Evaluate(response, cfg)
		if err != nil {
			return fmt.Errorf("score %s: %w", path, err)
		}

		if table := render.ExplanationTable(ctx, cfg.Trace()); table != "" {
			fmt.Println(table)
		}
		fmt.Println(render.ScoreSummary(ctx, fileID, score))
		slog.Info("scored response", "file_id", fileID, "score", score)

		if db != nil {
			err := db.SaveResult(model.Result{FileID: fileID, Score: score, Evaluation: evalPath})
			if err != nil {
				return fmt.Errorf("save result for %s: %w", fileID, err)
			}
		}
	}

	if db != nil {
		err := db.SetRunInfo(model.RunInfo{
			EvalID:       model.FileID(evalPath),
			NumQuestions: len(cfg.Questions()),
		})
		if err != nil {
			return fmt.Errorf("save run info: %w", err)
		}
	}

	fmt.Println(render.BatchSummary(ctx, len(files)))
	return nil
}

// collectResponseFiles expands directory arguments into their JSON files.
func collectResponseFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", arg, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			files = append(files, filepath.Join(arg, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func runCompare(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.Context(lang)

	truthPath := v.GetString("truth")
	report, err := compare.Files(truthPath, v.GetString("outputs"))
	if err != nil {
		return err
	}
	if !report.Complete() {
		return fmt.Errorf("ground truth is missing %d file id(s): %s",
			len(report.MissingIDs), strings.Join(report.MissingIDs, ", "))
	}

	fmt.Println(appI18n.Td(ctx, "CompareAccuracy", map[string]any{
		"File":     truthPath,
		"Accuracy": fmt.Sprintf("%.6f", report.Accuracy),
	}))
	slog.Info("comparison finished",
		"total", report.Total,
		"matched", report.Matched,
		"accuracy", report.Accuracy,
		"duplicates_dropped", report.DuplicatesDropped)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	cfg, err := evaluation.Load(v.GetString("evaluation"), v.GetString("empty-value"))
	if err != nil {
		return fmt.Errorf("load evaluation: %w", err)
	}
	if v.GetBool("explain") {
		cfg.ExplainScoring = true
	}

	var db *store.Store
	if dbPath := v.GetString("db"); dbPath != "" {
		db, err = store.New(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
	}

	h := handler.New(cfg, db)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"evaluation", v.GetString("evaluation"),
		"explain", cfg.ExplainScoring,
		"lang", lang,
		"persistence", db != nil,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportAll()
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}

	// Flags override whatever the scoring run recorded.
	export.EvalID = v.GetString("eval-id")
	export.Subject = v.GetString("subject")
	export.Date = v.GetString("date")

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}
