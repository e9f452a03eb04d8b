package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xrefgen/goindex"
	"xrefgen/server"
	"xrefgen/xref"
)

const (
	Version = "0.3.0"
	appName = "xrefgen"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the flags shared by every command.
type options struct {
	configPath string
	logLevel   string
}

func (o *options) load() (*Config, *slog.Logger, error) {
	cfg := DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = LoadConfig(o.configPath); err != nil {
			return nil, nil, err
		}
	}
	return cfg, newLogger(o.logLevel), nil
}

func rootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Cross-reference index generator for Go modules",
		Long: `xrefgen indexes every function body of one or more Go modules and
records each reference with its roles (read, write, call, address-of,
dynamic dispatch) and relations (called-by, received-by) in a SQLite
database, which the serve command exposes over HTTP.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(indexCmd(&o), serveCmd(&o))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})
	return cmd
}

func indexCmd(o *options) *cobra.Command {
	var (
		locals, checks, tests, validate, noSources bool
		workers                                    int
		modules                                    string
		skip                                       []string
	)
	cmd := &cobra.Command{
		Use:   "index [flags] <dir> [output.db]",
		Short: "Index a module and write the cross-reference database",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := o.load()
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("locals") {
				cfg.IndexFunctionLocals = locals
			}
			if f.Changed("check-invariants") {
				cfg.CheckInvariants = checks
			}
			if f.Changed("tests") {
				cfg.Tests = tests
			}
			if f.Changed("validate") {
				cfg.ValidateDB = validate
			}
			if f.Changed("no-sources") {
				cfg.Sources = !noSources
			}
			if f.Changed("workers") {
				cfg.Workers = workers
			}
			if f.Changed("skip") {
				cfg.Skip = skip
			}
			if modules != "" {
				extra, err := parseModules(modules)
				if err != nil {
					return err
				}
				cfg.Modules = append(cfg.Modules, extra...)
			}
			if len(args) == 2 {
				cfg.Output = args[1]
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cfg, args[0], log)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&locals, "locals", false, "Also record references to locals, parameters and captures")
	f.BoolVar(&checks, "check-invariants", false, "Panic when the traversal breaks a structural invariant")
	f.BoolVar(&tests, "tests", false, "Load test packages")
	f.BoolVar(&validate, "validate", false, "Run validation queries after write")
	f.BoolVar(&noSources, "no-sources", false, "Do not store file contents")
	f.IntVar(&workers, "workers", 0, "Packages indexed at once (0 = GOMAXPROCS)")
	f.StringVar(&modules, "modules", "", "Comma-separated dir:modpath:name triples for additional modules")
	f.StringSliceVar(&skip, "skip", nil, "Globs of module-relative files to leave out")
	return cmd
}

// parseModules parses dir:modpath:name triples.
func parseModules(spec string) ([]Module, error) {
	var out []Module
	for _, s := range strings.Split(spec, ",") {
		parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid --modules entry %q (want dir:modpath:name)", s)
		}
		out = append(out, Module{Dir: parts[0], Path: parts[1], Name: parts[2]})
	}
	return out, nil
}

func runIndex(ctx context.Context, cfg *Config, dir string, log *slog.Logger) error {
	prog := NewProgress(log)

	primaryDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("invalid primary dir: %w", err)
	}
	modPath := readModulePath(primaryDir)
	if modPath == "" {
		return fmt.Errorf("no go.mod in %s", primaryDir)
	}
	extras := make([]Module, len(cfg.Modules))
	for i, m := range cfg.Modules {
		if m.Dir, err = filepath.Abs(m.Dir); err != nil {
			return fmt.Errorf("invalid module dir %q: %w", cfg.Modules[i].Dir, err)
		}
		extras[i] = m
	}
	ms := NewModuleSet(Module{Dir: primaryDir, Path: modPath}, extras)
	prog.Log("Analyzing %d modules: %s", len(ms.Modules()), ms.Names())

	debug.SetMemoryLimit(8 * 1024 * 1024 * 1024) // 8 GiB

	goworkPath, err := CreateTempGoWork(ms)
	if err != nil {
		return err
	}
	defer os.Remove(goworkPath)
	prog.Verbose("Created workspace: %s", goworkPath)

	loaded, err := LoadPackages(ms, goworkPath, cfg.Tests, prog)
	if err != nil {
		return err
	}

	x := xref.New()
	d := goindex.NewDriver(goindex.Config{
		Paths:               ms,
		Fset:                loaded.Fset,
		IndexFunctionLocals: cfg.IndexFunctionLocals,
		CheckInvariants:     cfg.CheckInvariants,
		Workers:             cfg.Workers,
		Skip:                cfg.ShouldSkip,
		ReadSources:         cfg.Sources,
		Logger:              log,
	}, x)
	prog.Log("Indexing bodies...")
	sum, err := d.Run(ctx, loaded.Packages)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	prog.Log("Indexed %d packages, %d files, %d bodies; %d overrides",
		sum.Packages, sum.Files, sum.Bodies, sum.Overrides)

	meta := RunGitRevisions(ms, prog)
	maps.Copy(meta, map[string]string{
		"generator":             appName,
		"version":               Version,
		"root":                  primaryDir,
		"modules":               strconv.Itoa(len(ms.Modules())),
		"index_function_locals": strconv.FormatBool(cfg.IndexFunctionLocals),
	})
	runID, err := xref.WriteDB(cfg.Output, x, xref.WriteOptions{Validate: cfg.ValidateDB, Meta: meta}, prog)
	if err != nil {
		return err
	}

	prog.Log("Done. %d entities, %d occurrences (run %s).", len(x.Entities), len(x.Occurrences), runID)
	return nil
}

func serveCmd(o *options) *cobra.Command {
	var dbPath, addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a cross-reference database over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := o.load()
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = cfg.Output
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, dbPath, addr, log)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the SQLite database (default: config output)")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: config server.addr)")
	return cmd
}

func runServe(ctx context.Context, dbPath, addr string, log *slog.Logger) error {
	db, err := server.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := &http.Server{
		Addr:         addr,
		Handler:      server.NewApp(db, log).Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr, "db", dbPath)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	l := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
	return logger
}
