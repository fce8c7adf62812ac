package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"browserkit-go/application"
	"browserkit-go/application/session"
	"browserkit-go/core/eventbus"
	domainscript "browserkit-go/domain/script"
	"browserkit-go/infrastructure/browser"
	"browserkit-go/infrastructure/config"
	"browserkit-go/infrastructure/logging"
	"browserkit-go/infrastructure/report"
	"browserkit-go/infrastructure/repository"
	"browserkit-go/resources"
)

// errRunFailed is returned when a run finished without passing.
var errRunFailed = errors.New("run did not pass")

const (
	eventBufferSize = 256
	reportMaxSizeMB = 10
)

type runOptions struct {
	browser    string
	backend    string
	timeout    int
	resultsDir string
	driversDir string
	scriptsDir string
	headless   bool
	mongoURI   string
}

func buildRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Run a script file or a named script from the scripts directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.browser, "browser", "b", "", "Browser variant: firefox, chrome or ie (overrides script and config)")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Driver backend: webdriver or cdp")
	cmd.Flags().IntVarP(&opts.timeout, "timeout", "t", 0, "Element wait in seconds")
	cmd.Flags().StringVar(&opts.resultsDir, "results-dir", "", "Folder receiving run results")
	cmd.Flags().StringVar(&opts.driversDir, "drivers-dir", "", "Folder holding native driver executables")
	cmd.Flags().StringVar(&opts.scriptsDir, "scripts-dir", "scripts", "Folder searched for named scripts")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "Run the browser without a window")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", "", "Record run history to this MongoDB")
	return cmd
}

// applyRunFlags overrides cfg with the flags the user set.
func applyRunFlags(cmd *cobra.Command, opts *runOptions, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = opts.backend
	}
	if flags.Changed("timeout") {
		cfg.TimeoutSeconds = opts.timeout
	}
	if flags.Changed("results-dir") {
		cfg.ResultsDir = opts.resultsDir
	}
	if flags.Changed("drivers-dir") {
		cfg.DriversDir = opts.driversDir
	}
	if flags.Changed("headless") {
		cfg.Headless = opts.headless
	}
	if flags.Changed("mongo-uri") {
		cfg.History.Enabled = true
		cfg.History.URI = opts.mongoURI
	}
	return cfg.Validate()
}

func runScript(cmd *cobra.Command, opts *runOptions, target string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, opts, cfg); err != nil {
		return err
	}

	logger, closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	sc, err := resolveScript(target, opts.scriptsDir)
	if err != nil {
		return err
	}
	if err := session.Validate(sc); err != nil {
		return fmt.Errorf("invalid script %q: %w", sc.Name, err)
	}

	variant, err := chooseVariant(opts.browser, sc.Browser, cfg.Browser)
	if err != nil {
		return err
	}
	backend, err := browser.ParseBackend(cfg.Backend)
	if err != nil {
		return err
	}

	rep, err := report.NewRunReporter(&report.RunConfig{
		ResultsDir:    cfg.ResultsDir,
		Console:       cfg.Console,
		ConsoleOutput: cmd.OutOrStdout(),
		MaxSizeMB:     reportMaxSizeMB,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer rep.Close()

	bus := eventbus.New(eventBufferSize, eventbus.WithLogger(logger))
	closeHistory := startHistory(ctx, cfg, bus, rep.RunID(), logger)
	defer func() {
		// Drain queued events into the recorder before disconnecting.
		bus.Close()
		closeHistory()
	}()

	driverCfg := browser.DefaultDriverConfig()
	driverCfg.Headless = cfg.Headless

	sess := session.New(&session.Config{
		DriversDir:     cfg.DriversDir,
		TimeoutSeconds: cfg.TimeoutSeconds,
		DriverFactory:  session.BackendFactory(backend, driverCfg),
		Reporter:       rep,
		EventBus:       bus,
		Logger:         logger,
	})

	logger.Info("Starting run",
		"script", sc.Name,
		"run_id", rep.RunID(),
		"variant", variant,
		"backend", backend)

	result, err := session.NewScriptRunner(sess, logger).Run(ctx, variant, sc)
	if err != nil {
		return err
	}

	logger.Info("Run finished",
		"script", sc.Name,
		"run_id", result.RunID,
		"result", result.Message,
		"steps_run", result.StepsRun)

	if !result.Passed() {
		return fmt.Errorf("%w: %s", errRunFailed, result.Message)
	}
	return nil
}

// resolveScript loads target as a file, else as a script name from dir, else
// as one of the embedded scripts.
func resolveScript(target, dir string) (*domainscript.Script, error) {
	if _, err := os.Stat(target); err == nil {
		return domainscript.LoadFile(target)
	}

	registry := domainscript.NewRegistry()
	loader := domainscript.NewLoader(registry)
	if err := loader.LoadFromFS(resources.ScriptFiles, resources.ScriptDir); err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err == nil {
		// Scripts on disk replace embedded ones of the same name.
		if err := loader.LoadDir(dir); err != nil {
			return nil, err
		}
	}
	if sc := registry.Get(target); sc != nil {
		return sc, nil
	}
	return nil, fmt.Errorf("script %q not found as a file, in %s or built in", target, filepath.Clean(dir))
}

// chooseVariant picks the first non-empty browser name in precedence order.
func chooseVariant(names ...string) (browser.Variant, error) {
	for _, name := range names {
		if name != "" {
			return browser.ParseVariant(name)
		}
	}
	return browser.VariantChrome, nil
}

// startHistory wires the MongoDB run history when enabled. A store that
// cannot be reached disables history for the run instead of failing it.
func startHistory(ctx context.Context, cfg *config.Config, bus eventbus.EventBus, runID string, logger *slog.Logger) func() {
	if !cfg.History.Enabled {
		return func() {}
	}

	mongoCfg := repository.DefaultMongoDBConfig()
	mongoCfg.URI = cfg.History.URI
	if cfg.History.Database != "" {
		mongoCfg.Database = cfg.History.Database
	}

	db, err := repository.NewMongoDB(ctx, mongoCfg, logger)
	if err != nil {
		logger.Warn("Run history disabled", "error", err)
		return func() {}
	}

	repo := repository.NewMongoRunRepository(db, logger)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warn("Run history indexes unavailable", "error", err)
	}

	recorder := application.NewRecorder(&application.RecorderConfig{
		Repository: repo,
		EventBus:   bus,
		Logger:     logger,
		RunID:      runID,
	})

	return func() {
		recorder.Stop()
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			logger.Warn("Failed to close MongoDB", "error", err)
		}
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

func setupLogging(cfg *config.Config) (*slog.Logger, func(), error) {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.SlogLevel()
	logCfg.Dir = cfg.Logging.Dir

	logger, closeLog, err := logging.Setup(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return logger, func() { _ = closeLog() }, nil
}
