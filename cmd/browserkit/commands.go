package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"browserkit-go/application/session"
	"browserkit-go/domain/history"
	domainscript "browserkit-go/domain/script"
	"browserkit-go/infrastructure/repository"
	"browserkit-go/resources"
)

func buildListCmd() *cobra.Command {
	var builtin bool
	cmd := &cobra.Command{
		Use:   "list [dir]",
		Short: "List the scripts in a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if builtin {
				return runList(cmd, resources.ScriptFiles, resources.ScriptDir, "built-in scripts")
			}
			dir := "scripts"
			if len(args) == 1 {
				dir = args[0]
			}
			return runList(cmd, os.DirFS(dir), ".", dir)
		},
	}
	cmd.Flags().BoolVar(&builtin, "builtin", false, "List the scripts shipped with browserkit")
	return cmd
}

func runList(cmd *cobra.Command, fsys fs.FS, dir, where string) error {
	registry := domainscript.NewRegistry()
	if err := domainscript.NewLoader(registry).LoadFromFS(fsys, dir); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if registry.Count() == 0 {
		fmt.Fprintf(out, "No scripts in %s\n", where)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTEPS\tBROWSER\tFILE\tDESCRIPTION")
	for _, name := range registry.List() {
		sc := registry.Get(name)
		browserName := sc.Browser
		if browserName == "" {
			browserName = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", sc.Name, len(sc.Steps), browserName, registry.Origin(name), sc.Description)
	}
	return w.Flush()
}

func buildValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check script files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args)
		},
	}
	return cmd
}

func runValidate(cmd *cobra.Command, files []string) error {
	out := cmd.OutOrStdout()
	var errs []error
	for _, file := range files {
		sc, err := domainscript.LoadFile(file)
		if err == nil {
			err = session.Validate(sc)
		}
		if err != nil {
			fmt.Fprintf(out, "FAIL %s\n", file)
			errs = append(errs, fmt.Errorf("%s: %w", file, err))
			continue
		}
		fmt.Fprintf(out, "ok   %s (%s, %d steps)\n", file, sc.Name, len(sc.Steps))
	}
	return errors.Join(errs...)
}

func buildHistoryCmd() *cobra.Command {
	var (
		sessionID string
		mongoURI  string
	)
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded actions of a run or session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			if (runID == "") == (sessionID == "") {
				return errors.New("give either a run ID or --session")
			}
			return runHistory(cmd, runID, sessionID, mongoURI)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to show instead of a run")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB holding the run history")
	return cmd
}

func runHistory(cmd *cobra.Command, runID, sessionID, mongoURI string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	mongoCfg := repository.DefaultMongoDBConfig()
	mongoCfg.URI = cfg.History.URI
	if mongoURI != "" {
		mongoCfg.URI = mongoURI
	}
	if cfg.History.Database != "" {
		mongoCfg.Database = cfg.History.Database
	}

	db, err := repository.NewMongoDB(ctx, mongoCfg, logger)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	repo := repository.NewMongoRunRepository(db, logger)
	var records []*history.Record
	if runID != "" {
		records, err = repo.FindByRun(ctx, runID)
	} else {
		records, err = repo.FindBySession(ctx, sessionID)
	}
	if err != nil {
		return err
	}

	return printHistory(cmd, records)
}

func printHistory(cmd *cobra.Command, records []*history.Record) error {
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No history recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tEVENT\tOP\tTARGET\tDURATION\tMESSAGE")
	for _, r := range records {
		msg := r.Message
		if r.Failed() {
			msg = r.Message + " (" + r.Error + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Time.Format(time.DateTime), r.Event, r.Op, r.Target, r.Duration.Round(time.Millisecond), msg)
	}
	return w.Flush()
}
