package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/communitycar/schemagraph"
	"github.com/communitycar/schemagraph/internal/db"
	"github.com/communitycar/schemagraph/internal/formatter"
	"github.com/communitycar/schemagraph/internal/migrate"
	"github.com/communitycar/schemagraph/internal/schema"
)

var (
	dryRun        bool
	planFormat    string
	outputFile    string
	scriptDialect string
	outputDir     string
	docsFormat    string
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Create every table, foreign key and index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return execute(cmd, migrate.Up)
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Drop every foreign key and table in reverse creation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return execute(cmd, migrate.Down)
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the creation order, deferred foreign keys and indexes",
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

var scriptCmd = &cobra.Command{
	Use:   "script <up|down>",
	Short: "Print the DDL for one direction without connecting",
	Args:  cobra.ExactArgs(1),
	RunE:  runScript,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the schema graph for dangling references and cycles",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Compare the live database with the schema graph",
	Args:  cobra.NoArgs,
	RunE:  runVerify,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last recorded run and whether the database is up to date",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List runs recorded in schema_migrations",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Write an overview plus one file per entity",
	Args:  cobra.NoArgs,
	RunE:  runDocs,
}

func init() {
	upCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the script instead of running it")
	downCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the script instead of running it")

	planCmd.Flags().StringVarP(&planFormat, "format", "f", formatter.FormatText, "Output format: text or markdown")
	planCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	scriptCmd.Flags().StringVar(&scriptDialect, "dialect", "", "postgres, sqlserver, mysql or sqlite (default: from --db-url)")

	docsCmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory")
	docsCmd.Flags().StringVarP(&docsFormat, "format", "f", formatter.FormatMarkdown, "Output format: text or markdown")
	_ = docsCmd.MarkFlagRequired("output-dir")
}

func execute(cmd *cobra.Command, dir migrate.Direction) error {
	if err := requireURL(); err != nil {
		return err
	}

	opts := options()
	if dryRun {
		opts.DryRun = cmd.OutOrStdout()
	}

	apply := schemagraph.Up
	if dir == migrate.Down {
		apply = schemagraph.Down
	}
	run, err := apply(cmd.Context(), dbURL, opts)
	if err != nil {
		return err
	}
	if run == nil {
		return nil
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s complete: %d entities (run %s, checksum %.12s)\n",
		run.Direction, run.Entities, run.ID, run.Checksum)
	return nil
}

func runPlan(cmd *cobra.Command, _ []string) error {
	g, err := schemagraph.LoadGraph(options())
	if err != nil {
		return err
	}
	plan, err := schema.Order(g)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				logger.Warn("failed to close output file", "path", outputFile, "error", err)
			}
		}()
		w = f
	}

	return formatPlan(w, planFormat, g, plan)
}

func formatPlan(w io.Writer, format string, g *schema.Graph, plan *schema.Plan) error {
	var err error
	switch format {
	case formatter.FormatText:
		err = formatter.NewTextFormatter(w).Format(g, plan)
	case formatter.FormatMarkdown:
		err = formatter.NewMarkdownFormatter(w).Format(g, plan)
	default:
		return fmt.Errorf("invalid format: %s (must be 'text' or 'markdown')", format)
	}
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	dir, err := migrate.ParseDirection(args[0])
	if err != nil {
		return err
	}

	name := scriptDialect
	if name == "" {
		if dbURL == "" {
			return fmt.Errorf("one of --dialect or --db-url must be specified")
		}
		if name, _, err = db.ParseURL(dbURL); err != nil {
			return err
		}
	}

	s, err := schemagraph.Script(dir, name, options())
	if err != nil {
		return err
	}
	for _, w := range s.Warnings {
		logger.Warn(w, "dialect", s.Dialect)
	}
	_, err = io.WriteString(cmd.OutOrStdout(), s.String())
	return err
}

func runValidate(cmd *cobra.Command, _ []string) error {
	g, err := schemagraph.LoadGraph(options())
	if err != nil {
		return err
	}
	plan, err := schema.Order(g)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "schema graph is valid: %d entities, %d relationships (%d deferred), %d indexes\n",
		g.Len(), len(g.Relationships()), len(plan.Deferred), len(plan.Indexes))
	return nil
}

func runVerify(cmd *cobra.Command, _ []string) error {
	if err := requireURL(); err != nil {
		return err
	}

	drift, err := schemagraph.Verify(cmd.Context(), dbURL, options())
	if err != nil {
		return err
	}
	if len(drift) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "database matches the schema graph")
		return nil
	}

	for _, d := range drift {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), d)
	}
	return fmt.Errorf("schema drift: %d differences", len(drift))
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := requireURL(); err != nil {
		return err
	}

	st, err := schemagraph.GetStatus(cmd.Context(), dbURL, options())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if st.Last == nil {
		_, _ = fmt.Fprintln(w, "last run:  none")
	} else {
		_, _ = fmt.Fprintf(w, "last run:  %s %s at %s (%d entities)\n",
			st.Last.Direction, st.Last.ID, st.Last.AppliedAt.Format("2006-01-02 15:04:05Z07:00"), st.Last.Entities)
	}
	_, _ = fmt.Fprintf(w, "checksum:  %s\n", st.Checksum)
	_, _ = fmt.Fprintf(w, "applied:   %t\n", st.Applied)
	_, _ = fmt.Fprintf(w, "drift:     %d\n", len(st.Drift))
	for _, d := range st.Drift {
		_, _ = fmt.Fprintf(w, "  %s\n", d)
	}
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if err := requireURL(); err != nil {
		return err
	}

	runs, err := schemagraph.History(cmd.Context(), dbURL)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "no runs recorded")
		return nil
	}
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s  %-4s  %3d entities  %.12s  %s\n",
			r.AppliedAt.Format("2006-01-02 15:04:05"), r.Direction, r.Entities, r.Checksum, r.ID)
	}
	return nil
}

func runDocs(_ *cobra.Command, _ []string) error {
	g, err := schemagraph.LoadGraph(options())
	if err != nil {
		return err
	}
	plan, err := schema.Order(g)
	if err != nil {
		return err
	}

	if err := formatter.NewMultiFileFormatter(outputDir, docsFormat).Format(g, plan); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	logger.Info("wrote schema docs", "dir", outputDir, "entities", len(plan.Entities))
	return nil
}
