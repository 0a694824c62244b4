// Command ddlwizard runs the compare pipeline: introspect both schemas,
// diff them, plan the forward and reverse migrations, and serialize both
// SQL files (plus an optional diff report) into an output directory.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"

	"github.com/dbddl/ddlwizard/internal/config"
	"github.com/dbddl/ddlwizard/internal/diff"
	"github.com/dbddl/ddlwizard/internal/introspect"
	"github.com/dbddl/ddlwizard/internal/model"
	"github.com/dbddl/ddlwizard/internal/plan"
	"github.com/dbddl/ddlwizard/internal/reader"
	"github.com/dbddl/ddlwizard/internal/sqlout"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ddlwizard [config.toml]",
	Short: "MariaDB/MySQL schema diff and migration planner",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCompare,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to compare TOML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfgPath := configPath
	if len(args) > 0 {
		cfgPath = args[0]
	}
	if cfgPath == "" {
		return fmt.Errorf("config file required: ddlwizard <config.toml> or ddlwizard --config <config.toml>")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	start := time.Now()

	log.Printf("ddlwizard — schema compare")
	log.Printf("source: %s@%s:%d/%s", cfg.Source.User, cfg.Source.Host, cfg.Source.Port, cfg.Source.Schema)
	log.Printf("dest:   %s@%s:%d/%s", cfg.Dest.User, cfg.Dest.Host, cfg.Dest.Port, cfg.Dest.Schema)

	sourceSnap, err := snapshot(ctx, cfg.Source, cfg.IntrospectConcurrency)
	if err != nil {
		return fmt.Errorf("introspect source: %w", err)
	}
	log.Printf("source snapshot: %d tables", len(sourceSnap.Names(model.KindTable)))

	destSnap, err := snapshot(ctx, cfg.Dest, cfg.IntrospectConcurrency)
	if err != nil {
		return fmt.Errorf("introspect dest: %w", err)
	}
	log.Printf("dest snapshot: %d tables", len(destSnap.Names(model.KindTable)))

	d, warnings := diff.Compute(sourceSnap, destSnap)
	for _, w := range warnings {
		log.Printf("WARN: %s", w)
	}
	if d.IsEmpty() {
		log.Printf("no differences found")
	}

	forwardPlan := plan.Forward(d, sourceSnap, destSnap)
	reversePlan, revWarnings := plan.Reverse(sourceSnap, destSnap)
	for _, w := range revWarnings {
		log.Printf("WARN: %s", w)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	generatedAt := start
	migrationSQL := sqlout.Render(forwardPlan, cfg.Source.Schema, cfg.Dest.Schema, generatedAt)
	rollbackSQL := sqlout.Render(reversePlan, cfg.Dest.Schema, cfg.Source.Schema, generatedAt)

	if err := os.WriteFile(filepath.Join(cfg.OutputDir, "migration.sql"), []byte(migrationSQL), 0o644); err != nil {
		return fmt.Errorf("write migration.sql: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.OutputDir, "rollback.sql"), []byte(rollbackSQL), 0o644); err != nil {
		return fmt.Errorf("write rollback.sql: %w", err)
	}

	if cfg.WriteDiffReport {
		report := sqlout.RenderDiffReport(d)
		if err := os.WriteFile(filepath.Join(cfg.OutputDir, "diff_report.txt"), []byte(report), 0o644); err != nil {
			return fmt.Errorf("write diff_report.txt: %w", err)
		}
	}

	log.Printf("done in %s", time.Since(start))
	return nil
}

// snapshot opens a short-lived connection to e, takes a Snapshot, and
// closes the connection before returning — a connection is owned
// exclusively by one Introspector invocation for the duration of the
// snapshot, then released before diffing begins.
func snapshot(ctx context.Context, e config.Endpoint, concurrency int) (*model.Snapshot, error) {
	db, err := sql.Open("mysql", e.DSN())
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(concurrency + 1)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	r := reader.New(db, e.Schema)
	snap, err := introspect.Snapshot(ctx, r, e.Schema, concurrency)
	if err != nil {
		return nil, err
	}
	return snap, nil
}
