package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shirokuma-kb/core/internal/api"
	"github.com/shirokuma-kb/core/internal/enrichment"
	"github.com/shirokuma-kb/core/internal/itemsvc"
	"github.com/shirokuma-kb/core/internal/kbconfig"
	"github.com/shirokuma-kb/core/internal/mirror"
	"github.com/shirokuma-kb/core/internal/obs"
	"github.com/shirokuma-kb/core/internal/related"
	"github.com/shirokuma-kb/core/internal/sqlitekv"
	"github.com/shirokuma-kb/core/internal/statesvc"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "shirokuma-server",
	Short: "Run the knowledge-base service",
	Long:  `shirokuma-server wires storage, enrichment, the related-item engine, and the optional file-mirror, then blocks until the process is signaled to stop. No request transport is attached.`,
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (optional; env vars always override)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := kbconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	providers, err := obs.NewProviders()
	if err != nil {
		return fmt.Errorf("start telemetry: %w", err)
	}
	defer providers.Shutdown(context.Background())

	store, err := sqlitekv.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	_, err = buildAPI(ctx, cfg, store)
	if err != nil {
		return err
	}

	obs.Debugf("shirokuma-server: ready, database=%s export-dir=%s", cfg.DatabaseURL, cfg.ExportDir)
	<-ctx.Done()
	obs.Debugf("shirokuma-server: shutting down")
	return nil
}

// buildAPI composes the enrichment pipeline, optional file-mirror, and
// the item/state/related services into the operation facade. Returned
// separately from runServe so a future transport layer can call it
// directly without re-reading config.
func buildAPI(ctx context.Context, cfg kbconfig.Config, store *sqlitekv.Store) (*api.API, error) {
	var primary enrichment.Provider
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		provider, err := enrichment.NewAnthropicProvider(apiKey)
		if err != nil {
			obs.Errorf("enrichment: anthropic provider unavailable, using fallback only: %v", err)
		} else {
			primary = provider
		}
	}
	generator := enrichment.NewGenerator(primary)

	// mirror.New returns a typed-nil *mirror.Writer when the export
	// directory is unset or unusable. Assigning that directly to the
	// itemsvc.Mirror/statesvc.Mirror interfaces would make a nil check
	// against the interface pass even though every method call would
	// hit a nil receiver — so the concrete pointer is nil-checked here,
	// before it is ever boxed into an interface value.
	var itemMirror itemsvc.Mirror
	var stateMirror statesvc.Mirror
	if writer := mirror.New(cfg.ExportDir); writer != nil {
		itemMirror = writer
		stateMirror = writer
	}

	items := itemsvc.New(store, generator, itemMirror, cfg.DefaultStatus)
	states := statesvc.New(store, stateMirror)
	relatedEngine := related.New(store)

	return api.New(store, items, states, relatedEngine), nil
}
