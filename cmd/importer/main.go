package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/samirrijal/geofencing/internal/pkg/config"
	"github.com/samirrijal/geofencing/internal/pkg/logging"
)

type importOptions struct {
	apiURL  string
	replace bool
	dryRun  bool
	timeout time.Duration

	maxDistance float64 // from config, for --dry-run
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "importer <export.json>",
		Short: "Import a savedItems export through the running API",
		Long: `Read a JSON array of saved regions and add each one with POST /v1/regions,
so radii are clamped, entries are validated and monitoring is registered
exactly as for any other client. Regions receive new identifiers.

The API holds the region list in memory and rewrites the savedItems key on
every change, so the importer never writes the store itself: the API must be
running. Editing savedItems by hand while the API runs is overwritten on its
next change; stop the API first and it restores the edited list on start.

Example:
  importer regions.json
  importer --api http://geofence:8080 --replace regions.json
  importer --dry-run regions.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("geofence-importer")
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			logging.Setup(cfg.Log.Level, "text")

			if opts.apiURL == "" {
				opts.apiURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
			}
			opts.maxDistance = cfg.Monitor.MaxDistance

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runImport(ctx, opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.apiURL, "api", "", "base URL of the geofencing API (defaults to localhost and server.port)")
	cmd.Flags().BoolVar(&opts.replace, "replace", false, "remove every existing region before importing")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate the export without contacting the API")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")

	return cmd
}

func runImport(ctx context.Context, opts *importOptions, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	inputs, err := readExport(f)
	f.Close()
	if err != nil {
		return err
	}

	if opts.dryRun {
		over := 0
		for _, in := range inputs {
			if in.Radius > opts.maxDistance {
				over++
			}
		}
		fmt.Fprintf(out, "%d regions, %d above max distance %.0f m\n", len(inputs), over, opts.maxDistance)
		return nil
	}

	api := newAPIClient(opts.apiURL, opts.timeout)

	if opts.replace {
		existing, err := api.listRegions()
		if err != nil {
			return err
		}
		for _, r := range existing {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := api.removeRegion(r.ID); err != nil {
				return err
			}
		}
		slog.Info("removed existing regions", "count", len(existing))
	}

	added, skipped := 0, 0
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := api.addRegion(in)
		if rejected(err) {
			slog.Warn("skipping region", "index", i, "error", err)
			skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("region %d: %w", i, err)
		}
		slog.Debug("region imported", "index", i, "region_id", r.ID, "radius", r.Radius)
		added++
	}

	sum, err := api.summary()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %d regions (%d skipped); API now holds %d\n", added, skipped, sum.All)
	return nil
}
