package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/spicecouncil/bundle"
	"github.com/c360studio/spicecouncil/metrics"
)

func bundleCmd(flags *rootFlags) *cobra.Command {
	var (
		outDir string
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "bundle <netlist>",
		Short: "Copy a netlist's include files into a self-contained tree",
		Long: `Bundle scans a netlist for .include and .lib directives, copies the
referenced files into the output directory, and writes a rewritten
netlist whose directives point at the copies. Missing includes are
reported and their directives left unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}

			netlistPath := args[0]
			if outDir == "" {
				outDir = filepath.Join(cfg.Output.Dir, "bundle")
			}

			text, err := bundle.ReadNetlist(netlistPath)
			if err != nil {
				return fmt.Errorf("read netlist: %w", err)
			}

			bundler := bundle.New(bundle.WithLogger(logger))
			req := bundle.Request{
				NetlistText:   text,
				BaseFilePath:  netlistPath,
				OutputRoot:    outDir,
				MaxFiles:      cfg.Bundler.MaxFiles,
				MaxBytes:      cfg.Bundler.MaxBytes,
				AllowPatterns: cfg.Bundler.AllowPatterns,
			}

			result, err := bundler.Bundle(req)
			if err != nil {
				return err
			}
			if err := writeBundleResult(netlistPath, outDir, result); err != nil {
				return err
			}

			if !watch {
				return nil
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			watcher, err := bundle.NewWatcher(bundler, req, cfg.Bundler.WatchDebounce.Std(), logger)
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			if err := watcher.Start(ctx); err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			defer watcher.Stop()

			fmt.Println("Watching for changes (Ctrl+C to stop)")
			for {
				select {
				case <-ctx.Done():
					return nil
				case result, ok := <-watcher.Results():
					if !ok {
						return nil
					}
					if err := writeBundleResult(netlistPath, outDir, result); err != nil {
						logger.Warn("Write bundle result failed", "error", err)
					}
				}
			}
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default <output.dir>/bundle)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-bundle whenever the netlist changes")

	return cmd
}

// writeBundleResult persists the rewritten netlist next to the copies and
// reports the pass outcome.
func writeBundleResult(netlistPath, outDir string, result *bundle.Result) error {
	metrics.ObserveBundle(len(result.Copied), len(result.Missing))

	dest := filepath.Join(outDir, filepath.Base(netlistPath))
	if err := os.WriteFile(dest, []byte(result.RewrittenText), 0o644); err != nil {
		return fmt.Errorf("write rewritten netlist: %w", err)
	}

	fmt.Printf("Bundled %d include(s) into %s\n", len(result.Copied), outDir)
	for _, c := range result.Copied {
		fmt.Printf("  %s %s -> %s\n", c.Directive, c.OriginalSpecifier, c.DestPath)
	}
	for _, m := range result.Missing {
		fmt.Printf("  MISSING %s %s (looked at %s)\n", m.Directive, m.OriginalSpecifier, m.ResolvedAttemptPath)
	}
	return nil
}
