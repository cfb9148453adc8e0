package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/funvibe/dextype/internal/classpath"
	"github.com/funvibe/dextype/internal/pipeline"
)

var (
	inferClasspath string
	inferWorkers   int
)

var inferCmd = &cobra.Command{
	Use:   "infer <fixture.yaml...>",
	Short: "Infer the types of every method in the given fixtures",
	Long: `The infer command builds each method of the fixture files, runs type
inference on them in parallel and prints a report. Expected types listed in
a fixture are checked. The exit status is non-zero when a file can't be read,
a method stays unresolved or an expectation is not met.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if inferClasspath != "" {
			cfg.Classpath = inferClasspath
		}
		if inferWorkers > 0 {
			cfg.Workers = inferWorkers
		}
		if verbose {
			cfg.Debug = true
		}

		base, err := openClasspath(cmd.Context(), cfg.Classpath)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		driver := pipeline.NewDriver(cfg, slog.Default())
		report := driver.Run(ctx, args, base)
		report.Write(cmd.OutOrStdout(), cfg.Debug)
		if report.Failed() {
			s := report.Summary()
			return fmt.Errorf("inference failed: %d file errors, %d unresolved, %d aborted, %d mismatched",
				s.FileErrors, s.Unresolved, s.Aborted, s.Mismatched)
		}
		return nil
	},
}

func init() {
	inferCmd.Flags().StringVar(&inferClasspath, "classpath", "", "Class hierarchy: a .yaml file or a .db store (overrides the config)")
	inferCmd.Flags().IntVarP(&inferWorkers, "workers", "j", 0, "Methods inferred in parallel (default from config)")
	AddCommand(inferCmd)
}

// openClasspath loads a hierarchy from a YAML file or a SQLite store. An
// empty path gives nil.
func openClasspath(ctx context.Context, path string) (*classpath.Graph, error) {
	if path == "" {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite":
		store, err := classpath.OpenStore(path)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.Load(ctx)
	default:
		return classpath.LoadYAML(path)
	}
}
