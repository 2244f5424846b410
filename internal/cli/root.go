// Package cli provides the housing-report command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/housing/internal/config"
	"github.com/stwalsh4118/housing/internal/dataset"
	"github.com/stwalsh4118/housing/internal/logger"
	"github.com/stwalsh4118/housing/internal/services"
)

// Version is the housing-report version.
var Version = "0.1.0"

// app holds what every subcommand needs once the dataset is loaded.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	service services.AnalysisService
	closeDB func()
}

type rootFlags struct {
	dataDir string
	source  string
	verbose bool
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var flags rootFlags
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "housing-report",
		Short: "Charlottesville housing affordability report",
		Long: `housing-report loads the real estate sales, assessment and parcel tables
and prints the affordability, trend and ownership analysis, exports it as an
Excel workbook, or looks up a property's assessment history.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.load(cmd.Context(), cmd.ErrOrStderr(), flags)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.closeDB != nil {
				a.closeDB()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Directory holding the CSV tables (overrides DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&flags.source, "source", "", "Data source: csv or postgres (overrides DATA_SOURCE)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose logging to stderr")

	rootCmd.AddCommand(newSummaryCommand(a))
	rootCmd.AddCommand(newExportCommand(a))
	rootCmd.AddCommand(newSearchCommand(a))

	return rootCmd
}

// load reads the configuration, applies flag overrides and loads the dataset.
func (a *app) load(ctx context.Context, stderr io.Writer, flags rootFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flags.dataDir != "" {
		cfg.Data.Dir = flags.dataDir
	}
	if flags.source != "" {
		cfg.Data.Source = flags.source
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	env := logger.EnvCLI
	if flags.verbose {
		env = logger.EnvDevelopment
	}
	a.cfg = cfg
	a.log = logger.NewWithWriter(env, stderr)

	loader, db, err := dataset.NewLoader(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		a.closeDB = db.Close
	}

	holder := dataset.NewHolder(loader, a.log)
	if _, err := holder.Load(ctx); err != nil {
		return err
	}
	a.service = services.NewAnalysisService(holder, nil, a.log)
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
