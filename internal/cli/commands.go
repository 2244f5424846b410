package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/housing/internal/analytics"
	"github.com/stwalsh4118/housing/internal/export"
	"github.com/stwalsh4118/housing/internal/report"
	"github.com/stwalsh4118/housing/internal/services"
)

func newSummaryCommand(a *app) *cobra.Command {
	var owners int

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the housing analysis",
		Long:  `Print the overview, trends, yearly sales, income disparity, ownership and top owners as tables.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if owners < 1 || owners > services.MaxOwnerLimit {
				return fmt.Errorf("--owners must be between 1 and %d", services.MaxOwnerLimit)
			}

			r, err := services.CollectReport(cmd.Context(), a.service, owners)
			if err != nil {
				return err
			}
			report.Summary(cmd.OutOrStdout(), r)
			return nil
		},
	}

	cmd.Flags().IntVar(&owners, "owners", analytics.DefaultTopOwnerLimit, "Number of top owners to list")
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the analysis as an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			r, err := services.CollectReport(cmd.Context(), a.service, analytics.DefaultTopOwnerLimit)
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			defer func() {
				if cerr := f.Close(); err == nil && cerr != nil {
					err = fmt.Errorf("failed to close %s: %w", output, cerr)
				}
			}()

			w := bufio.NewWriter(f)
			if err := export.WriteWorkbook(w, r); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "housing_analysis.xlsx", "Workbook path")
	return cmd
}

func newSearchCommand(a *app) *cobra.Command {
	var parcel string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find a property by address and show its assessment history",
		Long: `Search matches the query against every assessed address. When several
addresses match, the candidates are listed; pass --parcel to pick one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lookup, err := a.service.SearchProperties(cmd.Context(), args[0], parcel)
			if err != nil {
				if errors.Is(err, analytics.ErrNotInResults) {
					return fmt.Errorf("parcel %s does not match %q", parcel, args[0])
				}
				return err
			}
			report.Lookup(cmd.OutOrStdout(), lookup)
			return nil
		},
	}

	cmd.Flags().StringVar(&parcel, "parcel", "", "Parcel number selecting one of several matches")
	return cmd
}
