package cli

import (
	"context"
	"fmt"

	"fxseries/internal/app"
	"fxseries/internal/domain"
	"fxseries/internal/interactive"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"
)

// inputFlags preset answers of the interactive steps. Steps without a preset are prompted.
type inputFlags struct {
	from   string
	to     string
	pairs  []string
	column string
}

func (f *inputFlags) bindRange(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "Start date (YYYY-MM-DD), defaults to the lookback window start")
	cmd.Flags().StringVar(&f.to, "to", "", "End date (YYYY-MM-DD), defaults to today")
}

func (f *inputFlags) bindPairs(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.pairs, "pairs", nil, "Currency pairs to export, comma-separated")
}

func (f *inputFlags) bindColumn(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.column, "column", "", "Currency pair to analyze")
}

func (f *inputFlags) input(cmd *cobra.Command, a *app.App) (interactive.InputPort, error) {
	var (
		preset presetInput
		err    error
	)
	if preset.Start, err = parseDateFlag("from", f.from); err != nil {
		return nil, err
	}
	if preset.End, err = parseDateFlag("to", f.to); err != nil {
		return nil, err
	}
	preset.Pairs = f.pairs
	preset.Column = f.column
	preset.fallback = interactive.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout(), a.Validator.ValidateRange)
	return preset, nil
}

func parseDateFlag(name, value string) (civil.Date, error) {
	if value == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: --%s %q is not a date in YYYY-MM-DD format", domain.ErrValidation, name, value)
	}
	return d, nil
}

// presetInput answers from flags where given and asks fallback otherwise.
type presetInput struct {
	interactive.Static
	fallback interactive.InputPort
}

func (p presetInput) DateRange(ctx context.Context, defaultStart, defaultEnd civil.Date) (civil.Date, civil.Date, error) {
	if p.Start.IsZero() && p.End.IsZero() {
		return p.fallback.DateRange(ctx, defaultStart, defaultEnd)
	}
	return p.Static.DateRange(ctx, defaultStart, defaultEnd)
}

func (p presetInput) SelectPairs(ctx context.Context, available []string) ([]string, error) {
	if len(p.Pairs) == 0 {
		return p.fallback.SelectPairs(ctx, available)
	}
	return p.Static.SelectPairs(ctx, available)
}

func (p presetInput) SelectColumn(ctx context.Context, available []string) (string, error) {
	if p.Column == "" {
		return p.fallback.SelectColumn(ctx, available)
	}
	return p.Static.SelectColumn(ctx, available)
}

func fetchCommand(configFile *string) *cobra.Command {
	var flags inputFlags
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a date range once, export selected pairs and analyze one of them",
		Args:  cobra.NoArgs,
		RunE: withApp(configFile, func(cmd *cobra.Command, a *app.App) error {
			input, err := flags.input(cmd, a)
			if err != nil {
				return err
			}
			return a.NewSession(input, cmd.OutOrStdout()).Run(cmd.Context())
		}),
	}
	flags.bindRange(cmd)
	flags.bindPairs(cmd)
	flags.bindColumn(cmd)
	return cmd
}

func reportCommand(configFile *string) *cobra.Command {
	var flags inputFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print statistics of one column of the stored dataset",
		Args:  cobra.NoArgs,
		RunE: withApp(configFile, func(cmd *cobra.Command, a *app.App) error {
			input, err := flags.input(cmd, a)
			if err != nil {
				return err
			}
			return a.NewSession(input, cmd.OutOrStdout()).RunReport(cmd.Context())
		}),
	}
	flags.bindColumn(cmd)
	return cmd
}

func exportCommand(configFile *string) *cobra.Command {
	var flags inputFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write selected pairs of the stored dataset to the export location",
		Args:  cobra.NoArgs,
		RunE: withApp(configFile, func(cmd *cobra.Command, a *app.App) error {
			input, err := flags.input(cmd, a)
			if err != nil {
				return err
			}
			return a.NewSession(input, cmd.OutOrStdout()).RunExport(cmd.Context())
		}),
	}
	flags.bindPairs(cmd)
	return cmd
}
