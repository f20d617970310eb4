package main

import (
	"fmt"
	"io"

	"github.com/iwvelando/nitrogen-response/internal/artifact"
	"github.com/iwvelando/nitrogen-response/internal/pipeline"
	"github.com/iwvelando/nitrogen-response/internal/response"
	"github.com/iwvelando/nitrogen-response/pkg/constants"
	"github.com/iwvelando/nitrogen-response/pkg/output"
	"github.com/iwvelando/nitrogen-response/pkg/validation"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type curveOptions struct {
	cell          int
	mode          string
	grainPrice    float64
	nitrogenPrice float64
	out           string
	outputFormat  string
}

func newCurveCommand(root *rootOptions, fs afero.Fs) *cobra.Command {
	opts := &curveOptions{}

	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Generate one response curve chart and print its optimum",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCurve(cmd, root, opts, fs, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&opts.cell, "cell", 0, "cell id to chart")
	cmd.Flags().StringVar(&opts.mode, "mode", string(response.ModeYield), "curve mode: yield, economic")
	cmd.Flags().Float64Var(&opts.grainPrice, "grain-price", constants.DefaultGrainPrice, "grain price override (economic mode)")
	cmd.Flags().Float64Var(&opts.nitrogenPrice, "n-price", constants.DefaultNitrogenPrice, "nitrogen price override (economic mode)")
	cmd.Flags().StringVar(&opts.out, "out", "", "artifact path override")
	cmd.Flags().StringVar(&opts.outputFormat, "output-format", "", "type of output override: pretty, csv")
	_ = cmd.MarkFlagRequired("cell")
	return cmd
}

func runCurve(cmd *cobra.Command, root *rootOptions, opts *curveOptions, fs afero.Fs, stdout io.Writer) error {
	conf, err := loadConfiguration(root.configPath)
	if err != nil {
		return err
	}

	logger, err := initializeLogger(conf.Logging, root.logLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if opts.outputFormat != "" {
		outputFormat = opts.outputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}

	mode, err := response.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	prices := response.Prices{Grain: conf.Pricing.GrainPrice, Nitrogen: conf.Pricing.NitrogenPrice}
	if cmd.Flags().Changed("grain-price") {
		prices.Grain = opts.grainPrice
	}
	if cmd.Flags().Changed("n-price") {
		prices.Nitrogen = opts.nitrogenPrice
	}
	if err := validation.ValidatePrices(prices.Grain, prices.Nitrogen); err != nil {
		return err
	}

	settings, err := pipeline.SettingsFromConfig(conf)
	if err != nil {
		return err
	}
	if opts.out != "" {
		if mode == response.ModeEconomic {
			settings.EconomicPath = opts.out
		} else {
			settings.YieldPath = opts.out
		}
	}

	generator := pipeline.NewGenerator(logger, fs, artifact.NewStore(logger, fs), settings)
	outcome, err := generator.Generate(logger, pipeline.Request{CellID: opts.cell, Mode: mode, Prices: prices})
	if err != nil {
		return err
	}

	if !outcome.Generated {
		logger.Warn(fmt.Sprintf("cell %d has no rows; chart left unchanged", opts.cell),
			zap.String("op", "main.curve"),
			zap.String("path", outcome.Path),
		)
		return nil
	}

	switch outputFormat {
	case constants.OutputFormatCSV:
		return output.CsvFormat(stdout, outcome.Result)
	default:
		if err := output.PrettyFormat(stdout, outcome.Result); err != nil {
			return err
		}
		_, err := fmt.Fprintf(stdout, "\nChart written to %s\n", outcome.Path)
		return err
	}
}
