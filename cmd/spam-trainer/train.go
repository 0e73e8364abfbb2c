package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/training"
)

var (
	trainOutput       string
	trainTestFraction float64
	trainSeed         int64
	trainAlpha        float64
	trainNFeatures    int
	trainJSON         bool
)

var trainCmd = &cobra.Command{
	Use:   "train [corpus.csv]",
	Short: "Train a model from a labelled CSV corpus",
	Long: `Reads a CSV with Subject, Message and Spam/Ham columns, holds out a stratified
test split, fits the model on the rest and prints the evaluation report.
The artifact is written to --output, or to model.uri from the configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrain,
}

func init() {
	defaults := training.DefaultOptions()
	trainCmd.Flags().StringVarP(&trainOutput, "output", "o", "", "artifact path or s3://bucket/key (default model.uri)")
	trainCmd.Flags().Float64Var(&trainTestFraction, "test-fraction", defaults.TestFraction, "fraction of rows held out for evaluation")
	trainCmd.Flags().Int64Var(&trainSeed, "seed", defaults.Seed, "random seed for the split")
	trainCmd.Flags().Float64Var(&trainAlpha, "alpha", defaults.Alpha, "additive smoothing")
	trainCmd.Flags().IntVar(&trainNFeatures, "n-features", defaults.NFeatures, "number of hashed feature buckets")
	trainCmd.Flags().BoolVar(&trainJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	opts := trainingOptions(cmd, e)
	output := trainOutput
	if output == "" {
		output = e.cfg.GetModel().URI
	}

	examples, err := e.loader.LoadFile(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, report, err := training.Train(ctx, examples, opts, e.logger)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	if err := e.store.Save(ctx, output, a); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	e.logger.Info("Model saved",
		zap.String("uri", output),
		zap.String("version", a.Version()))

	return printReport(cmd, report, trainJSON)
}

// trainingOptions layers explicitly set flags over the configured values
func trainingOptions(cmd *cobra.Command, e *env) training.Options {
	opts := training.DefaultOptions()

	model := e.cfg.GetModel()
	train := e.cfg.GetTraining()
	opts.TestFraction = train.TestFraction
	opts.Seed = train.Seed
	opts.Alpha = model.Alpha
	opts.NFeatures = model.NFeatures
	opts.MaxBodySize = e.cfg.GetText().MaxBodySize

	flags := cmd.Flags()
	if flags.Changed("test-fraction") {
		opts.TestFraction = trainTestFraction
	}
	if flags.Changed("seed") {
		opts.Seed = trainSeed
	}
	if flags.Changed("alpha") {
		opts.Alpha = trainAlpha
	}
	if flags.Changed("n-features") {
		opts.NFeatures = trainNFeatures
	}
	return opts
}

func printReport(cmd *cobra.Command, report *training.Report, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	cmd.Print(report.String())
	return nil
}
