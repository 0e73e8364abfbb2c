package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikey/nb-spam-filter/internal/training"
)

var (
	evaluateModel string
	evaluateJSON  bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [corpus.csv]",
	Short: "Score a labelled CSV corpus with an existing model",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&evaluateModel, "model", "m", "", "artifact path or s3://bucket/key (default model.uri)")
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	uri := evaluateModel
	if uri == "" {
		uri = e.cfg.GetModel().URI
	}

	ctx := context.Background()
	a, err := e.store.Load(ctx, uri)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}

	examples, err := e.loader.LoadFile(args[0])
	if err != nil {
		return err
	}

	report, err := training.EvaluateArtifact(ctx, a, examples, e.cfg.GetText().MaxBodySize)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	cmd.Printf("Model: %s\n", a.Version())
	return printReport(cmd, report, evaluateJSON)
}
