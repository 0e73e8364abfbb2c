package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/adapters/corpus"
	"github.com/mikey/nb-spam-filter/internal/config"
	"github.com/mikey/nb-spam-filter/internal/factory"
	"github.com/mikey/nb-spam-filter/internal/logging"
	"github.com/mikey/nb-spam-filter/internal/ports"
)

var (
	configFile string
	verbose    bool
	jsonLog    bool
)

var rootCmd = &cobra.Command{
	Use:   "spam-trainer",
	Short: "Train and evaluate Naive Bayes spam models",
	Long: `Builds a hashed bag-of-words Naive Bayes model from a labelled CSV corpus,
reports hold-out metrics and writes the scoring artifact to a file or S3.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "output logs in JSON format")
}

// env bundles what every subcommand needs
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	store  ports.ModelStore
	loader *corpus.CSVLoader
}

func newEnv() (*env, error) {
	logger, err := logging.InitConsoleLogger(verbose, jsonLog)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	var cfg *config.Config
	if configFile != "" {
		cfg, err = config.NewFromFile(configFile)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return &env{
		cfg:    cfg,
		logger: logger,
		store:  factory.NewModelStoreFactory(cfg, logger).CreateModelStore(),
		loader: corpus.NewCSVLoader(logger),
	}, nil
}
