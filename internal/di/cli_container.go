package di

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/config"
	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/factory"
	"github.com/mikey/nb-spam-filter/internal/logging"
	"github.com/mikey/nb-spam-filter/internal/ports"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Model flags
	ModelURI    string
	MaxBodySize int

	// Spam detection flags
	SpamThreshold float64
	Whitelist     string

	// Input flags
	InputFile  string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags, err := ParseArgs(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	return flags
}

// ParseArgs parses args into a CLIFlags struct
func ParseArgs(args []string) (*CLIFlags, error) {
	flags := &CLIFlags{}
	fs := flag.NewFlagSet("spam-detector", flag.ContinueOnError)

	// Model flags
	fs.StringVar(&flags.ModelURI, "model", "models/model.nbsf", "Model artifact path or s3://bucket/key URI")
	fs.IntVar(&flags.MaxBodySize, "max-body-size", 1048576, "Maximum email body size to classify")

	// Spam detection flags
	fs.Float64Var(&flags.SpamThreshold, "threshold", 0.5, "Threshold for spam detection")
	fs.StringVar(&flags.Whitelist, "whitelist", "", "Comma-separated list of whitelisted domains")

	// Input flags
	fs.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			cfg.GetViper().Set("server.filter_type", "cli")
			cfg.GetViper().Set("cli.verbose", flags.Verbose)
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := provideFactories(container); err != nil {
		return nil, err
	}

	if err := provideClassifier(container); err != nil {
		return nil, err
	}

	// Register spam filter service with no cache
	if err := container.Provide(func(
		classifier core.Classifier,
		logger *zap.Logger,
		cfg *config.Config,
	) *core.SpamFilterService {
		return core.NewSpamFilterService(
			classifier,
			nil, // No cache for CLI
			logger,
			false, // Cache disabled
			time.Duration(0),
			cfg.GetSpam().Threshold,
			cfg.GetSpam().WhitelistedDomains,
		)
	}); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set some cli specific settings
	v.Set("server.filter_type", "cli")
	v.Set("cli.verbose", flags.Verbose)

	v.Set("model.uri", flags.ModelURI)
	v.Set("text.max_body_size", flags.MaxBodySize)
	v.Set("spam.threshold", flags.SpamThreshold)
	v.Set("spam.whitelisted_domains", splitDomains(flags.Whitelist))

	return config.NewFromViper(v)
}

// splitDomains turns "a.com, b.com" into a clean domain list
func splitDomains(list string) []string {
	return lo.Compact(lo.Map(strings.Split(list, ","), func(d string, _ int) string {
		return strings.TrimSpace(d)
	}))
}
