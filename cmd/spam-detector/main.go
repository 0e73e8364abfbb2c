package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mikey/nb-spam-filter/internal/adapters/filter"
	"github.com/mikey/nb-spam-filter/internal/di"
	"github.com/mikey/nb-spam-filter/internal/ports"
	"github.com/mikey/nb-spam-filter/internal/utils"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(func(logger *zap.Logger, emailFilter ports.EmailFilter, processor *utils.TextProcessor) error {
		return run(flags, logger, emailFilter, processor)
	}); err != nil {
		fmt.Printf("Application error: %v\n", dig.RootCause(err))
		os.Exit(1)
	}
}

// run reads one message, classifies it and prints the verdict
func run(flags *di.CLIFlags, logger *zap.Logger, emailFilter ports.EmailFilter, processor *utils.TextProcessor) error {
	defer logger.Sync()

	// Read email from file or stdin
	var emailReader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	raw, err := io.ReadAll(emailReader)
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	email, _, err := filter.ParseEmail(raw, "", nil)
	if err != nil {
		return fmt.Errorf("failed to parse email: %w", err)
	}
	email.Body = processor.ProcessText(email.Body)

	_, err = emailFilter.ProcessEmail(context.Background(), email)
	return err
}
