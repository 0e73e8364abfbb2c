package filter

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/core"
)

// CliFilter implements a command-line interface for spam detection
type CliFilter struct {
	service *core.SpamFilterService
	logger  *zap.Logger
	verbose bool
	out     io.Writer
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(service *core.SpamFilterService, logger *zap.Logger, verbose bool) (*CliFilter, error) {
	return &CliFilter{
		service: service,
		logger:  logger,
		verbose: verbose,
		out:     os.Stdout,
	}, nil
}

// SetOutput redirects the report, stdout by default
func (f *CliFilter) SetOutput(w io.Writer) {
	f.out = w
}

// ProcessEmail processes an email and displays the results
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.SpamAnalysisResult, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.From))

	fmt.Fprintf(f.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(f.out, "From: %s\n", email.From)
	fmt.Fprintf(f.out, "To: %s\n", email.To)
	fmt.Fprintf(f.out, "Subject: %s\n", email.Subject)
	fmt.Fprintf(f.out, "Body length: %d bytes\n", len(email.Body))

	if f.verbose {
		preview := []rune(email.Body)
		if len(preview) > 500 {
			preview = append(preview[:500], []rune("...")...)
		}
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n", string(preview))
	}

	fmt.Fprintf(f.out, "\n=== Analysis ===\n")
	fmt.Fprintf(f.out, "Model: %s\n", f.service.ClassifierVersion())
	startTime := time.Now()
	result, err := f.service.AnalyzeEmail(ctx, email)
	if err != nil {
		f.logger.Error("Failed to analyze email", zap.Error(err))
		fmt.Fprintf(f.out, "Error: %v\n", err)
		return nil, err
	}
	duration := time.Since(startTime)

	fmt.Fprintf(f.out, "\n=== Results ===\n")
	fmt.Fprintf(f.out, "Is spam: %t\n", result.IsSpam)
	fmt.Fprintf(f.out, "Spam probability: %.4f\n", result.Score)
	fmt.Fprintf(f.out, "Confidence: %.4f\n", result.Confidence)
	fmt.Fprintf(f.out, "Explanation: %s\n", result.Explanation)
	fmt.Fprintf(f.out, "Model used: %s\n", result.ModelUsed)
	fmt.Fprintf(f.out, "Processing time: %v\n", duration)

	return result, nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
