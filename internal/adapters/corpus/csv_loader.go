package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/training"
)

// Column names looked up in the header row, case-insensitively
const (
	ColumnSubject = "subject"
	ColumnMessage = "message"
	ColumnLabel   = "spam/ham"
)

// CSVLoader reads labelled emails from a CSV file with a header row
type CSVLoader struct {
	logger *zap.Logger
}

// NewCSVLoader creates a new CSV corpus loader
func NewCSVLoader(logger *zap.Logger) *CSVLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVLoader{logger: logger}
}

// LoadFile opens path and reads it with Load
func (l *CSVLoader) LoadFile(path string) ([]training.Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	examples, err := l.Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	l.logger.Info("Loaded corpus",
		zap.String("path", path),
		zap.Int("examples", len(examples)))
	return examples, nil
}

// Load reads every data row. Missing subject or message cells become empty
// strings; labels are passed through untouched for the trainer to validate.
func (l *CSVLoader) Load(r io.Reader) ([]training.Example, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, core.ErrEmptyCorpus
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, seen := columns[name]; !seen {
			columns[name] = i
		}
	}

	labelCol, ok := columns[ColumnLabel]
	if !ok {
		return nil, fmt.Errorf("%w: no %q column in header", core.ErrMissingField, "Spam/Ham")
	}
	subjectCol, hasSubject := columns[ColumnSubject]
	messageCol, hasMessage := columns[ColumnMessage]
	if !hasSubject && !hasMessage {
		l.logger.Warn("Corpus has neither a Subject nor a Message column")
	}

	cell := func(record []string, col int, present bool) string {
		if !present || col >= len(record) {
			return ""
		}
		return record[col]
	}

	var examples []training.Example
	for row := 0; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row, err)
		}

		examples = append(examples, training.Example{
			Subject: cell(record, subjectCol, hasSubject),
			Message: cell(record, messageCol, hasMessage),
			Label:   cell(record, labelCol, true),
		})
	}

	if len(examples) == 0 {
		return nil, core.ErrEmptyCorpus
	}
	return examples, nil
}
