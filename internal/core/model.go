package core

import (
	"fmt"
	"strings"
	"time"
)

// Label is one of the two classes the filter knows about
type Label string

const (
	LabelHam  Label = "ham"
	LabelSpam Label = "spam"
)

// Labels lists the classes in their fixed order. Index 0 wins ties.
var Labels = [2]Label{LabelHam, LabelSpam}

// ParseLabel converts a raw label such as "Spam" or " ham " into a Label
func ParseLabel(raw string) (Label, error) {
	switch Label(strings.ToLower(strings.TrimSpace(raw))) {
	case LabelHam:
		return LabelHam, nil
	case LabelSpam:
		return LabelSpam, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, raw)
	}
}

// Index returns the position of the label in Labels, or -1
func (l Label) Index() int {
	for i, known := range Labels {
		if known == l {
			return i
		}
	}
	return -1
}

// Email represents an email message
type Email struct {
	From    string
	To      []string
	Subject string
	Body    string
	Headers map[string][]string
}

// RawDocument is the input of a single scoring request
type RawDocument struct {
	Subject string `json:"subject,omitempty"`
	Message string `json:"message,omitempty"`
	Text    string `json:"text,omitempty"`
}

// CombineText joins a subject and a message the same way for training and scoring
func CombineText(subject, message string) string {
	return strings.TrimSpace(strings.TrimSpace(subject) + "\n" + strings.TrimSpace(message))
}

// Combined returns the text that gets classified. Text wins when it is not blank,
// otherwise subject and message are joined with a newline.
func (d RawDocument) Combined() (string, error) {
	if text := strings.TrimSpace(d.Text); text != "" {
		return text, nil
	}
	combined := CombineText(d.Subject, d.Message)
	if combined == "" {
		return "", ErrEmptyInput
	}
	return combined, nil
}

// Prediction is the outcome of classifying one document
type Prediction struct {
	Label           Label   `json:"label"`
	IsSpam          bool    `json:"is_spam"`
	SpamProbability float64 `json:"spam_probability"`
	HamProbability  float64 `json:"ham_probability"`
}

// SpamAnalysisResult represents the result of spam analysis
type SpamAnalysisResult struct {
	IsSpam       bool
	Score        float64
	Confidence   float64
	Explanation  string
	AnalyzedAt   time.Time
	ModelUsed    string
	ProcessingID string
}

// CacheEntry is a stored prediction keyed by model version and content hash
type CacheEntry struct {
	Key             string
	Label           Label
	SpamProbability float64
	HamProbability  float64
	LastSeen        time.Time
	ExpiresAt       time.Time
}
