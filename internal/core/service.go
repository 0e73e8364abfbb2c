package core

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/mikey/nb-spam-filter/internal/whitelist"
	"go.uber.org/zap"
)

// SpamFilterService is the core service for spam detection
type SpamFilterService struct {
	classifier   Classifier
	cache        CacheRepository
	logger       *zap.Logger
	cacheEnabled bool
	cacheTTL     time.Duration
	threshold    float64
	whitelist    *whitelist.Checker
}

// NewSpamFilterService creates a new spam filter service
func NewSpamFilterService(
	classifier Classifier,
	cache CacheRepository,
	logger *zap.Logger,
	cacheEnabled bool,
	cacheTTL time.Duration,
	threshold float64,
	whitelistedDomains []string,
) *SpamFilterService {
	return &SpamFilterService{
		classifier:   classifier,
		cache:        cache,
		logger:       logger,
		cacheEnabled: cacheEnabled && cache != nil,
		cacheTTL:     cacheTTL,
		threshold:    threshold,
		whitelist:    whitelist.NewChecker(whitelistedDomains, logger),
	}
}

// cacheKey ties a document to the artifact that scored it
func (s *SpamFilterService) cacheKey(combined string) string {
	return fmt.Sprintf("%s:%016x", s.classifier.Version(), xxhash.Sum64String(combined))
}

// Classify scores a raw document, consulting the cache when enabled
func (s *SpamFilterService) Classify(ctx context.Context, doc RawDocument) (*Prediction, error) {
	if s.classifier == nil {
		return nil, ErrModelNotLoaded
	}

	combined, err := doc.Combined()
	if err != nil {
		return nil, err
	}

	var key string
	if s.cacheEnabled {
		key = s.cacheKey(combined)
		if entry, err := s.cache.Get(ctx, key); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", key))
			return &Prediction{
				Label:           entry.Label,
				IsSpam:          entry.Label == LabelSpam,
				SpamProbability: entry.SpamProbability,
				HamProbability:  entry.HamProbability,
			}, nil
		}
	}

	prediction, err := s.classifier.Classify(RawDocument{Text: combined})
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled {
		now := time.Now()
		entry := &CacheEntry{
			Key:             key,
			Label:           prediction.Label,
			SpamProbability: prediction.SpamProbability,
			HamProbability:  prediction.HamProbability,
			LastSeen:        now,
			ExpiresAt:       now.Add(s.cacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	return prediction, nil
}

// AnalyzeEmail checks if an email is spam
func (s *SpamFilterService) AnalyzeEmail(ctx context.Context, email *Email) (*SpamAnalysisResult, error) {
	// Check whitelist first
	if s.whitelist.IsWhitelisted(email.From) {
		s.logger.Info("Skipping spam check for whitelisted domain",
			zap.String("sender", email.From),
			zap.String("action", "whitelist_bypass"))

		return &SpamAnalysisResult{
			IsSpam:      false,
			Score:       0.0,
			Confidence:  1.0,
			Explanation: "Sender domain is whitelisted",
			AnalyzedAt:  time.Now(),
			ModelUsed:   "whitelist",
		}, nil
	}

	prediction, err := s.Classify(ctx, RawDocument{Subject: email.Subject, Message: email.Body})
	if err != nil {
		return nil, err
	}

	confidence := prediction.HamProbability
	if prediction.SpamProbability > confidence {
		confidence = prediction.SpamProbability
	}

	result := &SpamAnalysisResult{
		Score:       prediction.SpamProbability,
		Confidence:  confidence,
		Explanation: fmt.Sprintf("naive bayes posterior: spam=%.4f ham=%.4f", prediction.SpamProbability, prediction.HamProbability),
		AnalyzedAt:  time.Now(),
		ModelUsed:   s.classifier.Version(),
	}
	result.IsSpam = s.IsSpam(result)

	return result, nil
}

// IsSpam determines if an email is spam based on the threshold.
// The comparison is strict so that a 0.5 tie stays ham at the default threshold.
func (s *SpamFilterService) IsSpam(result *SpamAnalysisResult) bool {
	return result.Score > s.threshold
}

// ClassifierVersion reports the artifact the service scores with
func (s *SpamFilterService) ClassifierVersion() string {
	if s.classifier == nil {
		return ""
	}
	return s.classifier.Version()
}
