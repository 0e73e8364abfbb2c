package config

import (
	"fmt"
	"time"
)

// ModelConfig locates the scoring artifact and shapes new ones
type ModelConfig struct {
	URI       string
	NFeatures int
	Alpha     float64
}

// TrainingConfig controls the hold-out split
type TrainingConfig struct {
	TestFraction float64
	Seed         int64
}

// TextConfig bounds the text handed to the classifier
type TextConfig struct {
	MaxBodySize int
}

// HeadersConfig names the headers added to filtered mail
type HeadersConfig struct {
	Spam   string
	Score  string
	Reason string
}

// PostfixConfig is where accepted mail is re-injected
type PostfixConfig struct {
	Enabled bool
	Address string
	Port    int
}

// ServerConfig represents the transport configuration
type ServerConfig struct {
	FilterType    string
	ListenAddress string
	HTTPAddress   string
	BlockSpam     bool
	Headers       HeadersConfig
	Postfix       PostfixConfig
	ModifySubject bool
	SubjectPrefix string
}

// SpamConfig represents the decision configuration
type SpamConfig struct {
	Threshold          float64
	WhitelistedDomains []string
}

// CacheConfig represents the prediction cache configuration
type CacheConfig struct {
	Type             string
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// S3Config represents the configuration for S3 artifact storage
type S3Config struct {
	Region string
}

// LoggingConfig represents the logger configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// GetModel returns the model configuration
func (c *Config) GetModel() ModelConfig {
	return ModelConfig{
		URI:       c.GetString("model.uri"),
		NFeatures: c.GetInt("model.n_features"),
		Alpha:     c.GetFloat64("model.alpha"),
	}
}

// GetTraining returns the training configuration
func (c *Config) GetTraining() TrainingConfig {
	return TrainingConfig{
		TestFraction: c.GetFloat64("training.test_fraction"),
		Seed:         c.GetInt64("training.seed"),
	}
}

// GetText returns the text configuration
func (c *Config) GetText() TextConfig {
	return TextConfig{
		MaxBodySize: c.GetInt("text.max_body_size"),
	}
}

// GetServer returns the server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		FilterType:    c.GetString("server.filter_type"),
		ListenAddress: c.GetString("server.listen_address"),
		HTTPAddress:   c.GetString("server.http_address"),
		BlockSpam:     c.GetBool("server.block_spam"),
		Headers: HeadersConfig{
			Spam:   c.GetString("server.headers.spam"),
			Score:  c.GetString("server.headers.score"),
			Reason: c.GetString("server.headers.reason"),
		},
		Postfix: PostfixConfig{
			Enabled: c.GetBool("server.postfix.enabled"),
			Address: c.GetString("server.postfix.address"),
			Port:    c.GetInt("server.postfix.port"),
		},
		ModifySubject: c.GetBool("server.modify_subject"),
		SubjectPrefix: c.GetString("server.subject_prefix"),
	}
}

// GetSpam returns the spam decision configuration
func (c *Config) GetSpam() SpamConfig {
	return SpamConfig{
		Threshold:          c.GetFloat64("spam.threshold"),
		WhitelistedDomains: c.GetStringSlice("spam.whitelisted_domains"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache.ttl: %w", err)
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache.cleanup_frequency: %w", err)
	}

	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
	}, nil
}

// GetS3 returns the S3 configuration
func (c *Config) GetS3() S3Config {
	return S3Config{
		Region: c.GetString("s3.region"),
	}
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
	}
}
