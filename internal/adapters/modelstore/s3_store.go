package modelstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/artifact"
)

// S3API is the part of the S3 client the store needs
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps artifacts in an S3 bucket
type S3Store struct {
	client S3API
	logger *zap.Logger
}

// NewS3Store creates a new S3 artifact store
func NewS3Store(client S3API, logger *zap.Logger) *S3Store {
	return &S3Store{
		client: client,
		logger: logger,
	}
}

// Load downloads and decodes s3://bucket/key
func (s *S3Store) Load(ctx context.Context, uri string) (*artifact.Artifact, error) {
	loc, err := s.location(uri)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch model artifact from %s: %w", loc, err)
	}
	defer out.Body.Close()

	a, err := artifact.Decode(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc, err)
	}

	s.logger.Info("Loaded model artifact",
		zap.String("bucket", loc.Bucket),
		zap.String("key", loc.Key),
		zap.String("version", a.Version()))
	return a, nil
}

// Save encodes the artifact in memory and uploads it in one request
func (s *S3Store) Save(ctx context.Context, uri string, a *artifact.Artifact) error {
	loc, err := s.location(uri)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := artifact.Encode(&buf, a); err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(loc.Bucket),
		Key:           aws.String(loc.Key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"model-version": a.Version(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload model artifact to %s: %w", loc, err)
	}

	s.logger.Info("Saved model artifact",
		zap.String("bucket", loc.Bucket),
		zap.String("key", loc.Key),
		zap.Int("bytes", buf.Len()),
		zap.String("version", a.Version()))
	return nil
}

func (s *S3Store) location(uri string) (Location, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return Location{}, err
	}
	if loc.Scheme != SchemeS3 {
		return Location{}, fmt.Errorf("%w: s3 store cannot handle %q", ErrUnsupportedURI, uri)
	}
	return loc, nil
}
