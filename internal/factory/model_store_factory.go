package factory

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/adapters/modelstore"
	"github.com/mikey/nb-spam-filter/internal/config"
)

// ModelStoreFactory creates artifact stores
type ModelStoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewModelStoreFactory creates a new model store factory
func NewModelStoreFactory(cfg *config.Config, logger *zap.Logger) *ModelStoreFactory {
	return &ModelStoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateModelStore returns a store that handles file paths and, when AWS
// configuration can be loaded, s3:// URIs
func (f *ModelStoreFactory) CreateModelStore() *modelstore.Router {
	fileStore := modelstore.NewFileStore(f.logger)

	s3Cfg := f.cfg.GetS3()
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(s3Cfg.Region),
	)
	if err != nil {
		f.logger.Warn("AWS configuration unavailable, s3:// model URIs disabled", zap.Error(err))
		return modelstore.NewRouter(fileStore, nil)
	}

	s3Store := modelstore.NewS3Store(s3.NewFromConfig(awsCfg), f.logger)
	return modelstore.NewRouter(fileStore, s3Store)
}
