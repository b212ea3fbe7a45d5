package reports

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/common/configtypes"
)

// BlobStoreFromConfig builds the configured blob store
func BlobStoreFromConfig(ctx context.Context, cfg configtypes.StorageConfig, logger *zap.Logger) (BlobStore, error) {
	switch cfg.Backend {
	case configtypes.StorageBackendFilesystem, "":
		return NewFilesystemBlobStore(cfg.BasePath, logger)
	case configtypes.StorageBackendS3:
		return NewS3BlobStore(ctx, cfg.S3, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
