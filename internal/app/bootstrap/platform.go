package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/carepulse/carepulse/internal/config"
	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/internal/platform/accounts"
	"github.com/carepulse/carepulse/internal/platform/blobs"
	"github.com/carepulse/carepulse/internal/platform/dynamodocs"
	"github.com/carepulse/carepulse/internal/platform/memory"
	"github.com/carepulse/carepulse/internal/platform/pgdocs"
	"github.com/carepulse/carepulse/pkg/logging"
)

// Document backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
)

// Platform is the assembled backend the actions run against.
type Platform struct {
	Documents platform.Documents
	Users     platform.Users
	Storage   platform.Storage

	// Checks feeds /health; Close releases connections in reverse order.
	Checks  map[string]func(context.Context) error
	closers []func()
}

// Close releases every connection opened by BuildPlatform.
func (p *Platform) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

// BuildPlatform selects the document, account and file backends. Memory
// fallbacks are refused in production.
func BuildPlatform(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (*Platform, error) {
	if logger == nil {
		logger = logging.Default()
	}
	p := &Platform{Checks: map[string]func(context.Context) error{}}

	switch cfg.DocumentBackend {
	case BackendMemory:
		if cfg.IsProduction() {
			return nil, errors.New("bootstrap: memory document backend is not allowed in production")
		}
		p.Documents = memory.NewDocuments()
	case BackendPostgres:
		pool, err := ConnectPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if pool == nil {
			return nil, errors.New("bootstrap: DATABASE_URL is required for the postgres document backend")
		}
		p.closers = append(p.closers, pool.Close)
		p.Checks["postgres"] = pool.Ping
		p.Documents = pgdocs.NewStore(pool)
	case BackendDynamoDB:
		client := dynamodb.NewFromConfig(awsCfg)
		p.Documents = dynamodocs.NewStore(client, cfg.DocumentsTable, logger)
	default:
		return nil, fmt.Errorf("bootstrap: unknown document backend %q", cfg.DocumentBackend)
	}

	db, err := OpenSQL(ctx, cfg.DatabaseURL)
	if err != nil {
		p.Close()
		return nil, err
	}
	if db != nil {
		p.closers = append(p.closers, func() { _ = db.Close() })
		p.Checks["accounts"] = db.PingContext
		p.Users = accounts.NewRepository(db)
	} else {
		if cfg.IsProduction() {
			p.Close()
			return nil, errors.New("bootstrap: DATABASE_URL is required for user accounts in production")
		}
		logger.Warn("DATABASE_URL not set; user accounts kept in memory")
		p.Users = memory.NewUsers()
	}

	if cfg.S3Bucket != "" {
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.AWSEndpointOverride != ""
		})
		p.Storage = blobs.NewStore(client, cfg.S3Bucket, cfg.UploadMaxBytes, logger)
	} else {
		if cfg.IsProduction() {
			p.Close()
			return nil, errors.New("bootstrap: S3_BUCKET is required in production")
		}
		logger.Warn("S3_BUCKET not set; identification documents kept in memory")
		p.Storage = memory.NewStorage()
	}

	logger.Info("platform backends ready",
		"documents", cfg.DocumentBackend,
		"accounts_sql", db != nil,
		"s3", cfg.S3Bucket != "",
	)
	return p, nil
}
