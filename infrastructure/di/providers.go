package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"inkboard-backend/application/ports"
	"inkboard-backend/application/session"
	domaincfg "inkboard-backend/domain/config"
	"inkboard-backend/infrastructure/config"
	"inkboard-backend/infrastructure/external/ai"
	"inkboard-backend/infrastructure/external/storage"
	"inkboard-backend/infrastructure/external/youtube"
	"inkboard-backend/infrastructure/messaging/eventbridge"
	"inkboard-backend/infrastructure/persistence/dynamodb"
	"inkboard-backend/infrastructure/persistence/memory"
	"inkboard-backend/pkg/observability"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideMetrics creates a metrics emitter. Nil CloudWatch client means
// metrics are dropped.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config) *observability.Metrics {
	if !cfg.EnableMetrics {
		return observability.NewMetrics("", nil)
	}
	return observability.NewMetrics(fmt.Sprintf("Inkboard/%s", cfg.Environment), client)
}

// ProvideTracer creates an X-Ray tracer, or nil when tracing is off
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	if !cfg.EnableTracing {
		return nil
	}
	return observability.NewTracer("inkboard")
}

// ProvideCanvasRepository creates the canvas repository. Development
// mode without a table falls back to the in-memory implementation.
func ProvideCanvasRepository(
	client *awsdynamodb.Client,
	cfg *config.Config,
	tracer *observability.Tracer,
	metrics *observability.Metrics,
	logger *zap.Logger,
) ports.CanvasRepository {
	if cfg.IsDevelopment() && cfg.DynamoDBTable == "" {
		logger.Warn("no table configured, using in-memory canvas store")
		return memory.NewCanvasRepository()
	}
	return dynamodb.NewCanvasRepository(client, cfg.DynamoDBTable, "GSI1", tracer, metrics, logger)
}

// ProvideEventBus creates the domain event bus
func ProvideEventBus(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventBus {
	if cfg.EventBusName == "" {
		return eventbridge.NewNopBus()
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideSessionManager creates the canvas session manager
func ProvideSessionManager(repo ports.CanvasRepository, bus ports.EventBus, logger *zap.Logger) *session.Manager {
	return session.NewManager(repo, bus, domaincfg.DefaultDomainConfig(), logger)
}

// ProvideAIService creates the AI completion client, or nil when no
// endpoint is configured.
func ProvideAIService(cfg *config.Config, logger *zap.Logger) ports.AIService {
	if cfg.AIEndpoint == "" {
		return nil
	}
	return ai.NewClient(cfg.AIEndpoint, cfg.AIAPIKey, cfg.AIModel, cfg.AITimeout, logger)
}

// ProvideObjectStorage creates the upload store, or nil when no
// endpoint is configured.
func ProvideObjectStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.ObjectStorage, error) {
	if cfg.StorageEndpoint == "" {
		return nil, nil
	}
	return storage.NewObjectStorage(ctx, storage.Config{
		Endpoint:  cfg.StorageEndpoint,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Bucket:    cfg.StorageBucket,
		UseSSL:    cfg.StorageUseSSL,
		PublicURL: cfg.StoragePublicURL,
	}, logger)
}

// ProvideTranscriptService creates the transcript fetcher, or nil when
// no endpoint is configured.
func ProvideTranscriptService(cfg *config.Config, logger *zap.Logger) ports.TranscriptService {
	if cfg.TranscriptEndpoint == "" {
		return nil
	}
	return youtube.NewTranscriptClient(cfg.TranscriptEndpoint, logger)
}
