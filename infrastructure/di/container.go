package di

import (
	"context"

	"go.uber.org/zap"

	"inkboard-backend/application/commands"
	commandbus "inkboard-backend/application/commands/bus"
	"inkboard-backend/application/ports"
	"inkboard-backend/application/queries"
	querybus "inkboard-backend/application/queries/bus"
	"inkboard-backend/application/session"
	"inkboard-backend/infrastructure/config"
	"inkboard-backend/infrastructure/messaging/sse"
	"inkboard-backend/pkg/observability"
)

// Container holds every wired component of the service
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics

	Repository  ports.CanvasRepository
	EventBus    ports.EventBus
	Broker      *sse.Broker
	AI          ports.AIService
	Storage     ports.ObjectStorage
	Transcripts ports.TranscriptService

	Sessions   *session.Manager
	CommandBus *commandbus.CommandBus
	QueryBus   *querybus.QueryBus

	// Typed handlers for result-bearing operations
	CreateNode      *commands.CreateNodeHandler
	UpdateNode      *commands.UpdateNodeHandler
	CreateEdge      *commands.CreateEdgeHandler
	PasteNodes      *commands.PasteNodesHandler
	History         *commands.HistoryHandler
	CanvasLifecycle *commands.CanvasLifecycleHandler
	GenerateSibling *commands.GenerateSiblingHandler
}

// NewContainer wires the whole service from configuration
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}

	awsCfg, err := ProvideAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	metrics := ProvideMetrics(ProvideCloudWatchClient(awsCfg), cfg)
	tracer := ProvideTracer(cfg)
	repo := ProvideCanvasRepository(ProvideDynamoDBClient(awsCfg), cfg, tracer, metrics, logger)
	eventBus := ProvideEventBus(ProvideEventBridgeClient(awsCfg), cfg, logger)
	broker := sse.NewBroker(logger)
	sessions := ProvideSessionManager(repo, ports.MultiBus{broker, eventBus}, logger)

	aiService := ProvideAIService(cfg, logger)
	objectStorage, err := ProvideObjectStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	transcripts := ProvideTranscriptService(cfg, logger)

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,

		Repository:  repo,
		EventBus:    eventBus,
		Broker:      broker,
		AI:          aiService,
		Storage:     objectStorage,
		Transcripts: transcripts,

		Sessions: sessions,

		CreateNode:      commands.NewCreateNodeHandler(sessions, logger),
		UpdateNode:      commands.NewUpdateNodeHandler(sessions, logger),
		CreateEdge:      commands.NewCreateEdgeHandler(sessions, logger),
		PasteNodes:      commands.NewPasteNodesHandler(sessions, logger),
		History:         commands.NewHistoryHandler(sessions, logger),
		CanvasLifecycle: commands.NewCanvasLifecycleHandler(sessions, repo, logger),
		GenerateSibling: commands.NewGenerateSiblingHandler(sessions, aiService, transcripts, logger),
	}

	if err := c.buildCommandBus(logger); err != nil {
		return nil, err
	}
	if err := c.buildQueryBus(logger); err != nil {
		return nil, err
	}

	return c, nil
}

// buildCommandBus registers the result-free commands on the bus
func (c *Container) buildCommandBus(logger *zap.Logger) error {
	bus := commandbus.NewCommandBus()
	pipeline := commandbus.NewPipeline(commandbus.LoggingMiddleware(logger))

	deleteHandler := pipeline.Wrap(commands.NewDeleteHandler(c.Sessions, logger))
	if err := bus.Register(&commands.DeleteNodeCommand{}, deleteHandler); err != nil {
		return err
	}
	if err := bus.Register(&commands.DeleteEdgeCommand{}, deleteHandler); err != nil {
		return err
	}

	viewportHandler := pipeline.Wrap(commands.NewSetViewportHandler(c.Sessions, logger))
	if err := bus.Register(&commands.SetViewportCommand{}, viewportHandler); err != nil {
		return err
	}

	c.CommandBus = bus
	return nil
}

// buildQueryBus registers the read queries on the bus
func (c *Container) buildQueryBus(logger *zap.Logger) error {
	bus := querybus.NewQueryBus()
	logging := querybus.LoggingMiddleware(logger)

	getCanvas := logging(queries.NewGetCanvasHandler(c.Sessions, logger))
	if err := bus.Register(&queries.GetCanvasQuery{}, getCanvas); err != nil {
		return err
	}

	listCanvases := logging(queries.NewListCanvasesHandler(c.Repository, logger))
	if err := bus.Register(&queries.ListCanvasesQuery{}, listCanvases); err != nil {
		return err
	}

	nodeQueries := logging(queries.NewNodeQueryHandler(c.Sessions, logger))
	if err := bus.Register(&queries.GetBacklinksQuery{}, nodeQueries); err != nil {
		return err
	}
	if err := bus.Register(&queries.NodesInRectQuery{}, nodeQueries); err != nil {
		return err
	}

	c.QueryBus = bus
	return nil
}

// Shutdown flushes open sessions and releases resources
func (c *Container) Shutdown(ctx context.Context) error {
	err := c.Sessions.CloseAll(ctx)
	c.Broker.Close()
	_ = c.Logger.Sync()
	return err
}
