package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	apihttp "fulfillment/internal/adapters/in/http"
	"fulfillment/internal/adapters/out/eventlog"
	"fulfillment/internal/adapters/out/kafka"
	"fulfillment/internal/adapters/out/memory"
	"fulfillment/internal/adapters/out/postgres"
	"fulfillment/internal/adapters/out/postgres/orderrepo"
	"fulfillment/internal/adapters/out/rabbitmq"
	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/application/usecases/queries"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/services"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/jobs"
	"fulfillment/internal/pkg/idempotency"
	"fulfillment/internal/pkg/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// CompositionRoot owns the long-lived dependencies and builds the handlers,
// the HTTP server and the jobs on top of them.
type CompositionRoot struct {
	config     Config
	logger     *slog.Logger
	uowFactory ports.UnitOfWorkFactory
	readModel  ports.OrderReadModel
	publisher  ports.EventPublisher
	codes      order.CodeGenerator
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	idemStore  *idempotency.RedisStore
	closers    []func() error
}

func NewCompositionRoot(config Config, logger *slog.Logger) (*CompositionRoot, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &CompositionRoot{
		config:   config,
		logger:   logger,
		codes:    services.NewRandomCodeGenerator(),
		registry: registry,
		metrics:  metrics.New(registry),
	}

	if err := c.openStorage(); err != nil {
		return nil, errors.Join(err, c.Close())
	}
	if err := c.openBroker(); err != nil {
		return nil, errors.Join(err, c.Close())
	}

	if config.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		c.closers = append(c.closers, rdb.Close)
		c.idemStore = idempotency.NewRedisStore(rdb, config.IdempotencyTTL)
	}

	return c, nil
}

func (c *CompositionRoot) openStorage() error {
	switch c.config.Storage {
	case StorageMemory:
		store := memory.NewStore()
		c.uowFactory = memory.NewUnitOfWorkFactory(store)
		c.readModel = memory.NewOrderReadModel(store)
		c.logger.Warn("using in-memory storage, orders are lost on restart")
		return nil
	case StoragePostgres:
		db, err := postgres.Open(c.config.DSN())
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("postgres pool: %w", err)
		}
		c.closers = append(c.closers, sqlDB.Close)

		if err = postgres.Migrate(db); err != nil {
			return err
		}
		c.uowFactory = postgres.NewGormUnitOfWorkFactory(db)
		c.readModel = orderrepo.NewGormOrderReadModel(db)
		return nil
	default:
		return fmt.Errorf("unknown storage %q", c.config.Storage)
	}
}

func (c *CompositionRoot) openBroker() error {
	switch c.config.EventBroker {
	case BrokerKafka:
		writer := kafka.NewWriter(c.config.KafkaBrokers, c.config.KafkaTopic)
		c.closers = append(c.closers, writer.Close)
		c.publisher = kafka.NewPublisher(writer)
	case BrokerRabbitMQ:
		conn, err := rabbitmq.Connect(c.config.RabbitMQURL)
		if err != nil {
			return err
		}
		publisher := rabbitmq.NewPublisher(conn, c.config.RabbitMQExchange)
		c.closers = append(c.closers, publisher.Close)
		c.publisher = publisher
	case BrokerLog:
		c.publisher = eventlog.NewPublisher(c.logger)
	default:
		return fmt.Errorf("unknown event broker %q", c.config.EventBroker)
	}
	return nil
}

// Close releases connections in reverse order of opening.
func (c *CompositionRoot) Close() error {
	var err error
	for i := len(c.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, c.closers[i]())
	}
	c.closers = nil
	return err
}

func (c *CompositionRoot) orderUoWFactory() commands.UoWFactory {
	return FuncUoWFactory(func() commands.UoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) outboxUoWFactory() commands.OutboxUoWFactory {
	return FuncOutboxUoWFactory(func() commands.OutboxUoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) CreateCreateOrderCommandHandler() commands.CreateOrderCommandHandler {
	return commands.NewCreateOrderCommandHandler(c.orderUoWFactory(), c.config.RequireOTPByDefault, nil, c.logger)
}

func (c *CompositionRoot) CreateRequestTransitionCommandHandler() commands.RequestTransitionCommandHandler {
	return commands.NewRequestTransitionCommandHandler(c.orderUoWFactory(), c.codes, nil, c.metrics, c.logger)
}

func (c *CompositionRoot) CreateReissueHandoverCodeCommandHandler() commands.ReissueHandoverCodeCommandHandler {
	return commands.NewReissueHandoverCodeCommandHandler(c.orderUoWFactory(), c.codes, nil, c.metrics, c.logger)
}

func (c *CompositionRoot) CreateExpireHandoverCodesCommandHandler() commands.ExpireHandoverCodesCommandHandler {
	return commands.NewExpireHandoverCodesCommandHandler(c.orderUoWFactory(), nil, c.metrics, c.logger)
}

func (c *CompositionRoot) CreateRelayOutboxCommandHandler() commands.RelayOutboxCommandHandler {
	return commands.NewRelayOutboxCommandHandler(c.outboxUoWFactory(), c.publisher, c.metrics, c.logger)
}

func (c *CompositionRoot) CreateGetOrderBoardQueryHandler() queries.GetOrderBoardQueryHandler {
	return queries.NewGetOrderBoardQueryHandler(c.readModel)
}

func (c *CompositionRoot) CreateGetOrderQueryHandler() queries.GetOrderQueryHandler {
	return queries.NewGetOrderQueryHandler(c.readModel)
}

func (c *CompositionRoot) CreateGetRefundIntentsQueryHandler() queries.GetRefundIntentsQueryHandler {
	return queries.NewGetRefundIntentsQueryHandler(c.readModel)
}

func (c *CompositionRoot) CreateHTTPServer() *apihttp.Server {
	return apihttp.NewServer(
		c.CreateCreateOrderCommandHandler(),
		c.CreateRequestTransitionCommandHandler(),
		c.CreateReissueHandoverCodeCommandHandler(),
		c.CreateGetOrderBoardQueryHandler(),
		c.CreateGetOrderQueryHandler(),
		c.CreateGetRefundIntentsQueryHandler(),
		c.logger,
	)
}

// CreateWriteMiddleware returns the middleware for state-changing routes:
// idempotency keys when Redis is configured, nothing otherwise.
func (c *CompositionRoot) CreateWriteMiddleware() []echo.MiddlewareFunc {
	if c.idemStore == nil {
		return nil
	}
	return []echo.MiddlewareFunc{
		idempotency.Middleware(c.idemStore, c.logger.With("component", "idempotency")),
	}
}

func (c *CompositionRoot) CreateJobManager() (*jobs.JobManager, error) {
	relay, err := jobs.NewOutboxRelayJob(
		c.CreateRelayOutboxCommandHandler(), c.config.OutboxBatchSize, c.config.OutboxRelaySchedule, c.logger,
	)
	if err != nil {
		return nil, err
	}
	scheduled := []jobs.Job{relay}

	if c.config.HandoverCodeTTL > 0 {
		var expiry *jobs.HandoverCodeExpiryJob
		expiry, err = jobs.NewHandoverCodeExpiryJob(
			c.CreateExpireHandoverCodesCommandHandler(), c.config.HandoverCodeTTL, c.config.HandoverExpirySchedule, c.logger,
		)
		if err != nil {
			return nil, err
		}
		scheduled = append(scheduled, expiry)
	}

	return jobs.NewJobManager(scheduled...), nil
}

func (c *CompositionRoot) Metrics() *metrics.Metrics {
	return c.metrics
}

func (c *CompositionRoot) MetricsHandler() http.Handler {
	return metrics.Handler(c.registry)
}

type FuncUoWFactory func() commands.UoW

func (f FuncUoWFactory) Create() commands.UoW {
	return f()
}

type FuncOutboxUoWFactory func() commands.OutboxUoW

func (f FuncOutboxUoWFactory) Create() commands.OutboxUoW {
	return f()
}
