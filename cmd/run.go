package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"wagerledger/config"
	"wagerledger/database"
	"wagerledger/events"
	"wagerledger/repository"
	"wagerledger/server"
	"wagerledger/service"
)

const (
	serviceName = "wagerledger"
	streamName  = "LEDGER"
	subjectRoot = "ledger"
)

// ConfigureLogging sets the global logrus level and formatter
func ConfigureLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetLevel(cfg.LogLevel)
	log.SetOutput(os.Stdout)
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"program":     cfg.ProgramID,
	}).Info("Starting wager ledger...")

	eventBus := events.NewBus()

	// Initialize storage
	var (
		uowFactory service.UnitOfWorkFactory
		reader     service.AccountReader
	)
	if cfg.UseMemoryStore() {
		log.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		store := repository.NewMemoryStore(eventBus)
		uowFactory = store.UnitOfWorkFactory()
		reader = store
	} else {
		databaseURL := cfg.GetDatabaseURL()
		log.WithField("database", database.RedactURL(databaseURL)).Info("Connecting to database...")
		db, err := database.NewConnection(ctx, databaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		log.Info("Database connection established successfully")

		uowFactory = repository.NewUnitOfWorkFactory(db, eventBus)
		reader = repository.NewAccountRepository(db)
	}

	// Wrap reads with a Redis cache if configured
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}

		cached := repository.NewCachedReader(reader, rdb, cfg.CacheTTL)
		cached.Attach(eventBus)
		reader = cached
		log.WithField("ttl", cfg.CacheTTL).Info("Redis account cache enabled")
	}

	// Forward committed events to NATS if configured
	if servers := cfg.NATSServerList(); len(servers) > 0 {
		natsClient := events.NewNATSClient(strings.Join(servers, ","), serviceName)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer func() {
			if err := natsClient.Close(); err != nil {
				log.WithError(err).Error("Error closing NATS connection")
			}
		}()

		subjectMapper := events.NewSubjectMapper(subjectRoot)
		if err := natsClient.EnsureStream(streamName, []string{subjectMapper.Wildcard()}); err != nil {
			return fmt.Errorf("failed to ensure NATS stream: %w", err)
		}
		events.NewNATSEventPublisher(natsClient, subjectMapper, serviceName).Attach(eventBus)
		log.Info("NATS event publishing enabled")
	}

	// Initialize services
	clock := service.SystemClock
	ledger := service.NewLedger(cfg.ProgramID, uowFactory, clock)
	query := service.NewQueryService(reader, cfg.ProgramID)
	log.Info("Services initialized successfully")

	if err := server.New(ledger, query).ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	log.Info("Shutdown completed")
	return nil
}
