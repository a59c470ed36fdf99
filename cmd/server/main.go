// @title                       Corporate Events API
// @version                     1.0
// @description                 Event lifecycle, attendee and guest membership for internal corporate events.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/corphub/events-api/internal/api"
	"github.com/corphub/events-api/internal/core/ports"
	"github.com/corphub/events-api/internal/core/service"
	"github.com/corphub/events-api/internal/infrastructure/db/memory"
	mongodb "github.com/corphub/events-api/internal/infrastructure/db/mongo"
	redisdb "github.com/corphub/events-api/internal/infrastructure/db/redis"
	"github.com/corphub/events-api/internal/infrastructure/email"
	"github.com/corphub/events-api/internal/infrastructure/http/handlers"
	"github.com/corphub/events-api/internal/infrastructure/queue"
	"github.com/corphub/events-api/internal/pkg/config"
	"github.com/corphub/events-api/pkg/logger"
	"github.com/corphub/events-api/pkg/tracing"
)

const (
	serviceName     = "events-api"
	shutdownTimeout = 15 * time.Second
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

// repositories is the persistence backend selected by STORE_DRIVER.
type repositories struct {
	users  ports.UserRepository
	events ports.EventRepository
	guests ports.GuestRepository
	checks []handlers.Check
	close  func(context.Context) error
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: serviceName,
		Version: version,
	})

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.OTel.Enabled,
		Endpoint:    cfg.OTel.Endpoint,
		ServiceName: serviceName,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	repos, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := repos.close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("store shutdown")
		}
	}()

	// A nil interface keeps idempotency disabled when Redis is not configured.
	var idem ports.IdempotencyStore
	checks := repos.checks
	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		idem = redisdb.NewIdempotencyStore(rdb)
		checks = append(checks, handlers.RedisCheck(rdb))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
	} else {
		log.Warn().Msg("REDIS_ADDR not set, idempotency keys are ignored")
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mail.Provider,
		FromAddress: cfg.Mail.FromAddress,
		FromName:    cfg.Mail.FromName,
		SES: email.SESConfig{
			Region:          cfg.Mail.AWSRegion,
			AccessKeyID:     cfg.Mail.AWSAccessKeyID,
			SecretAccessKey: cfg.Mail.AWSSecretAccessKey,
		},
	}, logger.Component("mailer"))
	if err != nil {
		return err
	}
	inviter := email.NewGuestInviter(mailer, email.NewTemplateRenderer(), logger.Component("mailer"))

	// Workers outlive the signal context so in-flight requests drain during shutdown.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	dispatcher := queue.NewDispatcher(cfg.DispatchWorkers, logger.Component("dispatcher"))
	dispatcher.Start(dispatchCtx)

	policy, err := service.ParseGuestPolicy(cfg.GuestPolicy)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	router := api.NewRouter(api.Deps{
		Log:       logger.Component("http"),
		JWTSecret: cfg.JWTSecret,
		Auth:      service.NewAuthService(repos.users, cfg.JWTSecret, cfg.TokenTTL, logger.Component("auth")),
		Events:    service.NewEventService(repos.events, dispatcher, idem, logger.Component("events")),
		Membership: service.NewMembershipService(service.MembershipDeps{
			Events:      repos.events,
			Users:       repos.users,
			Guests:      repos.guests,
			Serializer:  dispatcher,
			Idempotency: idem,
			Notifier:    inviter,
			Policy:      policy,
		}, logger.Component("membership")),
		Queries:  service.NewQueryService(repos.events, repos.users, repos.guests, logger.Component("queries")),
		Registry: registry,
		Checks:   checks,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("http server listening")
		if err := router.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := router.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repositories, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn().Msg("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		return &repositories{
			users:  store.Users(),
			events: store.Events(),
			guests: store.Guests(),
			close:  func(context.Context) error { return nil },
		}, nil
	}

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  serviceName,
	})
	if err != nil {
		return nil, err
	}
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb connected")

	return &repositories{
		users:  mongodb.NewUserRepository(db),
		events: mongodb.NewEventRepository(db),
		guests: mongodb.NewGuestRepository(db),
		checks: []handlers.Check{handlers.MongoCheck(db)},
		close:  client.Disconnect,
	}, nil
}
