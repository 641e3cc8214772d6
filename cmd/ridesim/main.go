package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/richxcame/scooter-ride/internal/console"
	"github.com/richxcame/scooter-ride/internal/geo"
	"github.com/richxcame/scooter-ride/internal/realtime"
	"github.com/richxcame/scooter-ride/internal/ridehistory"
	"github.com/richxcame/scooter-ride/internal/rides"
	"github.com/richxcame/scooter-ride/internal/zones"
	"github.com/richxcame/scooter-ride/pkg/config"
	"github.com/richxcame/scooter-ride/pkg/errors"
	"github.com/richxcame/scooter-ride/pkg/eventbus"
	"github.com/richxcame/scooter-ride/pkg/health"
	"github.com/richxcame/scooter-ride/pkg/httpclient"
	"github.com/richxcame/scooter-ride/pkg/logger"
	"github.com/richxcame/scooter-ride/pkg/middleware"
	redisclient "github.com/richxcame/scooter-ride/pkg/redis"
	"github.com/richxcame/scooter-ride/pkg/resilience"
	"github.com/richxcame/scooter-ride/pkg/tracing"
)

const (
	serviceName = "ridesim"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if err := logger.Init(cfg.Server.Environment, cfg.Server.LogLevel); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting ride simulator",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
		zap.String("api", cfg.API.BaseURL),
	)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sentryConfig := errors.DefaultSentryConfig()
	sentryConfig.ServerName = serviceName
	sentryConfig.Release = version
	if err := errors.InitSentry(sentryConfig); err != nil {
		logger.Warn("Failed to initialize Sentry, continuing without error tracking", zap.Error(err))
	} else {
		defer errors.Flush(2 * time.Second)
		logger.Info("Sentry error tracking initialized successfully")
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.Config{
			ServiceName:    serviceName,
			ServiceVersion: version,
			Environment:    cfg.Server.Environment,
			OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
			SampleRate:     cfg.Tracing.SampleRate,
			Enabled:        true,
		}, logger.Get())
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else if tp != nil {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Failed to shutdown tracer", zap.Error(err))
				}
			}()
			logger.Info("OpenTelemetry tracing initialized successfully")
		}
	}

	var (
		zonesBreaker *resilience.CircuitBreaker
		rentBreaker  *resilience.CircuitBreaker
	)
	readiness := make(map[string]health.Checker)
	if cfg.Resilience.CircuitBreaker.Enabled {
		zonesBreaker = newBreaker(cfg, "zones")
		rentBreaker = newBreaker(cfg, "rent")
		readiness["zones"] = health.BreakerChecker("zones", zonesBreaker.Allow)
		readiness["rent"] = health.BreakerChecker("rent", rentBreaker.Allow)
	}

	api := httpclient.NewClient(cfg.API.BaseURL, cfg.API.HTTPTimeout(),
		httpclient.WithTokenSource(httpclient.StaticToken(cfg.API.AuthToken)),
	)

	var publisher eventbus.Publisher = eventbus.NopPublisher{}
	if cfg.NATS.Enabled {
		busCfg := eventbus.DefaultConfig()
		busCfg.URL = cfg.NATS.URL
		busCfg.Name = serviceName
		busCfg.StreamName = cfg.NATS.StreamName
		bus, err := eventbus.New(rootCtx, busCfg)
		if err != nil {
			logger.Warn("Failed to connect to NATS, ride events disabled", zap.Error(err))
		} else {
			defer bus.Close()
			publisher = bus
			readiness["nats"] = health.ConnectedChecker("nats", bus.Connected)
			logger.Info("Ride events published to NATS", zap.String("stream", busCfg.StreamName))
		}
	}

	// Zones
	zoneClient := zones.NewClient(api)
	zoneClient.SetCircuitBreaker(zonesBreaker)

	source, err := locationSource(cfg.Zones)
	if err != nil {
		logger.Fatal("Failed to load GPS track", zap.Error(err))
	}

	tracker := zones.NewTracker(zoneClient, source,
		zones.WithMinFetchInterval(cfg.Zones.MinFetchInterval()),
		zones.WithCity(cfg.Zones.City),
		zones.WithPublisher(publisher),
	)
	defer tracker.Close()

	var catalog *zones.Catalog
	if cfg.Zones.CatalogPath != "" {
		catalog, err = zones.LoadCatalogFile(cfg.Zones.CatalogPath)
		if err != nil {
			logger.Warn("Failed to load zone catalog, map lookup disabled", zap.Error(err))
		} else {
			logger.Info("Zone catalog loaded", zap.Int("zones", catalog.Len()))
		}
	}

	// Rides
	historyRepo := ridehistory.NewRepository(api)
	historyRepo.SetCircuitBreaker(rentBreaker)
	history := ridehistory.NewService(historyRepo, cfg.History.Limit)

	rideAPI := rides.NewClient(api, history)
	rideAPI.SetCircuitBreaker(rentBreaker)

	store := rides.Store(rides.NewMemoryStore())
	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Warn("Failed to connect to Redis, keeping the active ride in memory", zap.Error(err))
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("Failed to close redis client", zap.Error(err))
				}
			}()
			store = rides.NewRedisStore(redisClient, "")
			readiness["redis"] = health.RedisChecker(redisClient.Client)
		}
	}

	session := rides.NewSession(rideAPI, rides.PricingFromConfig(cfg.Pricing),
		rides.WithStore(store),
		rides.WithSessionPublisher(publisher),
	)
	defer session.Close()

	if ride, err := session.Restore(rootCtx); err != nil {
		logger.Warn("Could not restore the active ride", zap.Error(err))
	} else if ride != nil {
		logger.Info("Resumed active ride", zap.String("ride_id", ride.ID), zap.String("scooter_id", ride.ScooterID))
	}

	// Zone tracking runs only while a ride is active, including one restored above.
	stopFollowing := rides.FollowRiding(rootCtx, session, tracker)
	defer stopFollowing()

	// Realtime
	if cfg.Realtime.Enabled {
		feed := realtime.NewFeed(cfg.Realtime.URL,
			realtime.WithPingPeriod(time.Duration(cfg.Realtime.PingSeconds)*time.Second),
			realtime.WithBearerToken(cfg.API.AuthToken),
		)
		defer feed.Close()

		router := realtime.NewRouter()
		router.Handle(realtime.MessageZonesUpdated, func(ctx context.Context, _ realtime.Message) {
			if !tracker.ForceRefresh() {
				logger.WithContext(ctx).Debug("zones updated before first fix")
			}
		})
		go feed.Listen(rootCtx, router.Dispatch)
		logger.Info("Realtime feed enabled", zap.String("url", cfg.Realtime.URL))
	}

	// Console
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.RecoveryWithSentry())
	engine.Use(middleware.SentryMiddleware())
	engine.Use(middleware.CorrelationID())
	engine.Use(middleware.RequestTimeout(cfg.Server.RequestTimeoutDuration()))
	engine.Use(middleware.RequestLogger(serviceName))
	engine.Use(middleware.CORS(cfg.Server.CORSOrigins))
	if cfg.Tracing.Enabled {
		engine.Use(middleware.TracingMiddleware(serviceName))
	}
	engine.Use(middleware.ErrorHandler())

	console.NewHandler(session, tracker, history, catalog).RegisterRoutes(engine)
	engine.GET("/health/ready", health.ReadinessHandler(serviceName, version, readiness))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Console listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Stopped")
}

// newBreaker builds a breaker for one upstream. Client errors are business
// answers and never count as failures.
func newBreaker(cfg *config.Config, name string) *resilience.CircuitBreaker {
	settings := resilience.SettingsFromConfig(name, cfg.Resilience.CircuitBreaker.SettingsFor(name))
	settings.IsSuccessful = httpclient.IsClientError

	logger.Info("Circuit breaker configured",
		zap.String("service", name),
		zap.Uint32("failure_threshold", settings.FailureThreshold),
		zap.Duration("timeout", settings.Timeout),
	)
	return resilience.NewCircuitBreaker(settings, nil)
}

// locationSource replays a recorded track when one is configured; otherwise
// fixes arrive through the console.
func locationSource(cfg config.ZonesConfig) (geo.Source, error) {
	if cfg.TrackPath == "" {
		return geo.NewChannelSource(), nil
	}

	track, err := geo.LoadTrackFile(cfg.TrackPath)
	if err != nil {
		return nil, err
	}

	opts := []geo.ReplayOption{geo.WithInterval(cfg.TrackInterval())}
	if cfg.TrackLoop {
		opts = append(opts, geo.WithLoop())
	}
	logger.Info("Replaying GPS track", zap.String("path", cfg.TrackPath), zap.Int("fixes", len(track)))
	return geo.NewReplaySource(track, opts...), nil
}
