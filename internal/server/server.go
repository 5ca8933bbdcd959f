package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ahmednader515/alkian/internal/access"
	"github.com/ahmednader515/alkian/internal/api"
	"github.com/ahmednader515/alkian/internal/attempt"
	"github.com/ahmednader515/alkian/internal/auth"
	"github.com/ahmednader515/alkian/internal/catalog"
	"github.com/ahmednader515/alkian/internal/course"
	"github.com/ahmednader515/alkian/internal/db"
	"github.com/ahmednader515/alkian/internal/event"
	"github.com/ahmednader515/alkian/internal/progress"
	"github.com/ahmednader515/alkian/internal/purchase"
	"github.com/ahmednader515/alkian/internal/result"
	"github.com/ahmednader515/alkian/internal/telemetry"
)

const serviceName = "alkian"

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Database struct {
		Driver db.Driver
		DSN    string
	}

	// Empty Addrs disable the client.
	Redis struct {
		Cache struct {
			Addrs  []string
			Pass   string
			Prefix string
			TTL    time.Duration
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Auth struct {
		Secret string
	}

	Log struct {
		Level  string
		Format string
		File   string
	}

	CORS struct {
		Origins []string
	}
}

// Defaults returns the config values used when neither file nor env set them.
func Defaults() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 9090
	c.Database.Driver = db.DriverSQLite
	c.Database.DSN = "file:alkian.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	c.Redis.Cache.Prefix = serviceName
	c.Redis.Cache.TTL = time.Minute
	c.Redis.Pubsub.Prefix = serviceName
	c.Log.Level = "info"
	c.Log.Format = "json"
	return c
}

type Server struct {
	c Config

	eb      *event.Bus
	metrics *telemetry.Metrics

	infra struct {
		db *sql.DB

		redis struct {
			cache  redis.UniversalClient
			pubsub redis.UniversalClient
		}
	}

	service struct {
		auth     *auth.Service
		catalog  *catalog.Service
		purchase *purchase.Service
		guard    *access.Guard
		course   *course.Service
		progress *progress.Service
		attempt  *attempt.Service
		result   *result.Service
	}

	http   *http.Server
	grpc   *grpc.Server
	health *health.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	telemetry.SetupLogger(telemetry.LogConfig{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		File:   c.Log.File,
	})

	s.eb = event.NewBus()
	s.metrics = telemetry.NewMetrics(prometheus.DefaultRegisterer)
	s.metrics.Subscribe(s.eb)

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initDB(); err != nil {
		return fmt.Errorf("db: %w", err)
	}

	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	return nil
}

func (s *Server) initDB() (err error) {
	s.infra.db, err = db.Open(context.Background(), db.Config{
		Driver: s.c.Database.Driver,
		DSN:    s.c.Database.DSN,
	})
	return err
}

func (s *Server) initRedis() error {
	connect := func(name string, addrs []string, pass string) (redis.UniversalClient, error) {
		if len(addrs) == 0 {
			slog.Warn(fmt.Sprintf("server: redis %s disabled", name))
			return nil, nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r, name); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.cache, err = connect("cache", s.c.Redis.Cache.Addrs, s.c.Redis.Cache.Pass)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	s.infra.redis.pubsub, err = connect("pubsub", s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initService() {
	s.service.auth = auth.NewService(auth.Config{
		Secret: s.c.Auth.Secret,
	})

	s.service.catalog = catalog.NewService(catalog.Config{
		DB:     s.infra.db,
		Redis:  s.infra.redis.cache,
		Prefix: s.c.Redis.Cache.Prefix,
		TTL:    s.c.Redis.Cache.TTL,
	})

	s.service.purchase = purchase.NewService(purchase.Config{
		DB: s.infra.db,
	})

	s.service.guard = access.NewGuard(access.GuardConfig{
		Catalog:   s.service.catalog,
		Purchases: s.service.purchase,
	})

	s.service.progress = progress.NewService(progress.Config{
		DB:       s.infra.db,
		EventBus: s.eb,
		Catalog:  s.service.catalog,
		Guard:    s.service.guard,
	})

	s.service.course = course.NewService(course.Config{
		Catalog:  s.service.catalog,
		Guard:    s.service.guard,
		Progress: s.service.progress,
	})

	s.service.attempt = attempt.NewService(attempt.Config{
		DB:       s.infra.db,
		EventBus: s.eb,
		Catalog:  s.service.catalog,
		Guard:    s.service.guard,
	})

	s.service.result = result.NewService(result.Config{
		DB:      s.infra.db,
		Catalog: s.service.catalog,
		Guard:   s.service.guard,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	e.GET("/healthz", s.healthz)
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())
	e.Use(otelgin.Middleware(serviceName))
	if len(s.c.CORS.Origins) > 0 {
		e.Use(cors.New(cors.Config{
			AllowOrigins:     s.c.CORS.Origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptor())
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)

	api.New(api.Config{
		Router:       e,
		EventBus:     s.eb,
		Auth:         s.service.auth,
		Course:       s.service.course,
		Progress:     s.service.progress,
		Attempt:      s.service.attempt,
		Result:       s.service.result,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.infra.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start() {
	ctx := context.TODO()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	for name, r := range map[string]redis.UniversalClient{"cache": s.infra.redis.cache, "pubsub": s.infra.redis.pubsub} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "client", name, "error", err)
		}
	}

	if err := s.infra.db.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close db failed", "error", err)
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
