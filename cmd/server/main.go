// Command server starts the VidTube API HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"vidtube/internal/api"
	"vidtube/internal/auth"
	"vidtube/internal/media"
	"vidtube/internal/observability/logging"
	"vidtube/internal/observability/metrics"
	"vidtube/internal/server"
	"vidtube/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	dataPath := flag.String("data", "", "path to JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "interval between Postgres health checks")
	postgresConnectTimeout := flag.Duration("postgres-connect-timeout", 0, "timeout when opening a Postgres connection")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	sessionStoreDriver := flag.String("session-store", "", "session store driver (memory, postgres, or redis)")
	sessionPostgresDSN := flag.String("session-postgres-dsn", "", "Postgres DSN for the session store")
	sessionRedisAddr := flag.String("session-redis-addr", "", "Redis address for the session store")
	sessionRedisUsername := flag.String("session-redis-username", "", "Redis username for the session store")
	sessionRedisPassword := flag.String("session-redis-password", "", "Redis password for the session store")
	sessionRedisDB := flag.Int("session-redis-db", 0, "Redis database index for the session store")
	sessionTTL := flag.Duration("session-ttl", 0, "lifetime of an authenticated session")
	sessionIdleTimeout := flag.Duration("session-idle-timeout", 0, "idle timeout after which a session expires early")
	sessionPurgeInterval := flag.Duration("session-purge-interval", 0, "interval between expired session sweeps")
	mediaDir := flag.String("media-dir", "", "directory for uploaded videos and images")
	mediaPrefix := flag.String("media-url-prefix", "", "URL prefix the media directory is served under")
	mode := flag.String("mode", "", "server runtime mode (development or production)")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	corsOrigins := flag.String("cors-allowed-origins", "", "comma separated origins allowed to call the API")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting login attempts")
	redisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	redisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	redisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for Redis operations")
	flag.Parse()

	logger := logging.New(logging.Config{Level: firstNonEmpty(*logLevel, os.Getenv("VIDTUBE_LOG_LEVEL"))})
	auditLogger := logging.WithComponent(logger, "audit")
	recorder := metrics.Default()

	serverMode := modeValue(*mode, os.Getenv("VIDTUBE_MODE"))
	listenAddr := resolveListenAddr(*addr, serverMode, os.Getenv("VIDTUBE_ADDR"))

	tlsCertPath := firstNonEmpty(*tlsCert, os.Getenv("VIDTUBE_TLS_CERT"))
	tlsKeyPath := firstNonEmpty(*tlsKey, os.Getenv("VIDTUBE_TLS_KEY"))

	postgresDefaultDSN := resolvePostgresDSN(*postgresDSN)
	driver, err := resolveStorageDriver(*storageDriver, os.Getenv("VIDTUBE_STORAGE_DRIVER"), postgresDefaultDSN)
	if err != nil {
		logger.Error("failed to resolve storage driver", "error", err)
		os.Exit(1)
	}
	if serverMode == "production" {
		if err := validateProductionDatastore(driver, postgresDefaultDSN); err != nil {
			logger.Error("production datastore validation failed", "error", err)
			os.Exit(1)
		}
	}

	var (
		store              storage.Repository
		storagePostgresDSN string
	)
	switch driver {
	case "json":
		dataFile := resolveDataPath(*dataPath, os.Getenv("VIDTUBE_DATA"))
		store, err = storage.NewStorage(dataFile)
	case "postgres":
		storagePostgresDSN = postgresDefaultDSN
		if storagePostgresDSN == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		pgCfg := storage.PostgresConfig{
			DSN:                 storagePostgresDSN,
			MaxConnections:      int32(resolveInt(*postgresMaxConns, "VIDTUBE_POSTGRES_MAX_CONNS")),
			MinConnections:      int32(resolveInt(*postgresMinConns, "VIDTUBE_POSTGRES_MIN_CONNS")),
			MaxConnLifetime:     resolveDuration(*postgresMaxConnLifetime, "VIDTUBE_POSTGRES_MAX_CONN_LIFETIME", 0),
			MaxConnIdleTime:     resolveDuration(*postgresMaxConnIdle, "VIDTUBE_POSTGRES_MAX_CONN_IDLE", 0),
			HealthCheckInterval: resolveDuration(*postgresHealthInterval, "VIDTUBE_POSTGRES_HEALTH_INTERVAL", 0),
			ConnectTimeout:      resolveDuration(*postgresConnectTimeout, "VIDTUBE_POSTGRES_CONNECT_TIMEOUT", 0),
			ApplicationName:     firstNonEmpty(*postgresAppName, os.Getenv("VIDTUBE_POSTGRES_APP_NAME")),
		}
		var repo *storage.PostgresRepository
		repo, err = storage.NewPostgresRepository(pgCfg)
		if err == nil {
			migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err = repo.Migrate(migrateCtx)
			cancel()
			if err != nil {
				err = fmt.Errorf("run migrations: %w", err)
			}
		}
		store = repo
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	sessionConfig, err := resolveSessionStoreConfig(
		*sessionStoreDriver,
		os.Getenv("VIDTUBE_SESSION_STORE"),
		driver,
		storagePostgresDSN,
		*sessionPostgresDSN,
		os.Getenv("VIDTUBE_SESSION_POSTGRES_DSN"),
		firstNonEmpty(*sessionRedisAddr, os.Getenv("VIDTUBE_SESSION_REDIS_ADDR")),
	)
	if err != nil {
		logger.Error("failed to resolve session store", "error", err)
		os.Exit(1)
	}

	var (
		sessionStore  auth.SessionStore
		sessionCloser func() error
	)
	switch sessionConfig.Driver {
	case "memory":
		sessionStore = auth.NewMemorySessionStore()
	case "postgres":
		pgStore, err := auth.NewPostgresSessionStore(sessionConfig.DSN)
		if err != nil {
			logger.Error("failed to open session store", "error", err)
			os.Exit(1)
		}
		sessionStore = pgStore
		sessionCloser = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return pgStore.Close(ctx)
		}
	case "redis":
		redisStore, err := auth.NewRedisSessionStore(auth.RedisSessionConfig{
			Addr:     sessionConfig.RedisAddr,
			Username: firstNonEmpty(*sessionRedisUsername, os.Getenv("VIDTUBE_SESSION_REDIS_USERNAME")),
			Password: firstNonEmpty(*sessionRedisPassword, os.Getenv("VIDTUBE_SESSION_REDIS_PASSWORD")),
			DB:       resolveInt(*sessionRedisDB, "VIDTUBE_SESSION_REDIS_DB"),
		})
		if err != nil {
			logger.Error("failed to open session store", "error", err)
			os.Exit(1)
		}
		sessionStore = redisStore
		sessionCloser = redisStore.Close
	default:
		logger.Error("unsupported session store driver", "driver", sessionConfig.Driver)
		os.Exit(1)
	}

	sessionOpts := []auth.SessionOption{auth.WithStore(sessionStore)}
	if idle := resolveDuration(*sessionIdleTimeout, "VIDTUBE_SESSION_IDLE_TIMEOUT", 0); idle > 0 {
		sessionOpts = append(sessionOpts, auth.WithIdleTimeout(idle))
	}
	ttl := resolveDuration(*sessionTTL, "VIDTUBE_SESSION_TTL", 24*time.Hour)
	sessions := auth.NewSessionManager(ttl, sessionOpts...)

	mediaRoot := resolveMediaDir(*mediaDir, os.Getenv("VIDTUBE_MEDIA_DIR"))
	library, err := media.NewLibrary(mediaRoot, firstNonEmpty(*mediaPrefix, os.Getenv("VIDTUBE_MEDIA_URL_PREFIX"), "/media"))
	if err != nil {
		logger.Error("failed to open media library", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(store, sessions, library)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	purgeInterval := resolveDuration(*sessionPurgeInterval, "VIDTUBE_SESSION_PURGE_INTERVAL", 15*time.Minute)
	sessionPurgeStop := startSessionPurgeWorker(workerCtx, logging.WithComponent(logger, "session-purger"), sessions, purgeInterval)
	defer sessionPurgeStop()

	rateCfg := server.RateLimitConfig{
		GlobalRPS:     resolveFloat(*globalRPS, "VIDTUBE_RATE_GLOBAL_RPS"),
		GlobalBurst:   resolveInt(*globalBurst, "VIDTUBE_RATE_GLOBAL_BURST"),
		LoginLimit:    resolveInt(*loginLimit, "VIDTUBE_RATE_LOGIN_LIMIT"),
		LoginWindow:   resolveDuration(*loginWindow, "VIDTUBE_RATE_LOGIN_WINDOW", time.Minute),
		RedisAddr:     firstNonEmpty(*redisAddr, os.Getenv("VIDTUBE_RATE_REDIS_ADDR")),
		RedisPassword: firstNonEmpty(*redisPassword, os.Getenv("VIDTUBE_RATE_REDIS_PASSWORD")),
		RedisTimeout:  resolveDuration(*redisTimeout, "VIDTUBE_RATE_REDIS_TIMEOUT", 2*time.Second),
	}

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: tlsCertPath,
			KeyFile:  tlsKeyPath,
		},
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("VIDTUBE_CORS_ALLOWED_ORIGINS"))),
		},
		RateLimit:   rateCfg,
		Logger:      logger,
		AuditLogger: auditLogger,
		Metrics:     recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("VidTube API listening", "addr", listenAddr, "mode", serverMode, "storage", driver, "sessions", sessionConfig.Driver)
	if tlsCertPath != "" && tlsKeyPath != "" {
		logger.Info("TLS enabled", "cert_file", tlsCertPath)
	}
	logger.Info("metrics endpoint available", "path", "/metrics")

	if err := srv.Run(runCtx, nil); err != nil {
		logger.Error("server error", "error", err)
	}

	workerCancel()
	sessionPurgeStop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if closer, ok := store.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(ctx); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	} else if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	}

	if sessionCloser != nil {
		if err := sessionCloser(); err != nil {
			logger.Warn("failed to close session store", "error", err)
		}
	}

	logger.Info("server stopped")
}

type sessionStoreConfig struct {
	Driver    string
	DSN       string
	RedisAddr string
}

func resolveSessionStoreConfig(flagDriver, envDriver, storageDriver, storageDSN, flagDSN, envDSN, redisAddr string) (sessionStoreConfig, error) {
	driver := strings.ToLower(strings.TrimSpace(flagDriver))
	if driver == "" {
		driver = strings.ToLower(strings.TrimSpace(envDriver))
	}

	sessionDSN := strings.TrimSpace(firstNonEmpty(flagDSN, envDSN))
	if driver == "" {
		switch {
		case strings.TrimSpace(redisAddr) != "":
			driver = "redis"
		case sessionDSN != "":
			driver = "postgres"
		case storageDriver == "postgres":
			driver = "postgres"
		default:
			driver = "memory"
		}
	}

	switch driver {
	case "", "memory":
		return sessionStoreConfig{Driver: "memory"}, nil
	case "postgres":
		if sessionDSN == "" {
			sessionDSN = strings.TrimSpace(storageDSN)
		}
		if sessionDSN == "" {
			return sessionStoreConfig{}, fmt.Errorf("postgres session store selected without DSN")
		}
		return sessionStoreConfig{Driver: "postgres", DSN: sessionDSN}, nil
	case "redis":
		addr := strings.TrimSpace(redisAddr)
		if addr == "" {
			return sessionStoreConfig{}, fmt.Errorf("redis session store selected without address")
		}
		return sessionStoreConfig{Driver: "redis", RedisAddr: addr}, nil
	default:
		return sessionStoreConfig{}, fmt.Errorf("unsupported session store driver %q", driver)
	}
}

func resolveListenAddr(flagValue, mode, envAddr string) string {
	listenAddr := strings.TrimSpace(flagValue)
	if listenAddr == "" {
		listenAddr = strings.TrimSpace(envAddr)
	}
	if listenAddr == "" {
		listenAddr = defaultListenForMode(mode)
	}
	return listenAddr
}

func modeValue(flagMode, envMode string) string {
	mode := strings.ToLower(strings.TrimSpace(flagMode))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(envMode))
	}
	if mode == "" {
		mode = "development"
	}
	return mode
}

func defaultListenForMode(mode string) string {
	if mode == "production" {
		return ":80"
	}
	return ":8080"
}

func resolveStorageDriver(flagValue, envValue, postgresDSN string) (string, error) {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver, nil
	}
	if driver := strings.ToLower(strings.TrimSpace(envValue)); driver != "" {
		return driver, nil
	}
	if strings.TrimSpace(postgresDSN) != "" {
		return "postgres", nil
	}
	return "json", nil
}

func validateProductionDatastore(driver, resolvedPostgresDSN string) error {
	if driver != "postgres" {
		return fmt.Errorf("production mode requires the postgres datastore driver, got %q", driver)
	}
	if strings.TrimSpace(resolvedPostgresDSN) == "" {
		return fmt.Errorf("postgres storage selected without DSN")
	}
	return nil
}

func resolveDataPath(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(envValue); env != "" {
		return env
	}
	return "data/store.json"
}

func resolveMediaDir(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(envValue); env != "" {
		return env
	}
	return "data/media"
}

func resolvePostgresDSN(flagValue string) string {
	return strings.TrimSpace(firstNonEmpty(flagValue, os.Getenv("VIDTUBE_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	if fallback > 0 {
		return fallback
	}
	return 0
}
