// Command console-devserver runs the development console backend.
//
// It serves the auth and system endpoints on a seeded SQLite directory and
// keeps refresh sessions in Redis. Without -redis-addr (or REDIS_ADDR) an
// embedded miniredis is used, so no external service is needed:
//
//	go run ./cmd/console-devserver -addr :8080
//	consolectl --base-url http://127.0.0.1:8080/api -u admin -p 'Admin@123' info
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/consoleauth/internal/mockapi"
	"github.com/MrEthical07/consoleauth/jwt"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "listen address")
		dbPath      = flag.String("db", ":memory:", "SQLite database path")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		jwtKey      = flag.String("jwt-key", "", "HS256 signing key; if empty, CONSOLE_JWT_KEY env or a random key is used")
		accessTTL   = flag.Duration("access-ttl", 15*time.Minute, "access token lifetime")
		prefix      = flag.String("prefix", "/api", "API route prefix")
		jwtOnly     = flag.Bool("jwt-only", false, "validate access tokens without a session lookup")
		noDev       = flag.Bool("no-dev-endpoints", false, "disable the /__dev fault injection endpoints")
		corsEnabled = flag.Bool("cors", true, "reflect the request Origin with credentials")
		logLevel    = flag.String("log-level", "info", "debug, info, warn or error")
	)
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q\n", *logLevel)
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if err := run(logger, options{
		addr:      *addr,
		dbPath:    *dbPath,
		redisAddr: *redisAddr,
		jwtKey:    *jwtKey,
		accessTTL: *accessTTL,
		prefix:    *prefix,
		jwtOnly:   *jwtOnly,
		noDev:     *noDev,
		cors:      *corsEnabled,
	}); err != nil {
		logger.Error("devserver stopped", "error", err)
		os.Exit(1)
	}
}

type options struct {
	addr      string
	dbPath    string
	redisAddr string
	jwtKey    string
	accessTTL time.Duration
	prefix    string
	jwtOnly   bool
	noDev     bool
	cors      bool
}

func run(logger *slog.Logger, opts options) error {
	ctx := context.Background()

	rdb, cleanup, err := openRedis(logger, opts.redisAddr)
	if err != nil {
		return err
	}
	defer cleanup()

	dir, err := mockapi.OpenDirectory(opts.dbPath)
	if err != nil {
		return fmt.Errorf("open directory: %w", err)
	}
	defer dir.Close()

	key, err := signingKey(logger, opts.jwtKey)
	if err != nil {
		return err
	}
	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     opts.accessTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    key,
		Issuer:        "console-devserver",
	})
	if err != nil {
		return fmt.Errorf("jwt manager: %w", err)
	}

	cfg := mockapi.DefaultConfig()
	cfg.Prefix = opts.prefix
	cfg.StrictSessions = !opts.jwtOnly
	cfg.EnableDevEndpoints = !opts.noDev

	srv, err := mockapi.New(ctx, cfg, mockapi.Deps{
		Directory: dir,
		Redis:     rdb,
		Tokens:    tokens,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	acc := mockapi.DefaultSeedAccounts()
	if err := srv.Seed(ctx, acc); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	handler := srv.Router()
	if opts.cors {
		handler = mockapi.WithCORS(handler)
	}
	httpServer := &http.Server{
		Addr:              opts.addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			"addr", opts.addr,
			"prefix", opts.prefix,
			"strict_sessions", cfg.StrictSessions,
			"admin_account", acc.AdminAccount,
			"viewer_account", acc.ViewerAccount,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openRedis(logger *slog.Logger, addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		logger.Info("using miniredis", "addr", mr.Addr())
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	logger.Info("using redis", "addr", addr)
	return client, func() { _ = client.Close() }, nil
}

func signingKey(logger *slog.Logger, key string) ([]byte, error) {
	if key == "" {
		key = os.Getenv("CONSOLE_JWT_KEY")
	}
	if key != "" {
		if len(key) < 32 {
			return nil, errors.New("jwt key must be at least 32 bytes")
		}
		return []byte(key), nil
	}
	out := make([]byte, 32)
	if _, err := rand.Read(out); err != nil {
		return nil, err
	}
	logger.Warn("using a random jwt key; tokens will not survive a restart")
	return out, nil
}
