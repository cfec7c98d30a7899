package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hashtree-labs/merkle-engine-go/pkg/logger"
	"github.com/hashtree-labs/merkle-engine-go/pkg/server"
	"github.com/hashtree-labs/merkle-engine-go/pkg/treestore"
	badgerstore "github.com/hashtree-labs/merkle-engine-go/pkg/treestore/badger"
	"github.com/hashtree-labs/merkle-engine-go/pkg/treestore/memory"
	redisstore "github.com/hashtree-labs/merkle-engine-go/pkg/treestore/redis"
)

func main() {
	app := &cli.App{
		Name:  "merkle-server",
		Usage: "HTTP proof service for the merkle engine",
		Description: `Builds merkle trees over client-supplied leaf sequences, archives them
by root, and serves inclusion and exclusion proofs.

Endpoints:
  POST /trees     - build and archive a tree
  GET  /roots     - list archived roots
  GET  /proof     - inclusion proof by root + index|leaf
  GET  /exclusion - non-membership proof by root + target
  POST /verify    - static proof verification
  GET  /healthz   - service health`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   8080,
				Usage:   "HTTP server port",
				EnvVars: []string{server.EnvPort},
			},
			&cli.StringFlag{
				Name:    "store",
				Value:   server.StoreMemory,
				Usage:   "snapshot store backend: memory, badger or redis",
				EnvVars: []string{server.EnvStoreType},
			},
			&cli.StringFlag{
				Name:    "badger-path",
				Usage:   "data directory for the badger store",
				EnvVars: []string{server.EnvBadgerPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "host:port of the redis server",
				EnvVars: []string{server.EnvRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "optional redis password",
				EnvVars: []string{server.EnvRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "redis database number",
				EnvVars: []string{server.EnvRedisDB},
			},
			&cli.StringFlag{
				Name:    "hash",
				Value:   "keccak256",
				Usage:   "default combining function for build requests",
				EnvVars: []string{server.EnvDefaultHash},
			},
			&cli.Float64Flag{
				Name:  "rate-limit",
				Value: 100,
				Usage: "sustained proof requests per second (0 disables limiting)",
			},
			&cli.IntFlag{
				Name:  "rate-burst",
				Value: 200,
				Usage: "proof request burst allowance",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "enable verbose logging",
				EnvVars: []string{server.EnvVerbose},
			},
		},
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runServer(c *cli.Context) error {
	config := &server.Config{
		Port:          c.Int("port"),
		StoreType:     c.String("store"),
		BadgerPath:    c.String("badger-path"),
		RedisAddress:  c.String("redis-address"),
		RedisPassword: c.String("redis-password"),
		RedisDB:       c.Int("redis-db"),
		DefaultHash:   c.String("hash"),
		RateLimit:     c.Float64("rate-limit"),
		RateBurst:     c.Int("rate-burst"),
		Debug:         c.Bool("verbose"),
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	zapLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: config.Debug})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	store, err := newStore(config, zapLogger)
	if err != nil {
		return fmt.Errorf("failed to open tree store: %w", err)
	}
	defer func() { _ = store.Close() }()

	srv, err := server.NewServer(config, store, zapLogger)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	// Block until interrupted, then drain in-flight requests.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	zapLogger.Sugar().Info("Shutting down proof service")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

func newStore(config *server.Config, zapLogger *zap.Logger) (treestore.ITreeStore, error) {
	switch config.StoreType {
	case server.StoreMemory:
		return memory.NewMemoryStore(), nil
	case server.StoreBadger:
		return badgerstore.NewBadgerStore(config.BadgerPath, zapLogger)
	case server.StoreRedis:
		return redisstore.NewRedisStore(&redisstore.RedisConfig{
			Address:  config.RedisAddress,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		}, zapLogger)
	default:
		return nil, fmt.Errorf("unknown store type %q", config.StoreType)
	}
}
