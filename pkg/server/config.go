package server

import (
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/hashtree-labs/merkle-engine-go/pkg/hasher"
)

// Environment variable names for the proof service configuration
const (
	EnvPort          = "MERKLE_PORT"
	EnvStoreType     = "MERKLE_STORE"
	EnvBadgerPath    = "MERKLE_BADGER_PATH"
	EnvRedisAddress  = "MERKLE_REDIS_ADDRESS"
	EnvRedisPassword = "MERKLE_REDIS_PASSWORD"
	EnvRedisDB       = "MERKLE_REDIS_DB"
	EnvDefaultHash   = "MERKLE_DEFAULT_HASH"
	EnvVerbose       = "MERKLE_VERBOSE"
)

// Store backend names accepted by the service.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
	StoreRedis  = "redis"
)

// Config holds the proof service configuration, populated from CLI flags and
// environment variables by cmd/merkle-server.
type Config struct {
	// Port is the HTTP listen port.
	Port int

	// StoreType selects the snapshot backend: memory, badger or redis.
	StoreType string

	// BadgerPath is the on-disk database directory (badger store only).
	BadgerPath string

	// RedisAddress is the host:port of the Redis server (redis store only).
	RedisAddress string

	// RedisPassword is the optional Redis password.
	RedisPassword string

	// RedisDB is the Redis database number.
	RedisDB int

	// DefaultHash names the combining function used when a build request
	// doesn't specify one.
	DefaultHash string

	// RateLimit is the sustained proof-request rate per second; RateBurst is
	// the burst allowance. Zero disables limiting.
	RateLimit float64
	RateBurst int

	// Debug enables verbose logging.
	Debug bool
}

// DefaultConfig returns a config suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Port:        8080,
		StoreType:   StoreMemory,
		DefaultHash: "keccak256",
		RateLimit:   100,
		RateBurst:   200,
	}
}

// Validate checks the configuration and reports all problems at once.
func (c *Config) Validate() error {
	var errs field.ErrorList
	root := field.NewPath("config")

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, field.Invalid(root.Child("port"), c.Port, "must be between 1 and 65535"))
	}

	switch c.StoreType {
	case StoreMemory, StoreRedis:
	case StoreBadger:
		if c.BadgerPath == "" {
			errs = append(errs, field.Required(root.Child("badgerPath"), "required for the badger store"))
		}
	default:
		errs = append(errs, field.NotSupported(root.Child("store"), c.StoreType,
			[]string{StoreMemory, StoreBadger, StoreRedis}))
	}

	if c.StoreType == StoreRedis && c.RedisAddress == "" {
		errs = append(errs, field.Required(root.Child("redisAddress"), "required for the redis store"))
	}

	if _, err := hasher.ByName(c.DefaultHash); err != nil {
		errs = append(errs, field.NotSupported(root.Child("defaultHash"), c.DefaultHash, hasher.Names()))
	}

	if c.RateLimit < 0 {
		errs = append(errs, field.Invalid(root.Child("rateLimit"), c.RateLimit, "must not be negative"))
	}

	if len(errs) > 0 {
		return errs.ToAggregate()
	}
	return nil
}
