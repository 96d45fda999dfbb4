package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/akmalstorm/stdcalumni/config"
	"github.com/akmalstorm/stdcalumni/internal/adapters/memory"
	redisstore "github.com/akmalstorm/stdcalumni/internal/adapters/redis"
	"github.com/akmalstorm/stdcalumni/internal/data"
	"github.com/akmalstorm/stdcalumni/internal/ports"
	"github.com/redis/go-redis/v9"
)

// RecordStoreDeps groups the connections a record store may be built on.
type RecordStoreDeps struct {
	Session     config.SessionConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// RecordStores is the persistence selected by SESSION_BACKEND.
type RecordStores struct {
	Records ports.RecordStore
	// Purger is set only for backends without native expiry.
	Purger ports.RecordPurger
	// Ping checks the backing store for the readiness check. Nil for memory.
	Ping func(ctx context.Context) error
}

// BuildRecordStore selects and constructs the session record store.
func BuildRecordStore(deps RecordStoreDeps) (RecordStores, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch deps.Session.Backend {
	case config.BackendRedis:
		if deps.RedisClient == nil {
			return RecordStores{}, errors.New("redis session backend requires a redis client")
		}
		logger.Info("session records stored in redis", "key_prefix", deps.Session.KeyPrefix)
		client := deps.RedisClient
		return RecordStores{
			Records: redisstore.NewRecordStore(client, redisstore.RecordStoreOptions{
				Prefix: deps.Session.KeyPrefix,
				TTL:    deps.Session.RecordTTL,
			}),
			Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		}, nil

	case config.BackendPostgres:
		if deps.DB == nil {
			return RecordStores{}, errors.New("postgres session backend requires a database connection")
		}
		logger.Info("session records stored in postgres")
		repo := data.NewSessionRecordRepo(deps.DB, deps.Session.RecordTTL)
		return RecordStores{Records: repo, Purger: repo, Ping: deps.DB.PingContext}, nil

	case config.BackendMemory:
		logger.Warn("session records stored in memory; sessions will not survive a restart")
		return RecordStores{Records: memory.NewRecordStore()}, nil

	default:
		return RecordStores{}, fmt.Errorf("unsupported session backend %q", deps.Session.Backend)
	}
}
