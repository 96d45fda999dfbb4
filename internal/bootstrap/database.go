package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/akmalstorm/stdcalumni/config"
	"github.com/akmalstorm/stdcalumni/internal/data"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

const (
	applicationName = "alumnigate"
	connectTimeout  = 5 * time.Second
)

// redisMode selects which go-redis client backs the record store.
type redisMode string

const (
	redisDirect   redisMode = "direct"
	redisSentinel redisMode = "sentinel"
	redisCluster  redisMode = "cluster"
)

// OpenPostgres opens a database/sql handle over the pgx driver and verifies it.
func OpenPostgres(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*sql.DB, error) {
	connCfg, err := postgresConnConfig(cfg)
	if err != nil {
		return nil, err
	}
	db := stdlib.OpenDB(*connCfg)

	// Session records are tiny; a small pool covers the request fan-out.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if pingErr := pingWithin(ctx, db.PingContext); pingErr != nil {
		return nil, errors.Join(fmt.Errorf("ping database: %w", pingErr), db.Close())
	}

	if logger != nil {
		logger.InfoContext(ctx, "database connected",
			"host", connCfg.Host,
			"port", connCfg.Port,
			"database", connCfg.Database)
	}
	return db, nil
}

func postgresConnConfig(cfg config.DBConfig) (*pgx.ConnConfig, error) {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	connCfg, err := pgx.ParseConfig(u.String())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if connCfg.RuntimeParams == nil {
		connCfg.RuntimeParams = map[string]string{}
	}
	connCfg.RuntimeParams["application_name"] = applicationName
	return connCfg, nil
}

// OpenRedis builds the direct, sentinel or cluster client REDIS_* selects and verifies it.
//
//nolint:ireturn // the concrete client depends on the configured topology.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	opts, mode, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := newRedisClient(opts, mode)

	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	if pingErr := pingWithin(ctx, ping); pingErr != nil {
		return nil, errors.Join(fmt.Errorf("ping redis: %w", pingErr), client.Close())
	}

	if logger != nil {
		// Addrs never carry credentials, URL forms are parsed apart in redisOptions.
		logger.InfoContext(ctx, "redis connected",
			"mode", string(mode),
			"addrs", strings.Join(opts.Addrs, ","))
	}
	return client, nil
}

func redisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, redisMode, error) {
	opts := &redis.UniversalOptions{
		ClientName: applicationName,
		Password:   cfg.Password,
		DB:         cfg.DB,
	}

	switch {
	case cfg.UseCluster:
		opts.Addrs = nonEmpty(cfg.ClusterNodes)
		if len(opts.Addrs) == 0 && strings.TrimSpace(cfg.URI) != "" {
			if err := applyRedisURI(opts, cfg.URI); err != nil {
				return nil, "", fmt.Errorf("redis cluster: %w", err)
			}
		}
		if len(opts.Addrs) == 0 {
			return nil, "", errors.New("redis cluster configuration requires at least one address")
		}
		return opts, redisCluster, nil

	case cfg.UseSentinel:
		opts.Addrs = nonEmpty(cfg.SentinelNodes)
		if len(opts.Addrs) == 0 {
			return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
		}
		if cfg.SentinelMasterName == "" {
			return nil, "", errors.New("redis sentinel configuration requires a master name")
		}
		opts.MasterName = cfg.SentinelMasterName
		opts.SentinelPassword = cfg.SentinelPassword
		return opts, redisSentinel, nil

	default:
		if strings.TrimSpace(cfg.URI) == "" {
			return nil, "", errors.New("redis direct configuration requires a URI")
		}
		if err := applyRedisURI(opts, cfg.URI); err != nil {
			return nil, "", err
		}
		return opts, redisDirect, nil
	}
}

// applyRedisURI accepts redis:// and rediss:// URLs or a bare host:port.
// Values in the URL win over REDIS_PASSWORD and REDIS_DB when present.
func applyRedisURI(opts *redis.UniversalOptions, raw string) error {
	uri := strings.TrimSpace(raw)
	if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
		opts.Addrs = []string{uri}
		return nil
	}

	parsed, err := redis.ParseURL(uri)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	opts.Addrs = []string{parsed.Addr}
	opts.TLSConfig = parsed.TLSConfig
	if parsed.Username != "" {
		opts.Username = parsed.Username
	}
	if parsed.Password != "" {
		opts.Password = parsed.Password
	}
	if parsed.DB != 0 {
		opts.DB = parsed.DB
	}
	return nil
}

//nolint:ireturn // the concrete client depends on the configured topology.
func newRedisClient(opts *redis.UniversalOptions, mode redisMode) redis.UniversalClient {
	switch mode {
	case redisCluster:
		return redis.NewClusterClient(opts.Cluster())
	case redisSentinel:
		return redis.NewFailoverClient(opts.Failover())
	default:
		return redis.NewClient(opts.Simple())
	}
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func pingWithin(ctx context.Context, ping func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return ping(ctx)
}

// ApplySessionSchema creates or upgrades the session_records schema.
func ApplySessionSchema(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := data.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("apply session schema: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "session schema is up to date")
	}
	return nil
}

// Infrastructure holds the connections the configured session backend needs.
// Either field may be nil.
type Infrastructure struct {
	DB    *sql.DB
	Redis redis.UniversalClient
}

// Close releases every open connection.
func (i Infrastructure) Close() error {
	var closeErr error
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close database: %w", err))
		}
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close redis: %w", err))
		}
	}
	return closeErr
}

// ConnectInfrastructure opens only the stores SESSION_BACKEND requires and
// applies the session schema when Postgres is used with DB_ENSURE_SCHEMA.
func ConnectInfrastructure(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (Infrastructure, error) {
	var infra Infrastructure

	if cfg.NeedsPostgres() {
		db, err := OpenPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return Infrastructure{}, fmt.Errorf("connect db: %w", err)
		}
		infra.DB = db

		if cfg.Postgres.EnsureSchema {
			if err = ApplySessionSchema(ctx, db, logger); err != nil {
				return Infrastructure{}, errors.Join(err, infra.Close())
			}
		} else if logger != nil {
			logger.InfoContext(ctx, "skipping session schema migrations", "reason", "disabled via config")
		}
	}

	if cfg.NeedsRedis() {
		client, err := OpenRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return Infrastructure{}, errors.Join(fmt.Errorf("connect redis: %w", err), infra.Close())
		}
		infra.Redis = client
	}

	return infra, nil
}
