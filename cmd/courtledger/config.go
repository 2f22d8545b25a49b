package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/courtledger/internal/httpapi"
	"github.com/MarkoPoloResearchLab/courtledger/internal/reconcile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagDatabaseURL       = "database-url"
	flagDBMaxOpenConns    = "db-max-open-conns"
	flagSQLiteBusyTimeout = "sqlite-busy-timeout"
	flagGRPCListenAddr    = "grpc-listen-addr"
	flagHTTPListenAddr    = "http-listen-addr"
	flagAllowedOrigins    = "allowed-origins"
	flagRedisAddr         = "redis-addr"
	flagRedisPassword     = "redis-password"
	flagRedisDB           = "redis-db"
	flagRedisKeyPrefix    = "redis-key-prefix"
	flagAMQPURL           = "amqp-url"
	flagAMQPExchange      = "amqp-exchange"
	flagReconcileSchedule = "reconcile-schedule"
	flagDriftEpsilon      = "drift-epsilon"
	flagRequestTimeout    = "request-timeout"

	configKeyDatabaseURL       = "database_url"
	configKeyDBMaxOpenConns    = "db_max_open_conns"
	configKeySQLiteBusyTimeout = "sqlite_busy_timeout"
	configKeyGRPCListenAddr    = "grpc_listen_addr"
	configKeyHTTPListenAddr    = "http_listen_addr"
	configKeyAllowedOrigins    = "allowed_origins"
	configKeyRedisAddr         = "redis_addr"
	configKeyRedisPassword     = "redis_password"
	configKeyRedisDB           = "redis_db"
	configKeyRedisKeyPrefix    = "redis_key_prefix"
	configKeyAMQPURL           = "amqp_url"
	configKeyAMQPExchange      = "amqp_exchange"
	configKeyReconcileSchedule = "reconcile_schedule"
	configKeyDriftEpsilon      = "drift_epsilon"
	configKeyRequestTimeout    = "request_timeout"

	envPrefix             = "COURTLEDGER"
	defaultDatabaseURL    = "sqlite:///tmp/courtledger.db"
	defaultGRPCListenAddr = ":7000"
	defaultHTTPListenAddr = ":8080"
	defaultAMQPExchange   = "courtledger.events"
	defaultMaxOpenConns   = 10
	defaultBusyTimeout    = 5 * time.Second
)

type runtimeConfig struct {
	Database          databaseConfig
	GRPCListenAddr    string
	HTTP              httpapi.Config
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisKeyPrefix    string
	AMQPURL           string
	AMQPExchange      string
	ReconcileSchedule string
	DriftEpsilon      int64
}

// bindings maps config keys to their flag names and extra environment aliases.
var bindings = []struct {
	key     string
	flag    string
	aliases []string
}{
	{key: configKeyDatabaseURL, flag: flagDatabaseURL, aliases: []string{"DATABASE_URL"}},
	{key: configKeyDBMaxOpenConns, flag: flagDBMaxOpenConns},
	{key: configKeySQLiteBusyTimeout, flag: flagSQLiteBusyTimeout},
	{key: configKeyGRPCListenAddr, flag: flagGRPCListenAddr, aliases: []string{"GRPC_LISTEN_ADDR"}},
	{key: configKeyHTTPListenAddr, flag: flagHTTPListenAddr, aliases: []string{"HTTP_LISTEN_ADDR"}},
	{key: configKeyAllowedOrigins, flag: flagAllowedOrigins},
	{key: configKeyRedisAddr, flag: flagRedisAddr, aliases: []string{"REDIS_ADDR"}},
	{key: configKeyRedisPassword, flag: flagRedisPassword, aliases: []string{"REDIS_PASSWORD"}},
	{key: configKeyRedisDB, flag: flagRedisDB},
	{key: configKeyRedisKeyPrefix, flag: flagRedisKeyPrefix},
	{key: configKeyAMQPURL, flag: flagAMQPURL, aliases: []string{"AMQP_URL"}},
	{key: configKeyAMQPExchange, flag: flagAMQPExchange},
	{key: configKeyReconcileSchedule, flag: flagReconcileSchedule},
	{key: configKeyDriftEpsilon, flag: flagDriftEpsilon},
	{key: configKeyRequestTimeout, flag: flagRequestTimeout},
}

func registerFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL or SQLite connection string")
	flags.Int(flagDBMaxOpenConns, defaultMaxOpenConns, "PostgreSQL connection pool size (SQLite always uses one)")
	flags.Duration(flagSQLiteBusyTimeout, defaultBusyTimeout, "how long SQLite waits on a locked database")
	flags.String(flagGRPCListenAddr, defaultGRPCListenAddr, "gRPC listen address")
	flags.String(flagHTTPListenAddr, defaultHTTPListenAddr, "HTTP listen address (empty disables the HTTP API)")
	flags.String(flagAllowedOrigins, "", "comma-separated CORS origins")
	flags.String(flagRedisAddr, "", "Redis address for the balance cache (empty keeps balances in the database)")
	flags.String(flagRedisPassword, "", "Redis password")
	flags.Int(flagRedisDB, 0, "Redis database index")
	flags.String(flagRedisKeyPrefix, "", "Redis key prefix for cached balances")
	flags.String(flagAMQPURL, "", "AMQP URL for booking events (empty disables publishing)")
	flags.String(flagAMQPExchange, defaultAMQPExchange, "AMQP topic exchange for booking events")
	flags.String(flagReconcileSchedule, reconcile.DefaultSchedule, "cron spec for the balance reconcile sweep (\"off\" disables it)")
	flags.Int64(flagDriftEpsilon, 0, "tolerated cache/ledger balance difference")
	flags.Duration(flagRequestTimeout, 5*time.Second, "per-request timeout for the HTTP API")
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	for _, binding := range bindings {
		envNames := append([]string{envPrefix + "_" + strings.ToUpper(binding.key)}, binding.aliases...)
		if err := viper.BindEnv(append([]string{binding.key}, envNames...)...); err != nil {
			return err
		}
		if err := viper.BindPFlag(binding.key, cmd.Flags().Lookup(binding.flag)); err != nil {
			return err
		}
	}

	cfg.Database = databaseConfig{
		URL:               viper.GetString(configKeyDatabaseURL),
		MaxOpenConns:      viper.GetInt(configKeyDBMaxOpenConns),
		SQLiteBusyTimeout: viper.GetDuration(configKeySQLiteBusyTimeout),
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = defaultDatabaseURL
	}
	if cfg.Database.MaxOpenConns < 0 || cfg.Database.SQLiteBusyTimeout < 0 {
		return fmt.Errorf("database pool size and busy timeout must not be negative")
	}
	cfg.GRPCListenAddr = viper.GetString(configKeyGRPCListenAddr)
	if cfg.GRPCListenAddr == "" {
		cfg.GRPCListenAddr = defaultGRPCListenAddr
	}
	cfg.HTTP = httpapi.Config{
		ListenAddr:     viper.GetString(configKeyHTTPListenAddr),
		AllowedOrigins: httpapi.ParseAllowedOrigins(viper.GetString(configKeyAllowedOrigins)),
		RequestTimeout: viper.GetDuration(configKeyRequestTimeout),
	}
	cfg.RedisAddr = viper.GetString(configKeyRedisAddr)
	cfg.RedisPassword = viper.GetString(configKeyRedisPassword)
	cfg.RedisDB = viper.GetInt(configKeyRedisDB)
	cfg.RedisKeyPrefix = viper.GetString(configKeyRedisKeyPrefix)
	cfg.AMQPURL = viper.GetString(configKeyAMQPURL)
	cfg.AMQPExchange = viper.GetString(configKeyAMQPExchange)
	if cfg.AMQPExchange == "" {
		cfg.AMQPExchange = defaultAMQPExchange
	}
	cfg.ReconcileSchedule = viper.GetString(configKeyReconcileSchedule)
	cfg.DriftEpsilon = viper.GetInt64(configKeyDriftEpsilon)
	if cfg.DriftEpsilon < 0 {
		return fmt.Errorf("drift epsilon must not be negative")
	}
	if cfg.RedisDB < 0 {
		return fmt.Errorf("redis db must not be negative")
	}
	return nil
}
