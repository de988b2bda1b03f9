package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reviewmonitor/internal/config"
	"reviewmonitor/internal/crm"
	"reviewmonitor/internal/db"
	"reviewmonitor/internal/gateway"
	"reviewmonitor/internal/lock"
	"reviewmonitor/internal/logger"
	"reviewmonitor/internal/metrics"
	"reviewmonitor/internal/pipeline"
	"reviewmonitor/internal/repository"
	"reviewmonitor/internal/util"
)

var sendEventsCmd = &cobra.Command{
	Use:   "send-events",
	Short: "Deliver pending negative review events to the CRM (one batch)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.CRM.Validate(); err != nil {
			return err
		}

		logger.Init(cfg.Log.Level)
		defer func() { _ = logger.Log.Sync() }()

		metrics.MustRegister(prometheus.DefaultRegisterer)

		runID := util.NewRunID()
		lg := logger.Log.With(zap.String("run_id", runID))

		mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		ctx := cmd.Context()

		// Guard against overlapping schedule invocations. Optional: without
		// Redis the scheduler is responsible for non-overlap.
		if cfg.Redis.Addr != "" {
			rdb, err := db.NewRedisClient(db.RedisOpts{
				Addr:        cfg.Redis.Addr,
				Password:    cfg.Redis.Password,
				DB:          cfg.Redis.DB,
				DialTimeout: cfg.Redis.DialTimeout,
			})
			if err != nil {
				return fmt.Errorf("redis connect: %w", err)
			}
			defer func() { _ = rdb.Close() }()

			runLock := lock.New(rdb, "rvmon:lock:send-events", cfg.Redis.LockTTL)
			ok, err := runLock.Acquire(ctx)
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !ok {
				lg.Info("another run holds the lock, exiting")
				return nil
			}
			defer func() { _ = runLock.Release(ctx) }()
		}

		// Call log is diagnostics only: a missing ClickHouse must not stop
		// delivery.
		var callLog gateway.CallLogger
		if cfg.ClickHouse.DSN != "" {
			chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
				DSN:             cfg.ClickHouse.DSN,
				MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
				MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
				ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
				ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
				PingTimeout:     cfg.ClickHouse.PingTimeout,
			})
			if err != nil {
				lg.Warn("clickhouse connect failed, running without call log", zap.Error(err))
			} else {
				defer func() { _ = chDB.Close() }()
				callLog = repository.NewCallLogRepository(chDB)
			}
		}

		gw := gateway.New("crm", cfg.CRM.Timeout, lg, callLog).WithRunID(runID)
		dir := crm.New(gw, cfg.CRM.BaseURL, cfg.CRM.AccessToken, cfg.CRM.Properties.PlaceID)

		sender := pipeline.NewSender(
			repository.NewEventRepository(mysqlDB),
			dir,
			cfg.CRM.Properties,
			cfg.Sender.BatchLimit,
			cfg.Sender.MaxAttempts,
			lg,
		)

		if _, err := sender.Run(ctx); err != nil {
			return fmt.Errorf("send events: %w", err)
		}
		return nil
	},
}
