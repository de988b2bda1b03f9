package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reviewmonitor/internal/config"
	"reviewmonitor/internal/db"
	"reviewmonitor/internal/gateway"
	"reviewmonitor/internal/lock"
	"reviewmonitor/internal/logger"
	"reviewmonitor/internal/metrics"
	"reviewmonitor/internal/monitor"
	"reviewmonitor/internal/repository"
	"reviewmonitor/internal/scrape"
	"reviewmonitor/internal/util"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Scan active businesses and ingest new reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Scrape.Validate(); err != nil {
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

			runLock := lock.New(rdb, "rvmon:lock:monitor", cfg.Redis.LockTTL)
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
		// the scan.
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

		gw := gateway.New("scrape", cfg.Scrape.Timeout, lg, callLog).WithRunID(runID)
		fetcher := scrape.New(gw, cfg.Scrape.Endpoint, cfg.Scrape.APIKey, cfg.Scrape.ReviewsLimit)

		mon := monitor.New(
			repository.NewBusinessRepository(mysqlDB),
			repository.NewReviewRepository(mysqlDB),
			fetcher,
			lg,
		)

		st, err := mon.Run(ctx)
		if err != nil {
			return fmt.Errorf("monitor: %w", err)
		}
		lg.Info("monitor complete",
			zap.Int("businesses", st.Businesses),
			zap.Int("new_reviews", st.NewReviews),
			zap.Int("new_events", st.NewEvents),
			zap.Int("errors", st.Errors),
		)
		return nil
	},
}
