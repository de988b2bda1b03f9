package cmd

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"reviewmonitor/internal/config"
	"reviewmonitor/internal/db"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo businesses",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo businesses...")
		if err := seedBusinesses(sqlDB); err != nil {
			return err
		}
		log.Println(">> Seed completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

type seedBusiness struct {
	name    string
	placeID string
	city    string
	state   string
	country string
}

// seedBusinesses inserts deterministic demo businesses (idempotent on place_id).
func seedBusinesses(dbx *sqlx.DB) error {
	rows := []seedBusiness{
		{"Acme Diner", "ChIJSeedAcmeDiner001", "Austin", "TX", "US"},
		{"Blue Harbor Seafood", "ChIJSeedBlueHarbor02", "Portland", "OR", "US"},
		{"Casa Verde Cantina", "ChIJSeedCasaVerde003", "Santa Fe", "NM", "US"},
		{"Daily Grind Coffee", "ChIJSeedDailyGrind04", "Chicago", "IL", "US"},
	}

	const q = `
		INSERT INTO businesses (name, place_id, city, state, country, active, created_at)
		VALUES (?, ?, ?, ?, ?, 1, NOW())
		ON DUPLICATE KEY UPDATE name = VALUES(name)
	`
	for _, b := range rows {
		if _, err := dbx.Exec(q, b.name, b.placeID, b.city, b.state, b.country); err != nil {
			return fmt.Errorf("seed business %s: %w", b.name, err)
		}
	}
	return nil
}
