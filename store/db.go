// Package store persists simulation runs in SQLite.
package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jancona/convsim/sim"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	// Pure Go SQLite driver, registered as "sqlite"
	"gorm.io/driver/sqlite"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("run not found")

// DB wraps the GORM database connection
type DB struct {
	db *gorm.DB
}

// Config holds database configuration
type Config struct {
	Path string // Path to SQLite database file
}

// Open opens or creates the database and migrates the schema.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		cfg.Path = "convsim.db"
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	gormLog := gormlogger.New(
		gormLogAdapter{},
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dialector := sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        cfg.Path,
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set %q: %w", pragma, err)
		}
	}

	if err := db.AutoMigrate(&Run{}, &Point{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Printf("[DEBUG] database initialized at %s", cfg.Path)

	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save stores r and its points in one transaction.
func (d *DB) Save(r *sim.Result) (*Run, error) {
	run := NewRun(r)
	if err := d.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to save run %s: %w", r.ID, err)
	}
	return run, nil
}

// Runs returns the most recently started runs, without their points.
func (d *DB) Runs(limit int) ([]Run, error) {
	var runs []Run
	err := d.db.Order("started DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// Run returns one run with its points in SNR order.
func (d *DB) Run(id string) (*Run, error) {
	var run Run
	err := d.db.Preload("Points", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("snr_db")
	}).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Points returns the points of a run in SNR order.
func (d *DB) Points(runID string) ([]Point, error) {
	var points []Point
	err := d.db.Where("run_id = ?", runID).Order("snr_db").Find(&points).Error
	return points, err
}

// Delete removes a run and its points.
func (d *DB) Delete(id string) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&Point{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Run{ID: id})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// gormLogAdapter routes GORM's logger to the standard log package
type gormLogAdapter struct{}

func (gormLogAdapter) Printf(format string, args ...interface{}) {
	log.Printf("[INFO] gorm: "+format, args...)
}
