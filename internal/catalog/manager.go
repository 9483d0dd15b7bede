package catalog

import (
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kpath-io/kpath-search/internal/config"
	"github.com/kpath-io/kpath-search/internal/migrations"
)

// DriverType selects the underlying SQL backend. Postgres is the
// production driver (and the only one that gets the pgvector mirror,
// A7); sqlite (pure-Go, via glebarez/sqlite) backs fast in-process tests,
// mirroring the teacher's internal/database/manager.go dual-driver setup.
type DriverType string

const (
	DriverPostgres DriverType = "postgres"
	DriverSqlite   DriverType = "sqlite"
)

// Config configures the catalog's database connection.
type Config struct {
	Driver     DriverType
	DSN        string // postgres URL, or sqlite file path / ":memory:"
	EnableVectorMirror bool
}

// Manager owns the GORM connection and schema lifecycle for the catalog
// store. It exclusively owns entity rows (§3 ownership summary). The
// server, planner and lifecycle manager read through a Reader on the
// shared connection (NewReader), so the reads of one request are not
// taken from a single transactional snapshot; NewSessionReader opens such
// a snapshot but nothing in the service uses it.
type Manager struct {
	db       *gorm.DB
	config   Config
	initLock sync.Mutex
}

// NewManager opens a connection per Config. It does not migrate the
// schema; call Initialize for that.
func NewManager(cfg Config) (*Manager, error) {
	var db *gorm.DB
	var err error

	logLevel := logger.Silent
	switch config.GormLogLevel.Get() {
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	}

	gcfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	switch cfg.Driver {
	case DriverPostgres:
		db, err = gorm.Open(postgres.Open(cfg.DSN), gcfg)
	case DriverSqlite:
		db, err = gorm.Open(sqlite.Open(cfg.DSN), gcfg)
	default:
		return nil, fmt.Errorf("invalid catalog driver: %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}

	return &Manager{db: db, config: cfg}, nil
}

// Initialize brings the schema up to date. Postgres is driven by the
// embedded golang-migrate migrations in internal/migrations, which also
// create the vector extension and embedding mirror table, whether or not
// the vector mirror is enabled. Sqlite (test-only) has no migrate driver available
// and falls back to GORM's AutoMigrate directly.
func (m *Manager) Initialize() error {
	if m.config.Driver == DriverPostgres {
		sqlDB, err := m.db.DB()
		if err != nil {
			return fmt.Errorf("failed to obtain sql.DB for migrations: %w", err)
		}
		if err := migrations.Run(sqlDB); err != nil {
			return fmt.Errorf("failed to migrate catalog schema: %w", err)
		}
		return nil
	}

	if err := m.db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate catalog schema: %w", err)
	}
	return nil
}

// Reset drops all tables and optionally recreates them. Used by tests.
func (m *Manager) Reset(recreateTables bool) error {
	if !m.initLock.TryLock() {
		return fmt.Errorf("catalog reset already in progress")
	}
	defer m.initLock.Unlock()

	if err := m.db.Migrator().DropTable(AllModels()...); err != nil {
		return fmt.Errorf("failed to drop catalog tables: %w", err)
	}
	if recreateTables {
		return m.Initialize()
	}
	return nil
}

// DB returns the underlying *gorm.DB for use by Reader/Writer constructors.
func (m *Manager) DB() *gorm.DB { return m.db }

// Close closes the underlying connection.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
