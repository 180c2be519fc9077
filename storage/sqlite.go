// Package storage persists the communications graph in a SQLite case
// database: account types, deduplicated accounts, account instance marker
// artifacts, and the relationship edge set, plus the filtered query layer
// over them.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite holds the case database connections. WAL mode allows one writer
// and unlimited concurrent readers, so writes go through a
// single-connection pool and reads through a wider read-only pool. This is
// the shared/exclusive locking model of the store: writers serialize on
// the write pool and run inside one transaction, readers never block each
// other.
type SQLite struct {
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Path    string
	Logger  *zap.SugaredLogger
}

// configureConnection applies the standard pragmas to a pool: WAL journal,
// foreign keys, busy timeout.
func configureConnection(db *sql.DB, dbPath string) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	var fkEnabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		return fmt.Errorf("failed to verify foreign keys: %w", err)
	}
	if fkEnabled != 1 {
		return fmt.Errorf("foreign keys not enabled (got %d)", fkEnabled)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	// In-memory databases report "memory" journal mode, not "wal".
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to query journal mode: %w", err)
	}
	if dbPath != ":memory:" && journalMode != "wal" {
		return fmt.Errorf("WAL mode not enabled (got %s)", journalMode)
	}

	return nil
}

// NewSQLite opens (creating if needed) a case database at dbPath and
// ensures the schema exists.
func NewSQLite(dbPath string, logger *zap.SugaredLogger) (*SQLite, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// In-memory databases need shared cache so both pools see the same
	// database instead of two empty ones.
	actualPath := dbPath
	if dbPath == ":memory:" {
		actualPath = "file::memory:?cache=shared"
	}

	writeDB, err := sql.Open("sqlite", actualPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite write database: %w", err)
	}
	if err := configureConnection(writeDB, dbPath); err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to configure write connection: %w", err)
	}
	// Exactly one writer at a time; WAL requires it for consistency.
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)
	writeDB.SetConnMaxLifetime(0)
	writeDB.SetConnMaxIdleTime(10 * time.Minute)

	readDB, err := sql.Open("sqlite", actualPath)
	if err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to open SQLite read database: %w", err)
	}
	if err := configureConnection(readDB, dbPath); err != nil {
		_ = writeDB.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("failed to configure read connection: %w", err)
	}
	if _, err := readDB.Exec("PRAGMA query_only=ON"); err != nil {
		_ = writeDB.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("failed to enable query_only mode on read pool: %w", err)
	}
	readDB.SetMaxOpenConns(10)
	readDB.SetMaxIdleConns(5)
	readDB.SetConnMaxLifetime(5 * time.Minute)
	readDB.SetConnMaxIdleTime(10 * time.Minute)

	s := &SQLite{
		WriteDB: writeDB,
		ReadDB:  readDB,
		Path:    dbPath,
		Logger:  logger,
	}

	if err := s.createTables(); err != nil {
		_ = writeDB.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Infof("case database initialized at %s", dbPath)

	return s, nil
}

// WithTransaction executes fn inside a database transaction on the write
// pool, committing on success and rolling back on error or panic. Every
// write path in this package goes through here so no partial rows survive
// a failure.
func (s *SQLite) WithTransaction(fn func(*sql.Tx) error) error {
	tx, err := s.WriteDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction (original error: %w, rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// createTables creates the schema idempotently.
func (s *SQLite) createTables() error {
	if _, err := s.WriteDB.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	s.Logger.Debug("case database tables created/verified")
	return nil
}

const schema = `
	-- Account type catalogue
	CREATE TABLE IF NOT EXISTS account_types (
		account_type_id INTEGER PRIMARY KEY AUTOINCREMENT,
		type_name TEXT UNIQUE NOT NULL,
		display_name TEXT NOT NULL
	);

	-- Deduplicated account identities
	CREATE TABLE IF NOT EXISTS accounts (
		account_id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_type_id INTEGER NOT NULL,
		account_unique_identifier TEXT NOT NULL,
		FOREIGN KEY (account_type_id) REFERENCES account_types(account_type_id),
		UNIQUE (account_type_id, account_unique_identifier)
	);

	-- Data sources added to the case; one device may carry several
	CREATE TABLE IF NOT EXISTS data_sources (
		obj_id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id TEXT NOT NULL,
		name TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_data_sources_device_id ON data_sources(device_id);

	-- Evidence artifacts (messages, call logs, account markers, ...)
	CREATE TABLE IF NOT EXISTS artifacts (
		artifact_id INTEGER PRIMARY KEY AUTOINCREMENT,
		obj_id INTEGER NOT NULL,
		data_source_obj_id INTEGER NOT NULL,
		artifact_type_id INTEGER NOT NULL,
		FOREIGN KEY (data_source_obj_id) REFERENCES data_sources(obj_id)
	);
	CREATE INDEX IF NOT EXISTS idx_artifacts_type ON artifacts(artifact_type_id);
	CREATE INDEX IF NOT EXISTS idx_artifacts_obj_id ON artifacts(obj_id);
	CREATE INDEX IF NOT EXISTS idx_artifacts_data_source ON artifacts(data_source_obj_id);

	CREATE TABLE IF NOT EXISTS artifact_attributes (
		artifact_id INTEGER NOT NULL,
		attribute_type_id INTEGER NOT NULL,
		source TEXT,
		value_text TEXT,
		FOREIGN KEY (artifact_id) REFERENCES artifacts(artifact_id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_attributes_artifact_id ON artifact_attributes(artifact_id);
	CREATE INDEX IF NOT EXISTS idx_attributes_type_value ON artifact_attributes(attribute_type_id, value_text);

	-- Account to instance-artifact mapping
	CREATE TABLE IF NOT EXISTS account_to_instances_map (
		account_id INTEGER NOT NULL,
		account_instance_id INTEGER NOT NULL,
		FOREIGN KEY (account_id) REFERENCES accounts(account_id),
		FOREIGN KEY (account_instance_id) REFERENCES artifacts(artifact_id),
		UNIQUE (account_id, account_instance_id)
	);

	-- Undirected relationship edges; account1_id <= account2_id always,
	-- so the unique index treats (a,b) and (b,a) as the same edge
	CREATE TABLE IF NOT EXISTS relationships (
		account1_id INTEGER NOT NULL,
		account2_id INTEGER NOT NULL,
		communication_artifact_id INTEGER NOT NULL,
		FOREIGN KEY (account1_id) REFERENCES accounts(account_id),
		FOREIGN KEY (account2_id) REFERENCES accounts(account_id),
		FOREIGN KEY (communication_artifact_id) REFERENCES artifacts(artifact_id),
		UNIQUE (account1_id, account2_id, communication_artifact_id)
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_account1 ON relationships(account1_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_account2 ON relationships(account2_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_artifact ON relationships(communication_artifact_id);
`

// Close closes both connection pools.
func (s *SQLite) Close() error {
	var writeErr, readErr error
	if s.WriteDB != nil {
		writeErr = s.WriteDB.Close()
	}
	if s.ReadDB != nil && s.ReadDB != s.WriteDB {
		readErr = s.ReadDB.Close()
	}
	if writeErr != nil {
		return fmt.Errorf("failed to close write pool: %w", writeErr)
	}
	if readErr != nil {
		return fmt.Errorf("failed to close read pool: %w", readErr)
	}
	return nil
}

// HealthCheck verifies the database connection is alive.
func (s *SQLite) HealthCheck() error {
	return s.WriteDB.Ping()
}
