// Package dss implements the Durable Session Store: the transactional
// document store holding EditingSession and Activity records (SPEC_FULL
// §3), plus a minimal canvases table; it has no conversation or node
// tables. It is the fallback source of truth whenever the ESS is
// unavailable.
//
// Grounded on internal/db/database.go's Config validation (prevents SQL
// injection in connection-string construction) and migrate-on-boot idiom,
// trimmed from 82+ tables down to the handful the collaboration core
// actually owns.
package dss

import (
	"database/sql"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/cathalhughes/canvas-collab/internal/logger"
)

// Config holds DSS (Postgres) connection configuration.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Store wraps the Postgres connection pool backing the DSS.
type Store struct {
	db *sql.DB
}

var (
	hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-\.]{0,253}[a-zA-Z0-9])?$`)
	identRegex    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

func validateConfig(cfg Config) error {
	if cfg.Host == "" {
		return fmt.Errorf("dss host cannot be empty")
	}
	if net.ParseIP(cfg.Host) == nil && !hostnameRegex.MatchString(cfg.Host) {
		return fmt.Errorf("invalid dss host: %s", cfg.Host)
	}

	if cfg.Port == "" {
		return fmt.Errorf("dss port cannot be empty")
	}
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid dss port: %s (must be 1-65535)", cfg.Port)
	}

	if cfg.User == "" || !identRegex.MatchString(cfg.User) {
		return fmt.Errorf("invalid dss user: %s", cfg.User)
	}
	if cfg.DBName == "" || !identRegex.MatchString(cfg.DBName) {
		return fmt.Errorf("invalid dss database name: %s", cfg.DBName)
	}

	validSSLModes := []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
	if cfg.SSLMode != "" {
		valid := false
		for _, mode := range validSSLModes {
			if cfg.SSLMode == mode {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid ssl mode: %s (must be one of: %s)", cfg.SSLMode, strings.Join(validSSLModes, ", "))
		}
	}

	return nil
}

// New opens a pooled connection to the DSS and verifies connectivity.
func New(cfg Config) (*Store, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid dss configuration: %w", err)
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open dss connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping dss: %w", err)
	}

	return &Store{db: db}, nil
}

// NewForTesting wraps an existing *sql.DB (e.g. a sqlmock connection).
func NewForTesting(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection pool to repository files.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks liveness.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// Migrate creates the DSS schema if it does not already exist.
func (s *Store) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS editing_sessions (
			session_id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			user_name VARCHAR(255) NOT NULL,
			user_email VARCHAR(255),
			canvas_id VARCHAR(255) NOT NULL,
			conversation_id VARCHAR(255),
			node_id VARCHAR(255),
			editing_type VARCHAR(20) NOT NULL,
			editing_target VARCHAR(255) NOT NULL,
			started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_activity_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			is_active BOOLEAN NOT NULL DEFAULT true,
			has_lock BOOLEAN NOT NULL DEFAULT false,
			lock_expiry TIMESTAMPTZ,
			version BIGINT NOT NULL DEFAULT 1,
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_editing_sessions_canvas ON editing_sessions(canvas_id) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_editing_sessions_target ON editing_sessions(editing_target) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_editing_sessions_last_activity ON editing_sessions(last_activity_at)`,

		`CREATE TABLE IF NOT EXISTS activities (
			id VARCHAR(255) PRIMARY KEY,
			canvas_id VARCHAR(255) NOT NULL,
			conversation_id VARCHAR(255),
			node_id VARCHAR(255),
			user_id VARCHAR(255) NOT NULL,
			user_name VARCHAR(255) NOT NULL,
			type VARCHAR(50) NOT NULL,
			description TEXT NOT NULL,
			priority VARCHAR(20) NOT NULL,
			metadata JSONB,
			batch_id VARCHAR(255),
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_canvas_timestamp ON activities(canvas_id, timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_conversation ON activities(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_user ON activities(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_type ON activities(type)`,

		`CREATE TABLE IF NOT EXISTS canvases (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			deleted_at TIMESTAMPTZ
		)`,
	}

	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	logger.DSS().Info().Int("statements", len(migrations)).Msg("dss schema migrated")
	return nil
}
