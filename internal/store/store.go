package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
)

// settingsKey names the single wholesale settings document.
const settingsKey = "settings"

// OpRecorder counts document operations for monitoring. A nil recorder
// disables counting.
type OpRecorder interface {
	RecordStoreOp(operation, status string)
}

// Store persists documents in a sqlite key/value table. Writes are
// synchronous: Save returns only after the row is durably committed, so a
// crash immediately after a reported success never loses the write.
type Store struct {
	db      *sql.DB
	log     *logging.Logger
	metrics OpRecorder
	mu      sync.Mutex
}

// Open opens (creating if needed) the store at path.
func Open(path string, log *logging.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	// The driver is in-process; a single connection avoids writer contention.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// SetMetrics attaches an operation recorder.
func (s *Store) SetMetrics(rec OpRecorder) {
	s.metrics = rec
}

// record counts one finished operation. A missing row is an answered read,
// not a fault.
func (s *Store) record(op string, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		status = "error"
	}
	s.metrics.RecordStoreOp(op, status)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadSettings reads the settings document, returning the first-run defaults
// when no document exists yet.
func (s *Store) LoadSettings() (types.Settings, error) {
	raw, err := s.get(settingsKey)
	s.record("load_settings", err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.DefaultSettings(), nil
		}
		s.log.Error("settings read failed", zap.Error(err))
		return types.Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	var settings types.Settings
	if err := sonic.Unmarshal(raw, &settings); err != nil {
		s.log.Error("settings decode failed", zap.Error(err))
		return types.Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return settings, nil
}

// SaveSettings writes the whole settings document. Callers always persist the
// full document; there is no partial write path.
func (s *Store) SaveSettings(settings types.Settings) error {
	raw, err := sonic.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	err = s.put(settingsKey, raw)
	s.record("save_settings", err)
	if err != nil {
		s.log.Error("settings write failed", zap.Error(err))
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// SaveBounds persists a window rectangle under key.
func (s *Store) SaveBounds(key string, b types.Bounds) error {
	raw, err := sonic.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode bounds: %w", err)
	}
	err = s.put(key, raw)
	s.record("save_bounds", err)
	if err != nil {
		s.log.Error("bounds write failed", zap.Error(err))
		return fmt.Errorf("failed to write bounds: %w", err)
	}
	return nil
}

// LoadBounds returns the persisted rectangle under key, or nil when none was
// ever saved.
func (s *Store) LoadBounds(key string) (*types.Bounds, error) {
	raw, err := s.get(key)
	s.record("load_bounds", err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read bounds: %w", err)
	}
	var b types.Bounds
	if err := sonic.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("failed to decode bounds: %w", err)
	}
	return &b, nil
}

// Delete removes a document. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	_, err := s.db.Exec(`DELETE FROM documents WHERE key = ?`, key)
	s.mu.Unlock()
	s.record("delete", err)
	return err
}

func (s *Store) get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var raw []byte
	err := s.db.QueryRow(`SELECT value FROM documents WHERE key = ?`, key).Scan(&raw)
	return raw, err
}

func (s *Store) put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO documents (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// SpaceBoundsKey returns the document key for a space window's geometry.
func SpaceBoundsKey(spaceID string) string {
	return "space-" + spaceID + "-window-state"
}

// MainBoundsKey is the document key for the primary window's geometry.
const MainBoundsKey = "main-window-state"
