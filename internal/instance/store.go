package instance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/namastexlabs/automagik-omni/internal/channel"

	_ "modernc.org/sqlite"
)

// Store persists instance configurations in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens (or creates) the database at path and bootstraps the schema.
// The special path ":memory:" keeps the store in memory.
func NewStore(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dir, err)
			}
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single pooled connection avoids lock churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: log.With(slog.String("component", "instance-store"))}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate instance schema: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS instances (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL UNIQUE,
		channel_type  TEXT NOT NULL,
		display_name  TEXT NOT NULL DEFAULT '',
		credentials   TEXT NOT NULL DEFAULT '{}',
		is_default    INTEGER NOT NULL DEFAULT 0,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_instances_type ON instances(channel_type);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new instance. The first instance ever created becomes the
// default automatically.
func (s *Store) Create(ctx context.Context, req CreateRequest) (Instance, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Instance{}, channel.NewValidationError("name", "must not be empty")
	}
	channelType, err := channel.ParseChannelType(req.ChannelType)
	if err != nil {
		return Instance{}, channel.NewValidationError("channel_type", "%v", err)
	}
	credentials := req.Credentials
	if credentials == nil {
		credentials = map[string]any{}
	}
	payload, err := json.Marshal(credentials)
	if err != nil {
		return Instance{}, fmt.Errorf("encode credentials: %w", err)
	}

	// The count, default clear, and insert must observe one consistent
	// snapshot or concurrent first-creates could both become default.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Instance{}, err
	}
	defer tx.Rollback()

	count := 0
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM instances`).Scan(&count); err != nil {
		return Instance{}, err
	}
	isDefault := req.IsDefault || count == 0

	now := time.Now().UTC()
	record := Instance{
		ID:          uuid.NewString(),
		Name:        name,
		ChannelType: channelType,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Credentials: credentials,
		IsDefault:   isDefault,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if isDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE instances SET is_default = 0`); err != nil {
			return Instance{}, err
		}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO instances (id, name, channel_type, display_name, credentials, is_default, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Name, record.ChannelType.String(), record.DisplayName,
		string(payload), boolToInt(record.IsDefault), record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return Instance{}, fmt.Errorf("instance %s: %w", name, ErrAlreadyExists)
		}
		return Instance{}, err
	}
	if err := tx.Commit(); err != nil {
		return Instance{}, err
	}
	s.logger.Info("instance created", slog.String("name", name), slog.String("channel", channelType.String()))
	return record, nil
}

// GetByName returns the instance with the given name, or ErrNotFound.
func (s *Store) GetByName(ctx context.Context, name string) (Instance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, channel_type, display_name, credentials, is_default, created_at, updated_at
		 FROM instances WHERE name = ?`, strings.TrimSpace(name))
	return scanInstance(row)
}

// GetDefault returns the default instance, or ErrNotFound when none is set.
func (s *Store) GetDefault(ctx context.Context) (Instance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, channel_type, display_name, credentials, is_default, created_at, updated_at
		 FROM instances WHERE is_default = 1 LIMIT 1`)
	return scanInstance(row)
}

// List returns every configured instance ordered by name.
func (s *Store) List(ctx context.Context) ([]Instance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, channel_type, display_name, credentials, is_default, created_at, updated_at
		 FROM instances ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Instance{}
	for rows.Next() {
		item, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListByType returns the instances configured for one channel type.
func (s *Store) ListByType(ctx context.Context, channelType channel.ChannelType) ([]Instance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, channel_type, display_name, credentials, is_default, created_at, updated_at
		 FROM instances WHERE channel_type = ? ORDER BY name`, channelType.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Instance{}
	for rows.Next() {
		item, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Delete removes the instance with the given name, or reports ErrNotFound.
func (s *Store) Delete(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM instances WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("instance %s: %w", name, ErrNotFound)
	}
	return nil
}

// SetDefault marks the named instance as default, clearing the previous one.
func (s *Store) SetDefault(ctx context.Context, name string) error {
	if _, err := s.GetByName(ctx, name); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE instances SET is_default = 0`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE instances SET is_default = 1, updated_at = ? WHERE name = ?`,
		time.Now().UTC(), strings.TrimSpace(name))
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row rowScanner) (Instance, error) {
	var item Instance
	var channelType, credentials string
	var isDefault int
	err := row.Scan(&item.ID, &item.Name, &channelType, &item.DisplayName,
		&credentials, &isDefault, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Instance{}, ErrNotFound
	}
	if err != nil {
		return Instance{}, err
	}
	item.ChannelType = channel.ChannelType(channelType)
	item.IsDefault = isDefault != 0
	item.Credentials, err = channel.DecodeMap([]byte(credentials))
	if err != nil {
		return Instance{}, fmt.Errorf("decode credentials for %s: %w", item.Name, err)
	}
	return item, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
