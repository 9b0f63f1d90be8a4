package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/xaenox/trafikkvarsel/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db}

	// Initialize database schema
	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	// Read migrations file
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	// Execute migrations
	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func (s *PostgresStorage) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %v", err)
	}
	return &postgresTx{tx: tx}, nil
}

func (s *PostgresStorage) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	query := `
		SELECT
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE NOT is_active),
			(SELECT COUNT(*) FROM records)
		FROM situations`

	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.ActiveSituations,
		&stats.InactiveSituations,
		&stats.Records,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("error querying stats: %v", err)
	}
	return stats, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

type postgresTx struct {
	tx   *sql.Tx
	done bool
}

func (t *postgresTx) FindSituation(ctx context.Context, id string) (*models.Situation, error) {
	query := `
		SELECT id, version_time, is_active
		FROM situations
		WHERE id = $1`

	situation := &models.Situation{}
	err := t.tx.QueryRowContext(ctx, query, id).Scan(
		&situation.ID,
		&situation.VersionTime,
		&situation.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying situation: %v", err)
	}
	return situation, nil
}

func (t *postgresTx) RecordKeys(ctx context.Context, situationID string) (map[models.RecordKey]struct{}, error) {
	query := `
		SELECT id, version
		FROM records
		WHERE situation_id = $1`

	rows, err := t.tx.QueryContext(ctx, query, situationID)
	if err != nil {
		return nil, fmt.Errorf("error querying record keys: %v", err)
	}
	defer rows.Close()

	keys := make(map[models.RecordKey]struct{})
	for rows.Next() {
		var key models.RecordKey
		if err := rows.Scan(&key.ID, &key.Version); err != nil {
			return nil, fmt.Errorf("error scanning record key: %v", err)
		}
		keys[key] = struct{}{}
	}
	return keys, rows.Err()
}

func (t *postgresTx) InsertSituation(ctx context.Context, situation *models.Situation) error {
	query := `
		INSERT INTO situations (id, version_time, is_active)
		VALUES ($1, $2, $3)`

	_, err := t.tx.ExecContext(ctx, query, situation.ID, situation.VersionTime, situation.IsActive)
	if err != nil {
		return fmt.Errorf("error inserting situation: %v", err)
	}

	for _, record := range situation.Records {
		record.SituationID = situation.ID
		if err := t.AppendRecord(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (t *postgresTx) UpdateVersionTime(ctx context.Context, id string, versionTime time.Time) error {
	query := `
		UPDATE situations
		SET version_time = $1
		WHERE id = $2`

	_, err := t.tx.ExecContext(ctx, query, versionTime, id)
	if err != nil {
		return fmt.Errorf("error updating version time: %v", err)
	}
	return nil
}

func (t *postgresTx) AppendRecord(ctx context.Context, record models.Record) error {
	query := `
		INSERT INTO records (situation_id, id, version, type, version_time, valid_from, valid_to, area, location, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := t.tx.ExecContext(
		ctx,
		query,
		record.SituationID,
		record.ID,
		record.Version,
		record.Type,
		record.VersionTime,
		record.ValidFrom,
		record.ValidTo,
		record.Area,
		record.Location,
		record.Comment,
	)
	if err != nil {
		return fmt.Errorf("error appending record: %v", err)
	}
	return nil
}

func (t *postgresTx) ListActive(ctx context.Context) ([]models.Situation, error) {
	query := `
		SELECT id, version_time, is_active
		FROM situations
		WHERE is_active`

	rows, err := t.tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying active situations: %v", err)
	}
	defer rows.Close()

	var situations []models.Situation
	for rows.Next() {
		var situation models.Situation
		if err := rows.Scan(&situation.ID, &situation.VersionTime, &situation.IsActive); err != nil {
			return nil, fmt.Errorf("error scanning situation: %v", err)
		}
		situations = append(situations, situation)
	}
	return situations, rows.Err()
}

func (t *postgresTx) MarkInactive(ctx context.Context, id string) error {
	query := `
		UPDATE situations
		SET is_active = FALSE
		WHERE id = $1`

	_, err := t.tx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error marking situation inactive: %v", err)
	}
	return nil
}

func (t *postgresTx) ListExpiredInactive(ctx context.Context, before time.Time) ([]string, error) {
	query := `
		SELECT id
		FROM situations
		WHERE NOT is_active AND version_time < $1`

	rows, err := t.tx.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("error querying expired situations: %v", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning situation id: %v", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *postgresTx) DeleteSituation(ctx context.Context, id string) error {
	// Records go with it via ON DELETE CASCADE.
	query := `
		DELETE FROM situations
		WHERE id = $1`

	_, err := t.tx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error deleting situation: %v", err)
	}
	return nil
}

func (t *postgresTx) Commit() error {
	t.done = true
	return t.tx.Commit()
}

func (t *postgresTx) Rollback() error {
	if t.done {
		return nil
	}
	return t.tx.Rollback()
}
