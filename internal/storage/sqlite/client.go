package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/genbi-manufacturing/backend/internal/storage/models"
	"github.com/genbi-manufacturing/backend/pkg/logger"
)

var ErrNotFound = errors.New("not found")

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS semantic_mappings (
		id TEXT PRIMARY KEY,
		business_term TEXT NOT NULL UNIQUE,
		database_field TEXT NOT NULL,
		description TEXT,
		table_name TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		query_text TEXT NOT NULL,
		completion_source TEXT NOT NULL,
		extraction TEXT NOT NULL,
		collection TEXT,
		pipeline TEXT,
		chart_type TEXT,
		total_records INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		error TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_created ON query_history(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// UpsertMapping stores a glossary entry. A term that already exists keeps
// its id and takes the new field, description and table.
func (c *Client) UpsertMapping(ctx context.Context, m *models.SemanticMapping) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO semantic_mappings (id, business_term, database_field, description, table_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(business_term) DO UPDATE SET
			database_field = excluded.database_field,
			description = excluded.description,
			table_name = excluded.table_name
		RETURNING id
	`

	err := c.db.QueryRowContext(ctx, query,
		m.ID,
		m.BusinessTerm,
		m.DatabaseField,
		m.Description,
		m.TableName,
		m.CreatedAt.Unix(),
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert semantic mapping: %w", err)
	}

	logger.Info("Semantic mapping stored",
		zap.String("id", m.ID),
		zap.String("business_term", m.BusinessTerm),
	)

	return nil
}

func (c *Client) ListMappings(ctx context.Context) ([]models.SemanticMapping, error) {
	query := `
		SELECT id, business_term, database_field, description, table_name, created_at
		FROM semantic_mappings
		ORDER BY created_at, business_term
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list semantic mappings: %w", err)
	}
	defer rows.Close()

	mappings := []models.SemanticMapping{}
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}

	return mappings, rows.Err()
}

func (c *Client) GetMapping(ctx context.Context, id string) (*models.SemanticMapping, error) {
	query := `
		SELECT id, business_term, database_field, description, table_name, created_at
		FROM semantic_mappings WHERE id = ?
	`

	m, err := scanMapping(c.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMapping(s scanner) (models.SemanticMapping, error) {
	var m models.SemanticMapping
	var description, tableName sql.NullString
	var createdAt int64

	err := s.Scan(&m.ID, &m.BusinessTerm, &m.DatabaseField, &description, &tableName, &createdAt)
	if err == sql.ErrNoRows {
		return m, err
	}
	if err != nil {
		return m, fmt.Errorf("failed to scan semantic mapping: %w", err)
	}

	m.Description = description.String
	m.TableName = tableName.String
	m.CreatedAt = time.Unix(createdAt, 0)
	return m, nil
}

func (c *Client) InsertQueryRecord(ctx context.Context, record *models.QueryRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO query_history (id, query_text, completion_source, extraction, collection, pipeline,
			chart_type, total_records, failed, error, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	failed := 0
	if record.Failed {
		failed = 1
	}

	_, err := c.db.ExecContext(ctx, query,
		record.ID,
		record.QueryText,
		record.CompletionSource,
		record.Extraction,
		record.Collection,
		record.Pipeline,
		record.ChartType,
		record.TotalRecords,
		failed,
		record.Error,
		record.LatencyMS,
		record.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	logger.Debug("Query recorded",
		zap.String("query_id", record.ID),
		zap.String("query", record.QueryText),
		zap.Bool("failed", record.Failed),
	)

	return nil
}

// GetQueryHistory returns the most recent records first.
func (c *Client) GetQueryHistory(ctx context.Context, limit int) ([]models.QueryRecord, error) {
	query := `
		SELECT id, query_text, completion_source, extraction, collection, pipeline,
			chart_type, total_records, failed, error, latency_ms, created_at
		FROM query_history
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get query history: %w", err)
	}
	defer rows.Close()

	records := []models.QueryRecord{}
	for rows.Next() {
		var r models.QueryRecord
		var collection, pipeline, chartType, errText sql.NullString
		var failed int
		var createdAt int64

		err := rows.Scan(&r.ID, &r.QueryText, &r.CompletionSource, &r.Extraction, &collection, &pipeline,
			&chartType, &r.TotalRecords, &failed, &errText, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.Collection = collection.String
		r.Pipeline = pipeline.String
		r.ChartType = chartType.String
		r.Error = errText.String
		r.Failed = failed == 1
		r.CreatedAt = time.UnixMilli(createdAt)
		records = append(records, r)
	}

	return records, rows.Err()
}
