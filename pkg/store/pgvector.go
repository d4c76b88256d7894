package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/neuradynamics/neurarag/internal/models"
)

type PGVectorConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int
}

// PGVector stores chunk embeddings in Postgres with the pgvector extension.
// A handle opened with NewPGVectorRebuild writes to a staging table and only
// takes over the live table name on Promote, so queries against the live
// table never observe a partially built index.
type PGVector struct {
	config    PGVectorConfig
	pool      *pgxpool.Pool
	liveTable string // non-empty while staging a rebuild
}

func NewPGVector(ctx context.Context, config PGVectorConfig) (*PGVector, error) {
	applyConfigDefaults(&config)

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &PGVector{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

// NewPGVectorRebuild opens a handle that populates <table>_staging. Any
// leftover staging table from an interrupted rebuild is dropped first.
// Promote swaps the staged table over the live one.
func NewPGVectorRebuild(ctx context.Context, config PGVectorConfig) (*PGVector, error) {
	applyConfigDefaults(&config)

	live := config.TableName
	config.TableName = live + "_staging"

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &PGVector{
		config:    config,
		pool:      pool,
		liveTable: live,
	}

	if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", config.TableName)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to drop stale staging table: %w", err)
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

// Promote replaces the live table with the staged one in a single
// transaction. No-op on handles not opened for a rebuild.
func (vs *PGVector) Promote(ctx context.Context) error {
	if vs.liveTable == "" {
		return nil
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin promote transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmts := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", vs.liveTable),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", vs.config.TableName, vs.liveTable),
		fmt.Sprintf("ALTER INDEX IF EXISTS %s_embedding_idx RENAME TO %s_embedding_idx",
			vs.config.TableName, vs.liveTable),
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to promote staging table: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit promote transaction: %w", err)
	}

	vs.config.TableName = vs.liveTable
	vs.liveTable = ""
	return nil
}

func applyConfigDefaults(config *PGVectorConfig) {
	if config.TableName == "" {
		config.TableName = "policy_chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
}

func (vs *PGVector) initialize(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			content TEXT,
			chunk_index INTEGER,
			start_offset INTEGER,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func (vs *PGVector) Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch")
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, source, content, chunk_index, start_offset, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			start_offset = EXCLUDED.start_offset,
			embedding = EXCLUDED.embedding`,
		vs.config.TableName)

	for start := 0; start < len(chunks); start += vs.config.BatchSize {
		end := start + vs.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		tx, err := vs.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		for i := start; i < end; i++ {
			chunk := chunks[i]
			id := fmt.Sprintf("%s:%d", chunk.Source, chunk.Index)

			_, err = tx.Exec(ctx, stmt,
				id,
				chunk.Source,
				sanitizeUTF8(chunk.Text),
				chunk.Index,
				chunk.Start,
				pgvector.NewVector(vectors[i]),
			)
			if err != nil {
				tx.Rollback(ctx)
				return fmt.Errorf("failed to insert chunk: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
	}

	return nil
}

func (vs *PGVector) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	n, err := vs.Len(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrEmptyIndex
	}

	// Cosine distance operator; similarity = 1 - distance. Ties keep the
	// insertion order: documents are loaded sorted by filename and chunks
	// are numbered in document order.
	query := fmt.Sprintf(`
		SELECT source, content, chunk_index, start_offset, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1, source, chunk_index
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var results []models.ScoredChunk
	for rows.Next() {
		var sc models.ScoredChunk
		err := rows.Scan(
			&sc.Chunk.Source,
			&sc.Chunk.Text,
			&sc.Chunk.Index,
			&sc.Chunk.Start,
			&sc.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, sc)
	}

	return results, rows.Err()
}

func (vs *PGVector) Len(ctx context.Context) (int, error) {
	var n int
	err := vs.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", vs.config.TableName)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

func (vs *PGVector) Clear(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s", vs.config.TableName))
	if err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	return nil
}

func (vs *PGVector) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
