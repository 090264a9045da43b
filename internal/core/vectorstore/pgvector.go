package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/Memora/internal/core"
)

var _ core.VectorStore = (*PgVectorStore)(nil)

// PgVectorStore implements core.VectorStore on Postgres with the pgvector
// extension. All records share one table; the namespace column carries the
// isolation boundary. The embedding column is fixed at 1536 dimensions in
// initdb.sql and must match EMBED_DIM.
type PgVectorStore struct {
	db *sql.DB
}

func NewPgVectorStore(ctx context.Context, databaseURL string) (*PgVectorStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := ensureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &PgVectorStore{db: db}, nil
}

func (s *PgVectorStore) Upsert(ctx context.Context, namespace string, rec core.Record) error {
	metaJSON, err := json.Marshal(rec.Meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	const q = `
		INSERT INTO memory_records (namespace, id, content, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (namespace, id)
		DO UPDATE SET content = EXCLUDED.content,
		              embedding = EXCLUDED.embedding,
		              metadata = EXCLUDED.metadata
	`
	if _, err := s.db.ExecContext(ctx, q,
		namespace, rec.ID, rec.Text, pgvector.NewVector(rec.Vector), metaJSON,
	); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PgVectorStore) Query(ctx context.Context, namespace string, vector []float32, topK int, filter *core.Filter) []core.Match {
	if topK <= 0 {
		return nil
	}

	where, args := buildFilter(filter, 3)
	q := fmt.Sprintf(`
		SELECT id, metadata, 1 - (embedding <=> $2) AS score
		FROM memory_records
		WHERE namespace = $1%s
		ORDER BY embedding <=> $2
		LIMIT %d
	`, where, topK)

	all := append([]any{namespace, pgvector.NewVector(vector)}, args...)
	return s.runQuery(ctx, namespace, q, all)
}

func (s *PgVectorStore) Sample(ctx context.Context, namespace string, limit int, filter *core.Filter) []core.Match {
	if limit <= 0 {
		return nil
	}

	where, args := buildFilter(filter, 2)
	q := fmt.Sprintf(`
		SELECT id, metadata, 0::float4 AS score
		FROM memory_records
		WHERE namespace = $1%s
		ORDER BY created_at DESC
		LIMIT %d
	`, where, limit)

	all := append([]any{namespace}, args...)
	return s.runQuery(ctx, namespace, q, all)
}

func (s *PgVectorStore) runQuery(ctx context.Context, namespace, q string, args []any) []core.Match {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		log.Printf("vectorstore: query on %q failed: %v", namespace, err)
		return nil
	}
	defer rows.Close()

	var out []core.Match
	for rows.Next() {
		var (
			m        core.Match
			metaJSON []byte
		)
		if err := rows.Scan(&m.ID, &metaJSON, &m.Score); err != nil {
			log.Printf("vectorstore: scan failed on %q: %v", namespace, err)
			return nil
		}
		if err := json.Unmarshal(metaJSON, &m.Meta); err != nil {
			log.Printf("vectorstore: bad metadata for %s: %v", m.ID, err)
			continue
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		log.Printf("vectorstore: rows on %q: %v", namespace, err)
		return nil
	}
	return out
}

func (s *PgVectorStore) Delete(ctx context.Context, namespace string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `DELETE FROM memory_records WHERE namespace = $1 AND id = ANY($2)`
	if _, err := s.db.ExecContext(ctx, q, namespace, ids); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PgVectorStore) DeleteAll(ctx context.Context, namespace string) error {
	const q = `DELETE FROM memory_records WHERE namespace = $1`
	if _, err := s.db.ExecContext(ctx, q, namespace); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PgVectorStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// buildFilter renders filter conditions against the jsonb metadata column,
// numbering placeholders from next.
func buildFilter(filter *core.Filter, next int) (string, []any) {
	if filter == nil {
		return "", nil
	}

	var (
		sb   strings.Builder
		args []any
	)
	for field, want := range filter.Equals {
		fmt.Fprintf(&sb, " AND metadata->>'%s' = $%d", field, next)
		args = append(args, want)
		next++
	}
	for field, set := range filter.In {
		fmt.Fprintf(&sb, " AND metadata->>'%s' = ANY($%d)", field, next)
		args = append(args, set)
		next++
	}
	return sb.String(), args
}
