package retrieval

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tanpawarit/Chative-Support-Router/agent/retrieval"

type Config struct {
	DSN              string        `envconfig:"DSN" split_words:"true"`
	Table            string        `envconfig:"TABLE" split_words:"true" default:"support_documents"`
	EmbeddingModel   string        `envconfig:"EMBEDDING_MODEL" split_words:"true" default:"text-embedding-3-small"`
	EmbeddingBaseURL string        `envconfig:"EMBEDDING_BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	EmbeddingAPIKey  string        `envconfig:"EMBEDDING_API_KEY" split_words:"true"`
	QueryTimeout     time.Duration `envconfig:"QUERY_TIMEOUT" split_words:"true" default:"10s"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.DSN) != ""
}

// PGVectorStore serves every collection from one pgvector table:
//
//	CREATE TABLE support_documents (
//	    id         bigserial PRIMARY KEY,
//	    collection text  NOT NULL,
//	    content    text  NOT NULL,
//	    metadata   jsonb NOT NULL DEFAULT '{}',
//	    embedding  vector(1536) NOT NULL
//	);
type PGVectorStore struct {
	db           *bun.DB
	embedder     Embedder
	table        string
	queryTimeout time.Duration
}

// OpenPGVector connects, pings and verifies the documents table exists.
func OpenPGVector(ctx context.Context, cfg Config, embedder Embedder) (*PGVectorStore, error) {
	if !cfg.Enabled() {
		return nil, errors.New("vector dsn is not configured")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(strings.TrimSpace(cfg.DSN))))
	db := bun.NewDB(sqldb, pgdialect.New())

	store, err := NewPGVectorStore(db, embedder, cfg.Table, cfg.QueryTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping vector store: %w", err)
	}

	var exists bool
	if err := db.NewRaw("SELECT to_regclass(?) IS NOT NULL", store.table).Scan(ctx, &exists); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("check documents table: %w", err)
	}
	if !exists {
		_ = db.Close()
		return nil, fmt.Errorf("documents table %q does not exist, run ingestion first", store.table)
	}
	return store, nil
}

func NewPGVectorStore(db *bun.DB, embedder Embedder, table string, queryTimeout time.Duration) (*PGVectorStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	table = strings.TrimSpace(table)
	if table == "" {
		table = "support_documents"
	}
	if queryTimeout <= 0 {
		queryTimeout = 10 * time.Second
	}
	return &PGVectorStore{db: db, embedder: embedder, table: table, queryTimeout: queryTimeout}, nil
}

func (s *PGVectorStore) Close() error {
	return s.db.Close()
}

func (s *PGVectorStore) Collection(name string) Retriever {
	return &pgCollection{store: s, name: name}
}

type pgCollection struct {
	store *PGVectorStore
	name  string
}

type documentRow struct {
	Content   string          `bun:"content"`
	Metadata  string          `bun:"metadata"`
	Embedding pgvector.Vector `bun:"embedding"`
}

func (c *pgCollection) Search(ctx context.Context, query string, k int, filter Filter) (_ []Document, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "retrieval.search")
	span.SetAttributes(
		attribute.String("retrieval.collection", c.name),
		attribute.Int("retrieval.k", k),
		attribute.Bool("retrieval.filtered", len(filter) > 0),
	)
	defer func() { endSpan(span, err) }()

	rows, err := c.nearest(ctx, query, k, filter)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, Document{Content: row.Content, Metadata: decodeMetadata(row.Metadata)})
	}
	span.SetAttributes(attribute.Int("retrieval.results", len(docs)))
	return docs, nil
}

func (c *pgCollection) SearchMMR(ctx context.Context, query string, opts MMROptions) (_ []Document, err error) {
	opts = opts.normalized()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "retrieval.search_mmr")
	span.SetAttributes(
		attribute.String("retrieval.collection", c.name),
		attribute.Int("retrieval.k", opts.K),
		attribute.Int("retrieval.fetch_k", opts.FetchK),
		attribute.Float64("retrieval.lambda", opts.Lambda),
	)
	defer func() { endSpan(span, err) }()

	queryVec, err := c.store.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := c.nearestByVector(ctx, queryVec, opts.FetchK, opts.Filter)
	if err != nil {
		return nil, err
	}

	candidates := make([][]float64, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, toFloat64(row.Embedding.Slice()))
	}

	picked := MaximalMarginalRelevance(queryVec, candidates, opts.Lambda, opts.K)
	docs := make([]Document, 0, len(picked))
	for _, idx := range picked {
		docs = append(docs, Document{Content: rows[idx].Content, Metadata: decodeMetadata(rows[idx].Metadata)})
	}
	span.SetAttributes(attribute.Int("retrieval.results", len(docs)))
	return docs, nil
}

func (c *pgCollection) nearest(ctx context.Context, query string, k int, filter Filter) ([]documentRow, error) {
	vec, err := c.store.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return c.nearestByVector(ctx, vec, k, filter)
}

func (c *pgCollection) nearestByVector(ctx context.Context, vec []float64, k int, filter Filter) ([]documentRow, error) {
	if k <= 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.store.queryTimeout)
	defer cancel()

	query, args, err := buildNearestQuery(c.store.table, c.name, vec, k, filter)
	if err != nil {
		return nil, err
	}

	var rows []documentRow
	if err := c.store.db.NewRaw(query, args...).Scan(ctx, &rows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Warn().Err(err).Str("collection", c.name).Msg("vector query failed")
		return nil, fmt.Errorf("vector query: %w", err)
	}
	return rows, nil
}

func buildNearestQuery(table, collection string, vec []float64, k int, filter Filter) (string, []any, error) {
	var b strings.Builder
	b.WriteString("SELECT content, metadata::text AS metadata, embedding FROM ? WHERE collection = ?")
	args := []any{bun.Ident(table), collection}

	if len(filter) > 0 {
		raw, err := json.Marshal(filter)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter: %w", err)
		}
		b.WriteString(" AND metadata @> ?::jsonb")
		args = append(args, string(raw))
	}

	b.WriteString(" ORDER BY embedding <=> ? LIMIT ?")
	args = append(args, pgvector.NewVector(toFloat32(vec)), k)
	return b.String(), args, nil
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}

func toFloat64(vec []float32) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}

func decodeMetadata(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}
	}
	meta := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		log.Debug().Err(err).Msg("document metadata is not a json object")
		return map[string]any{}
	}
	return meta
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
