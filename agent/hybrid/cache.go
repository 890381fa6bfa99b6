package hybrid

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	"github.com/tanpawarit/Chative-Support-Router/agent/retrieval"
)

const (
	// StaticQuery is the fixed query used to pull policy documents once per session.
	StaticQuery = "billing policies refund terms payment"
	DefaultK    = 3

	NoResultsMessage = "No relevant billing information found."

	staticHeader  = "BILLING POLICIES (cached):\n"
	dynamicHeader = "CURRENT BILLING DATA:\n"
	tracerName    = "github.com/tanpawarit/Chative-Support-Router/agent/hybrid"
)

var (
	staticFilter  = retrieval.Filter{"type": "static"}
	dynamicFilter = retrieval.Filter{"type": "dynamic"}
)

// StaticStore memoizes the static context of a session. ok=false means the
// session has nothing cached yet; an empty string is a valid cached value.
type StaticStore interface {
	Get(ctx context.Context, sessionID string) (content string, ok bool, err error)
	Put(ctx context.Context, sessionID string, content string) error
}

type Option func(*Cache)

func WithK(k int) Option {
	return func(c *Cache) {
		if k > 0 {
			c.k = k
		}
	}
}

// Cache combines per-session cached policy text with per-query retrieval
// over the billing collection.
type Cache struct {
	retriever retrieval.Retriever
	static    StaticStore
	k         int
}

func New(retriever retrieval.Retriever, static StaticStore, opts ...Option) *Cache {
	c := &Cache{retriever: retriever, static: static, k: DefaultK}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Resolve returns the combined billing context for query. The only error it
// reports is contract.ErrUnavailable; every other retrieval failure degrades
// to less context.
func (c *Cache) Resolve(ctx context.Context, sessionID, query string) (string, error) {
	if c == nil || c.retriever == nil {
		return "", contractx.ErrUnavailable
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "hybrid.resolve")
	defer span.End()

	static, err := c.staticContext(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	dynamic, err := c.dynamicContext(ctx, query)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	span.SetAttributes(
		attribute.Bool("hybrid.static_present", static != ""),
		attribute.Bool("hybrid.dynamic_present", dynamic != ""),
	)
	return compose(static, dynamic), nil
}

func (c *Cache) staticContext(ctx context.Context, sessionID string) (string, error) {
	logger := log.With().Str("component", "hybrid").Str("session_id", sessionID).Logger()

	memoize := sessionID != "" && c.static != nil
	if memoize {
		cached, ok, err := c.static.Get(ctx, sessionID)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("static context lookup failed, refetching")
		case ok:
			return cached, nil
		}
	}

	logger.Info().Msg("caching billing policies for session")
	docs, err := c.retriever.Search(ctx, StaticQuery, c.k, staticFilter)
	content := ""
	switch {
	case errors.Is(err, contractx.ErrUnavailable):
		return "", err
	case err != nil:
		logger.Warn().Err(err).Msg("could not fetch static policies")
	default:
		content = joinContents(docs)
	}

	if memoize {
		if perr := c.static.Put(ctx, sessionID, content); perr != nil {
			logger.Warn().Err(perr).Msg("static context not memoized")
		}
	}
	return content, nil
}

func (c *Cache) dynamicContext(ctx context.Context, query string) (string, error) {
	docs, err := c.retriever.Search(ctx, query, c.k, dynamicFilter)
	if err == nil {
		return joinContents(docs), nil
	}
	if errors.Is(err, contractx.ErrUnavailable) {
		return "", err
	}

	log.Warn().Err(err).Str("component", "hybrid").Msg("could not fetch dynamic billing data, retrying unfiltered")
	docs, err = c.retriever.Search(ctx, query, c.k, nil)
	if err != nil {
		if errors.Is(err, contractx.ErrUnavailable) {
			return "", err
		}
		log.Warn().Err(err).Str("component", "hybrid").Msg("unfiltered billing search failed")
		return "", nil
	}
	return joinContents(docs), nil
}

func compose(static, dynamic string) string {
	var b strings.Builder
	if static != "" {
		b.WriteString(staticHeader)
		b.WriteString(static)
		b.WriteString("\n\n")
	}
	if dynamic != "" {
		b.WriteString(dynamicHeader)
		b.WriteString(dynamic)
	}
	if b.Len() == 0 {
		return NoResultsMessage
	}
	return b.String()
}

func joinContents(docs []retrieval.Document) string {
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	return strings.Join(parts, "\n\n")
}
