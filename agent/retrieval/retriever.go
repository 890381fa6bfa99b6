package retrieval

import (
	"context"
	"fmt"
)

const (
	CollectionBilling   = "billing"
	CollectionTechnical = "technical"
)

// Document is one retrieved chunk. Metadata keys used by the support tools:
// type (static|dynamic), source, doc_type, bug_id, status.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MetaString returns metadata[key] as text, or fallback when absent.
func (d Document) MetaString(key, fallback string) string {
	v, ok := d.Metadata[key]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		if s == "" {
			return fallback
		}
		return s
	}
	return fmt.Sprint(v)
}

// Filter restricts results to documents whose metadata contains every pair.
type Filter map[string]string

type MMROptions struct {
	K      int
	FetchK int
	Lambda float64
	Filter Filter
}

func (o MMROptions) normalized() MMROptions {
	if o.K <= 0 {
		o.K = 4
	}
	if o.FetchK < o.K {
		o.FetchK = o.K
	}
	if o.Lambda < 0 {
		o.Lambda = 0
	}
	if o.Lambda > 1 {
		o.Lambda = 1
	}
	return o
}

// Retriever is the similarity-search capability of one document collection.
type Retriever interface {
	Search(ctx context.Context, query string, k int, filter Filter) ([]Document, error)
	SearchMMR(ctx context.Context, query string, opts MMROptions) ([]Document, error)
}
