package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

type handleState int

const (
	handleUninitialized handleState = iota
	handleReady
	handleFailed
)

// Handle opens a backend on first use and remembers the outcome. A failed
// open is permanent: later calls report contract.ErrUnavailable without
// retrying. An open interrupted by the caller's context is not recorded.
type Handle[T any] struct {
	name string
	open func(ctx context.Context) (T, error)

	mu    sync.Mutex
	state handleState
	value T
	err   error
}

func NewHandle[T any](name string, open func(ctx context.Context) (T, error)) *Handle[T] {
	return &Handle[T]{name: name, open: open}
}

// Ready wraps an already-open backend.
func Ready[T any](name string, value T) *Handle[T] {
	return &Handle[T]{name: name, state: handleReady, value: value}
}

// Failed is a handle that never opens, used when configuration is missing.
func Failed[T any](name string, cause error) *Handle[T] {
	return &Handle[T]{name: name, state: handleFailed, err: cause}
}

func (h *Handle[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if h == nil {
		return zero, fmt.Errorf("%w: retrieval backend not configured", contractx.ErrUnavailable)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case handleReady:
		return h.value, nil
	case handleFailed:
		return zero, h.unavailable()
	}

	if h.open == nil {
		h.state = handleFailed
		h.err = errors.New("no opener")
		return zero, h.unavailable()
	}

	value, err := h.open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%w: %s: %w", contractx.ErrUnavailable, h.name, err)
		}
		h.state = handleFailed
		h.err = err
		log.Error().Err(err).Str("backend", h.name).Msg("retrieval backend failed to open, disabled until restart")
		return zero, h.unavailable()
	}

	h.state = handleReady
	h.value = value
	log.Info().Str("backend", h.name).Msg("retrieval backend ready")
	return value, nil
}

// Opened returns the backend only if an earlier Get opened it.
func (h *Handle[T]) Opened() (T, bool) {
	var zero T
	if h == nil {
		return zero, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != handleReady {
		return zero, false
	}
	return h.value, true
}

func (h *Handle[T]) unavailable() error {
	if h.err == nil {
		return fmt.Errorf("%w: %s", contractx.ErrUnavailable, h.name)
	}
	return fmt.Errorf("%w: %s: %w", contractx.ErrUnavailable, h.name, h.err)
}

// CollectionSource is anything that can hand out per-collection retrievers.
type CollectionSource interface {
	Collection(name string) Retriever
}

// Lazy returns a Retriever for one collection that opens the shared backend
// on first use.
func Lazy[T CollectionSource](h *Handle[T], collection string) Retriever {
	return &lazyRetriever[T]{handle: h, collection: collection}
}

type lazyRetriever[T CollectionSource] struct {
	handle     *Handle[T]
	collection string
}

func (r *lazyRetriever[T]) Search(ctx context.Context, query string, k int, filter Filter) ([]Document, error) {
	src, err := r.handle.Get(ctx)
	if err != nil {
		return nil, err
	}
	return src.Collection(r.collection).Search(ctx, query, k, filter)
}

func (r *lazyRetriever[T]) SearchMMR(ctx context.Context, query string, opts MMROptions) ([]Document, error) {
	src, err := r.handle.Get(ctx)
	if err != nil {
		return nil, err
	}
	return src.Collection(r.collection).SearchMMR(ctx, query, opts)
}
